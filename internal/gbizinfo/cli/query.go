package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/models"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/tools"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates "search <name> [page] [limit]".
func NewSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <name> [page] [limit]",
		Short: "Search companies by name and print a compact listing",
		Args:  cobra.RangeArgs(1, 3),
		RunE:  runSearch,
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := map[string]any{"name": args[0]}
	for i, key := range []string{"page", "limit"} {
		if len(args) <= i+1 {
			break
		}
		n, err := strconv.Atoi(args[i+1])
		if err != nil {
			return exitError(exitUsage, "%s must be an integer, got %q", key, args[i+1])
		}
		query[key] = n
	}
	raw, err := json.Marshal(query)
	if err != nil {
		return err
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	registry, err := a.registry(nil)
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}
	res, err := registry.Call(cmd.Context(), "search", raw)
	if err != nil {
		return toolFailure(err)
	}

	page, ok := res.(*models.PaginatedResult[models.Company])
	if !ok {
		return printJSON(cmd.OutOrStdout(), res)
	}
	return printJSON(cmd.OutOrStdout(), models.ListPage(page))
}

// NewToolsCmd creates "tools", which lists the tool table.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		Args:  cobra.NoArgs,
		RunE:  runTools,
	}
	cmd.Flags().Bool("json", false, "Print names, descriptions and input schemas as JSON")
	return cmd
}

func runTools(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	registry, err := a.registry(nil)
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		type entry struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"inputSchema"`
		}
		out := make([]entry, 0, len(registry.List()))
		for _, t := range registry.List() {
			out = append(out, entry{Name: t.Name, Description: t.Description, InputSchema: t.Schema})
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
	return writeToolTable(cmd.OutOrStdout(), registry.List())
}

func writeToolTable(w io.Writer, list []*tools.Tool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDESCRIPTION")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\n", t.Name, t.Description)
	}
	return tw.Flush()
}

// NewCallCmd creates "call <tool> [json-args]".
func NewCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [json-args]",
		Short: "Call one tool with JSON arguments and print the result",
		Example: `  gbizinfo call get_basic_info '{"corporateNumber":"1234567890123"}'
  gbizinfo call get_update_info '{"from":"20240101","to":"20240131"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runCall,
	}
}

func runCall(cmd *cobra.Command, args []string) error {
	var raw json.RawMessage
	if len(args) == 2 {
		raw = json.RawMessage(strings.TrimSpace(args[1]))
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	registry, err := a.registry(nil)
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}
	res, err := registry.Call(cmd.Context(), args[0], raw)
	if err != nil {
		return toolFailure(err)
	}
	return printJSON(cmd.OutOrStdout(), res)
}
