package cli

import (
	"fmt"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/handlers"
	"github.com/spf13/cobra"
)

// NewMCPCmd creates the "mcp" subcommand, an MCP server on stdin/stdout.
func NewMCPCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			producer, closeProducer := a.producer()
			defer closeProducer()

			registry, err := a.registry(producer)
			if err != nil {
				return fmt.Errorf("build tool registry: %w", err)
			}
			return handlers.ServeStdio(handlers.NewMCPServer(registry, version, a.logger))
		},
	}
}
