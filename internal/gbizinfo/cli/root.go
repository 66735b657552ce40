// Package cli holds the gbizinfo command tree.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/client"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/config"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/controller"
	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/events"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/tools"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCmd builds the gbizinfo command with every subcommand attached.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "gbizinfo",
		Short:         "gBizINFO corporate registry tools",
		Long:          "gbizinfo exposes the gBizINFO corporate registry API as tools over MCP, gRPC, REST and the command line.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to a YAML config file (environment variables override it)")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging, including upstream HTTP traffic")
	root.SetVersionTemplate(fmt.Sprintf("gbizinfo version %s\n", version))

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewMCPCmd(version))
	root.AddCommand(NewSearchCmd())
	root.AddCommand(NewToolsCmd())
	root.AddCommand(NewCallCmd())
	root.AddCommand(NewEventsCmd())
	return root
}

// app is the state every command starts from.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, exitError(exitUsage, "%s", err)
	}
	// --debug is folded in before the config is shared.
	cfg.DebugHTTP = cfg.DebugHTTP || debug

	logger, err := newLogger(cfg.DebugHTTP)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.Debug("configuration loaded", zap.Stringer("config", cfg))
	return &app{cfg: cfg, logger: logger}, nil
}

// newLogger returns a production logger, or a development one at debug
// level. Both write to stderr so stdout stays free for results.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// registry wires client, service and tool table. A nil producer disables
// lookup events.
func (a *app) registry(producer controller.EventProducer) (*tools.Registry, error) {
	svc := controller.NewCompanyService(client.New(a.cfg, a.logger), producer, a.cfg, a.logger)
	return tools.NewRegistry(svc, a.logger)
}

// producer returns a Kafka producer when brokers are configured, creating
// the topic first.
func (a *app) producer() (controller.EventProducer, func()) {
	if len(a.cfg.KafkaBrokers) == 0 {
		return events.NopProducer{}, func() {}
	}
	events.EnsureTopic(a.cfg.KafkaBrokers, a.cfg.Topic, a.logger)
	p := events.NewProducer(a.cfg.KafkaBrokers, a.cfg.Topic, a.logger)
	return p, p.Close
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// toolFailure turns a tool error into an ExitError whose message is the
// client payload JSON.
func toolFailure(err error) error {
	code := exitFailure
	if errors.Is(err, e.ErrInvalidInput) || errors.Is(err, e.ErrUnknownTool) {
		code = exitUsage
	}
	data, mErr := json.Marshal(e.ToPayload(err))
	if mErr != nil {
		return exitError(code, "%s", err)
	}
	return exitError(code, "%s", data)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
