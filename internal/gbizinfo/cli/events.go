package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/events"
	"github.com/spf13/cobra"
)

const defaultTailGroup = "gbizinfo-tail"

// NewEventsCmd creates the "events" command group.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect lookup events",
	}
	cmd.AddCommand(newEventsTailCmd())
	return cmd
}

func newEventsTailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print lookup events from the topic as JSON lines",
		Args:  cobra.NoArgs,
		RunE:  runEventsTail,
	}
	cmd.Flags().String("group", defaultTailGroup, "Kafka consumer group")
	cmd.Flags().StringSlice("type", nil, "Only print events of these types (company_searched, company_looked_up, updates_listed)")
	cmd.Flags().Bool("failed", false, "Only print failed lookups")
	return cmd
}

func runEventsTail(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if len(a.cfg.KafkaBrokers) == 0 {
		return exitError(exitUsage, "KAFKA_BROKERS is not configured")
	}
	group, _ := cmd.Flags().GetString("group")
	types, _ := cmd.Flags().GetStringSlice("type")
	failedOnly, _ := cmd.Flags().GetBool("failed")

	consumer := events.NewConsumer(a.cfg.KafkaBrokers, group, a.cfg.Topic, a.logger)
	defer consumer.Close()
	consumer.RegisterHandler(printEvent(cmd.OutOrStdout(), eventFilter(types, failedOnly)))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer.Run(ctx)
	return nil
}

// eventFilter keeps events of the given types (all when empty), and only
// failures when failedOnly is set.
func eventFilter(types []string, failedOnly bool) func(events.LookupEvent) bool {
	keep := make(map[events.EventType]bool, len(types))
	for _, t := range types {
		keep[events.EventType(t)] = true
	}
	return func(ev events.LookupEvent) bool {
		if failedOnly && !ev.Failed {
			return false
		}
		return len(keep) == 0 || keep[ev.Type]
	}
}

// printEvent writes each event that passes filter as one JSON line.
func printEvent(w io.Writer, filter func(events.LookupEvent) bool) func(context.Context, events.LookupEvent) error {
	enc := json.NewEncoder(w)
	return func(_ context.Context, ev events.LookupEvent) error {
		if !filter(ev) {
			return nil
		}
		return enc.Encode(ev)
	}
}
