package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/warrenhq/warren/internal/printer"
	"github.com/warrenhq/warren/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream claim events in real time",
	Long: `Subscribe to the campaign's claim-events channel and print each
claim as it lands. Delivery is at-most-once (Redis Pub/Sub); use
'warren status' for authoritative totals.

Examples:
  warren watch`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sub, err := a.store.SubscribeClaimEvents(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	printer.Step("watching claim events for campaign %s (ctrl-c to stop)\n", a.cfg.Campaign)

	for {
		select {
		case <-sigCh:
			return nil
		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			printer.Warning("event skipped: %v\n", err)
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := watch.WriteEvent(os.Stdout, event); err != nil {
				return err
			}
		}
	}
}
