package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"docchat-be/pkg/events"
	pktNats "docchat-be/pkg/nats"

	"github.com/spf13/cobra"
)

var eventsType string

// eventsCmd implements 'events', which tails document lifecycle events until interrupted.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow document lifecycle events published on NATS",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.App.NatsURL == "" {
			return fmt.Errorf("NATS_URL is not set")
		}

		sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", faint("listening on"), pktNats.Subject(eventsType))
		return sub.Subscribe(ctx, eventsType, "", func(ctx context.Context, event events.Event) error {
			printEvent(out, event)
			return nil
		})
	},
}

func printEvent(w io.Writer, event events.Event) {
	label := pending(event.EventType())
	switch event.EventType() {
	case events.TypeDocumentReady:
		label = success(event.EventType())
	case events.TypeDocumentFailed:
		label = failure(event.EventType())
	}

	payload := event.Payload()
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "%s %s", faint(event.Timestamp().Format("15:04:05")), label)
	for _, k := range keys {
		fmt.Fprintf(w, " %s=%v", k, payload[k])
	}
	fmt.Fprintln(w)
}

func init() {
	eventsCmd.Flags().StringVar(&eventsType, "type", "*", "event type to follow")
	rootCmd.AddCommand(eventsCmd)
}
