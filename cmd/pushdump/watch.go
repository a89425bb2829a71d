package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pushdump/internal/events"
	"github.com/alfredjeanlab/pushdump/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow ingest events on the bus",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.NATSURL == "" {
			return errors.New("PUSHDUMP_NATS_URL is required to watch events")
		}
		topic, _ := cmd.Flags().GetString("topic")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		sub, err := events.NewNATSSubscriber(cfg.NATSURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				logger.Warn("nats disconnected", "err", err)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				logger.Info("nats reconnected")
			}),
		)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return fmt.Errorf("subscribing to events: %w", err)
		}
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				if jsonOutput {
					fmt.Println(string(msg.Data))
					continue
				}
				fmt.Println(formatEvent(time.Now(), msg))
			}
		}
	},
}

func init() {
	watchCmd.Flags().String("topic", events.TopicAll, "subject to follow (NATS wildcards allowed)")
}

// formatEvent renders one bus message as a single line.
func formatEvent(now time.Time, msg events.Message) string {
	ts := ui.RenderMuted(now.Format("15:04:05"))
	line := func(s string) string { return ts + " " + s }

	switch msg.Subject {
	case events.TopicIngestStarted:
		var e events.IngestStarted
		if json.Unmarshal(msg.Data, &e) == nil {
			return line(fmt.Sprintf("%s %s %s %s", ui.RenderAccent("started"), e.RunID, e.Kind, e.Source))
		}
	case events.TopicIngestBatch:
		var e events.IngestBatch
		if json.Unmarshal(msg.Data, &e) == nil {
			return line(fmt.Sprintf("%s %s #%d records=%d stored=%d duplicates=%d",
				ui.RenderMuted("batch"), e.RunID, e.Batch, e.Records, e.Stored, e.Duplicates))
		}
	case events.TopicIngestCompleted:
		var e events.IngestCompleted
		if json.Unmarshal(msg.Data, &e) == nil {
			s := e.Summary
			return line(fmt.Sprintf("%s %s %s lines=%d stored=%d failed=%s%s",
				ui.RenderOK("completed"), e.RunID, e.Source, s.Lines, s.Stored,
				ui.RenderCount(s.Failed, true), formatByKind(s.ByKind)))
		}
	case events.TopicIngestFailed:
		var e events.IngestFailed
		if json.Unmarshal(msg.Data, &e) == nil {
			return line(fmt.Sprintf("%s %s %s: %s", ui.RenderError("failed"), e.RunID, e.Source, e.Error))
		}
	case events.TopicIngestRequest:
		var e events.IngestRequest
		if json.Unmarshal(msg.Data, &e) == nil {
			return line(fmt.Sprintf("%s %s %s", ui.RenderAccent("requested"), e.RequestID, e.Source))
		}
	}
	return line(fmt.Sprintf("%s %s", msg.Subject, msg.Data))
}
