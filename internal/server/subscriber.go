package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/pushdump/internal/events"
)

// StartSubscriber queues every IngestRequest received on the bus until ctx
// is done. Requests that carry a reply subject get an IngestResult back
// there once their run finishes, or right away if they are refused.
func (s *Server) StartSubscriber(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicIngestRequest)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", events.TopicIngestRequest, err)
	}
	defer cancel()

	s.logger.Info("ingest request subscriber started", "subject", events.TopicIngestRequest)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ingest request subscriber stopping")
			return nil
		case msg, ok := <-ch:
			if !ok {
				s.logger.Info("ingest request subscription closed")
				return nil
			}
			s.handleRequest(ctx, msg)
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, msg events.Message) {
	var req events.IngestRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("bad ingest request payload", "subject", msg.Subject, "err", err)
		s.reply(ctx, msg.Reply, events.IngestResult{Error: "invalid JSON payload"})
		return
	}

	var done func(events.IngestResult)
	if msg.Reply != "" {
		done = func(res events.IngestResult) { s.reply(ctx, msg.Reply, res) }
	}
	if _, err := s.Submit(req, done); err != nil {
		s.logger.Warn("ingest request refused", "source", req.Source, "err", err)
		s.reply(ctx, msg.Reply, events.IngestResult{
			RequestID: req.RequestID,
			Source:    req.Source,
			Kind:      req.Kind,
			Error:     err.Error(),
		})
	}
}

func (s *Server) reply(ctx context.Context, subject string, res events.IngestResult) {
	if subject == "" {
		return
	}
	if err := s.publisher.Publish(ctx, subject, res); err != nil {
		s.logger.Warn("failed to reply to ingest request", "subject", subject, "err", err)
	}
}
