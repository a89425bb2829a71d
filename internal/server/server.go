package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/alfredjeanlab/pushdump/internal/config"
	"github.com/alfredjeanlab/pushdump/internal/events"
	"github.com/alfredjeanlab/pushdump/internal/idgen"
	"github.com/alfredjeanlab/pushdump/internal/ingest"
	"github.com/alfredjeanlab/pushdump/internal/model"
	"github.com/alfredjeanlab/pushdump/internal/objstore"
	"github.com/alfredjeanlab/pushdump/internal/rejects"
	"github.com/alfredjeanlab/pushdump/internal/source"
	"github.com/alfredjeanlab/pushdump/internal/store"
)

// queueSize bounds the number of ingest requests waiting to run.
const queueSize = 64

// ErrQueueFull is returned by Submit when the request queue is full.
var ErrQueueFull = errors.New("ingest queue is full")

// Server runs ingest requests one at a time against a single store and
// exposes them over HTTP, gRPC health checks and NATS.
type Server struct {
	cfg       *config.Config
	store     store.Store
	publisher events.Publisher
	rejects   *rejects.Collector
	pipeline  *ingest.Pipeline
	hub       *eventHub
	logger    *slog.Logger

	queue chan job

	// open resolves a source location; replaced in tests.
	open func(ctx context.Context, location string) (io.ReadCloser, error)
}

type job struct {
	req  events.IngestRequest
	done func(events.IngestResult)
}

// New returns a Server. Events from every run go to pub and to connected
// event stream clients.
func New(cfg *config.Config, s store.Store, pub events.Publisher, rc *rejects.Collector, logger *slog.Logger) *Server {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		cfg:       cfg,
		store:     s,
		publisher: pub,
		rejects:   rc,
		hub:       newEventHub(),
		logger:    logger,
		queue:     make(chan job, queueSize),
	}
	srv.pipeline = ingest.New(s, srv, rc, logger)
	srv.open = func(ctx context.Context, location string) (io.ReadCloser, error) {
		return source.Open(ctx, location, source.Options{
			S3: objstore.Options{Region: cfg.S3Region, Endpoint: cfg.S3Endpoint},
		})
	}
	return srv
}

// Publish forwards a pipeline event to the bus and to stream clients.
// Failures are logged and never reach the caller.
func (s *Server) Publish(ctx context.Context, topic string, event any) error {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "err", err)
	}
	s.broadcastEvent(topic, event)
	return nil
}

// Close is a no-op; the caller owns the underlying publisher.
func (s *Server) Close() error {
	return nil
}

// Submit queues req. done, if non-nil, is called with the outcome from the
// queue goroutine. The request ID is assigned here when req has none.
func (s *Server) Submit(req events.IngestRequest, done func(events.IngestResult)) (string, error) {
	if req.Source == "" {
		return "", inputError("source is required")
	}
	if _, err := resolveKind(req); err != nil {
		return "", inputError(err.Error())
	}
	if req.RequestID == "" {
		id, err := idgen.NewRequestID()
		if err != nil {
			return "", fmt.Errorf("generate request id: %w", err)
		}
		req.RequestID = id
	}

	select {
	case s.queue <- job{req: req, done: done}:
		s.logger.Info("ingest request queued", "request_id", req.RequestID, "source", req.Source)
		return req.RequestID, nil
	default:
		return "", ErrQueueFull
	}
}

// Run processes queued requests until ctx is done.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			res := s.Ingest(ctx, j.req)
			if j.done != nil {
				j.done(res)
			}
		}
	}
}

// Ingest runs one request to completion.
func (s *Server) Ingest(ctx context.Context, req events.IngestRequest) events.IngestResult {
	res := events.IngestResult{RequestID: req.RequestID, Source: req.Source}

	kind, err := resolveKind(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Kind = kind.String()

	r, err := s.open(ctx, req.Source)
	if err != nil {
		res.Error = err.Error()
		s.logger.Error("open source failed", "request_id", req.RequestID, "source", req.Source, "err", err)
		return res
	}
	defer r.Close()

	stats, err := s.pipeline.Run(ctx, r, ingest.Options{
		Kind:      kind,
		Source:    req.Source,
		Workers:   s.cfg.Workers,
		BatchSize: s.cfg.BatchSize,
		OnError:   s.cfg.OnError,
		MaxErrors: s.cfg.MaxErrors,
		Filter:    s.cfg.Filter,
	})
	if stats != nil {
		res.RunID = stats.RunID
		res.Summary = stats.Summary()
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// resolveKind takes the kind from the request, or failing that from the
// dump's file name.
func resolveKind(req events.IngestRequest) (model.RecordKind, error) {
	if req.Kind != "" {
		return model.ParseRecordKind(req.Kind)
	}
	if kind, ok := source.KindFromName(req.Source); ok {
		return kind, nil
	}
	return "", fmt.Errorf("cannot infer record kind from %q", req.Source)
}

// broadcastEvent fans an event out to stream clients.
func (s *Server) broadcastEvent(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event for stream", "topic", topic, "err", err)
		return
	}
	s.hub.broadcast(topic, payload)
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }
