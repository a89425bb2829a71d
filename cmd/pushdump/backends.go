package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/pushdump/internal/config"
	"github.com/alfredjeanlab/pushdump/internal/events"
	"github.com/alfredjeanlab/pushdump/internal/objstore"
	"github.com/alfredjeanlab/pushdump/internal/rejects"
	"github.com/alfredjeanlab/pushdump/internal/store"
	"github.com/alfredjeanlab/pushdump/internal/store/mongo"
	"github.com/alfredjeanlab/pushdump/internal/store/postgres"
)

// openStore connects to the configured backend. Postgres migrations run
// as part of opening.
func openStore(ctx context.Context, c *config.Config) (store.Store, error) {
	if err := c.RequireStore(); err != nil {
		return nil, err
	}
	if c.Backend == config.BackendMongo {
		s, err := mongo.New(ctx, c.MongoURI, c.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := postgres.New(c.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// openPublisher returns a NATS publisher, or a no-op one when no NATS URL
// is configured.
func openPublisher(c *config.Config) (events.Publisher, error) {
	if c.NATSURL == "" {
		logger.Debug("events disabled (PUSHDUMP_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(c.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("events enabled", "nats_url", c.NATSURL)
	return pub, nil
}

func s3Options(c *config.Config) objstore.Options {
	return objstore.Options{Region: c.S3Region, Endpoint: c.S3Endpoint}
}

// rejectDestination returns the configured reject sink, or nil when rejects
// are discarded.
func rejectDestination(ctx context.Context, c *config.Config) (rejects.Destination, error) {
	if c.Rejects == "" {
		return nil, nil
	}
	dest, err := rejects.NewDestination(ctx, c.Rejects, s3Options(c))
	if err != nil {
		return nil, fmt.Errorf("rejects destination %s: %w", c.Rejects, err)
	}
	return dest, nil
}
