package main

import (
	"context"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/pushdump/internal/events"
	"github.com/alfredjeanlab/pushdump/internal/ingest"
	"github.com/alfredjeanlab/pushdump/internal/rejects"
	"github.com/alfredjeanlab/pushdump/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the ingest daemon",
	GroupID: "system",
	Long: `Run the ingest daemon. Requests arrive over HTTP (POST /v1/ingest) or
NATS (pushdump.ingest.request) and are processed one at a time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ingest.RegisterMetrics()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}

		publisher, err := openPublisher(cfg)
		if err != nil {
			st.Close()
			return err
		}

		// Rejects are collected only while a scheduler drains them.
		var collector *rejects.Collector
		var scheduler *rejects.Scheduler
		dest, err := rejectDestination(ctx, cfg)
		if err != nil {
			logger.Error("failed to create rejects destination", "err", err)
		} else if dest != nil && cfg.RejectsInterval > 0 {
			collector = rejects.NewCollector()
			scheduler = rejects.NewScheduler(collector, []rejects.Destination{dest}, cfg.RejectsInterval, logger)
		}

		srv := server.New(cfg, st, publisher, collector, logger)
		grpcServer, health := server.NewGRPCServer(cfg.AuthToken, logger)

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			publisher.Close()
			st.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		if scheduler != nil {
			scheduler.Start()
			logger.Info("rejects scheduler started", "destination", cfg.Rejects, "interval", cfg.RejectsInterval)
		}

		runCtx, cancelRuns := context.WithCancel(context.Background())
		runsDone := make(chan struct{})
		go func() {
			srv.Run(runCtx)
			close(runsDone)
		}()

		var subDone chan struct{}
		if cfg.NATSURL != "" {
			sub, err := events.NewNATSSubscriber(cfg.NATSURL)
			if err != nil {
				logger.Error("failed to create ingest request subscriber", "err", err)
			} else {
				subDone = make(chan struct{})
				go func() {
					defer close(subDone)
					if err := srv.StartSubscriber(ctx, sub); err != nil {
						logger.Error("ingest request subscriber error", "err", err)
					}
					sub.Close()
				}()
			}
		}

		logger.Info("pushdump server started",
			"backend", cfg.Backend,
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		<-ctx.Done()
		logger.Info("received signal, shutting down")
		health.Shutdown()

		if subDone != nil {
			<-subDone
		}

		// The current run is canceled; queued requests are dropped.
		cancelRuns()
		<-runsDone

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("rejects scheduler stopped")
		}

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
