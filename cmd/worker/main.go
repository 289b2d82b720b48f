package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/TalentDesk/internal/audit"
	"github.com/dharsanguruparan/TalentDesk/internal/backend"
	"github.com/dharsanguruparan/TalentDesk/internal/config"
	"github.com/dharsanguruparan/TalentDesk/internal/mailer"
	"github.com/dharsanguruparan/TalentDesk/internal/s3storage"
	"github.com/dharsanguruparan/TalentDesk/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker stopped", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.QueueEnabled() {
		return errors.New("REDIS_ADDR is required for the worker")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for the worker")
	}

	be, err := backend.Open(ctx, cfg, backend.Options{Migrate: true, Logger: logger})
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer be.Close()

	opts := worker.Options{
		NotifyEmail:    cfg.NotifyEmail,
		ResumeMaxBytes: cfg.ResumeMaxBytes,
		Logger:         logger,
	}
	if cfg.StorageEnabled() {
		store, err := s3storage.New(cfg)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
		opts.Resumes = store
	}
	if cfg.SMTPHost != "" {
		opts.Mail = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}
	processor := worker.NewProcessor(be.Applications, be.Jobs, opts)

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn("task failed", "type", task.Type(), "retry", retried, "maxRetry", maxRetry, "err", err)
		}),
	})
	sched := audit.NewScheduler(audit.NewScanner(be.Jobs, logger), cfg.AuditSchedule)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(processor.Handler()); err != nil {
			return err
		}
		<-gctx.Done()
		server.Shutdown()
		return nil
	})
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	return g.Wait()
}
