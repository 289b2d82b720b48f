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

	"github.com/dharsanguruparan/TalentDesk/internal/api"
	"github.com/dharsanguruparan/TalentDesk/internal/audit"
	"github.com/dharsanguruparan/TalentDesk/internal/backend"
	"github.com/dharsanguruparan/TalentDesk/internal/binding"
	"github.com/dharsanguruparan/TalentDesk/internal/captcha"
	"github.com/dharsanguruparan/TalentDesk/internal/config"
	"github.com/dharsanguruparan/TalentDesk/internal/events"
	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/intake"
	"github.com/dharsanguruparan/TalentDesk/internal/jobs"
	"github.com/dharsanguruparan/TalentDesk/internal/mailer"
	"github.com/dharsanguruparan/TalentDesk/internal/processing"
	"github.com/dharsanguruparan/TalentDesk/internal/queue"
	"github.com/dharsanguruparan/TalentDesk/internal/registry"
	"github.com/dharsanguruparan/TalentDesk/internal/s3storage"
	"github.com/dharsanguruparan/TalentDesk/internal/signing"
	"github.com/dharsanguruparan/TalentDesk/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("api stopped", "err", err)
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

	be, err := backend.Open(ctx, cfg, backend.Options{Migrate: true, Logger: logger})
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer be.Close()
	resolver := binding.NewResolver(be.Templates, be.Defaults, logger)

	var (
		apiResumes    api.ResumeStore
		workerResumes worker.ResumeSource
	)
	if cfg.StorageEnabled() {
		store, err := s3storage.New(cfg)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
		apiResumes, workerResumes = store, store
	} else {
		logger.Warn("S3_ENDPOINT not set, resume uploads disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	var (
		tasks     queue.Enqueuer
		publisher intake.Publisher
		stream    api.EventSource
	)
	if cfg.QueueEnabled() {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		client := asynq.NewClient(redisOpt)
		defer client.Close()
		tasks = queue.NewClient(client)

		rdb, err := events.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		publisher = events.NewPublisher(rdb)
		stream = func(ctx context.Context) <-chan events.Submitted { return events.Subscribe(ctx, rdb) }
	} else {
		logger.Warn("REDIS_ADDR not set, running background tasks in process")
		processor := worker.NewProcessor(be.Applications, be.Jobs, worker.Options{
			Resumes:        workerResumes,
			Mail:           newMailer(cfg, logger),
			NotifyEmail:    cfg.NotifyEmail,
			ResumeMaxBytes: cfg.ResumeMaxBytes,
			Logger:         logger,
		})
		pool := processing.New(processor.Handler(), cfg.WorkerConcurrency, logger)
		pool.Start(gctx)
		tasks = pool

		sched := audit.NewScheduler(audit.NewScanner(be.Jobs, logger), cfg.AuditSchedule)
		if err := sched.Start(gctx); err != nil {
			stop()
			pool.Wait()
			return fmt.Errorf("start audit: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			sched.Stop()
			pool.Wait()
			return nil
		})
	}

	var verifier captcha.Verifier = captcha.Noop{}
	if cfg.CaptchaSecret != "" {
		verifier = captcha.NewClient(cfg.CaptchaSecret, cfg.CaptchaVerifyURL)
	}

	srv := api.New(cfg, api.Deps{
		Templates: registry.NewService(be.Templates),
		Jobs:      jobs.NewService(be.Jobs),
		Intake: intake.NewService(be.Jobs, be.Applications, resolver, intake.Options{
			StrictFormats: cfg.IntakeStrictFormats,
			Formats:       formconfig.NewBuilder(),
			Events:        publisher,
			Tasks:         tasks,
			Logger:        logger,
		}),
		Resolver:     resolver,
		Applications: be.Applications,
		Resumes:      apiResumes,
		Events:       stream,
		Captcha:      verifier,
		Signer:       signing.NewSigner(cfg.AdminSigningSecret),
		Logger:       logger,
	})
	g.Go(func() error { return srv.Run(gctx) })

	return g.Wait()
}

func newMailer(cfg *config.Config, logger *slog.Logger) mailer.Sender {
	if cfg.SMTPHost == "" {
		return mailer.LogSender{Logger: logger}
	}
	return mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
}
