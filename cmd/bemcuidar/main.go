package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/bemcuidar/internal/api"
	"github.com/terraincognita07/bemcuidar/internal/cache"
	"github.com/terraincognita07/bemcuidar/internal/cli"
	"github.com/terraincognita07/bemcuidar/internal/clients/viacep"
	"github.com/terraincognita07/bemcuidar/internal/config"
	"github.com/terraincognita07/bemcuidar/internal/db"
	"github.com/terraincognita07/bemcuidar/internal/logging"
	"github.com/terraincognita07/bemcuidar/internal/mailer"
	"github.com/terraincognita07/bemcuidar/internal/metrics"
	"github.com/terraincognita07/bemcuidar/internal/services"
)

const minSecretKeyLength = 32

const usage = `usage:
  bemcuidar                               run the HTTP server
  bemcuidar reset-password <email> [--prompt]
  bemcuidar guidelines [path]`

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(os.Args[1:], cfg, log, os.Stdout); err != nil {
		log.WithError(err).Fatal("bemcuidar exited")
	}
}

func run(args []string, cfg *config.Config, log *logrus.Logger, out io.Writer) error {
	if len(args) == 0 || args[0] == "serve" {
		return serve(cfg, log)
	}

	switch args[0] {
	case "reset-password":
		if len(args) < 2 {
			return errors.New(usage)
		}
		database, err := db.OpenSQLite(cfg.DBPath, log)
		if err != nil {
			return fmt.Errorf("database init failed: %w", err)
		}
		var source cli.PasswordSource
		if len(args) > 2 && args[2] == "--prompt" {
			source = cli.TerminalPasswordSource(os.Stdin, os.Stderr)
		}
		return cli.RunResetPasswordCommand(db.NewUserRepository(database), args[1], source, out)
	case "guidelines":
		path := cfg.GuidelinesPath
		if len(args) > 1 {
			path = args[1]
		}
		return cli.RunGuidelinesCommand(path, out)
	case "help", "-h", "--help":
		_, err := fmt.Fprintln(out, usage)
		return err
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func serve(cfg *config.Config, log *logrus.Logger) error {
	if err := validateSecretKey(cfg.SecretKey); err != nil {
		return err
	}
	if err := validatePort(cfg.Port); err != nil {
		return err
	}

	location, err := loadLocation(cfg.Timezone)
	if err != nil {
		return err
	}
	time.Local = location

	database, err := db.OpenSQLite(cfg.DBPath, log)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}

	guidelines, err := loadGuidelines(cfg.GuidelinesPath)
	if err != nil {
		return err
	}

	examCache, closeCache, err := newExamCache(cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	appMetrics := metrics.New()
	handler, err := api.NewHandler(api.Options{
		Database:     database,
		SecretKey:    cfg.SecretKey,
		Location:     location,
		CookieSecure: cfg.CookieSecure,
		Logger:       log,
		Guidelines:   guidelines,
		ExamCache:    examCache,
		Addresses:    viacep.NewClient(cfg.ViaCEPURL, cfg.ViaCEPRPS, log.WithField("component", "viacep")),
		Metrics:      appMetrics,
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}

	app := newApp(handler, appMetrics, log)

	lifecycleCtx, cancelLifecycle := context.WithCancel(context.Background())
	defer cancelLifecycle()
	if err := startReminders(lifecycleCtx, cfg, handler, appMetrics, location, log); err != nil {
		return err
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		cancelLifecycle()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Error("server shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{
		"port": cfg.Port,
		"db":   cfg.DBPath,
		"tz":   location.String(),
	}).Info("bemcuidar listening")
	return app.Listen(":" + cfg.Port)
}

func newApp(handler *api.Handler, appMetrics *metrics.Metrics, log *logrus.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Bem Cuidar",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${status} ${method} ${path} ${latency}\n",
		Output: logging.RequestWriter(log),
	}))
	app.Use(compress.New())
	app.Use(appMetrics.Middleware())

	api.RegisterRoutes(app, handler)
	return app
}

func newExamCache(cfg *config.Config, log *logrus.Logger) (services.ExamCache, func(), error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cfg.ExamCacheTTL), func() {}, nil
	}

	redisCache, err := cache.NewRedis(cfg.RedisAddr, cfg.ExamCacheTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis init failed: %w", err)
	}
	log.WithField("addr", cfg.RedisAddr).Info("exam cache backed by redis")
	return redisCache, func() {
		_ = redisCache.Close()
	}, nil
}

func startReminders(ctx context.Context, cfg *config.Config, handler *api.Handler, appMetrics *metrics.Metrics, location *time.Location, log *logrus.Logger) error {
	if !cfg.RemindersConfigured() {
		if cfg.ReminderEnabled {
			log.Warn("reminders enabled but SMTP_HOST or SMTP_FROM is missing")
		}
		return nil
	}

	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, log)
	reminders := services.NewReminderService(
		handler.Repositories().Users,
		handler.Preventive(),
		sender,
		location,
		log.WithField("component", "reminders"),
	)
	reminders.SetObserver(appMetrics)
	if _, err := reminders.Start(ctx, cfg.ReminderSchedule); err != nil {
		return err
	}
	log.WithField("schedule", cfg.ReminderSchedule).Info("exam reminders scheduled")
	return nil
}

func loadGuidelines(path string) (*services.ExamGuidelines, error) {
	if strings.TrimSpace(path) == "" {
		return services.DefaultExamGuidelines(), nil
	}
	return services.LoadExamGuidelinesFile(path)
}

func validateSecretKey(secret string) error {
	switch {
	case strings.TrimSpace(secret) == "":
		return errors.New("SECRET_KEY is required")
	case secret == "change_me_in_production":
		return errors.New("SECRET_KEY uses the insecure placeholder")
	case len(secret) < minSecretKeyLength:
		return fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyLength)
	}
	return nil
}

func validatePort(raw string) error {
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", raw)
	}
	return nil
}

// loadLocation rejects an unknown TZ; every exam due date depends on it.
func loadLocation(name string) (*time.Location, error) {
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", name, err)
	}
	return location, nil
}
