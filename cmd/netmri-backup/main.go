package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"netmri-backup/internal/backup"
	"netmri-backup/internal/config"
	"netmri-backup/internal/netmri"
	"netmri-backup/internal/observability"
	"netmri-backup/internal/observability/logger"
	"netmri-backup/internal/observability/metrics"
	"netmri-backup/internal/storage"
	storagetypes "netmri-backup/internal/storage/types"
)

const (
	exitOK      = 0
	exitFailure = 1

	pushTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, config.GetProvider())
	stop()
	os.Exit(code)
}

// Dependencies holds all initialized infrastructure components
type Dependencies struct {
	obs     *observability.DefaultProvider
	logFile io.Closer
	client  *netmri.Client
	mirror  storagetypes.ObjectStorage
	logger  observability.Logger
}

// run performs one backup and returns the process exit status.
func run(ctx context.Context, cfgProvider *config.Provider) int {
	cfg, err := loadConfiguration(cfgProvider)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return exitFailure
	}

	runID := uuid.NewString()

	deps, err := initializeObservability(cfg, runID)
	if err != nil {
		log.Printf("Failed to initialize logging: %v", err)
		return exitFailure
	}
	defer deps.close()

	logStartup(ctx, cfg, deps.logger)

	if err := initializeClient(ctx, cfg, deps); err != nil {
		deps.logger.Error(ctx, "Could not connect to NetMRI", err, observability.Fields{
			"host":    cfg.NetMRI.Host,
			"message": netmri.MessageOf(err),
		})
		pushMetrics(cfg, deps)
		return exitFailure
	}

	initializeMirror(ctx, cfg, deps)

	orchestrator := buildOrchestrator(cfg, deps, runID)
	report, err := orchestrator.Run(ctx)
	logOutcome(ctx, deps.logger, report, err)

	pushMetrics(cfg, deps)

	return exitCode(err)
}

// loadConfiguration loads and validates the application configuration
func loadConfiguration(cfgProvider *config.Provider) (*config.Config, error) {
	if err := cfgProvider.Load(); err != nil {
		return nil, err
	}
	return cfgProvider.Get()
}

// initializeObservability opens the day's rotating log file and builds the
// logger and metrics provider every component shares.
func initializeObservability(cfg *config.Config, runID string) (*Dependencies, error) {
	file, err := logger.NewRotatingFile(logger.FileConfig{
		Dir:        cfg.Log.Dir,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}, time.Now())
	if err != nil {
		return nil, err
	}

	var output io.Writer = file
	if cfg.Log.Stdout {
		output = io.MultiWriter(file, os.Stdout)
	}

	obs := observability.NewProvider(&observability.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		LogLevel:    cfg.Log.Level,
		LogFormat:   cfg.Log.Format,
		LogOutput:   output,
		AdditionalFields: observability.Fields{
			"run_id": runID,
		},
	})

	return &Dependencies{
		obs:     obs,
		logFile: file,
		logger:  obs.Logger("main"),
	}, nil
}

// logStartup logs application startup information
func logStartup(ctx context.Context, cfg *config.Config, appLogger observability.Logger) {
	appLogger.Debug(ctx, "Starting backup run", observability.Fields{
		"service":     cfg.ServiceName,
		"version":     cfg.Version,
		"environment": cfg.Environment,
		"host":        cfg.NetMRI.Host,
		"backup_dir":  cfg.Backup.RootDir,
		"mirror":      cfg.Storage.Provider,
	})
}

// initializeClient authenticates against the appliance
func initializeClient(ctx context.Context, cfg *config.Config, deps *Dependencies) error {
	client, err := netmri.NewClient(ctx, netmri.Config{
		Host:       cfg.NetMRI.Host,
		Username:   cfg.NetMRI.Username,
		Password:   cfg.NetMRI.Password,
		APIVersion: cfg.NetMRI.APIVersion,
		UseSSL:     cfg.NetMRI.UseSSL,
		SSLVerify:  cfg.NetMRI.SSLVerify,
		Timeout:    cfg.NetMRI.Timeout,
		UserAgent:  cfg.NetMRI.UserAgent,
	}, deps.obs.Logger("netmri"))
	if err != nil {
		return err
	}

	deps.client = client
	return nil
}

// initializeMirror sets up the optional off-site copy. A mirror that cannot
// be reached never stops the backup itself.
func initializeMirror(ctx context.Context, cfg *config.Config, deps *Dependencies) {
	if !cfg.IsMirrorEnabled() {
		return
	}

	mirror, err := storage.New(ctx, &cfg.Storage, deps.obs.Logger("storage"), deps.obs.Metrics("storage"))
	if err != nil {
		deps.logger.Warn(ctx, "Mirror unavailable, continuing without it", observability.Fields{
			"provider": cfg.Storage.Provider,
			"error":    err.Error(),
		})
		return
	}

	deps.mirror = mirror
}

// buildOrchestrator assembles the backup run
func buildOrchestrator(cfg *config.Config, deps *Dependencies, runID string) *backup.Orchestrator {
	return backup.NewOrchestrator(deps.client, backup.Options{
		BackupRoot: cfg.Backup.RootDir,
		Retry: backup.RetryPolicy{
			MaxAttempts:   cfg.Retry.MaxAttempts,
			BackoffFactor: cfg.Retry.BackoffFactor,
		},
		Clock:        clock.WallClock,
		Mirror:       deps.mirror,
		MirrorPrefix: cfg.Storage.S3.Prefix,
		RunID:        runID,
	}, deps.obs.Logger("backup"), deps.obs.Metrics("backup"))
}

func logOutcome(ctx context.Context, appLogger observability.Logger, report *backup.Report, err error) {
	fields := observability.Fields{
		"summary":    report.String(),
		"backup_dir": report.BackupDir,
	}

	switch {
	case err != nil:
		appLogger.Error(ctx, "Backup failed", err, fields)
	case len(report.Errors) > 0:
		for _, stepErr := range report.Errors {
			appLogger.Debug(ctx, "Step failed", observability.Fields{"error": stepErr.Error()})
		}
		appLogger.Warn(ctx, "Backup completed with errors", fields)
	default:
		appLogger.Debug(ctx, "Backup completed", fields)
	}
}

// pushMetrics sends the run's metrics to the Pushgateway when configured.
// The run's own context may already be cancelled, so the push gets its own.
func pushMetrics(cfg *config.Config, deps *Dependencies) {
	if !cfg.IsPushEnabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	grouping := map[string]string{"instance": metrics.SanitizeName(cfg.NetMRI.Host)}
	if err := deps.obs.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, grouping); err != nil {
		deps.logger.Warn(ctx, "Failed to push metrics", observability.Fields{
			"url":   cfg.Metrics.PushgatewayURL,
			"error": err.Error(),
		})
	}
}

// exitCode maps the run outcome to a process exit status. Only fatal step
// failures fail the process.
func exitCode(err error) int {
	if err == nil || !backup.IsFatal(err) {
		return exitOK
	}
	return exitFailure
}

// close releases the log file. The provider only closes its output when it
// is the file itself, not a tee to stdout.
func (d *Dependencies) close() {
	_ = d.obs.Close()
	if d.logFile != nil {
		_ = d.logFile.Close()
	}
}
