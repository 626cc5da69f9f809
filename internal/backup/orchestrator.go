// Package backup runs one NetMRI database backup: it asks the appliance for
// an archive, downloads it with its checksum into a dated directory and
// removes the copy left on the appliance.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/clock"

	"netmri-backup/internal/netmri"
	"netmri-backup/internal/observability/types"
	storagetypes "netmri-backup/internal/storage/types"
)

// ArchiveAPI is the appliance side of a backup run.
type ArchiveAPI interface {
	CreateArchive(ctx context.Context, req netmri.ArchiveRequest) (string, error)
	DownloadArchive(ctx context.Context, dir string) (*netmri.DownloadResult, error)
	DownloadArchiveChecksum(ctx context.Context, dir string) (*netmri.DownloadResult, error)
	RemoveArchive(ctx context.Context) (string, error)
}

// Options configures an Orchestrator.
type Options struct {
	// BackupRoot holds one sub-directory per day.
	BackupRoot string
	Retry      RetryPolicy
	// Clock defaults to clock.WallClock.
	Clock clock.Clock
	// Mirror is optional; when set, downloaded files are copied to it.
	Mirror       storagetypes.ObjectStorage
	MirrorPrefix string
	RunID        string
}

// Report summarises a run. Errors holds the non-fatal failures; a fatal one
// is returned by Run instead.
type Report struct {
	RunID            string
	BackupDir        string
	Archive          *netmri.DownloadResult
	Checksum         *netmri.DownloadResult
	Retries          int
	ChecksumVerified bool
	Mirrored         []string
	Errors           []error
}

// Orchestrator runs the backup steps in order.
type Orchestrator struct {
	api     ArchiveAPI
	opts    Options
	clock   clock.Clock
	logger  types.Logger
	metrics types.Metrics
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(api ArchiveAPI, opts Options, logger types.Logger, metrics types.Metrics) *Orchestrator {
	clk := opts.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	return &Orchestrator{
		api:     api,
		opts:    opts,
		clock:   clk,
		logger:  logger,
		metrics: metrics,
	}
}

// Run executes prepare, create, download, checksum download, checksum
// verification, mirroring and remote removal in that order. The returned
// error is always a fatal *StepError; the report is never nil.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: o.opts.RunID}

	dir, err := o.Prepare(ctx)
	if err != nil {
		return report, err
	}
	report.BackupDir = dir

	if _, err := o.InitiateArchive(ctx); err != nil {
		return report, err
	}

	state := o.opts.Retry.NewState()
	archive, err := o.DownloadArchive(ctx, dir, state)
	report.Retries = state.Attempt
	if err != nil {
		return report, err
	}
	report.Archive = archive

	checksum, err := o.DownloadArchiveChecksum(ctx, dir)
	if err != nil {
		report.Errors = append(report.Errors, err)
	} else {
		report.Checksum = checksum

		if err := o.VerifyChecksum(ctx, archive, checksum); err != nil {
			report.Errors = append(report.Errors, err)
		} else {
			report.ChecksumVerified = true
		}
	}

	if o.opts.Mirror != nil {
		keys, errs := o.MirrorFiles(ctx, filepath.Base(dir), archive, checksum)
		report.Mirrored = keys
		report.Errors = append(report.Errors, errs...)
	}

	if _, err := o.DeleteRemoteArchive(ctx); err != nil {
		report.Errors = append(report.Errors, err)
	}

	return report, nil
}

// Prepare creates today's backup directory.
func (o *Orchestrator) Prepare(ctx context.Context) (string, error) {
	done := o.observe(ctx, StepPrepare)

	dir := DatedDir(o.opts.BackupRoot, o.clock.Now())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		done(err)
		o.logger.Error(ctx, "Failed to create backup directory", err, types.Fields{
			"path": dir,
		})
		return "", &StepError{Step: StepPrepare, Fatal: true, Err: err}
	}

	done(nil)
	o.logger.Debug(ctx, "Backup directory ready", types.Fields{"path": dir})
	return dir, nil
}

// InitiateArchive asks the appliance to build the archive. Any failure is
// fatal.
func (o *Orchestrator) InitiateArchive(ctx context.Context) (string, error) {
	done := o.observe(ctx, StepCreateArchive)

	msg, err := o.api.CreateArchive(ctx, netmri.ArchiveRequest{Init: true, Async: true})
	done(err)
	if err != nil {
		o.logAPIError(ctx, "Failed to create archive", netmri.MethodCreateArchive, err)
		return "", &StepError{Step: StepCreateArchive, Fatal: true, Err: err}
	}

	o.logger.Info(ctx, "Archive creation requested", types.Fields{
		"operation": netmri.MethodCreateArchive,
		"message":   msg,
	})
	return msg, nil
}

// DownloadArchive downloads the archive into dir, retrying failures as
// allowed by state. Running out of retries is fatal.
func (o *Orchestrator) DownloadArchive(ctx context.Context, dir string, state *RetryState) (*netmri.DownloadResult, error) {
	done := o.observe(ctx, StepDownloadArchive)

	var result *netmri.DownloadResult
	onRetry := func(s *RetryState, delay time.Duration, err error) {
		o.metrics.RecordError(StepDownloadArchive, categorizeError(ctx, err))
		o.logger.Warn(ctx, "Archive download failed, retrying", types.Fields{
			"operation":    netmri.MethodDownloadArchive,
			"message":      netmri.MessageOf(err),
			"attempt":      s.Attempt,
			"max_attempts": s.MaxAttempts,
			"backoff":      delay.String(),
		})
	}

	err := retry(ctx, o.clock, state, onRetry, func(ctx context.Context) error {
		var err error
		result, err = o.api.DownloadArchive(ctx, dir)
		return err
	})
	done(err)
	if err != nil {
		o.logAPIError(ctx, "Failed to download archive", netmri.MethodDownloadArchive, err)
		return nil, &StepError{Step: StepDownloadArchive, Fatal: true, Err: err}
	}

	o.metrics.RecordFileSize("archive", result.Size)
	o.logger.Info(ctx, "Archive downloaded", types.Fields{
		"operation": netmri.MethodDownloadArchive,
		"filename":  result.Filename,
		"status":    result.Status,
	})
	return result, nil
}

// DownloadArchiveChecksum downloads the archive's checksum file into dir.
// Failures are not fatal.
func (o *Orchestrator) DownloadArchiveChecksum(ctx context.Context, dir string) (*netmri.DownloadResult, error) {
	done := o.observe(ctx, StepDownloadChecksum)

	result, err := o.api.DownloadArchiveChecksum(ctx, dir)
	done(err)
	if err != nil {
		o.logAPIError(ctx, "Failed to download archive checksum", netmri.MethodDownloadArchiveChecksum, err)
		return nil, &StepError{Step: StepDownloadChecksum, Err: err}
	}

	o.logger.Info(ctx, "Archive checksum downloaded", types.Fields{
		"operation": netmri.MethodDownloadArchiveChecksum,
		"filename":  result.Filename,
		"status":    result.Status,
	})
	return result, nil
}

// VerifyChecksum checks the archive against the downloaded checksum file.
// Failures are not fatal.
func (o *Orchestrator) VerifyChecksum(ctx context.Context, archive, checksum *netmri.DownloadResult) error {
	done := o.observe(ctx, StepVerifyChecksum)

	err := VerifyChecksum(archive.Path, checksum.Path)
	done(err)
	if err != nil {
		o.logger.Warn(ctx, "Archive checksum verification failed", types.Fields{
			"archive":  archive.Filename,
			"checksum": checksum.Filename,
			"error":    err.Error(),
		})
		return &StepError{Step: StepVerifyChecksum, Err: err}
	}

	o.logger.Debug(ctx, "Archive checksum verified", types.Fields{
		"archive": archive.Filename,
	})
	return nil
}

// MirrorFiles uploads the downloaded files to the mirror under
// <prefix>/<date>/. It returns the keys written and one error per file that
// could not be copied.
func (o *Orchestrator) MirrorFiles(ctx context.Context, date string, files ...*netmri.DownloadResult) ([]string, []error) {
	var keys []string
	var errs []error

	for _, file := range files {
		if file == nil {
			continue
		}

		key := MirrorKey(o.opts.MirrorPrefix, date, file.Filename)
		if err := o.mirrorFile(ctx, key, file); err != nil {
			o.logger.Warn(ctx, "Failed to mirror backup file", types.Fields{
				"filename": file.Filename,
				"key":      key,
				"error":    err.Error(),
			})
			errs = append(errs, &StepError{Step: StepMirror, Err: err})
			continue
		}

		o.logger.Debug(ctx, "Backup file mirrored", types.Fields{
			"filename": file.Filename,
			"key":      key,
		})
		keys = append(keys, key)
	}

	return keys, errs
}

func (o *Orchestrator) mirrorFile(ctx context.Context, key string, file *netmri.DownloadResult) (err error) {
	done := o.observe(ctx, StepMirror)
	defer func() { done(err) }()

	f, err := os.Open(file.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	return o.opts.Mirror.Put(ctx, "", key, f, storagetypes.ObjectMetadata{
		ContentType:   "application/octet-stream",
		ContentLength: file.Size,
		UserMetadata: map[string]string{
			"run-id":   o.opts.RunID,
			"filename": file.Filename,
		},
	})
}

// DeleteRemoteArchive removes the archive from the appliance. Failures are
// not fatal.
func (o *Orchestrator) DeleteRemoteArchive(ctx context.Context) (string, error) {
	done := o.observe(ctx, StepRemoveArchive)

	msg, err := o.api.RemoveArchive(ctx)
	done(err)
	if err != nil {
		o.logAPIError(ctx, "Failed to remove remote archive", netmri.MethodRemoveArchive, err)
		return "", &StepError{Step: StepRemoveArchive, Err: err}
	}

	o.logger.Info(ctx, "Remote archive removed", types.Fields{
		"operation": netmri.MethodRemoveArchive,
		"message":   msg,
	})
	return msg, nil
}

// observe starts the metrics for step and returns the function that
// finishes them.
func (o *Orchestrator) observe(ctx context.Context, step string) func(error) {
	o.metrics.StartOperation(step)
	start := o.clock.Now()

	return func(err error) {
		o.metrics.EndOperation(step)
		o.metrics.RecordDuration(step, o.clock.Now().Sub(start).Seconds())
		if err != nil {
			o.metrics.RecordError(step, categorizeError(ctx, err))
			return
		}
		o.metrics.RecordSuccess(step)
	}
}

func (o *Orchestrator) logAPIError(ctx context.Context, msg, operation string, err error) {
	o.logger.Error(ctx, msg, err, types.Fields{
		"operation": operation,
		"message":   netmri.MessageOf(err),
	})
}

// String renders a one-line summary used in the final run log.
func (r *Report) String() string {
	archive := "none"
	if r.Archive != nil {
		archive = r.Archive.Filename
	}
	return fmt.Sprintf("archive=%s retries=%d checksum_verified=%t mirrored=%d errors=%d",
		archive, r.Retries, r.ChecksumVerified, len(r.Mirrored), len(r.Errors))
}
