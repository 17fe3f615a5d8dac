package reliability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// lowDiskBytes is the free-space floor below which the job logs a warning
const lowDiskBytes = 1 << 30

// BackupJob uploads a journal backup and rotates old archives
type BackupJob struct {
	service       *BackupService
	dataDir       string
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates the scheduled backup job
func NewBackupJob(service *BackupService, dataDir string, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		dataDir:       dataDir,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "journal_backup").Logger(),
	}
}

// Name returns the job name for the scheduler
func (j *BackupJob) Name() string {
	return "journal_backup"
}

// Run backs up the journal and then rotates. Rotation failures are logged only.
func (j *BackupJob) Run(ctx context.Context) error {
	j.checkDiskSpace()

	if _, err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return fmt.Errorf("journal backup failed: %w", err)
	}

	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

func (j *BackupJob) checkDiskSpace() {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return
	}
	if usage.Free < lowDiskBytes {
		j.log.Warn().
			Uint64("free_mb", usage.Free/1024/1024).
			Float64("used_percent", usage.UsedPercent).
			Msg("Disk space running low")
	}
}
