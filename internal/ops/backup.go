package ops

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const backupPrefix = "dsyncd-backup-"

// BackupManager copies the sqlite database file backing a Store to and from
// snapshot paths.
type BackupManager struct {
	dbPath string
	logger *Logger
}

// NewBackupManager returns a manager operating on the sqlite file at dbPath.
func NewBackupManager(dbPath string, logger *Logger) *BackupManager {
	return &BackupManager{dbPath: dbPath, logger: logger.WithComponent("backup")}
}

// Backup copies the live database file to destPath.
func (b *BackupManager) Backup(ctx context.Context, destPath string) error {
	start := time.Now()
	b.logger.Info("starting database backup", "source", b.dbPath, "destination", destPath)

	if b.dbPath == "" {
		return fmt.Errorf("ops: backup: database path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		b.logger.LogBackupOperation("create directory", destPath, 0, err)
		return fmt.Errorf("ops: backup: create destination directory: %w", err)
	}

	size, err := copyFile(b.dbPath, destPath)
	if err != nil {
		b.logger.LogBackupOperation("backup", destPath, size, err)
		return fmt.Errorf("ops: backup: copy database: %w", err)
	}

	b.logger.LogBackupOperation("backup", destPath, size, nil)
	b.logger.Debug("database backup duration", "destination", destPath, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Restore copies a backup file over the live database path. The caller
// must ensure no Store has the database open when this runs.
func (b *BackupManager) Restore(ctx context.Context, backupPath string) error {
	start := time.Now()
	b.logger.Info("starting database restore", "backup", backupPath, "destination", b.dbPath)

	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("ops: restore: backup file not found: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(b.dbPath), 0o755); err != nil {
		return fmt.Errorf("ops: restore: create destination directory: %w", err)
	}

	size, err := copyFile(backupPath, b.dbPath)
	if err != nil {
		b.logger.LogBackupOperation("restore", b.dbPath, size, err)
		return fmt.Errorf("ops: restore: copy database: %w", err)
	}

	b.logger.LogBackupOperation("restore", b.dbPath, size, nil)
	b.logger.Debug("database restore duration", "destination", b.dbPath, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func copyFile(src, dst string) (int64, error) {
	sourceFile, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open source file: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create destination file: %w", err)
	}
	defer destFile.Close()

	size, err := io.Copy(destFile, sourceFile)
	if err != nil {
		return size, fmt.Errorf("copy file: %w", err)
	}
	if err := destFile.Sync(); err != nil {
		return size, fmt.Errorf("sync file: %w", err)
	}
	return size, nil
}

// PeriodicBackup runs BackupManager.Backup on a fixed interval until
// stopped, writing timestamped snapshots into destDir.
type PeriodicBackup struct {
	manager  *BackupManager
	destDir  string
	interval time.Duration
	logger   *Logger
	stopChan chan struct{}
}

// NewPeriodicBackup returns a periodic backup runner.
func NewPeriodicBackup(manager *BackupManager, destDir string, interval time.Duration, logger *Logger) *PeriodicBackup {
	return &PeriodicBackup{
		manager:  manager,
		destDir:  destDir,
		interval: interval,
		logger:   logger.WithComponent("periodic-backup"),
		stopChan: make(chan struct{}),
	}
}

// Start runs backups every interval until ctx is cancelled or Stop is
// called. Intended to run in its own goroutine.
func (p *PeriodicBackup) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("periodic backup started", "destination", p.destDir, "interval", p.interval)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("periodic backup stopped")
			return
		case <-p.stopChan:
			p.logger.Info("periodic backup stopped")
			return
		case <-ticker.C:
			timestamp := time.Now().Format("20060102-150405")
			dest := filepath.Join(p.destDir, backupPrefix+timestamp+".db")
			if err := p.manager.Backup(ctx, dest); err != nil {
				p.logger.Error("periodic backup failed", "error", err)
			} else {
				p.logger.Info("periodic backup completed", "path", dest)
			}
		}
	}
}

// Stop ends the periodic backup loop.
func (p *PeriodicBackup) Stop() {
	close(p.stopChan)
}

// CleanOldBackups removes dsyncd-backup-*.db files in backupDir older than
// maxAge.
func CleanOldBackups(backupDir string, maxAge time.Duration, logger *Logger) error {
	logger.Info("cleaning old backups", "directory", backupDir, "max_age", maxAge)

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return fmt.Errorf("ops: clean old backups: read directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !isBackupFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			logger.Warn("failed to get file info", "file", entry.Name(), "error", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(backupDir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to delete old backup", "file", path, "error", err)
			continue
		}
		logger.Info("deleted old backup", "file", path, "age", time.Since(info.ModTime()))
		deleted++
	}

	logger.Info("old backup cleanup completed", "deleted", deleted)
	return nil
}

func isBackupFile(name string) bool {
	return filepath.Ext(name) == ".db" && strings.HasPrefix(name, backupPrefix)
}
