package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bookkeeping/internal/database"
	"bookkeeping/internal/model"
	"bookkeeping/internal/repository"
	"bookkeeping/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BackupStatus describes the snapshots taken so far
type BackupStatus struct {
	LastBackup        *model.Backup `json:"last_backup"`
	BackupCount       int64         `json:"backup_count"`
	DatabaseSizeBytes int64         `json:"database_size_bytes"`
	StorageLocation   string        `json:"storage_location"`
	LocalDir          string        `json:"local_dir"`
	DaysSinceBackup   *int          `json:"days_since_backup"`
}

type BackupService interface {
	Create(ctx context.Context, userID string) (*model.Backup, error)
	Status(ctx context.Context) (*BackupStatus, error)
}

type backupService struct {
	db         *gorm.DB
	dbPath     string
	backupRepo repository.BackupRepository
	local      *storage.LocalStore
	remote     storage.Store
	logger     *zap.Logger
	now        func() time.Time
}

// NewBackupService snapshots the database at dbPath into local, and into remote when it is not nil
func NewBackupService(
	db *gorm.DB,
	dbPath string,
	backupRepo repository.BackupRepository,
	local *storage.LocalStore,
	remote storage.Store,
	logger *zap.Logger,
) BackupService {
	return &backupService{
		db:         db,
		dbPath:     dbPath,
		backupRepo: backupRepo,
		local:      local,
		remote:     remote,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *backupService) Create(ctx context.Context, userID string) (*model.Backup, error) {
	tmpDir, err := os.MkdirTemp("", "bookkeeping-backup-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	name := fmt.Sprintf("bookkeeping-%s-%s.db", s.now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
	snapshot := filepath.Join(tmpDir, name)

	// VACUUM INTO writes a consistent copy while other connections keep working
	if _, err := database.Exec(ctx, s.db, "VACUUM INTO ?", snapshot); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}
	info, err := os.Stat(snapshot)
	if err != nil {
		return nil, err
	}

	backup := &model.Backup{
		FileName:  name,
		SizeBytes: info.Size(),
		Location:  s.local.Name(),
		CreatedBy: userID,
	}
	if _, err := s.put(ctx, s.local, snapshot, name, info.Size()); err != nil {
		return nil, err
	}
	if s.remote != nil {
		location, err := s.put(ctx, s.remote, snapshot, name, info.Size())
		if err != nil {
			return nil, err
		}
		backup.Location = s.remote.Name()
		backup.RemoteKey = location
	}

	if err := s.backupRepo.Create(ctx, backup); err != nil {
		return nil, fmt.Errorf("failed to record backup: %w", err)
	}
	s.logger.Info("Database backup created",
		zap.String("file", name),
		zap.Int64("size", backup.SizeBytes),
		zap.String("location", backup.Location),
		zap.String("created_by", userID))
	return backup, nil
}

func (s *backupService) put(ctx context.Context, store storage.Store, path, name string, size int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return store.Put(ctx, name, f, size)
}

func (s *backupService) Status(ctx context.Context) (*BackupStatus, error) {
	status := &BackupStatus{StorageLocation: s.local.Name(), LocalDir: s.local.Dir()}
	if s.remote != nil {
		status.StorageLocation = s.remote.Name()
	}

	latest, err := s.backupRepo.Latest(ctx)
	switch {
	case err == nil:
		status.LastBackup = latest
		days := int(s.now().Sub(latest.CreatedAt).Hours() / 24)
		status.DaysSinceBackup = &days
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	if status.BackupCount, err = s.backupRepo.Count(ctx); err != nil {
		return nil, err
	}
	if info, err := os.Stat(s.dbPath); err == nil {
		status.DatabaseSizeBytes = info.Size()
	}
	return status, nil
}
