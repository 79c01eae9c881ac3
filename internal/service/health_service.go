package service

import (
	"context"
	"time"

	"bookkeeping/internal/database"

	"gorm.io/gorm"
)

type HealthStatus struct {
	Status        string    `json:"status"`
	Database      string    `json:"database"`
	Version       string    `json:"version"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Timestamp     time.Time `json:"timestamp"`
}

type HealthService interface {
	// Check reports liveness; ok is false when the database does not answer
	Check(ctx context.Context) (status HealthStatus, ok bool)
}

type healthService struct {
	db        *gorm.DB
	version   string
	startedAt time.Time
}

func NewHealthService(db *gorm.DB, version string) HealthService {
	return &healthService{db: db, version: version, startedAt: time.Now()}
}

func (s *healthService) Check(ctx context.Context) (HealthStatus, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:        "ok",
		Database:      "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Timestamp:     time.Now().UTC(),
	}
	if err := database.Ping(ctx, s.db); err != nil {
		status.Status = "degraded"
		status.Database = "error"
		return status, false
	}
	return status, true
}
