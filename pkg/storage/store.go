package storage

import (
	"context"

	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// Store defines the interface for persistent run history
type Store interface {
	SaveRun(ctx context.Context, run *models.RunRecord) error
	GetRun(ctx context.Context, id string) (*models.RunRecord, error)
	ListRuns(ctx context.Context, namespace string, limit int) ([]*models.RunRecord, error)

	LogAction(ctx context.Context, entry *models.AuditEntry) error
	GetAuditLog(ctx context.Context, runID string) ([]*models.AuditEntry, error)

	Ping(ctx context.Context) error
	Close() error
}
