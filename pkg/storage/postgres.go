package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opscart/k8s-chaos-verifier/pkg/models"

	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store interface using PostgreSQL
type PostgresStore struct {
	db  *sql.DB
	dsn string
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{
		db:  db,
		dsn: dsn,
	}

	// Run migrations
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// migrate runs database migrations
func (s *PostgresStore) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_postgres_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// SaveRun persists one run summary
func (s *PostgresStore) SaveRun(ctx context.Context, run *models.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO runs (
			id, cluster_id, namespace, workload, command,
			verdict, steps_passed, steps_failed,
			started_at, finished_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var finishedAt *time.Time
	if !run.FinishedAt.IsZero() {
		finishedAt = &run.FinishedAt
	}

	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.ClusterID, run.Namespace, run.Workload, run.Command,
		run.Verdict, run.StepsPassed, run.StepsFailed,
		run.StartedAt, finishedAt, run.CreatedAt,
	)

	return err
}

// GetRun retrieves a run by ID
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*models.RunRecord, error) {
	query := `
		SELECT id, cluster_id, namespace, workload, command,
			verdict, steps_passed, steps_failed,
			started_at, finished_at, created_at
		FROM runs
		WHERE id = $1
	`

	var run models.RunRecord
	var clusterID sql.NullString
	var finishedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &clusterID, &run.Namespace, &run.Workload, &run.Command,
		&run.Verdict, &run.StepsPassed, &run.StepsFailed,
		&run.StartedAt, &finishedAt, &run.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	run.ClusterID = clusterID.String
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}

	return &run, nil
}

// ListRuns retrieves recent runs for a namespace, newest first
func (s *PostgresStore) ListRuns(ctx context.Context, namespace string, limit int) ([]*models.RunRecord, error) {
	query := `
		SELECT id, cluster_id, namespace, workload, command,
			verdict, steps_passed, steps_failed,
			started_at, finished_at, created_at
		FROM runs
		WHERE namespace = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, namespace, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.RunRecord
	for rows.Next() {
		var run models.RunRecord
		var clusterID sql.NullString
		var finishedAt sql.NullTime

		err := rows.Scan(
			&run.ID, &clusterID, &run.Namespace, &run.Workload, &run.Command,
			&run.Verdict, &run.StepsPassed, &run.StepsFailed,
			&run.StartedAt, &finishedAt, &run.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		run.ClusterID = clusterID.String
		if finishedAt.Valid {
			run.FinishedAt = finishedAt.Time
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// LogAction records one chaos action against a run
func (s *PostgresStore) LogAction(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now()
	}

	query := `
		INSERT INTO audit_log (
			id, run_id, action, status,
			error_message, executed_by, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.RunID, entry.Action, entry.Status,
		entry.ErrorMessage, entry.ExecutedBy, entry.ExecutedAt,
	)

	return err
}

// GetAuditLog retrieves the actions of a run in execution order
func (s *PostgresStore) GetAuditLog(ctx context.Context, runID string) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, run_id, action, status,
			error_message, executed_by, executed_at
		FROM audit_log
		WHERE run_id = $1
		ORDER BY executed_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		var errorMessage, executedBy sql.NullString

		err := rows.Scan(
			&entry.ID, &entry.RunID, &entry.Action, &entry.Status,
			&errorMessage, &executedBy, &entry.ExecutedAt,
		)
		if err != nil {
			return nil, err
		}

		if errorMessage.Valid {
			entry.ErrorMessage = errorMessage.String
		}
		if executedBy.Valid {
			entry.ExecutedBy = executedBy.String
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
