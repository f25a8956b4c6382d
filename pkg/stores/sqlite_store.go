package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	// every connection to :memory: is its own database
	if cfg.Path == MemoryPath {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateBuild creates a new build record
func (s *SQLiteStore) CreateBuild(ctx context.Context, build *Build) error {
	if build.ID == "" {
		return fmt.Errorf("build id is required")
	}
	if build.Status == "" {
		build.Status = BuildStatusRunning
	}
	if build.Options == "" {
		build.Options = "{}"
	}
	now := time.Now().UTC()
	if build.StartedAt.IsZero() {
		build.StartedAt = now
	}
	if build.CreatedAt.IsZero() {
		build.CreatedAt = now
	}

	query := `
		INSERT INTO builds (id, config_path, options, status, error, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		build.ID,
		build.ConfigPath,
		build.Options,
		build.Status,
		build.Error,
		build.StartedAt,
		build.CompletedAt,
		build.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create build: %w", err)
	}

	return nil
}

// GetBuild retrieves a build by ID
func (s *SQLiteStore) GetBuild(ctx context.Context, id string) (*Build, error) {
	query := `
		SELECT id, config_path, options, status, error, started_at, completed_at, created_at
		FROM builds
		WHERE id = ?
	`

	build, err := scanBuild(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("build not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get build: %w", err)
	}

	return build, nil
}

// CompleteBuild records the outcome of a build. Only running builds can be
// completed.
func (s *SQLiteStore) CompleteBuild(ctx context.Context, id string, status BuildStatus, errMsg *string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}

	query := `
		UPDATE builds
		SET status = ?, error = ?, completed_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := s.db.ExecContext(ctx, query, status, errMsg, time.Now().UTC(), id, BuildStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to complete build: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("running build not found: %s", id)
	}

	return nil
}

// ListBuilds lists builds, newest first, optionally filtered by status
func (s *SQLiteStore) ListBuilds(ctx context.Context, status *BuildStatus, limit, offset int) ([]*Build, error) {
	query := `
		SELECT id, config_path, options, status, error, started_at, completed_at, created_at
		FROM builds
		WHERE (? IS NULL OR status = ?)
		ORDER BY started_at DESC, id
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, status, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer rows.Close()

	builds := []*Build{}
	for rows.Next() {
		build, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		builds = append(builds, build)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating builds: %w", err)
	}

	return builds, nil
}

// DeleteBuild deletes a build and its stages and bindings
func (s *SQLiteStore) DeleteBuild(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM builds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete build: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("build not found: %s", id)
	}

	return nil
}

// SaveStages replaces the applied resolver stages of a build
func (s *SQLiteStore) SaveStages(ctx context.Context, buildID string, stages []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM build_stages WHERE build_id = ?`, buildID); err != nil {
			return fmt.Errorf("failed to clear stages: %w", err)
		}
		for i, stage := range stages {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO build_stages (build_id, position, stage) VALUES (?, ?, ?)`,
				buildID, i, stage)
			if err != nil {
				return fmt.Errorf("failed to save stage %s: %w", stage, err)
			}
		}
		return nil
	})
}

// ListStages lists the applied resolver stages of a build in order
func (s *SQLiteStore) ListStages(ctx context.Context, buildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage FROM build_stages WHERE build_id = ? ORDER BY position`, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	stages := []string{}
	for rows.Next() {
		var stage string
		if err := rows.Scan(&stage); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, stage)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stages: %w", err)
	}

	return stages, nil
}

// SaveBindings replaces the installed bindings of a build. Positions are
// assigned from slice order.
func (s *SQLiteStore) SaveBindings(ctx context.Context, buildID string, bindings []BindingRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM build_bindings WHERE build_id = ?`, buildID); err != nil {
			return fmt.Errorf("failed to clear bindings: %w", err)
		}

		query := `
			INSERT INTO build_bindings (build_id, position, binding_group, capability, target, implementation, params)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		for i, b := range bindings {
			params := b.Params
			if params == "" {
				params = "{}"
			}
			if _, err := tx.ExecContext(ctx, query, buildID, i, b.Group, b.Capability, b.Target, b.Implementation, params); err != nil {
				return fmt.Errorf("failed to save binding %s: %w", b.Target, err)
			}
		}
		return nil
	})
}

// ListBindings lists the installed bindings of a build in order
func (s *SQLiteStore) ListBindings(ctx context.Context, buildID string) ([]BindingRecord, error) {
	query := `
		SELECT build_id, position, binding_group, capability, target, implementation, params
		FROM build_bindings
		WHERE build_id = ?
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query, buildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bindings: %w", err)
	}
	defer rows.Close()

	bindings := []BindingRecord{}
	for rows.Next() {
		var b BindingRecord
		err := rows.Scan(
			&b.BuildID,
			&b.Position,
			&b.Group,
			&b.Capability,
			&b.Target,
			&b.Implementation,
			&b.Params,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan binding: %w", err)
		}
		bindings = append(bindings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bindings: %w", err)
	}

	return bindings, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBuild(row rowScanner) (*Build, error) {
	build := &Build{}
	err := row.Scan(
		&build.ID,
		&build.ConfigPath,
		&build.Options,
		&build.Status,
		&build.Error,
		&build.StartedAt,
		&build.CompletedAt,
		&build.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return build, nil
}
