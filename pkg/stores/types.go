package stores

import (
	"context"
	"time"
)

// BuildStatus represents the status of a scenario build
type BuildStatus string

const (
	BuildStatusRunning   BuildStatus = "running"
	BuildStatusCompleted BuildStatus = "completed"
	BuildStatusFailed    BuildStatus = "failed"
)

// IsTerminal reports whether the build has finished.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusCompleted || s == BuildStatusFailed
}

// Build represents one scenario build
type Build struct {
	ID          string      `json:"id"`
	ConfigPath  string      `json:"config_path"`
	Options     string      `json:"options"` // JSON blob
	Status      BuildStatus `json:"status"`
	Error       *string     `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// BindingRecord is an installed binding of a build, in installation order
type BindingRecord struct {
	BuildID        string `json:"build_id"`
	Position       int    `json:"position"`
	Group          string `json:"group"`
	Capability     string `json:"capability"`
	Target         string `json:"target"`
	Implementation string `json:"implementation,omitempty"`
	Params         string `json:"params"` // JSON blob
}

// Store defines the interface for the build history
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Build operations
	CreateBuild(ctx context.Context, build *Build) error
	GetBuild(ctx context.Context, id string) (*Build, error)
	CompleteBuild(ctx context.Context, id string, status BuildStatus, errMsg *string) error
	ListBuilds(ctx context.Context, status *BuildStatus, limit, offset int) ([]*Build, error)
	DeleteBuild(ctx context.Context, id string) error

	// Build contents
	SaveStages(ctx context.Context, buildID string, stages []string) error
	ListStages(ctx context.Context, buildID string) ([]string, error)
	SaveBindings(ctx context.Context, buildID string, bindings []BindingRecord) error
	ListBindings(ctx context.Context, buildID string) ([]BindingRecord, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
