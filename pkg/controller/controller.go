package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/openleipzig/openleipzig/pkg/compose"
	"github.com/openleipzig/openleipzig/pkg/engine"
)

// Controller receives the composed bindings of a build and runs the
// simulation with them.
type Controller interface {
	// Install adds bindings in order. It fails once Run was called.
	Install(ctx context.Context, bindings []compose.BindingSpec) error

	// Run starts the controller with the installed bindings.
	Run(ctx context.Context) error

	// Bindings returns the installed bindings in installation order.
	Bindings() []compose.BindingSpec
}

// State is the lifecycle state of a controller.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateDone    State = "done"
)

// RunFunc is what a Recorder does on Run.
type RunFunc func(ctx context.Context, bindings []compose.BindingSpec) error

// Recorder is an in-process controller that keeps the installed bindings.
// It is the controller of dry runs and tests.
type Recorder struct {
	// mu protects the recorder state.
	mu sync.RWMutex

	logger   zerolog.Logger
	state    State
	bindings []compose.BindingSpec
	keys     map[string]bool

	// allowed restricts installable capabilities; empty allows all.
	allowed map[compose.Capability]bool

	run RunFunc
}

// NewRecorder creates a recorder. run may be nil.
func NewRecorder(logger zerolog.Logger, run RunFunc) *Recorder {
	return &Recorder{
		logger:  logger.With().Str("component", "controller").Logger(),
		state:   StateIdle,
		keys:    make(map[string]bool),
		allowed: make(map[compose.Capability]bool),
		run:     run,
	}
}

// SetAllowedCapabilities restricts the capabilities Install accepts.
func (r *Recorder) SetAllowedCapabilities(capabilities []compose.Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.allowed = make(map[compose.Capability]bool)
	for _, c := range capabilities {
		r.allowed[c] = true
	}
}

// Install implements Controller. The whole batch is rejected if any
// binding is invalid.
func (r *Recorder) Install(_ context.Context, bindings []compose.BindingSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return engine.NewPreconditionError(
			fmt.Sprintf("cannot install %d bindings: controller is %s", len(bindings), r.state), nil).
			WithCode(engine.ErrCodeAlreadyRunning)
	}

	batch := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		if err := r.validate(b); err != nil {
			return err
		}
		key := b.Key()
		if r.keys[key] || batch[key] {
			return engine.NewInternalError(fmt.Sprintf("binding %s installed twice", key), nil)
		}
		batch[key] = true
	}

	for _, b := range bindings {
		r.bindings = append(r.bindings, copyBinding(b))
		r.keys[b.Key()] = true
		r.logger.Debug().
			Str("group", b.Group).
			Str("capability", string(b.Capability)).
			Str("target", b.Target).
			Msg("Binding installed")
	}

	return nil
}

func (r *Recorder) validate(b compose.BindingSpec) error {
	if !b.Capability.IsValid() {
		return engine.NewInternalError(fmt.Sprintf("unknown capability %q", b.Capability), nil)
	}
	if len(r.allowed) > 0 && !r.allowed[b.Capability] {
		return engine.NewPreconditionError(
			fmt.Sprintf("capability %s is not supported by this controller", b.Capability), nil).
			WithDetail("target", b.Target)
	}
	if b.Target == "" {
		return engine.NewInternalError(fmt.Sprintf("%s binding has no target", b.Capability), nil)
	}
	return nil
}

// Run implements Controller. A controller runs once.
func (r *Recorder) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		state := r.state
		r.mu.Unlock()
		return engine.NewPreconditionError(fmt.Sprintf("controller is %s", state), nil).
			WithCode(engine.ErrCodeAlreadyRunning)
	}
	r.state = StateRunning
	bindings := r.snapshot()
	r.mu.Unlock()

	r.logger.Info().Int("bindings", len(bindings)).Msg("Controller started")

	var err error
	if r.run != nil {
		err = r.run(ctx, bindings)
	}

	r.mu.Lock()
	r.state = StateDone
	r.mu.Unlock()

	if err != nil {
		r.logger.Error().Err(err).Msg("Controller run failed")
		return fmt.Errorf("controller run failed: %w", err)
	}

	r.logger.Info().Msg("Controller finished")
	return nil
}

// Bindings implements Controller.
func (r *Recorder) Bindings() []compose.BindingSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot()
}

// State returns the lifecycle state.
func (r *Recorder) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Recorder) snapshot() []compose.BindingSpec {
	out := make([]compose.BindingSpec, len(r.bindings))
	for i, b := range r.bindings {
		out[i] = copyBinding(b)
	}
	return out
}

func copyBinding(b compose.BindingSpec) compose.BindingSpec {
	if b.Params != nil {
		params := make(map[string]interface{}, len(b.Params))
		for k, v := range b.Params {
			params[k] = v
		}
		b.Params = params
	}
	return b
}
