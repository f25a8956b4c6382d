package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openleipzig/openleipzig/pkg/compose"
	"github.com/openleipzig/openleipzig/pkg/config"
	"github.com/openleipzig/openleipzig/pkg/controller"
	"github.com/openleipzig/openleipzig/pkg/engine"
	"github.com/openleipzig/openleipzig/pkg/policy"
	"github.com/openleipzig/openleipzig/pkg/resolver"
	"github.com/openleipzig/openleipzig/pkg/scenario"
	"github.com/openleipzig/openleipzig/pkg/stores"
)

// Config holds the collaborators of an Application.
type Config struct {
	// Areas resolves area selectors. Defaults to GeoJSON files relative to
	// the working directory.
	Areas scenario.AreaSource

	// Scoring supplies the scoring parameters binding. Defaults to
	// income dependent scoring.
	Scoring compose.ScoringParametersProvider

	// Controller receives the bindings. Defaults to a Recorder.
	Controller controller.Controller

	// History records builds when set.
	History stores.Store

	// PolicyPaths are extra policy files or directories.
	PolicyPaths []string
}

// Application runs scenario builds.
type Application struct {
	logger     zerolog.Logger
	schemas    *config.SchemaRegistry
	resolver   *resolver.Resolver
	policies   *policy.Engine
	preparer   *scenario.Preparer
	composer   *compose.Composer
	controller controller.Controller
	history    stores.Store
}

// New creates an application.
func New(ctx context.Context, logger zerolog.Logger, cfg Config) (*Application, error) {
	if cfg.Areas == nil {
		cfg.Areas = scenario.NewGeoJSONSource("")
	}
	if cfg.Scoring == nil {
		cfg.Scoring = compose.IncomeDependentScoring{}
	}
	if cfg.Controller == nil {
		cfg.Controller = controller.NewRecorder(logger, nil)
	}

	res, err := resolver.New(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	policies, err := policy.NewEngine(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}
	if len(cfg.PolicyPaths) > 0 {
		if err := policies.LoadPolicies(ctx, cfg.PolicyPaths); err != nil {
			return nil, engine.NewInvalidOptionError("policy", "failed to load policies", err)
		}
	}

	preparer, err := scenario.NewPreparer(logger, cfg.Areas)
	if err != nil {
		return nil, fmt.Errorf("failed to create preparer: %w", err)
	}

	composer, err := compose.NewComposer(logger, cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("failed to create composer: %w", err)
	}

	return &Application{
		logger:     logger.With().Str("component", "application").Logger(),
		schemas:    config.NewSchemaRegistry(),
		resolver:   res,
		policies:   policies,
		preparer:   preparer,
		composer:   composer,
		controller: cfg.Controller,
		history:    cfg.History,
	}, nil
}

// Controller returns the controller bindings are installed into.
func (a *Application) Controller() controller.Controller {
	return a.controller
}

// Resolver returns the configuration resolver.
func (a *Application) Resolver() *resolver.Resolver {
	return a.resolver
}

// Preparer returns the scenario preparer.
func (a *Application) Preparer() *scenario.Preparer {
	return a.preparer
}

// Composer returns the binding composer.
func (a *Application) Composer() *compose.Composer {
	return a.composer
}

// Policies returns the VSP defaults policy engine.
func (a *Application) Policies() *policy.Engine {
	return a.policies
}

// Schemas returns the configuration schema registry.
func (a *Application) Schemas() *config.SchemaRegistry {
	return a.schemas
}
