package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/openleipzig/openleipzig/pkg/engine"
)

// ConfigSchema is the name of the built-in configuration document schema.
const ConfigSchema = "config"

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]schemaEntry
	mu      sync.RWMutex
}

type schemaEntry struct {
	value      cue.Value
	definition string
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]schemaEntry),
	}

	if err := sr.RegisterSchema(ConfigSchema, "#Config", builtinConfigSchema); err != nil {
		panic(fmt.Sprintf("built-in config schema does not compile: %v", err))
	}

	return sr
}

// RegisterSchema compiles a CUE source and registers the named definition in it.
func (sr *SchemaRegistry) RegisterSchema(name, definition, source string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(source, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	def := val.LookupPath(cue.ParsePath(definition))
	if !def.Exists() {
		return fmt.Errorf("schema %s does not define %s", name, definition)
	}

	sr.schemas[name] = schemaEntry{value: def, definition: definition}
	return nil
}

// GetSchema retrieves the definition value of a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	entry, ok := sr.schemas[name]
	return entry.value, ok
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ValidateConfig validates a configuration document against the built-in schema.
func (sr *SchemaRegistry) ValidateConfig(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return engine.NewPreconditionError("configuration document is missing", nil).
			WithCode(engine.ErrCodeSchema)
	}

	if err := sr.ValidateAgainstSchema(ctx, ConfigSchema, cfg); err != nil {
		return engine.NewPreconditionError("configuration does not match schema", err).
			WithCode(engine.ErrCodeSchema)
	}
	return nil
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const builtinConfigSchema = `
#Fraction: number & >0 & <=1
#Seconds:  number & >=0

#Config: {
	global: {
		coordinateSystem?: =~"^EPSG:[0-9]+$"
		randomSeed?:       int
		...
	}

	controller: {
		outputDirectory: string
		runId:           string
		lastIteration:   int & >=0
		overwriteFiles?: "failIfDirectoryExists" | "overwriteExistingFiles" | "deleteDirectoryIfExists"
		...
	}

	network: {
		inputNetworkFile?: string
		...
	}

	plans: {
		inputPlansFile: string
		...
	}

	facilities: {
		facilitiesSource?: "none" | "fromFile" | "setInScenario" | "onePerActivityLinkInPlansFile" | "onePerActivityLocationInPlansFile"
		...
	}

	qsim: {
		flowCapacityFactor:                  #Fraction
		storageCapacityFactor:               #Fraction
		mainMode?: [...string]
		linkDynamics?:                       "FIFO" | "PassingQ" | "SeepageQ"
		usingTravelTimeCheckInTeleportation: bool
		usePersonIdForMissingVehicleId:      bool
		...
	}

	routing: {
		networkModes?: [...string]
		teleportedModeParameters?: [...{
			mode:                   string & !=""
			beelineDistanceFactor?: number & >0
			teleportedModeSpeed?:   number & >0
			...
		}]
		accessEgressType?: "none" | "accessEgressModeToLink" | "walkConstantTimeToLink"
		...
	}

	scoring: {
		activityParams?: [...{
			activityType:              string & !=""
			typicalDuration?:          #Seconds
			openingTime?:              #Seconds
			closingTime?:              #Seconds
			latestStartTime?:          #Seconds
			scoringThisActivityAtAll?: bool
			...
		}]
		...
	}

	replanning: {
		fractionOfIterationsToDisableInnovation?: number & >=0 & <=1
		strategySettings?: [...{
			strategyName:   string & !=""
			weight:         number & >=0 & <=1
			subpopulation?: string
			...
		}]
		...
	}

	vspExperimental: {
		vspDefaultsCheckingLevel?: "ignore" | "info" | "warn" | "abort"
		...
	}

	bicycle?: {
		bicycleMode: string & !=""
		...
	}

	parkingCost?: {
		mode: string & !=""
		...
	}

	multiModeDrt?: {
		drt?: [...{
			mode:                       string & !=""
			operationalScheme:          "serviceAreaBased" | "door2door" | "stopbased"
			drtServiceAreaShapeFile?:   string
			vehiclesFile?:              string
			stopDuration?:              #Seconds
			maxWaitTime?:               #Seconds
			maxTravelTimeAlpha?:        number & >=1
			maxTravelTimeBeta?:         #Seconds
			useModeFilteredSubnetwork?: bool
			...
		}]
		...
	}

	swissRailRaptor?: {
		useIntermodalAccessEgress: bool
		intermodalAccessEgress?: [...{
			mode:                  string & !=""
			maxRadius:             number & >=0
			initialSearchRadius:   number & >=0
			searchExtensionRadius: number & >=0
			...
		}]
		...
	}

	simwrapper?: {
		sampleSize: #Fraction
		...
	}

	...
}
`
