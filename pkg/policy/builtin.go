package policy

// Builtin policy names.
const (
	PolicyCapacityFactors    = "capacity-factors"
	PolicyTeleportationCheck = "teleportation-check"
	PolicyAccessEgress       = "access-egress-facilities"
	PolicyStrategyWeights    = "strategy-weights"
	PolicyParkingInteraction = "parking-interaction"
)

// GetBuiltinPolicies returns the VSP defaults policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		capacityFactorsPolicy(),
		teleportationCheckPolicy(),
		accessEgressPolicy(),
		strategyWeightsPolicy(),
		parkingInteractionPolicy(),
	}
}

func capacityFactorsPolicy() Policy {
	return Policy{
		Name:        PolicyCapacityFactors,
		Description: "Flow and storage capacity factors must be equal",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"vsp", "qsim"},
		Rego: `package leipzig.vsp.capacity

import rego.v1

deny contains violation if {
	qsim := input.config.qsim
	qsim.flowCapacityFactor != qsim.storageCapacityFactor
	violation := {
		"message": sprintf("flow capacity factor %v differs from storage capacity factor %v", [qsim.flowCapacityFactor, qsim.storageCapacityFactor]),
		"path": "qsim.storageCapacityFactor",
	}
}
`,
	}
}

func teleportationCheckPolicy() Policy {
	return Policy{
		Name:        PolicyTeleportationCheck,
		Description: "Teleported legs must be checked against their travel time",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"vsp", "qsim"},
		Rego: `package leipzig.vsp.teleportation

import rego.v1

deny contains violation if {
	not input.config.qsim.usingTravelTimeCheckInTeleportation
	violation := {
		"message": "travel time check in teleportation is off",
		"path": "qsim.usingTravelTimeCheckInTeleportation",
	}
}
`,
	}
}

func accessEgressPolicy() Policy {
	return Policy{
		Name:        PolicyAccessEgress,
		Description: "Access and egress routing needs facilities from file or none",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"vsp", "routing"},
		Rego: `package leipzig.vsp.accessegress

import rego.v1

allowed_sources := {"none", "fromFile"}

deny contains violation if {
	access := object.get(input.config.routing, "accessEgressType", "none")
	access != "none"
	source := object.get(input.config.facilities, "facilitiesSource", "none")
	not allowed_sources[source]
	violation := {
		"message": sprintf("access egress type %s requires facilities source none or fromFile, got %s", [access, source]),
		"path": "facilities.facilitiesSource",
	}
}
`,
	}
}

func strategyWeightsPolicy() Policy {
	return Policy{
		Name:        PolicyStrategyWeights,
		Description: "Strategy weights must lie in [0,1]",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"vsp", "replanning"},
		Rego: `package leipzig.vsp.weights

import rego.v1

valid_weight(w) if {
	w >= 0
	w <= 1
}

deny contains violation if {
	some s in object.get(input.config.replanning, "strategySettings", [])
	not valid_weight(s.weight)
	violation := {
		"message": sprintf("strategy %s has weight %v outside [0,1]", [s.strategyName, s.weight]),
		"path": "replanning.strategySettings",
	}
}
`,
	}
}

func parkingInteractionPolicy() Policy {
	return Policy{
		Name:        PolicyParkingInteraction,
		Description: "The parking stage activity must not be scored",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"vsp", "scoring", "parking"},
		Rego: `package leipzig.vsp.parking

import rego.v1

unscored_parking_interaction if {
	some p in object.get(input.config.scoring, "activityParams", [])
	p.activityType == "parking interaction"
	p.scoringThisActivityAtAll == false
}

deny contains violation if {
	input.config.parkingCost
	not unscored_parking_interaction
	violation := {
		"message": "parking is enabled but the parking interaction activity is scored or missing",
		"path": "scoring.activityParams",
	}
}
`,
	}
}
