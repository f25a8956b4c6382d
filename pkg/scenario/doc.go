// Package scenario holds the network and population entities and prepares
// them for the selected policy areas before the controller starts.
//
// Preparation runs three stages in dependency order on a copy of the
// scenario:
//
//	network-areas -> drt-scenario -> car-free-routes
//
// network-areas adds drt to links inside the drt area and removes car and
// ride inside the car-free area. drt-scenario requires a non-empty service
// area. car-free-routes deletes car and ride routes over non-pt links in the
// car-free area. A stage whose area selector is absent is skipped. The copy
// replaces the scenario entities only when every stage succeeded.
//
// Areas are resolved through an AreaSource; GeoJSONSource reads polygons
// with github.com/paulmach/orb.
package scenario
