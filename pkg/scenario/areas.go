package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Area is a named policy area.
type Area struct {
	Name     string
	Geometry orb.MultiPolygon
	bound    orb.Bound
}

// NewArea creates an area from a polygon or multipolygon geometry.
func NewArea(name string, geometry orb.Geometry) (*Area, error) {
	var mp orb.MultiPolygon
	switch g := geometry.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{g}
	case orb.MultiPolygon:
		mp = g
	case orb.Ring:
		mp = orb.MultiPolygon{orb.Polygon{g}}
	default:
		return nil, fmt.Errorf("area %s: unsupported geometry %T", name, geometry)
	}
	if len(mp) == 0 {
		return nil, fmt.Errorf("area %s: empty geometry", name)
	}
	return &Area{Name: name, Geometry: mp, bound: mp.Bound()}, nil
}

// Contains reports whether p lies inside the area.
func (a *Area) Contains(p orb.Point) bool {
	if !a.bound.Contains(p) {
		return false
	}
	return planar.MultiPolygonContains(a.Geometry, p)
}

// AreaSource resolves area selectors to polygons.
type AreaSource interface {
	Area(ctx context.Context, selector string) (*Area, error)
}

// GeoJSONSource reads areas from GeoJSON files. Relative selectors are
// resolved against BaseDir. A file may hold a feature collection, a single
// feature or a bare geometry; all polygons are merged into one area.
type GeoJSONSource struct {
	BaseDir string
}

// NewGeoJSONSource creates a GeoJSON area source.
func NewGeoJSONSource(baseDir string) *GeoJSONSource {
	return &GeoJSONSource{BaseDir: baseDir}
}

// Area implements AreaSource.
func (s *GeoJSONSource) Area(_ context.Context, selector string) (*Area, error) {
	path := selector
	if !filepath.IsAbs(path) && s.BaseDir != "" {
		path = filepath.Join(s.BaseDir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read area file: %w", err)
	}

	geometries, err := parseGeoJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse area %s: %w", selector, err)
	}

	var merged orb.MultiPolygon
	for _, g := range geometries {
		switch poly := g.(type) {
		case orb.Polygon:
			merged = append(merged, poly)
		case orb.MultiPolygon:
			merged = append(merged, poly...)
		}
	}

	return NewArea(selector, merged)
}

func parseGeoJSON(data []byte) ([]orb.Geometry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, err
		}
		geometries := make([]orb.Geometry, 0, len(fc.Features))
		for _, f := range fc.Features {
			geometries = append(geometries, f.Geometry)
		}
		return geometries, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		return []orb.Geometry{f.Geometry}, nil
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, err
		}
		return []orb.Geometry{g.Geometry()}, nil
	}
}

// StaticSource serves areas from memory, keyed by selector.
type StaticSource map[string]*Area

// Area implements AreaSource.
func (s StaticSource) Area(_ context.Context, selector string) (*Area, error) {
	a, ok := s[selector]
	if !ok {
		return nil, fmt.Errorf("unknown area: %s", selector)
	}
	return a, nil
}
