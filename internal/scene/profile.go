package scene

import (
	"fmt"
	"strings"

	"github.com/northwalk/floormap/internal/config"
	"github.com/northwalk/floormap/internal/geo"
	"github.com/northwalk/floormap/internal/render"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// Palette holds the colours a floor is drawn with.
type Palette struct {
	Path        render.Color
	Empty       render.Color
	BackOfHouse render.Color
	Default     render.Color
	Selected    render.Color
	Outline     render.Color
	Background  render.Color
	Route       render.Color
}

// DefaultPalette is shared by every floor unless overridden.
var DefaultPalette = Palette{
	Path:        0xcbd5e1,
	Empty:       0xe2e8f0,
	BackOfHouse: 0xe2e8f0,
	Default:     0xffffff,
	Selected:    0xfee2e2,
	Outline:     0x64748b,
	Background:  0xffffff,
	Route:       0x000000,
}

// Profile is the per-floor configuration the builder and the colour and
// layering rules read.
type Profile struct {
	Floor  floorplan.FloorID
	Offset geo.Offset

	FeatureElevation float64
	WallElevation    float64
	PathElevation    float64
	LabelLift        float64
	IconLift         float64
	IconSize         float64

	// WallMarker and BackOfHouseMarker are matched case-insensitively as
	// substrings of a feature id. An empty marker matches nothing.
	WallMarker        string
	BackOfHouseMarker string

	Palette Palette

	// YouAreHere is the kiosk position in authoring coordinates, nil when the
	// floor has no kiosk.
	YouAreHere *floorplan.Vec2
}

// DefaultProfile returns the built-in profile of floor.
func DefaultProfile(floor floorplan.FloorID) Profile {
	p := Profile{
		Floor:             floor,
		Offset:            geo.DefaultOffset,
		FeatureElevation:  2,
		WallElevation:     -2,
		PathElevation:     0,
		LabelLift:         10,
		IconLift:          1,
		IconSize:          80,
		WallMarker:        "wall",
		BackOfHouseMarker: "e-shop",
		Palette:           DefaultPalette,
	}
	switch floor {
	case floorplan.Ground:
		p.YouAreHere = &floorplan.Vec2{X: 1350, Y: 700}
	case floorplan.First:
		p.FeatureElevation = 1
		p.Palette.Empty = 0xf1f5f9
	}
	return p
}

// WithOverride applies a floors-file override on top of p.
func (p Profile) WithOverride(o config.FloorOverride) (Profile, error) {
	if o.OffsetX != nil {
		p.Offset.X = *o.OffsetX
	}
	if o.OffsetY != nil {
		p.Offset.Y = *o.OffsetY
	}
	if o.FeatureElevation != nil {
		p.FeatureElevation = *o.FeatureElevation
	}
	if o.WallMarker != nil {
		p.WallMarker = *o.WallMarker
	}
	if o.BackOfHouseMarker != nil {
		p.BackOfHouseMarker = *o.BackOfHouseMarker
	}
	if len(o.YouAreHere) == 2 {
		p.YouAreHere = &floorplan.Vec2{X: o.YouAreHere[0], Y: o.YouAreHere[1]}
	}
	for name, value := range o.Palette {
		c, err := render.ParseColor(value)
		if err != nil {
			return p, fmt.Errorf("%s palette %s: %w", p.Floor, name, err)
		}
		switch strings.ToLower(name) {
		case "path":
			p.Palette.Path = c
		case "empty":
			p.Palette.Empty = c
		case "backofhouse", "back-of-house":
			p.Palette.BackOfHouse = c
		case "default":
			p.Palette.Default = c
		case "selected":
			p.Palette.Selected = c
		case "outline":
			p.Palette.Outline = c
		case "background":
			p.Palette.Background = c
		case "route":
			p.Palette.Route = c
		default:
			return p, fmt.Errorf("%s palette: unknown colour %q", p.Floor, name)
		}
	}
	return p, nil
}

// Profiles returns the profile of every floor with overrides applied.
func Profiles(overrides map[floorplan.FloorID]config.FloorOverride) (map[floorplan.FloorID]Profile, error) {
	out := make(map[floorplan.FloorID]Profile, len(floorplan.Floors))
	for _, f := range floorplan.Floors {
		p := DefaultProfile(f)
		if o, ok := overrides[f]; ok {
			var err error
			if p, err = p.WithOverride(o); err != nil {
				return nil, err
			}
		}
		out[f] = p
	}
	return out, nil
}

func containsFold(s, marker string) bool {
	return marker != "" && strings.Contains(strings.ToLower(s), strings.ToLower(marker))
}

// IsWall reports whether id names a wall.
func (p Profile) IsWall(id string) bool {
	return containsFold(id, p.WallMarker)
}

// IsBackOfHouse reports whether id names a back-of-house unit.
func (p Profile) IsBackOfHouse(id string) bool {
	return containsFold(id, p.BackOfHouseMarker)
}

// ElevationFor returns the height a feature's surface sits at.
func (p Profile) ElevationFor(t floorplan.FeatureType, id string) float64 {
	switch {
	case p.IsWall(id):
		return p.WallElevation
	case t == floorplan.TypePath:
		return p.PathElevation
	default:
		return p.FeatureElevation
	}
}

// BaseColor returns a feature's unselected surface colour.
func (p Profile) BaseColor(t floorplan.FeatureType, id string) render.Color {
	switch {
	case t == floorplan.TypePath:
		return p.Palette.Path
	case t == floorplan.TypeEmpty:
		return p.Palette.Empty
	case p.IsBackOfHouse(id):
		return p.Palette.BackOfHouse
	default:
		return p.Palette.Default
	}
}

// ColorFor returns a feature's surface colour given the current selection.
// The selected id always wins.
func (p Profile) ColorFor(t floorplan.FeatureType, id, selectedID string) render.Color {
	if selectedID != "" && id == selectedID {
		return p.Palette.Selected
	}
	return p.BaseColor(t, id)
}
