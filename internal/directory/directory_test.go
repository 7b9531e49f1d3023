package directory

import (
	"testing"

	"github.com/northwalk/floormap/pkg/floorplan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFloors() map[floorplan.FloorID][]floorplan.Feature {
	return map[floorplan.FloorID][]floorplan.Feature{
		floorplan.Ground: {
			{ID: "mcdonalds", Type: floorplan.TypeFood, Name: "McDonald's"},
			{ID: "bata-1", Type: floorplan.TypeRetail, Name: "Bata"},
			{ID: "E-Shop-2", Type: floorplan.TypeRetail, Name: "Vacant"},
			{ID: "corridor-a", Type: floorplan.TypePath},
			{ID: "lift1", Type: floorplan.TypeOther, Icon: "lift"},
		},
		floorplan.First: {
			{ID: "zara", Type: floorplan.TypeRetail, Name: "Zara"},
			{ID: "mcdonalds", Type: floorplan.TypeFood, Name: "McDonald's upstairs"},
			{ID: "north-wall", Type: floorplan.TypeRetail},
		},
		floorplan.Restaurant: {
			{ID: "arcade", Type: floorplan.TypeFun, Name: "arcade"},
		},
	}
}

func TestBuild_MergesAndFilters(t *testing.T) {
	d := Build(testFloors())
	assert.Equal(t, 4, d.Len())

	s, ok := d.Lookup("mcdonalds")
	require.True(t, ok)
	assert.Equal(t, floorplan.Ground, s.Floor)
	assert.Equal(t, "McDonald's", s.Name)

	for _, id := range []string{"E-Shop-2", "corridor-a", "lift1", "north-wall"} {
		_, ok := d.Lookup(id)
		assert.False(t, ok, id)
	}

	names := []string{}
	for _, s := range d.Stores() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"arcade", "Bata", "McDonald's", "Zara"}, names)
}

func TestDecide(t *testing.T) {
	d := Build(testFloors())

	assert.Equal(t, Decision{Floor: floorplan.First}, d.Decide(floorplan.First, ""))
	assert.Equal(t,
		Decision{Floor: floorplan.Restaurant, SelectedID: "arcade"},
		d.Decide(floorplan.Ground, "arcade"))
	assert.Equal(t,
		Decision{Floor: floorplan.Ground, SelectedID: "lift1", ShowRoute: true},
		d.Decide(floorplan.Ground, "lift1"))
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder("e-shop-12"))
	assert.True(t, IsPlaceholder("EastWall"))
	assert.False(t, IsPlaceholder("bata"))
}
