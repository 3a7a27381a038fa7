package mesh

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanToFeatureCollection_RoomsOnly(t *testing.T) {
	plan, err := ParsePlanJSON([]byte(twoRoomPlanJSON))
	require.NoError(t, err)
	plan.Rooms = append(plan.Rooms, Room{ID: "flat", Width: 0, Length: 2})

	fc := PlanToFeatureCollection(plan, nil)
	require.Len(t, fc.Features, 2, "rooms without a footprint are skipped")

	a := fc.Features[0]
	assert.Equal(t, "a", a.ID)
	poly, ok := a.Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 5}}, poly.Bound())
	assert.Equal(t, "room", a.Properties.MustString("layerType"))
	assert.Equal(t, "living", a.Properties.MustString("roomType"))
	assert.InDelta(t, 20, a.Properties.MustFloat64("area"), 1e-9)
	assert.False(t, a.Properties.MustBool("openAir"))
}

func TestPlanToFeatureCollection_WithScene(t *testing.T) {
	plan, err := ParsePlanJSON([]byte(twoRoomPlanJSON))
	require.NoError(t, err)
	scene, err := BuildScene(plan, DefaultBuildOptions())
	require.NoError(t, err)

	fc := PlanToFeatureCollection(plan, scene)
	assert.Len(t, FeaturesByLayer(fc, "room"), 2)

	walls := FeaturesByLayer(fc, "wall")
	require.Len(t, walls, 7)
	interior := 0
	for _, w := range walls {
		_, ok := w.Geometry.(orb.LineString)
		assert.True(t, ok)
		if w.Properties.MustBool("interior") {
			interior++
			assert.Equal(t, "b", w.Properties.MustString("adjacentId"))
		}
	}
	assert.Equal(t, 1, interior)

	doors := FeaturesByLayer(fc, "door")
	require.Len(t, doors, 1)
	line := doors[0].Geometry.(orb.LineString)
	require.Len(t, line, 2)
	assert.InDelta(t, 4, line[0].X(), 1e-9)
	assert.InDelta(t, 2.05, line[0].Y(), 1e-9)
	assert.InDelta(t, 2.95, line[1].Y(), 1e-9)
	assert.InDelta(t, 0.9, doors[0].Properties.MustFloat64("width"), 1e-9)
	assert.Equal(t, "standard", doors[0].Properties.MustString("style"))

	assert.Empty(t, FeaturesByLayer(fc, "window"))
}

func TestPlanToFeatureCollection_MarshalRoundTrip(t *testing.T) {
	plan, err := ParsePlanJSON([]byte(twoRoomPlanJSON))
	require.NoError(t, err)

	data, err := json.Marshal(PlanToFeatureCollection(plan, builtTestScene(t)))
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2+7+1)
	assert.Len(t, FeaturesByLayer(fc, "wall"), 7)
}

func TestFeaturesByLayer_MissingProperty(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 2}))
	assert.Empty(t, FeaturesByLayer(fc, "room"))
}
