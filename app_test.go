package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kwv/wallmesh/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlanJSON = `{
  "id": "house",
  "rooms": [
    {"id": "living", "name": "Living Room", "type": "living", "width": 5, "length": 4, "height": 2.8,
     "position": {"x": 0, "y": 0},
     "doors": [{"wall": "right", "position": 0.5, "width": 0.9, "height": 2.1}],
     "windows": [{"wall": "front", "position": 0.5, "width": 1.2, "height": 1.4, "bottom": 0.9}]},
    {"id": "kitchen", "type": "kitchen", "width": 3, "length": 4, "height": 2.8,
     "position": {"x": 5, "y": 0}}
  ]
}`

// writeTestPlan saves the two-room fixture and returns its path
func writeTestPlan(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "house.json")
	require.NoError(t, os.WriteFile(path, []byte(testPlanJSON), 0644))
	return path
}

// testApp returns an App writing to a buffer with defaults loaded
func testApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp()
	app.Out = &out
	app.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	require.NoError(t, app.loadConfig())
	store, err := mesh.NewSceneStore(4)
	require.NoError(t, err)
	app.Store = store
	return app, &out
}

func TestNewApp(t *testing.T) {
	app := NewApp()
	require.NotNil(t, app)
	assert.Equal(t, os.Stdout, app.Out)
}

func TestApplyOptions(t *testing.T) {
	app := NewApp()
	opts := AppOptions{
		ConfigFile:  "test-config.yaml",
		PlanFile:    "plan.json",
		PlanURL:     "http://host/plan.json",
		OutputFile:  "scene.json",
		SVGFile:     "plan.svg",
		PNGFile:     "plan.png",
		PreviewFile: "preview.png",
		GeoJSONFile: "plan.geojson",
		Tier:        "basic",
		NoCeilings:  true,
		Strict:      true,
		HTTPMode:    true,
		MQTTMode:    true,
		HTTPPort:    9999,
	}
	app.ApplyOptions(opts)

	assert.Equal(t, "test-config.yaml", app.ConfigFile)
	assert.Equal(t, "plan.json", app.PlanFile)
	assert.Equal(t, "http://host/plan.json", app.PlanURL)
	assert.Equal(t, "scene.json", app.OutputFile)
	assert.Equal(t, "plan.svg", app.SVGFile)
	assert.Equal(t, "plan.png", app.PNGFile)
	assert.Equal(t, "preview.png", app.PreviewFile)
	assert.Equal(t, "plan.geojson", app.GeoJSONFile)
	assert.Equal(t, "basic", app.Tier)
	assert.True(t, app.NoCeilings)
	assert.True(t, app.Strict)
	assert.True(t, app.HTTPMode)
	assert.True(t, app.MQTTMode)
	assert.Equal(t, 9999, app.HTTPPort)
}

func TestLoadConfig_DefaultsWhenMissing(t *testing.T) {
	app, _ := testApp(t)
	assert.Equal(t, mesh.DefaultHTTPPort, app.Config.HTTP.Port)
	assert.Equal(t, mesh.TierDetailed, app.Config.Build.Tier)
	assert.False(t, app.Config.Build.SkipCeilings)
}

func TestLoadConfig_CLIOverrides(t *testing.T) {
	app := NewApp()
	app.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	app.Tier = "basic"
	app.NoCeilings = true
	app.Strict = true
	app.HTTPPort = 9091
	require.NoError(t, app.loadConfig())

	assert.Equal(t, mesh.TierBasic, app.Config.Build.Tier)
	assert.True(t, app.Config.Build.SkipCeilings)
	assert.True(t, app.Config.Build.StrictAdjacency)
	assert.Equal(t, 9091, app.Config.HTTP.Port)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "mqtt:\n  broker: tcp://file:1883\nhttp:\n  port: 7000\nbuild:\n  tier: basic\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))
	t.Setenv("MQTT_BROKER", "tcp://env:1883")

	app := NewApp()
	app.ConfigFile = path
	require.NoError(t, app.loadConfig())

	assert.Equal(t, "tcp://env:1883", app.Config.MQTT.Broker)
	assert.Equal(t, 7000, app.Config.HTTP.Port)
	assert.Equal(t, mesh.TierBasic, app.Config.Build.Tier)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("build:\n  tier: ultra\n"), 0644))

	app := NewApp()
	app.ConfigFile = path
	assert.Error(t, app.loadConfig())

	app = NewApp()
	app.ConfigFile = filepath.Join(dir, "missing.yaml")
	app.Tier = "fancy"
	assert.Error(t, app.loadConfig())
}

func TestRunSummary(t *testing.T) {
	app, out := testApp(t)
	app.PlanFile = writeTestPlan(t)

	require.NoError(t, app.RunSummary())
	s := out.String()
	assert.Contains(t, s, "=== house ===")
	assert.Contains(t, s, "Rooms: 2 (open-air: 0)")
	assert.Contains(t, s, "Living Room")
	assert.Contains(t, s, "Doors: 1, Windows: 1")
	assert.Contains(t, s, "Extent: 8.00 x 4.00 m")
}

func TestRunBuild_WritesAllOutputs(t *testing.T) {
	app, out := testApp(t)
	dir := t.TempDir()
	app.PlanFile = writeTestPlan(t)
	app.OutputFile = filepath.Join(dir, "scene.json")
	app.SVGFile = filepath.Join(dir, "plan.svg")
	app.PNGFile = filepath.Join(dir, "plan.png")
	app.PreviewFile = filepath.Join(dir, "preview.png")
	app.GeoJSONFile = filepath.Join(dir, "plan.geojson")

	require.NoError(t, app.RunBuild())
	assert.Contains(t, out.String(), "Walls: 7 (1 interior, 6 exterior)")

	data, err := os.ReadFile(app.OutputFile)
	require.NoError(t, err)
	var scene mesh.Scene
	require.NoError(t, json.Unmarshal(data, &scene))
	assert.Equal(t, "house", scene.ID)
	assert.Equal(t, 7, scene.Stats.Walls)

	svg, err := os.ReadFile(app.SVGFile)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	pngData, err := os.ReadFile(app.PNGFile)
	require.NoError(t, err)
	assert.True(t, mesh.IsPNG(pngData))

	// The preview carries its plan
	plan, err := mesh.DecodePlanFile(app.PreviewFile)
	require.NoError(t, err)
	assert.Len(t, plan.Rooms, 2)

	gj, err := os.ReadFile(app.GeoJSONFile)
	require.NoError(t, err)
	assert.Contains(t, string(gj), `"FeatureCollection"`)
}

func TestRunBuild_Errors(t *testing.T) {
	app, _ := testApp(t)
	app.PlanFile = filepath.Join(t.TempDir(), "missing.json")
	err := app.RunBuild()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading plan")
}

func TestPlanID(t *testing.T) {
	assert.Equal(t, "house", planID(&mesh.FloorPlan{ID: "house"}, "x.json"))
	assert.Equal(t, "attic", planID(&mesh.FloorPlan{}, "/data/attic.json"))
	assert.Equal(t, "plan", planID(&mesh.FloorPlan{}, ""))
}

func TestHandlePlanMessage(t *testing.T) {
	app, _ := testApp(t)
	plan, err := mesh.ParsePlanJSON([]byte(testPlanJSON))
	require.NoError(t, err)

	// The document id wins over the topic id
	app.handlePlanMessage("from-topic", plan, nil)
	stored, ok := app.Store.Get("house")
	require.True(t, ok)
	assert.Equal(t, "mqtt", stored.Source)
	assert.Equal(t, 7, stored.Scene.Stats.Walls)

	plan.ID = ""
	app.handlePlanMessage("from-topic", plan, nil)
	_, ok = app.Store.Get("from-topic")
	assert.True(t, ok)

	// Decode errors are logged and nothing is stored
	app.handlePlanMessage("broken", nil, errors.New("bad payload"))
	_, ok = app.Store.Get("broken")
	assert.False(t, ok)
}

func TestBuildAndStore_StrictFailure(t *testing.T) {
	app, _ := testApp(t)
	app.Config.Build.StrictAdjacency = true

	// Two rooms touching the same wall of a third make the tie ambiguous
	plan := &mesh.FloorPlan{Rooms: []mesh.Room{
		{ID: "a", Width: 4, Length: 4, Height: 2.8},
		{ID: "b", Width: 2, Length: 4, Height: 2.8, Position: mesh.Point{X: 4, Y: 0}},
		{ID: "c", Width: 2, Length: 4, Height: 2.8, Position: mesh.Point{X: 4, Y: 0}},
	}}
	_, err := app.buildAndStore("tie", "http", plan)
	require.Error(t, err)
	assert.True(t, errors.Is(err, mesh.ErrAmbiguousAdjacency))
	assert.Equal(t, 0, app.Store.Len())
}

func TestPrintServiceInfo(t *testing.T) {
	app, out := testApp(t)
	app.HTTPMode = true
	app.MQTTMode = true
	app.printServiceInfo()

	s := out.String()
	assert.Contains(t, s, mesh.DefaultPlanTopic)
	assert.Contains(t, s, "wallmesh/scenes")
	assert.True(t, strings.Contains(s, "POST /render"))
	assert.Contains(t, s, "Press Ctrl+C to stop")
}
