package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/wallmesh/mesh"
	"github.com/tdewolff/canvas"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *mesh.Config
	Store      *mesh.SceneStore
	MQTTClient *mesh.MQTTClient
	Publisher  *mesh.Publisher
	Out        io.Writer

	// CLI flags (effectively dependencies)
	ConfigFile  string
	PlanFile    string
	PlanURL     string
	OutputFile  string
	SVGFile     string
	PNGFile     string
	PreviewFile string
	GeoJSONFile string
	Tier        string
	NoCeilings  bool
	Strict      bool
	HTTPMode    bool
	MQTTMode    bool
	HTTPPort    int
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{Out: os.Stdout}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.PlanFile = opts.PlanFile
	a.PlanURL = opts.PlanURL
	a.OutputFile = opts.OutputFile
	a.SVGFile = opts.SVGFile
	a.PNGFile = opts.PNGFile
	a.PreviewFile = opts.PreviewFile
	a.GeoJSONFile = opts.GeoJSONFile
	a.Tier = opts.Tier
	a.NoCeilings = opts.NoCeilings
	a.Strict = opts.Strict
	a.HTTPMode = opts.HTTPMode
	a.MQTTMode = opts.MQTTMode
	a.HTTPPort = opts.HTTPPort
}

// loadConfig reads the config file if present, then applies environment and
// command line overrides. A missing file falls back to defaults.
func (a *App) loadConfig() error {
	var config *mesh.Config
	if _, err := os.Stat(a.ConfigFile); err == nil {
		config, err = mesh.LoadConfig(a.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log.Printf("Loaded config from %s", a.ConfigFile)
	} else {
		config = mesh.DefaultConfig()
	}

	if err := config.ApplyEnvOverrides(); err != nil {
		return err
	}

	if a.Tier != "" {
		tier, err := mesh.ParseQualityTier(a.Tier)
		if err != nil {
			return err
		}
		config.Build.Tier = tier
	}
	if a.NoCeilings {
		config.Build.SkipCeilings = true
	}
	if a.Strict {
		config.Build.StrictAdjacency = true
	}
	if a.HTTPPort > 0 {
		config.HTTP.Port = a.HTTPPort
	}

	a.Config = config
	return nil
}

// loadPlan reads the plan from --url or --plan
func (a *App) loadPlan(ctx context.Context) (*mesh.FloorPlan, error) {
	if a.PlanURL != "" {
		return mesh.FetchPlanFromURL(ctx, a.PlanURL)
	}
	if a.PlanFile == "" {
		return nil, fmt.Errorf("no plan given")
	}
	return mesh.DecodePlanFile(a.PlanFile)
}

// planSource names where the plan came from for logs and ids
func (a *App) planSource() string {
	if a.PlanURL != "" {
		return a.PlanURL
	}
	return a.PlanFile
}

// RunSummary prints what a plan contains without building it
func (a *App) RunSummary() error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	plan, err := a.loadPlan(context.Background())
	if err != nil {
		return fmt.Errorf("loading plan %s: %w", a.planSource(), err)
	}

	s := mesh.Summarize(plan)
	out := a.Out
	_, _ = fmt.Fprintf(out, "=== %s ===\n", planID(plan, a.planSource()))
	_, _ = fmt.Fprintf(out, "Source: %s\n", a.planSource())
	_, _ = fmt.Fprintf(out, "Rooms: %d (open-air: %d)", s.RoomCount, s.OpenAirRooms)
	if len(s.RoomNames) > 0 {
		_, _ = fmt.Fprintf(out, " [%s]", strings.Join(s.RoomNames, ", "))
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "Room types: %s\n", strings.Join(s.RoomTypes, ", "))
	_, _ = fmt.Fprintf(out, "Doors: %d, Windows: %d\n", s.DoorCount, s.WindowCount)
	_, _ = fmt.Fprintf(out, "Extent: %.2f x %.2f m, floor area %.2f m2\n", s.Width, s.Length, s.FloorArea)
	return nil
}

// RunBuild builds one plan and writes every requested output
func (a *App) RunBuild() error {
	if err := a.loadConfig(); err != nil {
		return err
	}

	plan, err := a.loadPlan(context.Background())
	if err != nil {
		return fmt.Errorf("loading plan %s: %w", a.planSource(), err)
	}

	start := time.Now()
	scene, err := mesh.BuildScene(plan, a.Config.Build)
	if err != nil {
		return fmt.Errorf("building scene: %w", err)
	}
	log.Printf("Built %s in %v: %d walls, %d meshes, %d warnings",
		planID(plan, a.planSource()), time.Since(start).Round(time.Millisecond),
		scene.Stats.Walls, scene.Stats.Meshes, len(scene.Warnings))

	if err := a.writeOutputs(plan, scene); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(a.Out, "Rooms: %d (skipped %d)\n", scene.Stats.Rooms, scene.Stats.SkippedRooms)
	_, _ = fmt.Fprintf(a.Out, "Walls: %d (%d interior, %d exterior)\n",
		scene.Stats.Walls, scene.Stats.InteriorWalls, scene.Stats.ExteriorWalls)
	_, _ = fmt.Fprintf(a.Out, "Openings: %d doors, %d windows\n", scene.Stats.Doors, scene.Stats.Windows)
	_, _ = fmt.Fprintf(a.Out, "Meshes: %d (%d vertices, %d faces)\n",
		scene.Stats.Meshes, scene.Stats.Vertices, scene.Stats.Faces)
	for _, w := range scene.Warnings {
		_, _ = fmt.Fprintf(a.Out, "  warning: %s\n", w)
	}
	return nil
}

// writeOutputs saves the scene and the optional previews
func (a *App) writeOutputs(plan *mesh.FloorPlan, scene *mesh.Scene) error {
	if a.OutputFile != "" {
		if err := mesh.SaveSceneJSON(a.OutputFile, scene); err != nil {
			return fmt.Errorf("writing scene: %w", err)
		}
		_, _ = fmt.Fprintf(a.Out, "Saved scene to %s\n", a.OutputFile)
	}

	if a.SVGFile != "" || a.PNGFile != "" {
		vr := a.vectorRenderer(plan, scene)
		if a.SVGFile != "" {
			if err := writeWith(a.SVGFile, vr.RenderToSVG); err != nil {
				return fmt.Errorf("writing SVG: %w", err)
			}
			_, _ = fmt.Fprintf(a.Out, "Saved SVG plan to %s\n", a.SVGFile)
		}
		if a.PNGFile != "" {
			if err := writeWith(a.PNGFile, vr.RenderToPNG); err != nil {
				return fmt.Errorf("writing PNG: %w", err)
			}
			_, _ = fmt.Fprintf(a.Out, "Saved PNG plan to %s\n", a.PNGFile)
		}
	}

	if a.PreviewFile != "" {
		data, err := a.previewPNG(plan, scene)
		if err != nil {
			return fmt.Errorf("rendering preview: %w", err)
		}
		if err := os.WriteFile(a.PreviewFile, data, 0644); err != nil {
			return fmt.Errorf("writing preview: %w", err)
		}
		_, _ = fmt.Fprintf(a.Out, "Saved preview to %s\n", a.PreviewFile)
	}

	if a.GeoJSONFile != "" {
		data, err := mesh.PlanToFeatureCollection(plan, scene).MarshalJSON()
		if err != nil {
			return fmt.Errorf("encoding GeoJSON: %w", err)
		}
		if err := os.WriteFile(a.GeoJSONFile, data, 0644); err != nil {
			return fmt.Errorf("writing GeoJSON: %w", err)
		}
		_, _ = fmt.Fprintf(a.Out, "Saved GeoJSON to %s\n", a.GeoJSONFile)
	}
	return nil
}

// vectorRenderer applies the render config to a new vector renderer
func (a *App) vectorRenderer(plan *mesh.FloorPlan, scene *mesh.Scene) *mesh.VectorRenderer {
	vr := mesh.NewVectorRenderer(plan, scene)
	vr.GridSpacing = a.Config.Render.GridSpacing
	vr.Resolution = canvas.DPI(a.Config.Render.VectorResolution)
	vr.WallThickness = a.Config.Build.WallThickness
	return vr
}

// previewPNG renders the labelled raster preview with the plan embedded
func (a *App) previewPNG(plan *mesh.FloorPlan, scene *mesh.Scene) ([]byte, error) {
	pr := mesh.NewPlanRenderer(plan, scene)
	pr.Scale = a.Config.Render.PixelsPerMeter
	pr.Thickness = a.Config.Build.WallThickness

	var buf bytes.Buffer
	if err := pr.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return mesh.EmbedPlanInPNG(buf.Bytes(), plan)
}

// writeWith creates path and hands it to render
func writeWith(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// planID picks the stored id for a plan: its own id, else the source file
// name without extension
func planID(plan *mesh.FloorPlan, source string) string {
	if plan != nil && plan.ID != "" {
		return plan.ID
	}
	base := filepath.Base(source)
	if base == "." || base == "/" || base == "" {
		return "plan"
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// buildAndStore builds a plan, stores the result and publishes it when MQTT
// is running
func (a *App) buildAndStore(id, source string, plan *mesh.FloorPlan) (*mesh.StoredScene, error) {
	scene, err := mesh.BuildScene(plan, a.Config.Build)
	if err != nil {
		return nil, err
	}
	scene.ID = id
	stored := a.Store.Put(id, source, plan, scene)

	if a.Publisher != nil {
		if err := a.Publisher.PublishScene(id, scene); err != nil {
			log.Printf("Warning: failed to publish scene %s: %v", id, err)
		}
	}
	return stored, nil
}

// handlePlanMessage is the MQTT plan handler
func (a *App) handlePlanMessage(id string, plan *mesh.FloorPlan, err error) {
	if err != nil {
		log.Printf("[MQTT] Error decoding plan %s: %v", id, err)
		if a.Publisher != nil {
			_ = a.Publisher.PublishError(id, err)
		}
		return
	}
	if plan.ID != "" {
		id = plan.ID
	}

	stored, err := a.buildAndStore(id, "mqtt", plan)
	if err != nil {
		log.Printf("[MQTT] Error building plan %s: %v", id, err)
		if a.Publisher != nil {
			_ = a.Publisher.PublishError(id, err)
		}
		return
	}
	log.Printf("[MQTT] Built plan %s: %d walls, %d warnings",
		id, stored.Scene.Stats.Walls, len(stored.Scene.Warnings))
}

// RunService runs the HTTP API and/or the MQTT intake until interrupted
func (a *App) RunService() error {
	_, _ = fmt.Fprintln(a.Out, "Starting wallmesh service...")

	if err := a.loadConfig(); err != nil {
		return err
	}

	store, err := mesh.NewSceneStore(a.Config.Store.MaxScenes)
	if err != nil {
		return err
	}
	a.Store = store

	// Optional initial plan so the API has something to serve right away
	if a.PlanFile != "" || a.PlanURL != "" {
		plan, err := a.loadPlan(context.Background())
		if err != nil {
			log.Printf("Warning: failed to load initial plan %s: %v", a.planSource(), err)
		} else if _, err := a.buildAndStore(planID(plan, a.planSource()), "cli", plan); err != nil {
			log.Printf("Warning: failed to build initial plan %s: %v", a.planSource(), err)
		}
	}

	if a.MQTTMode {
		mqttClient, err := mesh.NewMQTTClient(a.Config, a.handlePlanMessage)
		if err != nil {
			return fmt.Errorf("failed to initialize MQTT: %w", err)
		}
		a.MQTTClient = mqttClient
		a.Publisher = mesh.NewPublisher(mqttClient.GetClient(), a.Config.MQTT.PublishPrefix)
		_, _ = fmt.Fprintln(a.Out, "MQTT scene publisher initialized")
	}

	var server *http.Server
	if a.HTTPMode {
		server = &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", a.Config.HTTP.Port),
			Handler:           newHTTPServer(a),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("[HTTP] Starting server on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	a.printServiceInfo()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	_, _ = fmt.Fprintln(a.Out, "\nShutting down service...")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v", err)
		}
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	_, _ = fmt.Fprintln(a.Out, "Service stopped")
	return nil
}

func (a *App) printServiceInfo() {
	out := a.Out
	_, _ = fmt.Fprintln(out, "\nService Running")
	_, _ = fmt.Fprintln(out, "===============")

	if a.MQTTMode {
		prefix := a.Config.MQTT.PublishPrefix
		_, _ = fmt.Fprintln(out, "\nMQTT:")
		_, _ = fmt.Fprintf(out, "  Subscribed to: %s\n", a.Config.MQTT.PlanTopic)
		_, _ = fmt.Fprintf(out, "  Publishing to: %s/{planID}/scene, %s/{planID}/summary\n", prefix, prefix)
		_, _ = fmt.Fprintf(out, "  Scene index:   %s/scenes\n", prefix)
	}

	if a.HTTPMode {
		_, _ = fmt.Fprintf(out, "\nHTTP endpoints (port %d):\n", a.Config.HTTP.Port)
		_, _ = fmt.Fprintln(out, "  GET  /health                   - Health check")
		_, _ = fmt.Fprintln(out, "  POST /render                   - Build a plan (JSON, gzip, zlib or PNG body)")
		_, _ = fmt.Fprintln(out, "  GET  /scenes                   - Stored scene ids")
		_, _ = fmt.Fprintln(out, "  GET  /scenes/{id}              - Scene document")
		_, _ = fmt.Fprintln(out, "  GET  /scenes/{id}/plan.svg     - Vector plan view")
		_, _ = fmt.Fprintln(out, "  GET  /scenes/{id}/plan.png     - Labelled preview")
		_, _ = fmt.Fprintln(out, "  GET  /scenes/{id}/plan.geojson - Rooms, walls and openings")
	}

	_, _ = fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
