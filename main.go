package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line
type AppOptions struct {
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
	Summary     bool
	HTTPMode    bool
	MQTTMode    bool
	HTTPPort    int
}

// AppRunner is the behaviour main dispatches to
type AppRunner interface {
	ApplyOptions(opts AppOptions)
	RunSummary() error
	RunBuild() error
	RunService() error
}

func main() {
	// A missing .env file is fine; real environment variables still apply
	_ = godotenv.Load()

	app := NewApp()
	if err := run(os.Args[1:], os.Stdout, app); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("Error: %v", err)
	}
}

// run parses args and dispatches to the selected mode
func run(args []string, out io.Writer, app AppRunner) error {
	fs := flag.NewFlagSet("wallmesh", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.PlanFile, "plan", "", "Floor plan file (JSON, gzip, zlib or PNG with embedded plan)")
	fs.StringVar(&opts.PlanURL, "url", "", "Fetch the floor plan from a URL instead of a file")
	fs.StringVar(&opts.OutputFile, "output", "scene.json", "Output file for the built scene")
	fs.StringVar(&opts.SVGFile, "svg", "", "Also write a vector plan view (SVG)")
	fs.StringVar(&opts.PNGFile, "png", "", "Also write a vector plan view rasterized to PNG")
	fs.StringVar(&opts.PreviewFile, "preview", "", "Also write a labelled PNG preview with the plan embedded")
	fs.StringVar(&opts.GeoJSONFile, "geojson", "", "Also write rooms, walls and openings as GeoJSON")
	fs.StringVar(&opts.Tier, "tier", "", "Quality tier: basic or detailed (default from config)")
	fs.BoolVar(&opts.NoCeilings, "no-ceilings", false, "Skip ceiling slabs")
	fs.BoolVar(&opts.Strict, "strict", false, "Fail on ambiguous wall adjacency instead of warning")
	fs.BoolVar(&opts.Summary, "summary", false, "Print a plan summary and exit")
	fs.BoolVar(&opts.HTTPMode, "http", false, "Run the HTTP build service")
	fs.BoolVar(&opts.MQTTMode, "mqtt", false, "Build plans received over MQTT")
	fs.IntVar(&opts.HTTPPort, "http-port", 0, "HTTP server port (default from config, else 8080)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "wallmesh version: %s\n", Version)
	app.ApplyOptions(opts)

	hasInput := opts.PlanFile != "" || opts.PlanURL != ""

	switch {
	case opts.Summary && hasInput:
		return app.RunSummary()
	case opts.HTTPMode || opts.MQTTMode:
		return app.RunService()
	case hasInput:
		return app.RunBuild()
	}

	_, _ = fmt.Fprintln(out, "wallmesh: no plan given")
	_, _ = fmt.Fprintln(out, "Use --plan FILE (or --url URL) to build a scene")
	_, _ = fmt.Fprintln(out, "Use --summary with --plan to inspect a plan")
	_, _ = fmt.Fprintln(out, "Use --http and/or --mqtt to run the build service")
	_, _ = fmt.Fprintln(out, "\nConfiguration:")
	_, _ = fmt.Fprintln(out, "  config.yaml - MQTT, HTTP, build and render settings")
	_, _ = fmt.Fprintln(out, "  .env        - MQTT_BROKER, MQTT_USERNAME, HTTP_PORT, ... overrides")
	return nil
}
