package mesh

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration loaded from YAML
type Config struct {
	MQTT   MQTTConfig   `yaml:"mqtt" json:"mqtt"`
	HTTP   HTTPConfig   `yaml:"http" json:"http"`
	Build  BuildOptions `yaml:"build" json:"build"`
	Render RenderConfig `yaml:"render" json:"render"`
	Store  StoreConfig  `yaml:"store" json:"store"`
}

// MQTTConfig holds broker settings for the plan intake service
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
	PlanTopic     string `yaml:"planTopic" json:"planTopic"` // may end in a wildcard
}

// HTTPConfig holds the API server settings
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// RenderConfig tunes the top-down plan previews
type RenderConfig struct {
	PixelsPerMeter   float64 `yaml:"pixelsPerMeter,omitempty" json:"pixelsPerMeter,omitempty"`     // raster preview scale (default 60)
	GridSpacing      float64 `yaml:"gridSpacing,omitempty" json:"gridSpacing,omitempty"`           // grid line spacing in meters (default 1)
	VectorResolution float64 `yaml:"vectorResolution,omitempty" json:"vectorResolution,omitempty"` // vector PNG DPI (default 150)
}

// StoreConfig sizes the in-memory scene store
type StoreConfig struct {
	MaxScenes int `yaml:"maxScenes" json:"maxScenes"`
}

const (
	DefaultHTTPPort       = 8080
	DefaultPublishPrefix  = "wallmesh"
	DefaultClientID       = "wallmesh"
	DefaultPlanTopic      = "wallmesh/plans/+"
	DefaultMaxScenes      = 64
	DefaultPixelsPerMeter = 60.0
	DefaultGridSpacing    = 1.0
	DefaultVectorDPI      = 150.0
)

// DefaultConfig returns the configuration used without a config file
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.MQTT.PublishPrefix == "" {
		c.MQTT.PublishPrefix = DefaultPublishPrefix
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultClientID
	}
	if c.MQTT.PlanTopic == "" {
		c.MQTT.PlanTopic = DefaultPlanTopic
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	c.Build = c.Build.withDefaults()
	if c.Render.PixelsPerMeter <= 0 {
		c.Render.PixelsPerMeter = DefaultPixelsPerMeter
	}
	if c.Render.GridSpacing <= 0 {
		c.Render.GridSpacing = DefaultGridSpacing
	}
	if c.Render.VectorResolution <= 0 {
		c.Render.VectorResolution = DefaultVectorDPI
	}
	if c.Store.MaxScenes <= 0 {
		c.Store.MaxScenes = DefaultMaxScenes
	}
}

// LoadConfig loads the configuration from a YAML file, fills defaults and
// validates it
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return &config, nil
}

// Validate rejects values that cannot produce a usable build
func (c *Config) Validate() error {
	if _, err := ParseQualityTier(string(c.Build.Tier)); err != nil {
		return fmt.Errorf("build.tier: %w", err)
	}
	if c.Build.WallThickness < 0 || c.Build.WallThickness > 1 {
		return fmt.Errorf("build.wallThickness must be between 0 and 1, got %v", c.Build.WallThickness)
	}
	if c.Build.AdjacencyTolerance < 0 || c.Build.AdjacencyTolerance > 1 {
		return fmt.Errorf("build.adjacencyTolerance must be between 0 and 1, got %v", c.Build.AdjacencyTolerance)
	}
	if p := c.Build.KeyPrecision; p != nil && (*p < 0 || *p > 6) {
		return fmt.Errorf("build.keyPrecision must be between 0 and 6, got %d", *p)
	}
	for key, o := range c.Build.Materials {
		if o.Color == "" {
			continue
		}
		if _, ok := parseHexColor(o.Color); !ok {
			return fmt.Errorf("build.materials.%s.color: invalid color %q", key, o.Color)
		}
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	if c.Store.MaxScenes < 0 {
		return fmt.Errorf("store.maxScenes must not be negative")
	}
	return nil
}

// ValidateMQTT checks the settings the MQTT service cannot run without
func (c *Config) ValidateMQTT() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.MQTT.PlanTopic == "" {
		return fmt.Errorf("mqtt.planTopic is required")
	}
	return nil
}

// ApplyEnvOverrides replaces config values with MQTT_* and HTTP_PORT
// environment variables when they are set
func (c *Config) ApplyEnvOverrides() error {
	overrides := []struct {
		env    string
		target *string
	}{
		{"MQTT_BROKER", &c.MQTT.Broker},
		{"MQTT_CLIENT_ID", &c.MQTT.ClientID},
		{"MQTT_USERNAME", &c.MQTT.Username},
		{"MQTT_PASSWORD", &c.MQTT.Password},
		{"MQTT_PUBLISH_PREFIX", &c.MQTT.PublishPrefix},
		{"MQTT_PLAN_TOPIC", &c.MQTT.PlanTopic},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}

	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid HTTP_PORT %q", v)
		}
		c.HTTP.Port = port
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
