package points

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the simulation and display parameters read by Points.
type Config struct {
	SpaceSize        float32 `yaml:"spaceSize"`
	Friction         float32 `yaml:"friction"`
	PixelRatio       float32 `yaml:"pixelRatio"`
	SizeScale        float32 `yaml:"nodeSizeScale"`
	GreyoutOpacity   float32 `yaml:"nodeGreyoutOpacity"`
	ScaleNodesOnZoom bool    `yaml:"scaleNodesOnZoom"`
	RandomSeed       uint64  `yaml:"randomSeed"`

	// NodeColor and NodeSize default to the per-node fields.
	NodeColor ColorAccessor   `yaml:"-"`
	NodeSize  NumericAccessor `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		SpaceSize:        4096,
		Friction:         0.85,
		PixelRatio:       2,
		SizeScale:        1,
		GreyoutOpacity:   0.1,
		ScaleNodesOnZoom: true,
		NodeColor:        NodeColorField{},
		NodeSize:         NodeSizeField{},
	}
}

// configFile is the YAML form of Config. Constant node colours and sizes
// can be set from the file; computed accessors only from code.
type configFile struct {
	Config    `yaml:",inline"`
	NodeColor string   `yaml:"nodeColor"`
	NodeSize  *float32 `yaml:"nodeSize"`
}

// ParseConfig decodes YAML on top of DefaultConfig.
func ParseConfig(data []byte) (*Config, error) {
	file := configFile{Config: *DefaultConfig()}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg := &file.Config
	if file.NodeColor != "" {
		c, err := ParseColor(file.NodeColor)
		if err != nil {
			return nil, fmt.Errorf("parse config: nodeColor: %w", err)
		}
		cfg.NodeColor = ConstantColor(c)
	}
	if file.NodeSize != nil {
		cfg.NodeSize = ConstantNumber(*file.NodeSize)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return ParseConfig(data)
}

func (c *Config) Validate() error {
	switch {
	case c.SpaceSize <= 0:
		return fmt.Errorf("config: spaceSize must be positive, got %v", c.SpaceSize)
	case c.PixelRatio <= 0:
		return fmt.Errorf("config: pixelRatio must be positive, got %v", c.PixelRatio)
	case c.Friction < 0 || c.Friction > 1:
		return fmt.Errorf("config: friction must be in [0, 1], got %v", c.Friction)
	}
	return nil
}
