package lidar

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file.
// Fields absent from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
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

// Validate checks the configuration for values the pipeline cannot work with
func (c *Config) Validate() error {
	if c.CameraID == "" {
		return fmt.Errorf("cameraId is required")
	}
	if c.Filter.MaxForward < 0 {
		return fmt.Errorf("filter.maxForward must be >= 0, got %g", c.Filter.MaxForward)
	}
	if c.Filter.MaxLateral < 0 {
		return fmt.Errorf("filter.maxLateral must be >= 0, got %g", c.Filter.MaxLateral)
	}
	if c.Render.DiscRadius < 0 {
		return fmt.Errorf("render.discRadius must be >= 0, got %d", c.Render.DiscRadius)
	}
	if c.Render.Opacity < 0 || c.Render.Opacity > 1 {
		return fmt.Errorf("render.opacity must be in [0, 1], got %g", c.Render.Opacity)
	}
	if c.Render.ValueRange <= 0 {
		return fmt.Errorf("render.valueRange must be > 0, got %g", c.Render.ValueRange)
	}
	if c.Calibration.SensorToCamera == "" || c.Calibration.CameraToCamera == "" {
		return fmt.Errorf("calibration file names are required")
	}
	if c.Dataset.ImageDir == "" || c.Dataset.CloudDir == "" {
		return fmt.Errorf("dataset.imageDir and dataset.cloudDir are required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

// EffectiveWorkers returns the worker count, treating 0 as 1
func (c *Config) EffectiveWorkers() int {
	if c.Workers < 1 {
		return 1
	}
	return c.Workers
}
