package commands

import (
	"context"
	"fmt"
)

// ConfigCmd prints the generated bundler configuration.
type ConfigCmd struct {
	Format string `help:"Output format" enum:"json,yaml" default:"json" short:"o"`
}

func (c *ConfigCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	cfg, _, err := loadBundle(globals, log)
	if err != nil {
		return err
	}

	var data []byte
	switch c.Format {
	case "yaml":
		data, err = cfg.MarshalYAMLDocument()
	default:
		data, err = cfg.MarshalIndentJSON()
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	_, err = globals.stdout().Write(data)
	return err
}
