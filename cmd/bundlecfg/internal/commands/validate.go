package commands

import (
	"context"
	"fmt"
)

// ValidateCmd checks the options file without building.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(ctx context.Context, globals *Globals) error {
	log := setupLogger(globals)

	cfg, _, err := loadBundle(globals, log)
	if err != nil {
		return err
	}

	entries := len(cfg.Entry.Named)
	if !cfg.Entry.IsKeyed() {
		entries = 1
	}
	_, err = fmt.Fprintf(globals.stdout(), "ok: %d entries, output %s\n", entries, cfg.Output.Path)
	return err
}
