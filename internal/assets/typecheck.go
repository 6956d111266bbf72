package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrTypeCheck is returned when the type checker reports errors.
var ErrTypeCheck = errors.New("type check failed")

// TypeChecker checks a TypeScript project described by a tsconfig file.
type TypeChecker interface {
	Check(ctx context.Context, tsconfig string) error
}

// TypeCheckerFunc adapts a function to the TypeChecker interface.
type TypeCheckerFunc func(ctx context.Context, tsconfig string) error

func (f TypeCheckerFunc) Check(ctx context.Context, tsconfig string) error {
	return f(ctx, tsconfig)
}

// CommandChecker runs an external compiler in no-emit mode.
type CommandChecker struct {
	Command []string
	Dir     string
}

func (c *CommandChecker) Check(ctx context.Context, tsconfig string) error {
	if len(c.Command) == 0 {
		return fmt.Errorf("%w: no type check command configured", ErrTypeCheck)
	}

	args := append(append([]string(nil), c.Command[1:]...), "--noEmit", "--project", tsconfig)
	cmd := exec.CommandContext(ctx, c.Command[0], args...)
	cmd.Dir = c.Dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		output := strings.TrimSpace(out.String())
		if output == "" {
			return fmt.Errorf("%w: %w", ErrTypeCheck, err)
		}
		return fmt.Errorf("%w:\n%s", ErrTypeCheck, output)
	}
	return nil
}
