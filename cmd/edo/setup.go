package main

import (
	"fmt"

	"github.com/cuemby/edo/internal/ctx"
	"github.com/cuemby/edo/internal/elog"
	"github.com/cuemby/edo/internal/project"
	"github.com/spf13/cobra"
)

// buildCtx reads cmd's persistent flags, constructs a Ctx, loads the
// project directory and wires it in — the sequence every subcommand below
// shares before it does its own thing.
func buildCtx(cmd *cobra.Command, errorOnLock bool) (*ctx.Ctx, error) {
	configPath, _ := cmd.Flags().GetString("config")
	projectDir, _ := cmd.Flags().GetString("project")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	interactive, _ := cmd.Flags().GetBool("interactive")
	args, _ := cmd.Flags().GetStringToString("arg")

	cfg, err := ctx.LoadConfig(configOrDefault(configPath))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = elog.Level(logLevel)
	cfg.JSON = logJSON
	cfg.Interactive = interactive

	c, err := ctx.New(cfg, args)
	if err != nil {
		return nil, fmt.Errorf("edo: %w", err)
	}

	p, err := project.Load(projectDir)
	if err != nil {
		return nil, fmt.Errorf("edo: loading project %s: %w", projectDir, err)
	}
	if err := p.Build(c, errorOnLock); err != nil {
		return nil, fmt.Errorf("edo: building project %s: %w", projectDir, err)
	}

	return c, nil
}
