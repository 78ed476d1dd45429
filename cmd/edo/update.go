package main

import (
	"fmt"

	"github.com/cuemby/edo/internal/ctx"
	"github.com/cuemby/edo/internal/elog"
	"github.com/cuemby/edo/internal/project"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Discard the lockfile and re-resolve every dependency",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		projectDir, _ := cmd.Flags().GetString("project")
		logLevel, _ := cmd.Flags().GetString("log-level")
		logJSON, _ := cmd.Flags().GetBool("log-json")
		cliArgs, _ := cmd.Flags().GetStringToString("arg")

		cfg, err := ctx.LoadConfig(configOrDefault(configPath))
		if err != nil {
			return err
		}
		cfg.LogLevel = elog.Level(logLevel)
		cfg.JSON = logJSON

		c, err := ctx.New(cfg, cliArgs)
		if err != nil {
			return fmt.Errorf("edo: %w", err)
		}
		p, err := project.Load(projectDir)
		if err != nil {
			return fmt.Errorf("edo: loading project %s: %w", projectDir, err)
		}
		return p.Update(c)
	},
}

func configOrDefault(path string) string {
	if path == "" {
		return ".edo/config.yaml"
	}
	return path
}
