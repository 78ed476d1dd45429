package main

import (
	"context"
	"fmt"

	"github.com/cuemby/edo/internal/node"
	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune [id]",
	Short: "Remove stale versions from the local cache, or the whole cache if no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id node.Id
		if len(args) == 1 {
			parsed, err := node.ParseID(args[0])
			if err != nil {
				return fmt.Errorf("edo: %w", err)
			}
			id = parsed
		}
		c, err := buildCtx(cmd, false)
		if err != nil {
			return err
		}
		return c.Prune(context.Background(), id)
	},
}
