package main

import (
	"context"
	"fmt"

	"github.com/cuemby/edo/internal/node"
	"github.com/spf13/cobra"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <id> <dest>",
	Short: "Unpack a cached artifact onto the host filesystem",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := node.ParseID(args[0])
		if err != nil {
			return fmt.Errorf("edo: %w", err)
		}
		c, err := buildCtx(cmd, false)
		if err != nil {
			return err
		}
		return c.Checkout(context.Background(), id, args[1])
	},
}
