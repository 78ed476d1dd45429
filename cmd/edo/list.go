package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every artifact currently in the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildCtx(cmd, false)
		if err != nil {
			return err
		}
		ids, err := c.List(context.Background())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id.String())
		}
		return nil
	},
}
