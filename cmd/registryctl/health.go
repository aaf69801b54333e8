package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var result map[string]string
		if err := newClient().getJSON("/healthz", &result); err != nil {
			return fmt.Errorf("server unreachable: %w", err)
		}
		fmt.Printf("Server %s is %s\n", setting("server"), result["status"])
		return nil
	},
}
