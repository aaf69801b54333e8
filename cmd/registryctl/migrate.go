package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move resources between catalogues and providers",
}

var (
	migrateTargetCatalogue string
	migrateComment         string
)

var migrateProviderCmd = &cobra.Command{
	Use:   "provider <id>",
	Short: "Move a provider, with everything it owns, to another catalogue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{
			"targetCatalogueId": migrateTargetCatalogue,
			"comment":           migrateComment,
		}
		var result bundleResult
		p := fmt.Sprintf("%s/migrations/providers/%s/catalogue", apiBase, url.PathEscape(args[0]))
		if err := newClient().postJSON(p, body, &result); err != nil {
			return err
		}
		printWarnings(result.Warnings)
		return printOutput(json.RawMessage(result.Bundle))
	},
}

var migrateTargetProvider string

var migrateServiceCmd = &cobra.Command{
	Use:   "service <id>",
	Short: "Reassign a service to another provider in the same catalogue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{
			"providerId": migrateTargetProvider,
			"comment":    migrateComment,
		}
		var result bundleResult
		p := fmt.Sprintf("%s/migrations/services/%s/provider", apiBase, url.PathEscape(args[0]))
		if err := newClient().postJSON(p, body, &result); err != nil {
			return err
		}
		printWarnings(result.Warnings)
		return printOutput(json.RawMessage(result.Bundle))
	},
}

func init() {
	migrateProviderCmd.Flags().StringVar(&migrateTargetCatalogue, "catalogue", "", "Target catalogue id (required)")
	migrateProviderCmd.Flags().StringVar(&migrateComment, "comment", "", "Reason recorded in the audit trail")
	_ = migrateProviderCmd.MarkFlagRequired("catalogue")

	migrateServiceCmd.Flags().StringVar(&migrateTargetProvider, "provider", "", "Target provider id (required)")
	migrateServiceCmd.Flags().StringVar(&migrateComment, "comment", "", "Reason recorded in the audit trail")
	_ = migrateServiceCmd.MarkFlagRequired("provider")

	migrateCmd.AddCommand(migrateProviderCmd)
	migrateCmd.AddCommand(migrateServiceCmd)
}
