package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// bundleRow is the slice of a bundle the table views care about.
type bundleRow struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	Active    bool           `json:"active"`
	Suspended bool           `json:"suspended"`
	Payload   map[string]any `json:"payload"`
}

type bundleResult struct {
	Bundle   json.RawMessage `json:"bundle"`
	Warnings []string        `json:"warnings"`
}

type pageResult struct {
	Items         []json.RawMessage `json:"items"`
	NextPageToken string            `json:"nextPageToken"`
	Total         int               `json:"total"`
}

// resourceKinds drives command generation: every kind gets the same
// lifecycle, draft, public and history command set.
var resourceKinds = []struct {
	path     string // URL path segment and command name
	singular string
}{
	{"catalogues", "catalogue"},
	{"providers", "provider"},
	{"services", "service"},
	{"training-resources", "training resource"},
	{"interoperability-records", "interoperability record"},
	{"datasources", "datasource"},
	{"helpdesks", "helpdesk"},
	{"monitorings", "monitoring"},
	{"resource-interoperability-records", "resource interoperability record"},
	{"configuration-template-instances", "configuration template instance"},
	{"adapters", "adapter"},
}

func init() {
	for _, k := range resourceKinds {
		rootCmd.AddCommand(newKindCommand(k.path, k.singular))
	}
}

func newKindCommand(path, singular string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   path,
		Short: fmt.Sprintf("Manage %ss", singular),
	}

	var catalogueID string

	get := &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Get a %s bundle", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result bundleResult
			p := fmt.Sprintf("%s/%s/%s%s", apiBase, path, url.PathEscape(args[0]), catalogueQuery(catalogueID))
			if err := newClient().getJSON(p, &result); err != nil {
				return err
			}
			return printOutput(json.RawMessage(result.Bundle))
		},
	}
	get.Flags().StringVar(&catalogueID, "catalogue", "", "Catalogue the resource belongs to")

	var (
		listCatalogue string
		listStatus    string
		listActive    string
		listSuspended string
		pageSize      int
		pageToken     string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s bundles", singular),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if listCatalogue != "" {
				q.Set("catalogue_id", listCatalogue)
			}
			if listStatus != "" {
				q.Set("status", listStatus)
			}
			if listActive != "" {
				q.Set("active", listActive)
			}
			if listSuspended != "" {
				q.Set("suspended", listSuspended)
			}
			if pageSize > 0 {
				q.Set("page_size", strconv.Itoa(pageSize))
			}
			if pageToken != "" {
				q.Set("page_token", pageToken)
			}
			return runList(fmt.Sprintf("%s/%s", apiBase, path), q)
		},
	}
	list.Flags().StringVar(&listCatalogue, "catalogue", "", "Filter by catalogue id")
	list.Flags().StringVar(&listStatus, "status", "", "Filter by status")
	list.Flags().StringVar(&listActive, "active", "", "Filter by active (true or false)")
	list.Flags().StringVar(&listSuspended, "suspended", "", "Filter by suspended (true or false)")
	list.Flags().IntVar(&pageSize, "page-size", 0, "Page size")
	list.Flags().StringVar(&pageToken, "page-token", "", "Page token from a previous list call")

	var createFile, createCatalogue string
	create := &cobra.Command{
		Use:   "create -f <file>",
		Short: fmt.Sprintf("Register a new %s", singular),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readPayload(createFile)
			if err != nil {
				return err
			}
			var result bundleResult
			p := fmt.Sprintf("%s/%s%s", apiBase, path, catalogueQuery(createCatalogue))
			if err := newClient().postJSON(p, body, &result); err != nil {
				return err
			}
			printWarnings(result.Warnings)
			return printOutput(json.RawMessage(result.Bundle))
		},
	}
	create.Flags().StringVarP(&createFile, "file", "f", "", "JSON file holding the payload or bundle (required)")
	create.Flags().StringVar(&createCatalogue, "catalogue", "", "Catalogue to register under")
	_ = create.MarkFlagRequired("file")

	var updateFile, updateCatalogue, updateComment string
	update := &cobra.Command{
		Use:   "update <id> -f <file>",
		Short: fmt.Sprintf("Update a %s", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readPayload(updateFile)
			if err != nil {
				return err
			}
			q := url.Values{}
			if updateCatalogue != "" {
				q.Set("catalogue_id", updateCatalogue)
			}
			if updateComment != "" {
				q.Set("comment", updateComment)
			}
			var result bundleResult
			p := fmt.Sprintf("%s/%s/%s%s", apiBase, path, url.PathEscape(args[0]), encodeQuery(q))
			if err := newClient().putJSON(p, body, &result); err != nil {
				return err
			}
			printWarnings(result.Warnings)
			return printOutput(json.RawMessage(result.Bundle))
		},
	}
	update.Flags().StringVarP(&updateFile, "file", "f", "", "JSON file holding the payload or bundle (required)")
	update.Flags().StringVar(&updateCatalogue, "catalogue", "", "Catalogue the resource belongs to")
	update.Flags().StringVar(&updateComment, "comment", "", "Update comment for the audit trail")
	_ = update.MarkFlagRequired("file")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s and its dependent records", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result bundleResult
			p := fmt.Sprintf("%s/%s/%s", apiBase, path, url.PathEscape(args[0]))
			if err := newClient().delete(p, &result); err != nil {
				return err
			}
			printWarnings(result.Warnings)
			fmt.Printf("Deleted %s %q\n", singular, args[0])
			return nil
		},
	}

	var verifyStatus string
	var verifyActive bool
	verify := &cobra.Command{
		Use:   "verify <id>",
		Short: fmt.Sprintf("Move a %s through the approval workflow", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("status", verifyStatus)
			q.Set("active", strconv.FormatBool(verifyActive))
			var result bundleResult
			p := fmt.Sprintf("%s/%s/%s/verify%s", apiBase, path, url.PathEscape(args[0]), encodeQuery(q))
			if err := newClient().patchJSON(p, nil, &result); err != nil {
				return err
			}
			printWarnings(result.Warnings)
			return printOutput(json.RawMessage(result.Bundle))
		},
	}
	verify.Flags().StringVar(&verifyStatus, "status", "", "Target status (required)")
	verify.Flags().BoolVar(&verifyActive, "active", true, "Whether an approved resource becomes active")
	_ = verify.MarkFlagRequired("status")

	var publishActive bool
	publish := &cobra.Command{
		Use:   "publish <id>",
		Short: fmt.Sprintf("Activate or deactivate a %s", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("active", strconv.FormatBool(publishActive))
			var result bundleResult
			p := fmt.Sprintf("%s/%s/%s/publish%s", apiBase, path, url.PathEscape(args[0]), encodeQuery(q))
			if err := newClient().patchJSON(p, nil, &result); err != nil {
				return err
			}
			printWarnings(result.Warnings)
			return printOutput(json.RawMessage(result.Bundle))
		},
	}
	publish.Flags().BoolVar(&publishActive, "active", true, "Target active state")

	var suspendValue bool
	suspend := &cobra.Command{
		Use:   "suspend <id>",
		Short: fmt.Sprintf("Suspend or unsuspend a %s", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("suspend", strconv.FormatBool(suspendValue))
			var result bundleResult
			p := fmt.Sprintf("%s/%s/%s/suspend%s", apiBase, path, url.PathEscape(args[0]), encodeQuery(q))
			if err := newClient().patchJSON(p, nil, &result); err != nil {
				return err
			}
			printWarnings(result.Warnings)
			return printOutput(json.RawMessage(result.Bundle))
		},
	}
	suspend.Flags().BoolVar(&suspendValue, "value", true, "true to suspend, false to lift the suspension")

	var auditAction, auditComment string
	audit := &cobra.Command{
		Use:   "audit <id>",
		Short: fmt.Sprintf("Record an audit verdict on a %s", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"action": auditAction, "comment": auditComment}
			var result bundleResult
			p := fmt.Sprintf("%s/%s/%s/audit", apiBase, path, url.PathEscape(args[0]))
			if err := newClient().patchJSON(p, body, &result); err != nil {
				return err
			}
			return printOutput(json.RawMessage(result.Bundle))
		},
	}
	audit.Flags().StringVar(&auditAction, "action", "", "Audit verdict: valid or invalid (required)")
	audit.Flags().StringVar(&auditComment, "comment", "", "Auditor's comment")
	_ = audit.MarkFlagRequired("action")

	history := &cobra.Command{
		Use:   "history <id>",
		Short: fmt.Sprintf("Show the stored history of a %s", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result pageResult
			p := fmt.Sprintf("%s/%s/%s/history", apiBase, path, url.PathEscape(args[0]))
			if err := newClient().getJSON(p, &result); err != nil {
				return err
			}
			return printOutput(result)
		},
	}

	cmd.AddCommand(get, list, create, update, del, verify, publish, suspend, audit, history)
	cmd.AddCommand(newDraftCommand(path, singular))
	cmd.AddCommand(newPublicCommand(path, singular))
	return cmd
}

func runList(base string, q url.Values) error {
	var result pageResult
	if err := newClient().getJSON(base+encodeQuery(q), &result); err != nil {
		return err
	}

	if fmtName := setting("output"); fmtName == "json" || fmtName == "yaml" {
		return printOutput(result)
	}

	headers := []string{"ID", "Name", "Catalogue", "Status", "Active", "Suspended"}
	rows := make([][]string, 0, len(result.Items))
	for _, raw := range result.Items {
		var row bundleRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return err
		}
		rows = append(rows, []string{
			row.ID,
			truncate(payloadString(row.Payload, "name"), 40),
			payloadString(row.Payload, "catalogueId"),
			row.Status,
			strconv.FormatBool(row.Active),
			strconv.FormatBool(row.Suspended),
		})
	}
	printTable(headers, rows)
	fmt.Printf("Total: %d\n", result.Total)
	if result.NextPageToken != "" {
		fmt.Printf("Next page token: %s\n", result.NextPageToken)
	}
	return nil
}

func payloadString(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

func readPayload(file string) (json.RawMessage, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s does not contain valid JSON", file)
	}
	return json.RawMessage(data), nil
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
}

func catalogueQuery(id string) string {
	if id == "" {
		return ""
	}
	q := url.Values{}
	q.Set("catalogue_id", id)
	return encodeQuery(q)
}

func encodeQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
