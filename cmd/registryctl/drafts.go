package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newDraftCommand(path, singular string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: fmt.Sprintf("Work on %s drafts", singular),
	}

	var createFile, createCatalogue string
	create := &cobra.Command{
		Use:   "create -f <file>",
		Short: fmt.Sprintf("Save a %s draft", singular),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readPayload(createFile)
			if err != nil {
				return err
			}
			var result bundleResult
			p := fmt.Sprintf("%s/%s/drafts%s", apiBase, path, catalogueQuery(createCatalogue))
			if err := newClient().postJSON(p, body, &result); err != nil {
				return err
			}
			return printOutput(json.RawMessage(result.Bundle))
		},
	}
	create.Flags().StringVarP(&createFile, "file", "f", "", "JSON file holding the payload or bundle (required)")
	create.Flags().StringVar(&createCatalogue, "catalogue", "", "Catalogue to file the draft under")
	_ = create.MarkFlagRequired("file")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Get a %s draft", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result bundleResult
			p := fmt.Sprintf("%s/%s/drafts/%s", apiBase, path, url.PathEscape(args[0]))
			if err := newClient().getJSON(p, &result); err != nil {
				return err
			}
			return printOutput(json.RawMessage(result.Bundle))
		},
	}

	var listCatalogue string
	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s drafts", singular),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if listCatalogue != "" {
				q.Set("catalogue_id", listCatalogue)
			}
			return runList(fmt.Sprintf("%s/%s/drafts", apiBase, path), q)
		},
	}
	list.Flags().StringVar(&listCatalogue, "catalogue", "", "Filter by catalogue id")

	var updateFile string
	update := &cobra.Command{
		Use:   "update <id> -f <file>",
		Short: fmt.Sprintf("Update a %s draft", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readPayload(updateFile)
			if err != nil {
				return err
			}
			var result bundleResult
			p := fmt.Sprintf("%s/%s/drafts/%s", apiBase, path, url.PathEscape(args[0]))
			if err := newClient().putJSON(p, body, &result); err != nil {
				return err
			}
			return printOutput(json.RawMessage(result.Bundle))
		},
	}
	update.Flags().StringVarP(&updateFile, "file", "f", "", "JSON file holding the payload or bundle (required)")
	_ = update.MarkFlagRequired("file")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Discard a %s draft", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := fmt.Sprintf("%s/%s/drafts/%s", apiBase, path, url.PathEscape(args[0]))
			if err := newClient().delete(p, nil); err != nil {
				return err
			}
			fmt.Printf("Deleted draft %q\n", args[0])
			return nil
		},
	}

	transform := &cobra.Command{
		Use:   "transform <id>",
		Short: fmt.Sprintf("Promote a %s draft into the onboarding workflow", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result bundleResult
			p := fmt.Sprintf("%s/%s/drafts/%s/transform", apiBase, path, url.PathEscape(args[0]))
			if err := newClient().postJSON(p, nil, &result); err != nil {
				return err
			}
			printWarnings(result.Warnings)
			return printOutput(json.RawMessage(result.Bundle))
		},
	}

	cmd.AddCommand(create, get, list, update, del, transform)
	return cmd
}

func newPublicCommand(path, singular string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "public",
		Short: fmt.Sprintf("Read the public %s mirror", singular),
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Get a public %s by its prefixed id", singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result bundleResult
			p := fmt.Sprintf("%s/public/%s/%s", apiBase, path, url.PathEscape(args[0]))
			if err := newClient().getJSON(p, &result); err != nil {
				return err
			}
			return printOutput(json.RawMessage(result.Bundle))
		},
	}

	var listCatalogue string
	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List public %s bundles", singular),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if listCatalogue != "" {
				q.Set("catalogue_id", listCatalogue)
			}
			return runList(fmt.Sprintf("%s/public/%s", apiBase, path), q)
		},
	}
	list.Flags().StringVar(&listCatalogue, "catalogue", "", "Filter by source catalogue id")

	cmd.AddCommand(get, list)
	return cmd
}
