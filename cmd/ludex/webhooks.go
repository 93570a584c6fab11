package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var webhooksJSONOutput bool

var webhooksCmd = &cobra.Command{
	Use:   "webhooks",
	Short: "Manage upstream webhook registrations",
	Long:  "Inspect the callbacks registered with the upstream catalog and register the missing ones.",
}

var webhooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List webhooks registered with the upstream",
	Args:  cobra.NoArgs,
	RunE:  runWebhooksList,
}

var webhooksConfigureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Register create/update/delete callbacks for every collection",
	Args:  cobra.NoArgs,
	RunE:  runWebhooksConfigure,
}

func init() {
	webhooksCmd.PersistentFlags().BoolVar(&webhooksJSONOutput, "json", false,
		"Output in JSON format")

	webhooksCmd.AddCommand(webhooksListCmd)
	webhooksCmd.AddCommand(webhooksConfigureCmd)
	rootCmd.AddCommand(webhooksCmd)
}

func runWebhooksList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	m, st, err := resolveMirror(ctx)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	hooks, err := m.ListWebhooks(ctx)
	if err != nil {
		return fmt.Errorf("list webhooks: %w", err)
	}

	if webhooksJSONOutput {
		items := make([]map[string]any, len(hooks))
		for i, h := range hooks {
			items[i] = map[string]any{
				"id":     h.ID,
				"url":    h.URL,
				"active": h.Active,
			}
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"webhooks": items,
			"total":    len(items),
		})
	}

	if len(hooks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No webhooks registered.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tURL\tACTIVE")
	for _, h := range hooks {
		fmt.Fprintf(w, "%d\t%s\t%t\n", h.ID, h.URL, h.Active)
	}
	w.Flush()

	return nil
}

func runWebhooksConfigure(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	m, st, err := resolveMirror(ctx)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	if err := m.ConfigureWebhooks(ctx); err != nil {
		return fmt.Errorf("configure webhooks: %w", err)
	}

	if webhooksJSONOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"configured":  true,
			"collections": len(m.All()),
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Webhooks configured for %d collections.\n", len(m.All()))
	return nil
}
