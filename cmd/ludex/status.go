package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSONOutput bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local and upstream document counts per collection",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false,
		"Output in JSON format")
	rootCmd.AddCommand(statusCmd)
}

type collectionStatus struct {
	endpoint    string
	local       int64
	upstream    uint64
	upstreamErr error
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	m, st, err := resolveMirror(ctx)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	statuses := make([]collectionStatus, 0, len(m.All()))
	for _, s := range m.All() {
		local, err := s.Count(ctx)
		if err != nil {
			return fmt.Errorf("counting %s: %w", s.Endpoint(), err)
		}

		// Upstream may be unreachable or unconfigured; the local side of
		// the table is still worth printing.
		upstream, uerr := s.UpstreamCount(ctx)

		statuses = append(statuses, collectionStatus{
			endpoint:    s.Endpoint(),
			local:       local,
			upstream:    upstream,
			upstreamErr: uerr,
		})
	}

	if statusJSONOutput {
		items := make([]map[string]any, len(statuses))
		for i, cs := range statuses {
			item := map[string]any{
				"endpoint": cs.endpoint,
				"local":    cs.local,
			}
			if cs.upstreamErr == nil {
				item["upstream"] = cs.upstream
				item["drift"] = int64(cs.upstream) - cs.local
			} else {
				item["upstream_error"] = cs.upstreamErr.Error()
			}
			items[i] = item
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"collections": items,
			"total":       len(items),
		})
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ENDPOINT\tLOCAL\tUPSTREAM\tDRIFT")
	for _, cs := range statuses {
		if cs.upstreamErr != nil {
			fmt.Fprintf(w, "%s\t%d\t-\t-\n", cs.endpoint, cs.local)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n",
			cs.endpoint, cs.local, cs.upstream, int64(cs.upstream)-cs.local)
	}
	w.Flush()

	return nil
}
