package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ludexhq/ludex/internal/mirror"
)

var cloneCmd = &cobra.Command{
	Use:   "clone [endpoint ...]",
	Short: "Rebuild mirrored collections from the upstream catalog",
	Long: "Drops and re-fetches the named collections (or all of them) from the upstream.\n" +
		"Existing data for a collection is gone once its clone starts; interrupting a\n" +
		"clone leaves that collection partial until the next run.",
	RunE: runClone,
}

func init() {
	rootCmd.AddCommand(cloneCmd)
}

func runClone(cmd *cobra.Command, args []string) error {
	// A full clone can run for a long time; let SIGINT abort it cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	m, st, err := resolveMirror(ctx)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	if err := m.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensuring indexes: %w", err)
	}

	targets := m.All()
	if len(args) > 0 {
		targets = make([]mirror.Syncer, 0, len(args))
		for _, name := range args {
			s, ok := m.ByEndpoint(name)
			if !ok {
				return fmt.Errorf("unknown endpoint %q", name)
			}
			targets = append(targets, s)
		}
	}

	var failed int
	for _, s := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		items, err := s.CloneCollection(ctx)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "clone %s: %v\n", s.Endpoint(), err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cloned %q: %d items\n", s.Endpoint(), items)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d clones failed", failed, len(targets))
	}
	return nil
}
