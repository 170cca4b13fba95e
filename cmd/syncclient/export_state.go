package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sudo-s14/sliding-sync/config"
	"github.com/sudo-s14/sliding-sync/internal/store"
)

func newExportStateCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export-state",
		Short: "Print the persisted sync state for the configured connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.ConfigPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			storePath := cfg.StorePath
			if storePath == "" {
				storePath, err = store.DefaultPath()
				if err != nil {
					return fmt.Errorf("resolving default store path: %w", err)
				}
			}

			st, err := store.Open(storePath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			raw, err := st.Load(cfg.ConnID)
			if err != nil {
				return fmt.Errorf("loading persisted state: %w", err)
			}
			if raw == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "{}")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
}
