package main

import (
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the account store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			// openStore migrates on open.
			st, err := openStore(cmd.Context(), a, nil)
			if err != nil {
				return err
			}
			st.close()
			a.log.Info().Str("driver", a.cfg.Database.Driver).Msg("schema applied")
			return nil
		},
	}
}
