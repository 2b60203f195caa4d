package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(viper.New())
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer st.Close()
		slog.Info("database migrated", "driver", p.Driver, "mode", p.Mode)
		return nil
	},
}
