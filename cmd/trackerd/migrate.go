package main

import (
	"github.com/spf13/cobra"

	"github.com/mind-engage/xapi-tracker/internal/db"
	"github.com/mind-engage/xapi-tracker/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the tracker's settings table in the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		drv, err := db.ParseDriver(cfg.DBDriver)
		if err != nil {
			return err
		}
		// Open applies the schema.
		h, err := db.Open(cmd.Context(), drv, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer h.Close()
		logging.Log.WithField("db", string(drv)).Info("schema ready")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
