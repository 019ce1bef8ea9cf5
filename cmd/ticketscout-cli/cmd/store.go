package cmd

import (
	"ticketscout/internal/components/chrono"
	"ticketscout/internal/config"
	"ticketscout/internal/eventstore"
	configlibsql "ticketscout/lib/configutil/libsql"

	"github.com/spf13/cobra"
)

var dbPath string

func addDBFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dbPath, "db", "", "save results to this sqlite file (defaults to the configured database, if any)")
}

// openStore opens the event store selected by --db or the config, nil when
// neither names one.
func openStore(cfg config.Config) (*eventstore.Store, error) {
	dbcfg := cfg.Database
	if dbPath != "" {
		dbcfg = configlibsql.Struct{File: dbPath}
	}
	if !dbcfg.Configured() {
		return nil, nil
	}
	return eventstore.Open(dbcfg, chrono.StandardImpl{})
}
