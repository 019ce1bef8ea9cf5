package cmd

import (
	"fmt"
	"ticketscout/cmd/ticketscout-cli/globals"
	"ticketscout/cmd/ticketscout-cli/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var venueJSON bool

func init() {
	venueCmd.Flags().BoolVar(&venueJSON, "json", false, "print json instead of a table")
	addDBFlag(venueCmd)
	rootCmd.AddCommand(venueCmd)
}

var venueCmd = &cobra.Command{
	Use:   "venue <platform> <id>",
	Short: "Looks up a venue.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		a, err := buildOne(g, args[0])
		if err != nil {
			return err
		}
		venue, err := a.GetVenue(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if venue.Name == "" {
			return fmt.Errorf("%s: venue %s could not be fetched", args[0], args[1])
		}

		store, err := openStore(g.Config)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			if err := store.SaveVenue(cmd.Context(), venue); err != nil {
				return fmt.Errorf("save venue: %w", err)
			}
		}

		if venueJSON {
			return utils.PrintJSON(venue)
		}

		capacity := "-"
		if venue.Capacity != nil {
			capacity = fmt.Sprint(*venue.Capacity)
		}
		t := utils.NewTable()
		t.AppendRows([]table.Row{
			{"Name", venue.Name},
			{"Address", venue.Address},
			{"City", venue.City},
			{"Country", venue.Country},
			{"Capacity", capacity},
			{"Type", venue.Type},
			{"URL", venue.URL},
		})
		t.AppendRows(extensionRows(venue.Extensions))
		t.Render()
		return nil
	},
}
