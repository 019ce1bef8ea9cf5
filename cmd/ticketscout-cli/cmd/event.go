package cmd

import (
	"fmt"
	"sort"
	"ticketscout/cmd/ticketscout-cli/globals"
	"ticketscout/cmd/ticketscout-cli/utils"
	"ticketscout/internal/adapter"
	"ticketscout/internal/platforms"
	"ticketscout/internal/tickets"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var eventJSON bool

func init() {
	eventCmd.Flags().BoolVar(&eventJSON, "json", false, "print json instead of a table")
	addDBFlag(eventCmd)
	rootCmd.AddCommand(eventCmd)
}

func buildOne(g *globals.Value, name string) (adapter.Adapter, error) {
	if !platforms.Known(name) {
		return nil, fmt.Errorf("%w: %q (known: %v)", platforms.ErrUnknownPlatform, name, platforms.Names())
	}
	return platforms.Build(name, g.Config.Platform(name), g.Deps)
}

func extensionRows(ext map[string]map[string]any) []table.Row {
	var rows []table.Row
	namespaces := make([]string, 0, len(ext))
	for ns := range ext {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		keys := make([]string, 0, len(ext[ns]))
		for k := range ext[ns] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rows = append(rows, table.Row{ns + "." + k, fmt.Sprint(ext[ns][k])})
		}
	}
	return rows
}

var eventCmd = &cobra.Command{
	Use:   "event <platform> <id>",
	Short: "Fetches a single event and its ticket listings.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())
		a, err := buildOne(g, args[0])
		if err != nil {
			return err
		}

		event, err := a.GetEvent(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		if event.ID == "" {
			return fmt.Errorf("%s: event %s could not be fetched", args[0], args[1])
		}
		if lister, ok := a.(adapter.TicketLister); ok && len(event.Prices) == 0 {
			prices, err := lister.GetEventTickets(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			event.Prices = prices
			event.SetPriceRange()
		}

		store, err := openStore(g.Config)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			if err := store.SaveEvents(cmd.Context(), []tickets.Event{event}); err != nil {
				return fmt.Errorf("save event: %w", err)
			}
		}

		if eventJSON {
			return utils.PrintJSON(event)
		}

		t := utils.NewTable()
		t.AppendRows([]table.Row{
			{"Name", event.Name},
			{"When", utils.When(event)},
			{"Venue", event.Venue},
			{"City", event.City},
			{"Country", event.Country},
			{"Price", fmt.Sprintf("%s - %s %s", utils.Price(event.PriceMin), utils.Price(event.PriceMax), event.Currency)},
			{"Status", event.Status},
			{"URL", event.URL},
		})
		t.AppendRows(extensionRows(event.Extensions))
		t.Render()

		if len(event.Prices) > 0 {
			pt := utils.NewTable()
			pt.AppendHeader(table.Row{"Section", "Type", "Price", "Currency", "No fee"})
			for _, p := range event.Prices {
				pt.AppendRow(table.Row{p.Section, p.Type, p.Price.StringFixed(2), p.Currency, p.NoFee})
			}
			pt.Render()
		}
		return nil
	},
}
