package cmd

import (
	"fmt"
	"log/slog"
	"ticketscout/cmd/ticketscout-cli/globals"
	"ticketscout/cmd/ticketscout-cli/utils"
	"ticketscout/internal/aggregator"
	"ticketscout/internal/platforms"
	"ticketscout/internal/tickets"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var searchFlags struct {
	platforms []string
	query     string
	city      string
	venue     string
	category  string
	from      string
	to        string
	limit     int
	page      int
	maxPrice  string
	json      bool
}

func init() {
	f := searchCmd.Flags()
	f.StringSliceVar(&searchFlags.platforms, "platform", nil, "platforms to search (repeatable), every enabled one by default")
	f.StringVar(&searchFlags.query, "q", "", "keywords")
	f.StringVar(&searchFlags.city, "city", "", "city")
	f.StringVar(&searchFlags.venue, "venue", "", "venue")
	f.StringVar(&searchFlags.category, "category", "", "category")
	f.StringVar(&searchFlags.from, "from", "", "earliest date, YYYY-MM-DD")
	f.StringVar(&searchFlags.to, "to", "", "latest date, YYYY-MM-DD")
	f.IntVar(&searchFlags.limit, "limit", 0, "results per platform")
	f.IntVar(&searchFlags.page, "page", 1, "page of results")
	f.StringVar(&searchFlags.maxPrice, "max-price", "", "drop events whose cheapest ticket costs more")
	f.BoolVar(&searchFlags.json, "json", false, "print json instead of a table")
	addDBFlag(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

func parseDay(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(tickets.DateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return &t, nil
}

func searchCriteria() (tickets.SearchCriteria, error) {
	from, err := parseDay(searchFlags.from)
	if err != nil {
		return tickets.SearchCriteria{}, err
	}
	to, err := parseDay(searchFlags.to)
	if err != nil {
		return tickets.SearchCriteria{}, err
	}
	return tickets.SearchCriteria{
		Query:    searchFlags.query,
		City:     searchFlags.city,
		Venue:    searchFlags.venue,
		Category: searchFlags.category,
		DateFrom: from,
		DateTo:   to,
		PerPage:  searchFlags.limit,
		Page:     searchFlags.page,
	}, nil
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Searches every enabled platform (or the given ones) and prints the merged events.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := globals.Get(cmd.Context())

		criteria, err := searchCriteria()
		if err != nil {
			return err
		}
		adapters, err := platforms.BuildEnabled(g.Config, g.Deps, searchFlags.platforms...)
		if err != nil {
			return err
		}
		if len(adapters) == 0 {
			return fmt.Errorf("no enabled platforms to search")
		}

		agg := aggregator.New(adapters, g.Deps.Tel)
		result, err := agg.SearchAll(cmd.Context(), criteria)
		if err != nil {
			return err
		}
		for name, err := range result.Errors {
			slog.Warn("platform failed", "platform", name, "err", err.Error())
		}

		events := result.Events
		if searchFlags.maxPrice != "" {
			ceiling, err := decimal.NewFromString(searchFlags.maxPrice)
			if err != nil {
				return fmt.Errorf("invalid --max-price: %w", err)
			}
			events = aggregator.UnderPrice(events, ceiling)
		}

		store, err := openStore(g.Config)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			if err := store.SaveEvents(cmd.Context(), events); err != nil {
				return fmt.Errorf("save events: %w", err)
			}
		}

		if searchFlags.json {
			return utils.PrintJSON(events)
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Platform", "ID", "Name", "When", "Venue", "City", "Min", "Max", "Currency", "Status"})
		for _, e := range events {
			t.AppendRow(table.Row{
				e.Platform, e.ID, e.Name, utils.When(e), e.Venue, e.City,
				utils.Price(e.PriceMin), utils.Price(e.PriceMax), e.Currency, e.Status,
			})
		}
		t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d events", len(events)), "", "", "", "", "", "", result.Took.Round(time.Millisecond)})
		t.Render()
		return nil
	},
}
