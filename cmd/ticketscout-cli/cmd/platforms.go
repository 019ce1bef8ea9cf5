package cmd

import (
	"fmt"
	"ticketscout/cmd/ticketscout-cli/globals"
	"ticketscout/cmd/ticketscout-cli/utils"
	"ticketscout/internal/platforms"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(platformsCmd)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "Lists the supported platforms, their configuration and rate limits.",
	Run: func(cmd *cobra.Command, args []string) {
		g := globals.Get(cmd.Context())

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Platform", "Enabled", "Scraping", "API credentials", "Rate limit"})
		for _, name := range platforms.Names() {
			pcfg := g.Config.Platform(name)
			rate := "-"
			if policy, ok := g.Limiter.Policy(name); ok {
				rate = fmt.Sprintf("%d / %s", policy.Max, policy.Window)
			}
			t.AppendRow(table.Row{
				name,
				yesNo(pcfg.IsEnabled()),
				yesNo(pcfg.ScrapingEnabled()),
				yesNo(pcfg.APIKey != "" || pcfg.ClientID != ""),
				rate,
			})
		}
		t.Render()
	},
}
