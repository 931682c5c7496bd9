package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"yogaportal/pkg/config"
	"yogaportal/pkg/model"
)

var (
	searchLocation string
	searchStyle    string
	searchDate     string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search classes once and print them",
	Long: `Runs one class search through the portal, using the persisted location
when --location is not given.

Example:
  portal search --location zurich --style vinyasa --date 2026-05-02`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchLocation, "location", "l", "", "city id (zurich, geneva, basel, bern, lausanne)")
	searchCmd.Flags().StringVarP(&searchStyle, "style", "s", "", "yoga style, e.g. vinyasa")
	searchCmd.Flags().StringVarP(&searchDate, "date", "d", "", "class date as YYYY-MM-DD")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print JSON instead of a table")
}

func runSearch(cmd *cobra.Command, _ []string) error {
	cfg := config.Load(ServiceName)
	ctx := context.Background()

	c, err := buildPortal(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close()

	if searchLocation != "" {
		if err := c.portal.SetLocation(ctx, searchLocation); err != nil {
			return fmt.Errorf("location %q: %w", searchLocation, err)
		}
	}

	classes := c.portal.SearchClasses(ctx, model.ClassQuery{Style: searchStyle, Date: searchDate})
	if searchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(classes)
	}
	return printClasses(cmd.OutOrStdout(), classes)
}

func printClasses(out io.Writer, classes []model.Class) error {
	if len(classes) == 0 {
		_, err := fmt.Fprintln(out, "No classes found.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCLASS\tSTYLE\tDATE\tTIME\tSTUDIO\tPRICE\tSPOTS")
	for _, c := range classes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f %s\t%d\n",
			c.ID, c.Name, c.Style, c.Date, c.StartTime, c.StudioName, c.Price, c.Currency, c.SpotsLeft)
	}
	return w.Flush()
}
