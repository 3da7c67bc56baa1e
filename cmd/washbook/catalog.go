package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/app"
	"github.com/five82/washbook/internal/flows"
)

// stationRow is the exported shape of a station in json and yaml output.
type stationRow struct {
	ID         int64    `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Address    string   `json:"address" yaml:"address"`
	Phone      string   `json:"phone,omitempty" yaml:"phone,omitempty"`
	Category   string   `json:"category,omitempty" yaml:"category,omitempty"`
	Rating     float64  `json:"rating" yaml:"rating"`
	Reviews    int      `json:"reviews" yaml:"reviews"`
	DistanceKm *float64 `json:"distanceKm,omitempty" yaml:"distance_km,omitempty"`
}

func toStationRow(n flows.Nearby) stationRow {
	row := stationRow{
		ID:       n.ID,
		Name:     n.Name(),
		Address:  n.Address,
		Phone:    n.PhoneNumber,
		Category: n.Category,
		Rating:   n.AverageRating,
		Reviews:  n.RatingCount,
	}
	if n.HasDistance {
		d := n.DistanceKm
		row.DistanceKm = &d
	}
	return row
}

func carwashesCmd(flags *globalFlags) *cobra.Command {
	var (
		output string
		near   bool
		filter api.FilterQuery
	)

	cmd := &cobra.Command{
		Use:   "carwashes",
		Short: "List stations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				var rows []flows.Nearby
				switch {
				case filter.Category != "" || filter.Date != "" || filter.Time != "":
					env.Stores.Location.EnsureLocation(ctx)
					lat, lon, known := env.Stores.Location.Get().Coordinates()
					filter.Latitude, filter.Longitude = lat, lon
					list, err := env.Flows.Catalog.Filter(ctx, filter)
					if err != nil {
						return fmt.Errorf("filter stations: %s", api.Message(err))
					}
					rows = flows.SortByDistance(list, lat, lon, known && near)
				case near:
					nearby, err := env.Flows.Catalog.Nearby(ctx)
					if err != nil {
						return fmt.Errorf("list stations: %w", err)
					}
					if msg := env.Stores.Location.Get().Error; msg != "" {
						fprintf(cmd.ErrOrStderr(), "location: %s\n", msg)
					}
					rows = nearby
				default:
					res := env.Flows.Catalog.AllCarwashes(ctx)
					if res.Err != nil && !res.HasData {
						return fmt.Errorf("list stations: %w", res.Err)
					}
					rows = flows.SortByDistance(res.Data, 0, 0, false)
				}
				return printStations(cmd, output, rows)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")
	cmd.Flags().BoolVar(&near, "near", false, "sort by distance from the current location")
	cmd.Flags().StringVar(&filter.Category, "category", "", "only stations of this category")
	cmd.Flags().StringVar(&filter.Date, "date", "", "only stations with a slot on this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&filter.Time, "time", "", "only stations with a slot at this time (HH:MM)")
	return cmd
}

func printStations(cmd *cobra.Command, output string, rows []flows.Nearby) error {
	out := cmd.OutOrStdout()
	if output != outputTable {
		export := make([]stationRow, 0, len(rows))
		for _, r := range rows {
			export = append(export, toStationRow(r))
		}
		return encode(out, output, export)
	}

	t := newTable(out, "ID", "NAME", "RATING", "DISTANCE", "ADDRESS")
	for _, r := range rows {
		rating := "-"
		if r.RatingCount > 0 {
			rating = fmt.Sprintf("%.1f (%d)", r.AverageRating, r.RatingCount)
		}
		distance := "-"
		if r.HasDistance {
			distance = fmt.Sprintf("%.1f km", r.DistanceKm)
		}
		t.row(strconv.FormatInt(r.ID, 10), dash(r.Name()), rating, distance, dash(r.Address))
	}
	return t.flush()
}

func searchCmd(flags *globalFlags) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Page through the station search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pages < 1 {
				return fmt.Errorf("--pages must be at least 1")
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				out := cmd.OutOrStdout()
				search := env.Flows.Catalog.Search()

				res := search.Load(ctx)
				for page := 1; ; page++ {
					if res.IsError() {
						return fmt.Errorf("page %d: %w", page, res.Err)
					}
					fprintf(out, "page %d: %d stations\n", page, len(res.Items()))
					if page >= pages || !res.HasNextPage() {
						break
					}
					res = search.FetchNextPage(ctx)
				}
				if !res.HasNextPage() {
					fprintln(out, "no more pages")
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

func showCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a station with its services and reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid station id %q", args[0])
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				catalog := env.Flows.Catalog
				station := catalog.Carwash(ctx, id)
				if station.Err != nil && !station.HasData {
					return fmt.Errorf("load station %d: %w", id, station.Err)
				}
				products := catalog.Products(ctx, id)
				reviews := catalog.Feedback(ctx, id)

				out := cmd.OutOrStdout()
				c := station.Data
				fprintf(out, "%s (#%d)\n", c.Name(), c.ID)
				if c.Address != "" {
					fprintf(out, "  %s\n", c.Address)
				}
				if c.PhoneNumber != "" {
					fprintf(out, "  %s\n", c.PhoneNumber)
				}
				if c.RatingCount > 0 {
					fprintf(out, "  rating %.1f from %d reviews\n", c.AverageRating, c.RatingCount)
				}

				fprintln(out, "\nServices")
				if products.Err != nil && !products.HasData {
					fprintf(out, "  unavailable: %s\n", api.Message(products.Err))
				}
				printProducts(out, products.Data)

				fprintln(out, "\nReviews")
				if reviews.Err != nil && !reviews.HasData {
					fprintf(out, "  unavailable: %s\n", api.Message(reviews.Err))
				}
				for _, f := range reviews.Data {
					fprintf(out, "  %d/5 %s: %s\n", f.Rating, dash(f.ClientUsername), f.Comment)
				}
				return nil
			})
		},
	}
}

func printProducts(out io.Writer, products []api.Product) {
	for _, p := range products {
		price := ""
		if p.Pricing.Price > 0 {
			price = fmt.Sprintf("  %.0f %s", p.Pricing.Price, p.Pricing.Currency)
		}
		fprintf(out, "  #%d %s%s\n", p.ID, p.Name, price)
		for _, s := range p.Schedules {
			fprintf(out, "      slot #%d  %s  %s\n", s.ID, formatSlot(s), slotState(s))
		}
	}
}

func formatSlot(s api.Schedule) string {
	from, to := s.From(), s.To()
	if from.IsZero() {
		return dash(s.AvailableFrom)
	}
	out := from.Local().Format("2006-01-02 15:04")
	if !to.IsZero() {
		out += "-" + to.Local().Format("15:04")
	}
	return out
}

func slotState(s api.Schedule) string {
	switch {
	case !s.Active():
		return "inactive"
	case s.Seats() <= 0:
		return "full"
	case s.Bookable(time.Now()):
		return fmt.Sprintf("%d seats", s.Seats())
	default:
		return "past"
	}
}
