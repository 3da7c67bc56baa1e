package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/five82/washbook/internal/app"
)

func locationCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Show or override the location used for distances",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <lat> <lon>",
		Short: "Save a manual location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := parseLatLon(args[0], args[1])
			if err != nil {
				return err
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				if err := env.Stores.Location.SetManualLocation(ctx, coords); err != nil {
					return err
				}
				fprintf(cmd.OutOrStdout(), "Location set to %.6f,%.6f\n", coords[0], coords[1])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				loc := env.Stores.Location
				_, manual := loc.ManualLocation(ctx)
				loc.CurrentLocation(ctx)

				cur := loc.Get()
				if lat, lon, ok := cur.Coordinates(); ok {
					source := "detected"
					if manual {
						source = "manual"
					}
					fprintf(cmd.OutOrStdout(), "%.6f,%.6f (%s)\n", lat, lon, source)
					return nil
				}
				return fmt.Errorf("location unknown: %s", dash(cur.Error))
			})
		},
	})
	return cmd
}

func parseLatLon(latText, lonText string) ([2]float64, error) {
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil || lat < -90 || lat > 90 {
		return [2]float64{}, fmt.Errorf("invalid latitude %q", latText)
	}
	lon, err := strconv.ParseFloat(lonText, 64)
	if err != nil || lon < -180 || lon > 180 {
		return [2]float64{}, fmt.Errorf("invalid longitude %q", lonText)
	}
	if lat == 0 && lon == 0 {
		return [2]float64{}, errors.New("0,0 is not a usable location")
	}
	return [2]float64{lat, lon}, nil
}
