package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/app"
)

func bookCmd(flags *globalFlags) *cobra.Command {
	var (
		req    api.BookingRequest
		coupon int64
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a schedule slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("coupon") {
				req.CouponID = &coupon
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				booking, err := env.Flows.Booking.Book(ctx, req)
				if err != nil {
					return fmt.Errorf("book: %s", api.Message(err))
				}
				fprintf(cmd.OutOrStdout(), "Booking #%d %s\n", booking.BookingID, dash(booking.Status))
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.Int64Var(&req.CarwashID, "carwash", 0, "station id")
	f.Int64Var(&req.ProductID, "product", 0, "product id (derived from the slot when omitted)")
	f.Int64Var(&req.ScheduleID, "schedule", 0, "schedule slot id")
	f.Int64Var(&coupon, "coupon", 0, "coupon id")
	f.StringVar(&req.Notes, "notes", "", "notes for the station")
	_ = cmd.MarkFlagRequired("carwash")
	_ = cmd.MarkFlagRequired("schedule")
	return cmd
}

func feedbackCmd(flags *globalFlags) *cobra.Command {
	var (
		req    api.FeedbackRequest
		images []string
	)

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Review a station after a booking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				fb, err := env.Flows.Booking.SubmitFeedback(ctx, req, images)
				if err != nil {
					return fmt.Errorf("feedback: %s", api.Message(err))
				}
				out := cmd.OutOrStdout()
				fprintf(out, "Review #%d posted\n", fb.ID)
				for _, url := range fb.ImageURLs {
					fprintf(out, "  %s\n", url)
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.Int64Var(&req.CarwashID, "carwash", 0, "station id")
	f.Int64Var(&req.BookingID, "booking", 0, "booking id")
	f.IntVar(&req.Rating, "rating", 0, "rating from 1 to 5")
	f.StringVar(&req.Comment, "comment", "", "review text")
	f.StringArrayVar(&images, "image", nil, "image file or URL to attach (repeatable)")
	_ = cmd.MarkFlagRequired("carwash")
	_ = cmd.MarkFlagRequired("booking")
	_ = cmd.MarkFlagRequired("rating")
	return cmd
}

func couponsCmd(flags *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "coupons",
		Short: "List the signed-in client's coupons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				if !env.Stores.Session.Get().SignedIn() {
					return errors.New("not signed in; run washbook login")
				}
				res := env.Flows.Catalog.Coupons(ctx)
				if res.Err != nil && !res.HasData {
					return fmt.Errorf("load coupons: %s", api.Message(res.Err))
				}
				out := cmd.OutOrStdout()
				if output != outputTable {
					return encode(out, output, res.Data)
				}
				t := newTable(out, "ID", "NAME", "DISCOUNT", "STATION")
				for _, c := range res.Data {
					station := "any"
					if s := c.Station(); s != nil {
						station = s.Name()
					}
					t.row(strconv.FormatInt(c.ID, 10), dash(c.Name), c.Describe(), station)
				}
				return t.flush()
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")
	return cmd
}

func ownerCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "owner",
		Short: "Show the dashboard of the signed-in owner's station",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				board, err := env.Flows.Owner.Dashboard(ctx)
				if err != nil {
					return fmt.Errorf("owner dashboard: %s", api.Message(err))
				}
				out := cmd.OutOrStdout()
				fprintf(out, "%s (#%d)\n", board.Carwash.Name(), board.Carwash.ID)
				fprintf(out, "  %d products, %d prices, %d slots\n\n", len(board.Products), len(board.Pricing), len(board.Schedules))
				printProducts(out, board.Products)
				return nil
			})
		},
	}
}
