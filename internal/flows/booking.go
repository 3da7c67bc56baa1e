package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/media"
	"github.com/five82/washbook/internal/query"
	"github.com/five82/washbook/internal/state"
)

var (
	ErrUnknownSchedule  = errors.New("schedule not found for this station")
	ErrScheduleInactive = errors.New("schedule is not active")
	ErrScheduleFull     = errors.New("schedule has no seats left")
	ErrScheduleStarted  = errors.New("schedule has already started")
	ErrCouponNotOwned   = errors.New("coupon does not belong to this client")
	ErrCouponStation    = errors.New("coupon is not valid at this station")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
)

const (
	mutationBook     = "create_booking"
	mutationFeedback = "add_feedback"
)

// FeedbackInput is a review plus the images attached to it. Images are
// local paths to upload or URLs that are already public.
type FeedbackInput struct {
	Request api.FeedbackRequest
	Images  []string
}

// Booking books schedule slots and posts reviews.
type Booking struct {
	api      *api.Client
	cache    *query.Cache
	session  *state.SessionStore
	catalog  *Catalog
	uploader media.ImageUploader
	logger   *slog.Logger
	now      func() time.Time

	book     *query.Mutation[api.BookingRequest, api.Booking]
	feedback *query.Mutation[FeedbackInput, api.Feedback]
}

// NewBooking builds the booking flow.
func NewBooking(deps Deps, catalog *Catalog) *Booking {
	b := &Booking{
		api:      deps.API,
		cache:    deps.Cache,
		session:  deps.Stores.Session,
		catalog:  catalog,
		uploader: deps.Uploader,
		logger:   deps.logger(),
		now:      time.Now,
	}
	if b.uploader == nil {
		b.uploader = media.NopUploader{}
	}

	b.book = query.NewMutation(deps.Cache, b.createBooking, query.MutationOptions[api.BookingRequest, api.Booking]{
		Name: mutationBook,
		OnSuccess: func(res api.Booking, req api.BookingRequest) {
			b.cache.Invalidate(KeyBookings)
			b.cache.Invalidate(KeyProducts(req.CarwashID))
			b.logger.Info("booking created",
				slog.Int64("booking_id", res.BookingID),
				slog.Int64("carwash_id", req.CarwashID),
				slog.Int64("schedule_id", req.ScheduleID),
			)
		},
	})
	b.feedback = query.NewMutation(deps.Cache, b.addFeedback, query.MutationOptions[FeedbackInput, api.Feedback]{
		Name: mutationFeedback,
		OnSuccess: func(_ api.Feedback, in FeedbackInput) {
			b.cache.Invalidate(KeyFeedback(in.Request.CarwashID))
		},
	})
	return b
}

// BookMutation exposes the booking mutation state for the UI.
func (b *Booking) BookMutation() *query.Mutation[api.BookingRequest, api.Booking] {
	return b.book
}

// Book reserves a schedule slot for the signed-in client.
func (b *Booking) Book(ctx context.Context, req api.BookingRequest) (api.Booking, error) {
	return b.book.MutateAsync(ctx, req)
}

func (b *Booking) createBooking(ctx context.Context, req api.BookingRequest) (api.Booking, error) {
	userID, err := b.session.UserID()
	if err != nil {
		return api.Booking{}, err
	}
	req.ClientID = userID
	req.Notes = strings.TrimSpace(req.Notes)

	productID, err := b.checkSchedule(ctx, req.CarwashID, req.ScheduleID)
	if err != nil {
		return api.Booking{}, err
	}
	if req.ProductID == 0 {
		req.ProductID = productID
	}
	if req.CouponID != nil {
		if err := b.checkCoupon(ctx, req.CarwashID, *req.CouponID); err != nil {
			return api.Booking{}, err
		}
	}
	return b.api.CreateBooking(ctx, req)
}

// checkSchedule finds the slot among the station's products and returns
// the owning product id.
func (b *Booking) checkSchedule(ctx context.Context, carwashID, scheduleID int64) (int64, error) {
	res := b.catalog.Products(ctx, carwashID)
	if res.Err != nil && !res.HasData {
		return 0, fmt.Errorf("load products: %w", res.Err)
	}
	for _, p := range res.Data {
		for _, s := range p.Schedules {
			if s.ID != scheduleID {
				continue
			}
			switch {
			case !s.Active():
				return 0, ErrScheduleInactive
			case s.Seats() <= 0:
				return 0, ErrScheduleFull
			case !s.From().IsZero() && s.From().Before(b.now()):
				return 0, ErrScheduleStarted
			}
			return p.ID, nil
		}
	}
	return 0, ErrUnknownSchedule
}

func (b *Booking) checkCoupon(ctx context.Context, carwashID, couponID int64) error {
	res := b.catalog.Coupons(ctx)
	if res.Err != nil && !res.HasData {
		return fmt.Errorf("load coupons: %w", res.Err)
	}
	for _, c := range res.Data {
		if c.ID != couponID {
			continue
		}
		if st := c.Station(); st != nil && st.ID != 0 && st.ID != carwashID {
			return ErrCouponStation
		}
		return nil
	}
	return ErrCouponNotOwned
}

// FeedbackMutation exposes the feedback mutation state for the UI.
func (b *Booking) FeedbackMutation() *query.Mutation[FeedbackInput, api.Feedback] {
	return b.feedback
}

// SubmitFeedback uploads the local images and posts the review.
func (b *Booking) SubmitFeedback(ctx context.Context, req api.FeedbackRequest, images []string) (api.Feedback, error) {
	return b.feedback.MutateAsync(ctx, FeedbackInput{Request: req, Images: images})
}

func (b *Booking) addFeedback(ctx context.Context, in FeedbackInput) (api.Feedback, error) {
	req := in.Request
	if req.Rating < 1 || req.Rating > 5 {
		return api.Feedback{}, ErrInvalidRating
	}
	userID, err := b.session.UserID()
	if err != nil {
		return api.Feedback{}, err
	}
	if req.ClientID == "" {
		req.ClientID = userID
	}
	req.Comment = strings.TrimSpace(req.Comment)

	urls := make([]string, 0, len(req.ImageURLs)+len(in.Images))
	urls = append(urls, req.ImageURLs...)
	for _, img := range in.Images {
		if isRemote(img) {
			urls = append(urls, img)
			continue
		}
		url, err := media.UploadFile(ctx, b.uploader, img)
		if err != nil {
			return api.Feedback{}, err
		}
		b.logger.Debug("image uploaded", slog.String("path", img), slog.String("url", url))
		urls = append(urls, url)
	}
	req.ImageURLs = urls
	return b.api.AddFeedback(ctx, req)
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
