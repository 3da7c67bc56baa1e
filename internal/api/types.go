package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Backends send timestamps with or without a zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

var jsonNull = []byte("null")

// ID is an identifier the backend sends either as a number or a string.
type ID string

// UnmarshalJSON accepts 42, "42" and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Coordinate is a latitude or longitude sent as a number or numeric string.
type Coordinate float64

// UnmarshalJSON accepts 10.5, "10.5", "" and null.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*c = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*c = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("coordinate %q: %w", s, err)
		}
		*c = Coordinate(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("coordinate: %w", err)
	}
	*c = Coordinate(v)
	return nil
}

// Flag is an optional boolean. Set is false when the field was absent or
// null.
type Flag struct {
	Value bool
	Set   bool
}

// Bool returns a set Flag.
func Bool(v bool) Flag {
	return Flag{Value: v, Set: true}
}

// UnmarshalJSON accepts true, false and null.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*f = Flag{}
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("flag: %w", err)
	}
	*f = Flag{Value: v, Set: true}
	return nil
}

// MarshalJSON writes null for an unset flag.
func (f Flag) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return jsonNull, nil
	}
	return json.Marshal(f.Value)
}

// CarwashSummary is a station as listed by /api/carwashes.
type CarwashSummary struct {
	ID            int64      `json:"id"`
	CarwashName   string     `json:"carwashName"`
	LegacyName    string     `json:"carwash_name,omitempty"`
	Description   string     `json:"description"`
	Address       string     `json:"address"`
	PhoneNumber   string     `json:"phoneNumber"`
	Category      string     `json:"category,omitempty"`
	Latitude      Coordinate `json:"latitude"`
	Longitude     Coordinate `json:"longitude"`
	AverageRating float64    `json:"averageRating"`
	RatingCount   int        `json:"ratingCount"`
	Username      string     `json:"username,omitempty"`
}

// Name returns the display name, whichever field the backend filled.
func (c CarwashSummary) Name() string {
	if name := strings.TrimSpace(c.CarwashName); name != "" {
		return name
	}
	return strings.TrimSpace(c.LegacyName)
}

// HasLocation reports whether both coordinates are set.
func (c CarwashSummary) HasLocation() bool {
	return c.Latitude != 0 && c.Longitude != 0
}

// Pricing is the price attached to a product.
type Pricing struct {
	ID       int64   `json:"id"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// Product is a service offered by a station.
type Product struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	ProductMasterID int64      `json:"productMasterId"`
	Timing          string     `json:"timing"`
	Pricing         Pricing    `json:"pricing"`
	Schedules       []Schedule `json:"schedules"`
}

// IsSubProduct reports whether the product is an add-on of a main service.
func (p Product) IsSubProduct() bool {
	return strings.Contains(p.Name, "-Sub")
}

// ExpectedDuration parses Timing ("HH:MM:SS" or "HH:MM"). It returns zero
// when the value is missing or malformed.
func (p Product) ExpectedDuration() time.Duration {
	parts := strings.Split(strings.TrimSpace(p.Timing), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0
		}
		d += time.Duration(n) * units[i]
	}
	return d
}

// Schedule is a bookable time slot of a product.
type Schedule struct {
	ID            int64  `json:"id"`
	AvailableFrom string `json:"availableFrom"`
	AvailableTo   string `json:"availableTo"`
	IsActive      Flag   `json:"isActive"`
	ActiveAlt     Flag   `json:"active"`
	Capacity      *int   `json:"capacity,omitempty"`
}

// Active reads isActive, falls back to active and defaults to true.
func (s Schedule) Active() bool {
	if s.IsActive.Set {
		return s.IsActive.Value
	}
	if s.ActiveAlt.Set {
		return s.ActiveAlt.Value
	}
	return true
}

// Seats returns the remaining capacity, 1 when the backend omits it.
func (s Schedule) Seats() int {
	if s.Capacity == nil {
		return 1
	}
	return *s.Capacity
}

// From returns the parsed slot start, or the zero time.
func (s Schedule) From() time.Time {
	return parseTime(s.AvailableFrom)
}

// To returns the parsed slot end, or the zero time.
func (s Schedule) To() time.Time {
	return parseTime(s.AvailableTo)
}

// Bookable reports whether the slot is active, has seats and has not started
// before now.
func (s Schedule) Bookable(now time.Time) bool {
	from := s.From()
	return s.Active() && s.Seats() > 0 && !from.IsZero() && !from.Before(now)
}

// BookingRequest is the body of POST /api/bookings.
type BookingRequest struct {
	CarwashID  int64  `json:"carwashId"`
	ProductID  int64  `json:"productId,omitempty"`
	ScheduleID int64  `json:"scheduleId"`
	ClientID   string `json:"clientId"`
	Notes      string `json:"notes"`
	CouponID   *int64 `json:"couponId"`
}

// Booking is the created booking.
type Booking struct {
	BookingID int64  `json:"bookingId"`
	Status    string `json:"status"`
}

// Feedback is a review of a station.
type Feedback struct {
	ID             int64    `json:"id"`
	ClientUsername string   `json:"clientUsername"`
	CarwashName    string   `json:"carwashName"`
	Rating         int      `json:"rating"`
	Comment        string   `json:"comment"`
	CreatedAt      string   `json:"createdAt"`
	ImageURLs      []string `json:"imageUrls"`
}

// Created returns the parsed creation time, or the zero time.
func (f Feedback) Created() time.Time {
	return parseTime(f.CreatedAt)
}

// FeedbackRequest is the body of POST /api/feedbacks/add.
type FeedbackRequest struct {
	CarwashID int64    `json:"carwashId"`
	BookingID int64    `json:"bookingId"`
	ClientID  string   `json:"clientId"`
	Rating    int      `json:"rating"`
	Comment   string   `json:"comment"`
	ImageURLs []string `json:"imageUrls"`
}

// Coupon discount types.
const (
	DiscountPercent     = "PERCENT"
	DiscountAmount      = "AMOUNT"
	DiscountFreeService = "FREE_SERVICE"
)

// Coupon is a discount owned by a client.
type Coupon struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	DiscountType  string          `json:"discountType"`
	DiscountValue float64         `json:"discount_value"`
	Currency      string          `json:"currency"`
	Carwash       *CarwashSummary `json:"carwash,omitempty"`
	LegacyCarwash *CarwashSummary `json:"carwas,omitempty"`
}

// Station returns the station the coupon is restricted to, if any.
func (c Coupon) Station() *CarwashSummary {
	if c.Carwash != nil {
		return c.Carwash
	}
	return c.LegacyCarwash
}

// Describe renders the discount, e.g. "10%" or "50000 VND".
func (c Coupon) Describe() string {
	value := strconv.FormatFloat(c.DiscountValue, 'f', -1, 64)
	switch c.DiscountType {
	case DiscountPercent:
		return value + "%"
	case DiscountAmount:
		return strings.TrimSpace(value + " " + c.Currency)
	case DiscountFreeService:
		return "free service"
	default:
		return value
	}
}

// UserInfo is the client profile.
type UserInfo struct {
	ID                ID     `json:"id"`
	UserID            ID     `json:"userId,omitempty"`
	UserName          string `json:"userName"`
	Email             string `json:"email,omitempty"`
	Gmail             string `json:"gmail,omitempty"`
	PhoneNumber       string `json:"phonenumber"`
	BirthDay          string `json:"birthDay"`
	Gender            string `json:"gender"`
	Location          string `json:"location"`
	Role              string `json:"role,omitempty"`
	AllowNotification bool   `json:"allowNotification"`
}

// Identifier returns id, falling back to userId.
func (u UserInfo) Identifier() ID {
	if u.ID != "" {
		return u.ID
	}
	return u.UserID
}

// Mail returns whichever email field is set.
func (u UserInfo) Mail() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Gmail
}

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by /auth/login.
type LoginResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	User         *UserInfo `json:"user"`
	UserID       ID        `json:"userId"`
}

// EffectiveUserID returns user.id, falling back to the top-level userId.
func (r LoginResponse) EffectiveUserID() ID {
	if r.User != nil {
		if id := r.User.Identifier(); id != "" {
			return id
		}
	}
	return r.UserID
}

// Registration is the body of POST /mail/send-verification.
type Registration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	PhoneNumber string `json:"phonenumber"`
}

// CarwashPage is one page of GET /api/carwashes?page=&size=.
type CarwashPage struct {
	Items   []CarwashSummary `json:"items"`
	HasMore bool             `json:"hasMore"`
}

// FilterQuery narrows /api/carwashes/filter.
type FilterQuery struct {
	Category  string
	Date      string // YYYY-MM-DD
	Time      string // HH:MM
	Latitude  float64
	Longitude float64
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
