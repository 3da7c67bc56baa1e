package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// VerifiedEmailMessage is the body /mail/verify-email returns on success.
const VerifiedEmailMessage = "Email verified successfully"

// ListCarwashes returns every station.
func (c *Client) ListCarwashes(ctx context.Context) ([]CarwashSummary, error) {
	var payload []CarwashSummary
	if err := c.getJSON(ctx, "/api/carwashes", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ListCarwashesPage returns one page of stations using server-side
// pagination.
func (c *Client) ListCarwashesPage(ctx context.Context, page, size int) (CarwashPage, error) {
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	values.Set("size", strconv.Itoa(size))
	var payload CarwashPage
	if err := c.getJSON(ctx, "/api/carwashes", values, &payload); err != nil {
		return CarwashPage{}, err
	}
	return payload, nil
}

// FilterCarwashes returns the stations matching q.
func (c *Client) FilterCarwashes(ctx context.Context, q FilterQuery) ([]CarwashSummary, error) {
	values := url.Values{}
	if v := strings.TrimSpace(q.Category); v != "" {
		values.Set("category", v)
	}
	if v := strings.TrimSpace(q.Date); v != "" {
		values.Set("date", v)
	}
	if v := strings.TrimSpace(q.Time); v != "" {
		values.Set("time", v)
	}
	if q.Latitude != 0 || q.Longitude != 0 {
		values.Set("lat", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	}
	var payload []CarwashSummary
	if err := c.getJSON(ctx, "/api/carwashes/filter", values, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// GetCarwash returns one station.
func (c *Client) GetCarwash(ctx context.Context, id int64) (CarwashSummary, error) {
	var payload CarwashSummary
	if err := c.getJSON(ctx, fmt.Sprintf("/api/carwashes/%d", id), nil, &payload); err != nil {
		return CarwashSummary{}, err
	}
	return payload, nil
}

// ListProducts returns the products of a station with their pricing and
// schedules.
func (c *Client) ListProducts(ctx context.Context, carwashID int64) ([]Product, error) {
	var payload []Product
	if err := c.getJSON(ctx, fmt.Sprintf("/api/carwashes/%d/products", carwashID), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// CreateBooking books a schedule slot.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (Booking, error) {
	var payload Booking
	if err := c.postJSON(ctx, "/api/bookings", req, &payload); err != nil {
		return Booking{}, err
	}
	return payload, nil
}

// ListFeedback returns the reviews of a station.
func (c *Client) ListFeedback(ctx context.Context, carwashID int64) ([]Feedback, error) {
	var payload []Feedback
	if err := c.getJSON(ctx, fmt.Sprintf("/api/feedbacks/carwash/%d", carwashID), nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// AddFeedback posts a review.
func (c *Client) AddFeedback(ctx context.Context, req FeedbackRequest) (Feedback, error) {
	var payload Feedback
	if err := c.postJSON(ctx, "/api/feedbacks/add", req, &payload); err != nil {
		return Feedback{}, err
	}
	return payload, nil
}

// ListCoupons returns the coupons owned by a client.
func (c *Client) ListCoupons(ctx context.Context, clientID string) ([]Coupon, error) {
	var payload []Coupon
	path := "/api/coupon/getAllCouponByClientId/" + url.PathEscape(clientID)
	if err := c.getJSON(ctx, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Login exchanges credentials for tokens.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	var payload LoginResponse
	if err := c.postJSON(ctx, "/auth/login", creds, &payload); err != nil {
		return LoginResponse{}, err
	}
	return payload, nil
}

// Logout revokes a refresh token.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refreshToken": refreshToken}
	return c.postJSON(ctx, "/auth/logout", body, nil)
}

// SendVerification registers an account and mails the verification OTP.
// The server answers with a text message.
func (c *Client) SendVerification(ctx context.Context, reg Registration) (string, error) {
	return c.doText(ctx, http.MethodPost, &url.URL{Path: "/mail/send-verification"}, reg)
}

// VerifyEmail confirms the emailed OTP. Any body other than the success
// message is treated as a failure.
func (c *Client) VerifyEmail(ctx context.Context, otp string) error {
	values := url.Values{}
	values.Set("otp", strings.TrimSpace(otp))
	rel := &url.URL{Path: "/mail/verify-email", RawQuery: values.Encode()}
	msg, err := c.doText(ctx, http.MethodGet, rel, nil)
	if err != nil {
		return err
	}
	if msg != VerifiedEmailMessage {
		return fmt.Errorf("verify email: %s", msg)
	}
	return nil
}

// SendPhoneOTP sends a login code by SMS.
func (c *Client) SendPhoneOTP(ctx context.Context, phone string) error {
	body := map[string]string{"phoneNumber": phone}
	_, err := c.doText(ctx, http.MethodPost, &url.URL{Path: "/api/auth/send-otp"}, body)
	return err
}

// VerifyPhoneOTP exchanges an SMS code for an access token.
func (c *Client) VerifyPhoneOTP(ctx context.Context, phone, otp string) (LoginResponse, error) {
	body := map[string]string{"phoneNumber": phone, "otp": otp}
	var payload LoginResponse
	if err := c.postJSON(ctx, "/api/auth/verify-otp", body, &payload); err != nil {
		return LoginResponse{}, err
	}
	if payload.AccessToken == "" {
		return LoginResponse{}, fmt.Errorf("verify otp: response has no access token")
	}
	return payload, nil
}

// ForgotPassword mails a password reset OTP.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	body := map[string]string{"email": email}
	return c.doText(ctx, http.MethodPost, &url.URL{Path: "/mail/forgotPassword"}, body)
}

// VerifyForgotPassword checks a password reset OTP.
func (c *Client) VerifyForgotPassword(ctx context.Context, otp string) (string, error) {
	values := url.Values{}
	values.Set("OTP", strings.TrimSpace(otp))
	rel := &url.URL{Path: "/mail/verify-forgot-password", RawQuery: values.Encode()}
	return c.doText(ctx, http.MethodGet, rel, nil)
}

// ResetPassword sets a new password after a verified reset OTP.
func (c *Client) ResetPassword(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "newPassword": password}
	return c.doText(ctx, http.MethodPost, &url.URL{Path: "/user/reset-password"}, body)
}

// ClientInformation returns the profile of a client.
func (c *Client) ClientInformation(ctx context.Context, userID string) (UserInfo, error) {
	values := url.Values{}
	values.Set("userId", userID)
	var payload UserInfo
	if err := c.getJSON(ctx, "/api/user/ClientInformation", values, &payload); err != nil {
		return UserInfo{}, err
	}
	return payload, nil
}

// UpdateClientInformation saves profile changes.
func (c *Client) UpdateClientInformation(ctx context.Context, info UserInfo) (UserInfo, error) {
	var payload UserInfo
	if err := c.postJSON(ctx, "/api/user/updateClientInformation", info, &payload); err != nil {
		return UserInfo{}, err
	}
	return payload, nil
}
