package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/query"
	"github.com/five82/washbook/internal/state"
)

var (
	// ErrInvalidPhone is returned for phone numbers that are not 9 to 11
	// digits.
	ErrInvalidPhone = errors.New("please enter a valid phone number (9-11 digits)")
	// ErrWeakPassword is returned for passwords shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrNoPendingRegistration is returned by ResendVerification before
	// Register succeeded.
	ErrNoPendingRegistration = errors.New("no registration to resend")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

const (
	roleClient       = "CLIENT"
	loginFailedMsg   = "Login failed"
	mutationLogin    = "login"
	mutationProfile  = "update_profile"
	mutationRegister = "register"
)

var phonePattern = regexp.MustCompile(`^[0-9]{9,11}$`)

// Auth signs users in and out and manages their profile.
type Auth struct {
	api     *api.Client
	cache   *query.Cache
	session *state.SessionStore
	logger  *slog.Logger

	login         *query.Mutation[api.Credentials, api.LoginResponse]
	updateProfile *query.Mutation[api.UserInfo, api.UserInfo]

	mu      sync.Mutex
	pending *api.Registration
}

// NewAuth builds the auth flow.
func NewAuth(deps Deps) *Auth {
	a := &Auth{
		api:     deps.API,
		cache:   deps.Cache,
		session: deps.Stores.Session,
		logger:  deps.logger(),
	}

	a.login = query.NewMutation(deps.Cache, deps.API.Login, query.MutationOptions[api.Credentials, api.LoginResponse]{
		Name: mutationLogin,
		OnMutate: func(api.Credentials) func() {
			a.session.Update(func(s state.Session) state.Session {
				s.Loading = true
				s.Error = ""
				return s
			})
			return nil
		},
		OnSuccess: func(resp api.LoginResponse, _ api.Credentials) {
			a.signIn(context.Background(), resp)
		},
		OnError: func(err error, creds api.Credentials) {
			msg := api.Message(err)
			if msg == "" {
				msg = loginFailedMsg
			}
			a.logger.Warn("login failed",
				slog.String("username", creds.Username),
				slog.String("error", err.Error()),
			)
			a.session.Update(func(s state.Session) state.Session {
				s.Loading = false
				s.Error = msg
				return s
			})
		},
	})

	a.updateProfile = query.NewMutation(deps.Cache, deps.API.UpdateClientInformation, query.MutationOptions[api.UserInfo, api.UserInfo]{
		Name: mutationProfile,
		OnSuccess: func(info api.UserInfo, _ api.UserInfo) {
			if err := a.session.SetUserInfo(context.Background(), info); err != nil {
				a.logger.Warn("profile not persisted", slog.String("error", err.Error()))
			}
			a.cache.Invalidate(KeyCurrentUser)
		},
	})
	return a
}

func (a *Auth) signIn(ctx context.Context, resp api.LoginResponse) {
	if err := a.session.SignIn(ctx, resp); err != nil {
		a.logger.Warn("session not persisted", slog.String("error", err.Error()))
	}
	a.cache.Invalidate(KeyCurrentUser)
	a.logger.Info("signed in", slog.String("user_id", a.session.Get().UserID))
}

// LoginMutation exposes the login mutation state for the UI.
func (a *Auth) LoginMutation() *query.Mutation[api.Credentials, api.LoginResponse] {
	return a.login
}

// Login signs in with a username and password. The outcome is also
// reflected in the session store.
func (a *Auth) Login(ctx context.Context, creds api.Credentials) (api.LoginResponse, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	return a.login.MutateAsync(ctx, creds)
}

// Logout clears the local session first, drops user-scoped cache entries
// and then revokes the refresh token. A failed revocation is logged only;
// the user is signed out locally either way.
func (a *Auth) Logout(ctx context.Context) error {
	refreshToken, err := a.session.RefreshToken(ctx)
	if err != nil {
		a.logger.Warn("refresh token unreadable", slog.String("error", err.Error()))
	}

	clearErr := a.session.SignOut(ctx)
	removed := a.cache.Remove(KeyCurrentUser) + a.cache.Remove(KeyCoupons) + a.cache.Remove(KeyBookings)
	a.logger.Info("signed out", slog.Int("cache_entries_removed", removed))

	if refreshToken == "" {
		a.logger.Debug("no refresh token to revoke")
		return clearErr
	}
	if err := a.api.Logout(ctx, refreshToken); err != nil {
		a.logger.Warn("logout request failed", slog.String("error", err.Error()))
	}
	return clearErr
}

// ValidateRegistration checks the phone number and password rules.
func ValidateRegistration(reg api.Registration) error {
	if strings.TrimSpace(reg.Email) == "" {
		return errors.New("email is required")
	}
	if !phonePattern.MatchString(reg.PhoneNumber) {
		return ErrInvalidPhone
	}
	if len(reg.Password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a client account and mails the verification OTP. It
// returns the server's message.
func (a *Auth) Register(ctx context.Context, reg api.Registration) (string, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.PhoneNumber = strings.TrimSpace(reg.PhoneNumber)
	reg.Role = roleClient
	if err := ValidateRegistration(reg); err != nil {
		return "", err
	}
	msg, err := a.api.SendVerification(ctx, reg)
	if err != nil {
		return "", fmt.Errorf("send verification: %w", err)
	}
	a.mu.Lock()
	a.pending = &reg
	a.mu.Unlock()
	a.logger.Info("verification sent", slog.String("email", reg.Email), slog.String("flow", mutationRegister))
	return msg, nil
}

// ResendVerification sends the OTP of the last successful Register again.
func (a *Auth) ResendVerification(ctx context.Context) error {
	a.mu.Lock()
	pending := a.pending
	a.mu.Unlock()
	if pending == nil {
		return ErrNoPendingRegistration
	}
	if _, err := a.api.SendVerification(ctx, *pending); err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	return nil
}

// VerifyEmail confirms the emailed OTP and forgets the pending registration.
func (a *Auth) VerifyEmail(ctx context.Context, otp string) error {
	if err := a.api.VerifyEmail(ctx, otp); err != nil {
		return err
	}
	a.mu.Lock()
	a.pending = nil
	a.mu.Unlock()
	return nil
}

// SendPhoneOTP starts a phone login.
func (a *Auth) SendPhoneOTP(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	return a.api.SendPhoneOTP(ctx, phone)
}

// VerifyPhoneOTP finishes a phone login and stores the session.
func (a *Auth) VerifyPhoneOTP(ctx context.Context, phone, otp string) error {
	resp, err := a.api.VerifyPhoneOTP(ctx, strings.TrimSpace(phone), strings.TrimSpace(otp))
	if err != nil {
		return err
	}
	a.signIn(ctx, resp)
	return nil
}

// RequestPasswordReset mails a reset OTP.
func (a *Auth) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	return a.api.ForgotPassword(ctx, strings.TrimSpace(email))
}

// VerifyResetOTP checks a reset OTP.
func (a *Auth) VerifyResetOTP(ctx context.Context, otp string) (string, error) {
	return a.api.VerifyForgotPassword(ctx, otp)
}

// ResetPassword sets a new password once the OTP was verified.
func (a *Auth) ResetPassword(ctx context.Context, email, password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	return a.api.ResetPassword(ctx, strings.TrimSpace(email), password)
}

// Profile returns the signed-in client's profile. It does not fetch while
// signed out.
func (a *Auth) Profile(ctx context.Context) query.Result[api.UserInfo] {
	userID, err := a.session.UserID()
	if err != nil {
		return query.Query[api.UserInfo](ctx, a.cache, KeyCurrentUser, nil, query.QueryOptions{Disabled: true})
	}
	fetch := func(ctx context.Context) (api.UserInfo, error) {
		return a.api.ClientInformation(ctx, userID)
	}
	return query.Query(ctx, a.cache, query.K("currentUser", userID), fetch, query.QueryOptions{})
}

// UpdateProfileMutation exposes the profile mutation state for the UI.
func (a *Auth) UpdateProfileMutation() *query.Mutation[api.UserInfo, api.UserInfo] {
	return a.updateProfile
}

// UpdateProfile saves profile changes.
func (a *Auth) UpdateProfile(ctx context.Context, info api.UserInfo) (api.UserInfo, error) {
	if _, err := a.session.UserID(); err != nil {
		return api.UserInfo{}, err
	}
	return a.updateProfile.MutateAsync(ctx, info)
}
