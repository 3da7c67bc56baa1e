package state

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/storage"
	"github.com/five82/washbook/internal/store"
)

// ErrNotSignedIn is returned by operations that need a session.
var ErrNotSignedIn = errors.New("not signed in")

// Session is the signed-in user as seen by the UI.
type Session struct {
	UserInfo    *api.UserInfo
	UserID      string
	AccessToken string
	Loading     bool
	Error       string
}

// SignedIn reports whether an access token is held.
func (s Session) SignedIn() bool {
	return s.AccessToken != ""
}

// DisplayName returns the user name, or "guest" when signed out.
func (s Session) DisplayName() string {
	if !s.SignedIn() {
		return "guest"
	}
	if s.UserInfo != nil && strings.TrimSpace(s.UserInfo.UserName) != "" {
		return s.UserInfo.UserName
	}
	if s.UserID != "" {
		return "user " + s.UserID
	}
	return "signed in"
}

// SessionStore holds the session in memory and mirrors it to durable
// storage. Memory is authoritative while the process runs; storage is
// authoritative across restarts.
type SessionStore struct {
	*store.Store[Session]
	kv storage.KV
}

// NewSessionStore returns a signed-out store backed by kv.
func NewSessionStore(kv storage.KV) *SessionStore {
	return &SessionStore{Store: store.New(Session{}), kv: kv}
}

// Restore loads the session saved by a previous run.
func (s *SessionStore) Restore(ctx context.Context) error {
	token, _, err := s.kv.Get(ctx, storage.Persistent, storage.KeyAccessToken)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	userID, _, err := s.kv.Get(ctx, storage.Persistent, storage.KeyUserID)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	var info *api.UserInfo
	var decoded api.UserInfo
	ok, err := storage.GetJSON(ctx, s.kv, storage.Persistent, storage.KeyUserInfo, &decoded)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if ok {
		info = &decoded
	}
	if userID == "" && token != "" {
		if claims, err := api.Claims(token); err == nil {
			userID = claims.UserID
		}
	}

	s.Update(func(cur Session) Session {
		return Session{UserInfo: info, UserID: userID, AccessToken: token}
	})
	return nil
}

// SignIn adopts a successful login and persists its tokens.
func (s *SessionStore) SignIn(ctx context.Context, resp api.LoginResponse) error {
	userID := resp.EffectiveUserID().String()
	if userID == "" {
		if claims, err := api.Claims(resp.AccessToken); err == nil {
			userID = claims.UserID
		}
	}
	s.Set(Session{UserInfo: resp.User, UserID: userID, AccessToken: resp.AccessToken})

	writes := []struct {
		key, value string
	}{
		{storage.KeyAccessToken, resp.AccessToken},
		{storage.KeyRefreshToken, resp.RefreshToken},
		{storage.KeyUserID, userID},
	}
	for _, w := range writes {
		if w.value == "" {
			if err := s.kv.Delete(ctx, storage.Persistent, w.key); err != nil {
				return fmt.Errorf("persist session: %w", err)
			}
			continue
		}
		if err := s.kv.Set(ctx, storage.Persistent, w.key, w.value); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	if resp.User != nil {
		if err := storage.SetJSON(ctx, s.kv, storage.Persistent, storage.KeyUserInfo, resp.User); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	} else if err := s.kv.Delete(ctx, storage.Persistent, storage.KeyUserInfo); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// SetUserInfo replaces the cached profile after an update.
func (s *SessionStore) SetUserInfo(ctx context.Context, info api.UserInfo) error {
	s.Update(func(cur Session) Session {
		cur.UserInfo = &info
		return cur
	})
	if err := storage.SetJSON(ctx, s.kv, storage.Persistent, storage.KeyUserInfo, info); err != nil {
		return fmt.Errorf("persist user info: %w", err)
	}
	return nil
}

// RefreshToken returns the stored refresh token, if any.
func (s *SessionStore) RefreshToken(ctx context.Context) (string, error) {
	token, _, err := s.kv.Get(ctx, storage.Persistent, storage.KeyRefreshToken)
	return token, err
}

// SignOut clears the session in memory and in storage.
func (s *SessionStore) SignOut(ctx context.Context) error {
	s.Set(Session{})
	if err := storage.DeleteAll(ctx, s.kv, storage.Persistent,
		storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUserInfo, storage.KeyUserID,
	); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token returns the current access token. It is safe to pass as an
// api.WithTokenSource function.
func (s *SessionStore) Token() string {
	return s.Get().AccessToken
}

// UserID returns the signed-in user's id, or ErrNotSignedIn.
func (s *SessionStore) UserID() (string, error) {
	cur := s.Get()
	if !cur.SignedIn() || cur.UserID == "" {
		return "", ErrNotSignedIn
	}
	return cur.UserID, nil
}

// Role returns the user's role from the profile, falling back to the
// access token's claims.
func (s *SessionStore) Role() string {
	cur := s.Get()
	if cur.UserInfo != nil && cur.UserInfo.Role != "" {
		return cur.UserInfo.Role
	}
	if cur.AccessToken == "" {
		return ""
	}
	claims, err := api.Claims(cur.AccessToken)
	if err != nil {
		return ""
	}
	return claims.Role
}

// HasRole reports whether the signed-in user holds one of roles.
func (s *SessionStore) HasRole(roles ...string) bool {
	if !s.Get().SignedIn() {
		return false
	}
	role := strings.ToUpper(s.Role())
	return role != "" && slices.ContainsFunc(roles, func(r string) bool {
		return strings.ToUpper(r) == role
	})
}
