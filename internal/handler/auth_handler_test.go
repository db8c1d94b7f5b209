package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/paxsolutions/anm/internal/auth"
	"github.com/paxsolutions/anm/internal/model"
)

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	getLoginURLFunc    func(state string) string
	handleCallbackFunc func(ctx context.Context, code string) (*auth.CallbackResult, error)
	validateTokenFunc  func(ctx context.Context, token string) (*auth.ValidateResult, error)
	currentUserFunc    func(ctx context.Context, sessionID string) (*model.UserProfile, error)
	logoutFunc         func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFunc != nil {
		return m.getLoginURLFunc(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*auth.CallbackResult, error) {
	if m.handleCallbackFunc != nil {
		return m.handleCallbackFunc(ctx, code)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*auth.ValidateResult, error) {
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) CurrentUser(ctx context.Context, sessionID string) (*model.UserProfile, error) {
	if m.currentUserFunc != nil {
		return m.currentUserFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, sessionID)
	}
	return nil
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func newTestAuthHandler(service AuthServiceInterface) *AuthHandler {
	return NewAuthHandler(service, AuthHandlerConfig{
		FrontendURL:   "https://admin.example.com",
		CookieSecure:  true,
		CookieName:    "anm.session.id",
		SessionMaxAge: 86400,
	}, nil)
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin_RedirectsToProviderWithState(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want 307", rec.Code)
	}

	location := rec.Header().Get("Location")
	if !strings.Contains(location, "accounts.google.com") {
		t.Errorf("Location = %q, expected Google auth URL", location)
	}

	stateCookie := findCookie(t, rec, oauthStateCookie)
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("oauth state cookie not set")
	}
	if !strings.Contains(location, stateCookie.Value) {
		t.Error("state in redirect URL does not match state cookie")
	}
}

func TestCallback_Success(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFunc: func(ctx context.Context, code string) (*auth.CallbackResult, error) {
			if code != "auth-code" {
				t.Errorf("code = %q, want auth-code", code)
			}
			return &auth.CallbackResult{
				Profile:      model.UserProfile{ID: "google-123", Name: "Alice"},
				Session:      &model.Session{ID: "session-abc"},
				Token:        "issued-token",
				SessionSaved: true,
			}, nil
		},
	}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}

	location := rec.Header().Get("Location")
	if location != "https://admin.example.com?token="+url.QueryEscape("issued-token") {
		t.Errorf("Location = %q", location)
	}

	sessionCookie := findCookie(t, rec, "anm.session.id")
	if sessionCookie == nil || sessionCookie.Value != "session-abc" {
		t.Fatal("session cookie not set")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if sessionCookie.SameSite != http.SameSiteNoneMode {
		t.Error("secure session cookie should be SameSite=None")
	}
}

func TestCallback_SessionSaveFailureStillRedirectsWithToken(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFunc: func(ctx context.Context, code string) (*auth.CallbackResult, error) {
			return &auth.CallbackResult{
				Profile:      model.UserProfile{ID: "google-123"},
				Token:        "issued-token",
				SessionSaved: false,
			}, nil
		},
	}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Location"), "token=issued-token") {
		t.Error("token missing from redirect URL")
	}
	if c := findCookie(t, rec, "anm.session.id"); c != nil && c.MaxAge >= 0 && c.Value != "" {
		t.Error("session cookie should not be set when session save failed")
	}
}

func TestCallback_StateMismatch(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{
		handleCallbackFunc: func(ctx context.Context, code string) (*auth.CallbackResult, error) {
			t.Fatal("HandleCallback should not be called on state mismatch")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCallback_ExchangeFailureRedirectsToLoginError(t *testing.T) {
	service := &mockAuthService{
		handleCallbackFunc: func(ctx context.Context, code string) (*auth.CallbackResult, error) {
			return nil, errors.New("exchange failed")
		},
	}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=bad-code&state=state-1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "state-1"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://admin.example.com/login?error=auth_failed" {
		t.Errorf("Location = %q", got)
	}
}

func TestLogout_DeletesSessionAndClearsCookie(t *testing.T) {
	var deletedSessionID string
	service := &mockAuthService{
		logoutFunc: func(ctx context.Context, sessionID string) error {
			deletedSessionID = sessionID
			return nil
		},
	}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "anm.session.id", Value: "session-abc"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", rec.Code)
	}
	if deletedSessionID != "session-abc" {
		t.Errorf("deleted session = %q, want session-abc", deletedSessionID)
	}

	cleared := findCookie(t, rec, "anm.session.id")
	if cleared == nil || cleared.MaxAge != -1 {
		t.Error("session cookie was not cleared")
	}
}

func TestValidateToken_Success(t *testing.T) {
	service := &mockAuthService{
		validateTokenFunc: func(ctx context.Context, token string) (*auth.ValidateResult, error) {
			return &auth.ValidateResult{
				Profile:      model.UserProfile{ID: "google-123", Name: "Alice", Email: "alice@example.com"},
				Session:      &model.Session{ID: "session-new"},
				SessionSaved: true,
			}, nil
		},
	}
	h := newTestAuthHandler(service)

	body := strings.NewReader(`{"token":"valid-token"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/validate_token", body)
	rec := httptest.NewRecorder()
	h.ValidateToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Emails      []struct {
			Value string `json:"value"`
		} `json:"emails"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "google-123" {
		t.Errorf("id = %q, want google-123", resp.ID)
	}
	if resp.DisplayName != "Alice" {
		t.Errorf("displayName = %q, want Alice", resp.DisplayName)
	}
	if len(resp.Emails) != 1 || resp.Emails[0].Value != "alice@example.com" {
		t.Errorf("emails = %+v", resp.Emails)
	}

	if c := findCookie(t, rec, "anm.session.id"); c == nil || c.Value != "session-new" {
		t.Error("re-established session cookie not set")
	}
}

func TestValidateToken_MissingToken(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/validate_token", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ValidateToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), model.ErrCodeTokenMissing) {
		t.Errorf("body = %s, expected %s", rec.Body.String(), model.ErrCodeTokenMissing)
	}
}

func TestValidateToken_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"expired", auth.ErrTokenExpired, http.StatusUnauthorized, model.ErrCodeTokenExpired},
		{"invalid", auth.ErrTokenInvalid, http.StatusUnauthorized, model.ErrCodeTokenInvalid},
		{"missing", auth.ErrTokenMissing, http.StatusBadRequest, model.ErrCodeTokenMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &mockAuthService{
				validateTokenFunc: func(ctx context.Context, token string) (*auth.ValidateResult, error) {
					return nil, tt.err
				},
			}
			h := newTestAuthHandler(service)

			body := strings.NewReader(`{"token":"some-token"}`)
			req := httptest.NewRequest(http.MethodPost, "/auth/validate_token", body)
			rec := httptest.NewRecorder()
			h.ValidateToken(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantCode) {
				t.Errorf("body = %s, expected code %s", rec.Body.String(), tt.wantCode)
			}
		})
	}
}

func TestCurrentUser_Authenticated(t *testing.T) {
	service := &mockAuthService{
		currentUserFunc: func(ctx context.Context, sessionID string) (*model.UserProfile, error) {
			if sessionID != "session-abc" {
				t.Errorf("sessionID = %q, want session-abc", sessionID)
			}
			return &model.UserProfile{ID: "google-123", Name: "Alice", Email: "alice@example.com"}, nil
		},
	}
	h := newTestAuthHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/auth/current_user", nil)
	req.AddCookie(&http.Cookie{Name: "anm.session.id", Value: "session-abc"})
	rec := httptest.NewRecorder()
	h.CurrentUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var profile model.UserProfile
	if err := json.NewDecoder(rec.Body).Decode(&profile); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if profile.ID != "google-123" {
		t.Errorf("ID = %q, want google-123", profile.ID)
	}
}

func TestCurrentUser_Unauthenticated(t *testing.T) {
	h := newTestAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/current_user", nil)
	rec := httptest.NewRecorder()
	h.CurrentUser(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), model.ErrCodeUnauthorized) {
		t.Errorf("body = %s, expected %s", rec.Body.String(), model.ErrCodeUnauthorized)
	}
}
