package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paxsolutions/anm/internal/model"
)

const testCookieName = "anm.session.id"

// mockSessionFinder はテスト用のSessionFinder実装。
type mockSessionFinder struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

var _ SessionFinder = (*mockSessionFinder)(nil)

func newSessionTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, err := ProfileFromContext(r.Context())
		if err != nil {
			t.Errorf("profile not found in context: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(profile.ID))
	})
}

func TestSessionMiddleware_ValidSession(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			if id != "session-abc" {
				t.Errorf("session ID = %q, expected session-abc", id)
			}
			return &model.Session{
				ID:        id,
				Profile:   model.UserProfile{ID: "google-123", Name: "Alice", Email: "alice@example.com"},
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}

	handler := NewSessionMiddleware(finder, testCookieName)(newSessionTestHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/nannies", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "session-abc"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, expected 200", rec.Code)
	}
	if rec.Body.String() != "google-123" {
		t.Errorf("body = %q, expected google-123", rec.Body.String())
	}
}

func TestSessionMiddleware_NoCookie(t *testing.T) {
	finder := &mockSessionFinder{}
	handler := NewSessionMiddleware(finder, testCookieName)(newSessionTestHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/nannies", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401", rec.Code)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Code != model.ErrCodeUnauthorized {
		t.Errorf("error code = %q, expected %q", body.Code, model.ErrCodeUnauthorized)
	}
}

func TestSessionMiddleware_SessionNotFound(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, nil
		},
	}
	handler := NewSessionMiddleware(finder, testCookieName)(newSessionTestHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/nannies", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "expired-session"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401", rec.Code)
	}
}

func TestSessionMiddleware_FinderError(t *testing.T) {
	finder := &mockSessionFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, errors.New("connection refused")
		},
	}
	handler := NewSessionMiddleware(finder, testCookieName)(newSessionTestHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/nannies", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: "session-abc"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401", rec.Code)
	}
}

func TestProfileFromContext_NotSet(t *testing.T) {
	if _, err := ProfileFromContext(context.Background()); err == nil {
		t.Error("expected error for context without profile")
	}
}

func TestContextWithProfile_RoundTrip(t *testing.T) {
	profile := &model.UserProfile{ID: "google-123", Name: "Alice"}
	ctx := ContextWithProfile(context.Background(), profile)

	got, err := ProfileFromContext(ctx)
	if err != nil {
		t.Fatalf("ProfileFromContext failed: %v", err)
	}
	if got.ID != "google-123" {
		t.Errorf("ID = %q, expected google-123", got.ID)
	}
}
