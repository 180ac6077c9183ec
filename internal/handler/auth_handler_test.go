//go:build unit

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"github.com/thehashton/alterun/internal/auth"
	"github.com/thehashton/alterun/internal/session"
)

// testAuthenticator builds an Authenticator with just enough OAuth2 config
// for AuthCodeURL; no provider discovery happens.
func testAuthenticator() *auth.Authenticator {
	return &auth.Authenticator{
		Config: &oauth2.Config{
			ClientID:    "alterun-test",
			RedirectURL: "http://localhost:8080/auth/callback",
			Endpoint:    oauth2.Endpoint{AuthURL: "https://idp.example.com/authorize"},
		},
	}
}

// mockSessionManager is a mock implementation of the session.Manager interface.
type mockSessionManager struct {
	destroyCalled bool
	putKey        string
	putValue      interface{}
}

// Ensure mockSessionManager implements the session.Manager interface.
var _ session.Manager = (*mockSessionManager)(nil)

func (m *mockSessionManager) LoadAndSave(next http.Handler) http.Handler { return next }
func (m *mockSessionManager) Put(ctx context.Context, key string, val interface{}) {
	m.putKey = key
	m.putValue = val
}
func (m *mockSessionManager) GetString(ctx context.Context, key string) string { return "" }
func (m *mockSessionManager) PopString(ctx context.Context, key string) string { return "" }
func (m *mockSessionManager) Remove(ctx context.Context, key string)           {}
func (m *mockSessionManager) Destroy(ctx context.Context) error {
	m.destroyCalled = true
	return nil
}

func TestLogoutHandler(t *testing.T) {
	mockSession := &mockSessionManager{}
	// The authenticator and enforcer are not used by the logout handler.
	authHandler := NewAuthHandler(nil, mockSession, nil)

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	rr := httptest.NewRecorder()

	authHandler.handleLogout(rr, req)

	if !mockSession.destroyCalled {
		t.Error("expected session.Destroy to be called, but it wasn't")
	}
	if rr.Code != http.StatusFound {
		t.Errorf("want status code %d; got %d", http.StatusFound, rr.Code)
	}
	location, err := rr.Result().Location()
	if err != nil {
		t.Fatalf("could not get redirect location: %v", err)
	}
	if location.Path != "/" {
		t.Errorf("want redirect to '/'; got '%s'", location.Path)
	}
}

func TestLoginHandler_SetsStateCookie(t *testing.T) {
	// handleLogin only needs AuthCodeURL, so a zero-value authenticator with
	// an OAuth2 config is enough.
	authHandler := NewAuthHandler(testAuthenticator(), &mockSessionManager{}, nil)

	req := httptest.NewRequest("GET", "/auth/login", nil)
	rr := httptest.NewRecorder()

	authHandler.handleLogin(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("want status code %d; got %d", http.StatusFound, rr.Code)
	}

	var state *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "state" {
			state = c
		}
	}
	if state == nil {
		t.Fatal("expected a state cookie to be set")
	}
	if state.Value == "" {
		t.Error("expected a non-empty state value")
	}
	if !state.HttpOnly {
		t.Error("expected the state cookie to be HttpOnly")
	}

	location, err := rr.Result().Location()
	if err != nil {
		t.Fatalf("could not get redirect location: %v", err)
	}
	if got := location.Query().Get("state"); got != state.Value {
		t.Errorf("redirect state %q does not match cookie state %q", got, state.Value)
	}
}
