package auth

import (
	"strings"
	"testing"
	"time"
)

func testManager() *Manager {
	return &Manager{Secret: []byte("s3cret"), AccessTTL: time.Minute, RefreshTTL: time.Hour, Issuer: "kairo-backend"}
}

func TestTokenRoundTrip(t *testing.T) {
	m := testManager()
	tok, err := m.NewAccessToken("user-1", RoleAdmin)
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}
	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != RoleAdmin || claims.Kind != KindAccess {
		t.Fatalf("unexpected claims %+v", claims)
	}

	refresh, _ := m.NewRefreshToken("user-1", RoleAdmin)
	claims, err = m.Parse(refresh)
	if err != nil || claims.Kind != KindRefresh {
		t.Fatalf("unexpected refresh claims %+v (%v)", claims, err)
	}
}

func TestParseRejectsForeignTokens(t *testing.T) {
	m := testManager()
	other := &Manager{Secret: []byte("other"), AccessTTL: time.Minute, Issuer: "kairo-backend"}
	tok, _ := other.NewAccessToken("user-1", RoleAdmin)
	if _, err := m.Parse(tok); err == nil {
		t.Fatalf("expected signature error")
	}

	wrongIssuer := &Manager{Secret: []byte("s3cret"), AccessTTL: time.Minute, Issuer: "someone-else"}
	tok, _ = wrongIssuer.NewAccessToken("user-1", RoleAdmin)
	if _, err := m.Parse(tok); err == nil {
		t.Fatalf("expected issuer error")
	}

	expired := &Manager{Secret: []byte("s3cret"), AccessTTL: -time.Minute, Issuer: "kairo-backend"}
	tok, _ = expired.NewAccessToken("user-1", RoleAdmin)
	if _, err := m.Parse(tok); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if err := ComparePassword(hash, "correct horse"); err != nil {
		t.Fatalf("expected password to match: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch")
	}
	if _, err := HashPassword(""); err != ErrEmptyPassword {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if _, err := HashPassword(strings.Repeat("é", 40)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}
