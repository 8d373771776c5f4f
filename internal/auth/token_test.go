package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"agrisense-backend/internal/roles"
	"agrisense-backend/internal/store"
)

var secret = []byte("test-secret")

func testUser() *store.User {
	return &store.User{ID: uuid.New(), Name: "Asha", Email: "asha@example.com", Role: roles.Agronomist}
}

func TestTokenRoundTrip(t *testing.T) {
	u := testUser()
	tok, err := IssueToken(secret, u, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims, err := ParseToken(secret, tok)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Subject != u.ID.String() {
		t.Fatalf("expected subject %s, got %s", u.ID, claims.Subject)
	}
	if claims.Role != roles.Agronomist || claims.Name != "Asha" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	tok, err := IssueToken(secret, testUser(), time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := ParseToken([]byte("some-other-secret"), tok); err == nil {
		t.Fatalf("expected verification failure")
	}
}

func TestTokenExpired(t *testing.T) {
	tok, err := IssueToken(secret, testUser(), -time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := ParseToken(secret, tok); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestTokenGarbage(t *testing.T) {
	if _, err := ParseToken(secret, "not.a.token"); err == nil {
		t.Fatalf("expected parse failure")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "hunter22" {
		t.Fatalf("password stored in the clear")
	}
	if !CheckPassword(hash, "hunter22") {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword(hash, "hunter23") {
		t.Fatalf("wrong password accepted")
	}
}
