package auth

import (
	"errors"
	"testing"
	"time"

	"storefront/internal/domain"
)

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("s3cretpass")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(h, "s3cretpass") {
		t.Fatalf("expected match")
	}
	if CheckPassword(h, "wrong-pass") {
		t.Fatalf("expected mismatch")
	}
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	want := domain.Principal{ID: "u1", Role: domain.RoleAdmin}
	raw, err := tokens.Issue(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	raw, _ := tokens.Issue(domain.Principal{ID: "u1", Role: domain.RoleCustomer})

	t.Run("other secret", func(t *testing.T) {
		if _, err := NewTokens("other", time.Minute).Parse(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected invalid token, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		late := NewTokens("secret", time.Minute)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := late.Parse(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected invalid token, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := tokens.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected invalid token, got %v", err)
		}
	})
}
