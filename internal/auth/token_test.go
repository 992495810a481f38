package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/scoutfund/internal/model"
)

var key = []byte("0123456789abcdef0123456789abcdef")

func TestIssueParse_RoundTrip(t *testing.T) {
	id := model.Identity{AccountID: uuid.Must(uuid.NewV4()), Email: "ann@example.org", Admin: true}
	tok, exp, err := Issue(key, id, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry in the past: %v", exp)
	}
	got, err := Parse(key, tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != id {
		t.Fatalf("identity mismatch: got %+v want %+v", got, id)
	}
}

func TestParse_Rejects(t *testing.T) {
	id := model.Identity{AccountID: uuid.Must(uuid.NewV4()), Email: "ann@example.org"}

	expired, _, err := Issue(key, id, time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(key, expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: want ErrInvalidToken, got %v", err)
	}

	good, _, _ := Issue(key, id, time.Hour, time.Now())
	if _, err := Parse([]byte("another-key"), good); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong key: want ErrInvalidToken, got %v", err)
	}

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: id.AccountID.String()})
	s, _ := noExp.SignedString(key)
	if _, err := Parse(key, s); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("missing exp: want ErrInvalidToken, got %v", err)
	}

	badSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "bob",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, _ = badSub.SignedString(key)
	if _, err := Parse(key, s); !errors.Is(err, ErrBadSubject) {
		t.Fatalf("bad subject: want ErrBadSubject, got %v", err)
	}

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   id.AccountID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, _ = hs512.SignedString(key)
	if _, err := Parse(key, s); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("hs512: want ErrInvalidToken, got %v", err)
	}

	if _, _, err := Issue(nil, id, time.Hour, time.Now()); err == nil {
		t.Fatalf("want error for empty key")
	}
}
