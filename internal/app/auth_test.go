package app

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAuthenticator_Parse(t *testing.T) {
	tok, err := testAuth.Sign(owner, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	p, err := testAuth.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p != owner {
		t.Errorf("principal = %+v, want %+v", p, owner)
	}
	if !p.CanWrite() {
		t.Error("owner should be able to write")
	}
}

func TestAuthenticator_Rejects(t *testing.T) {
	expired, _ := testAuth.Sign(owner, -time.Minute)
	foreign, _ := Authenticator{Secret: []byte("other-secret")}.Sign(owner, time.Hour)
	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		BusinessID:       "biz-1",
		Role:             "superuser",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(testAuth.Secret)
	noBusiness, _ := testAuth.Sign(Principal{UserID: "user-1", Role: RoleOwner}, time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		BusinessID:       "biz-1",
		Role:             RoleOwner,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "abc.def.ghi"},
		{"expired", expired},
		{"wrong secret", foreign},
		{"unknown role", badRole},
		{"missing business", noBusiness},
		{"alg none", none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := testAuth.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}

	if _, err := (Authenticator{}).Parse(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty secret accepted a token: %v", err)
	}
}

func TestPrincipal_Roles(t *testing.T) {
	for role, want := range map[Role]bool{RoleOwner: true, RoleAdmin: true, RoleGuest: false} {
		p := Principal{Role: role}
		if p.CanWrite() != want {
			t.Errorf("%s: CanWrite = %v", role, !want)
		}
		if err := p.requireWrite(); (err == nil) != want {
			t.Errorf("%s: requireWrite = %v", role, err)
		} else if err != nil && !errors.Is(err, ErrForbidden) {
			t.Errorf("%s: error does not wrap ErrForbidden", role)
		}
	}
}
