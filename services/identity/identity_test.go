package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentwheels/utils"

	"firebase.google.com/go/v4/auth"
)

func TestJWTVerifierRoundTrip(t *testing.T) {
	v := NewJWTVerifier("secret")
	token, err := v.GenerateToken("user-1", "Owner", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	id, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UID != "user-1" || id.Role != RoleOwner {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestJWTVerifierRejects(t *testing.T) {
	v := NewJWTVerifier("secret")
	expired, _ := v.GenerateToken("user-1", RoleCustomer, -time.Minute)
	foreign, _ := NewJWTVerifier("other").GenerateToken("user-1", RoleCustomer, time.Minute)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"expired":      expired,
		"wrong secret": foreign,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			if !utils.IsKind(err, utils.KindAuth) {
				t.Fatalf("expected auth error, got %v", err)
			}
		})
	}
}

func TestUnknownRoleDefaultsToCustomer(t *testing.T) {
	v := NewJWTVerifier("secret")
	token, _ := v.GenerateToken("user-1", "superuser", time.Minute)
	id, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Role != RoleCustomer {
		t.Errorf("expected customer role, got %s", id.Role)
	}
}

type fakeFirebase struct {
	token *auth.Token
	err   error
}

func (f fakeFirebase) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	return f.token, f.err
}

func TestFirebaseVerifier(t *testing.T) {
	v := NewFirebaseVerifier(fakeFirebase{token: &auth.Token{UID: "fb-1", Claims: map[string]interface{}{"role": "admin"}}})
	id, err := v.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UID != "fb-1" || !id.IsAdmin() {
		t.Errorf("unexpected identity: %+v", id)
	}

	v = NewFirebaseVerifier(fakeFirebase{err: errors.New("expired")})
	if _, err := v.Verify(context.Background(), "tok"); !utils.IsKind(err, utils.KindAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
}
