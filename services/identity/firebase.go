package identity

import (
	"context"

	"rentwheels/utils"

	"firebase.google.com/go/v4/auth"
)

// tokenVerifier is the part of *auth.Client the verifier uses.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens. The role comes from the "role"
// custom claim.
type FirebaseVerifier struct {
	client tokenVerifier
}

func NewFirebaseVerifier(client tokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, utils.NewAuthError("missing_token", "missing bearer token")
	}
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, &utils.AppError{Kind: utils.KindAuth, Code: "invalid_token", Message: "invalid or expired token", Err: err}
	}
	role, _ := tok.Claims["role"].(string)
	return &Identity{UID: tok.UID, Role: normalizeRole(role), Claims: tok.Claims}, nil
}
