package identity

import (
	"context"
	"errors"
	"time"

	"rentwheels/utils"

	"github.com/golang-jwt/jwt"
)

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// GenerateToken creates a signed token for subject with the given role.
func (v *JWTVerifier) GenerateToken(subject, role string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, utils.NewAuthError("missing_token", "missing bearer token")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, &utils.AppError{Kind: utils.KindAuth, Code: "invalid_token", Message: "invalid or expired token", Err: err}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, utils.NewAuthError("invalid_token", "invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, utils.NewAuthError("invalid_token", "token does not contain a valid 'sub' claim")
	}
	role, _ := claims["role"].(string)
	return &Identity{UID: sub, Role: normalizeRole(role), Claims: claims}, nil
}
