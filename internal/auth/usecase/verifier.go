package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	authdomain "miinplanner-backend/internal/auth/domain"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier turns a bearer token into a session
type Verifier interface {
	Verify(ctx context.Context, token string) (*authdomain.Session, error)
}

// firebaseVerifier checks Firebase ID tokens
type firebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier creates a Verifier backed by Firebase Authentication
func NewFirebaseVerifier(client *auth.Client) Verifier {
	return &firebaseVerifier{client: client}
}

func (v *firebaseVerifier) Verify(ctx context.Context, idToken string) (*authdomain.Session, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authdomain.ErrInvalidToken, err)
	}

	email, _ := token.Claims["email"].(string)
	verified, _ := token.Claims["email_verified"].(bool)
	name, _ := token.Claims["name"].(string)

	return &authdomain.Session{
		UID:           token.UID,
		Email:         email,
		EmailVerified: verified,
		DisplayName:   name,
	}, nil
}

// JWTVerifier issues and validates HS256 tokens for local development
// without an identity provider.
type JWTVerifier struct {
	secret []byte
	expiry time.Duration
}

func NewJWTVerifier(secret string, expiry time.Duration) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), expiry: expiry}
}

// Issue signs a token carrying the session claims
func (v *JWTVerifier) Issue(s authdomain.Session) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":            s.UID,
		"email":          s.Email,
		"email_verified": s.EmailVerified,
		"name":           s.DisplayName,
		"exp":            now.Add(v.expiry).Unix(),
		"iat":            now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*authdomain.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, authdomain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	uid, _ := claims["sub"].(string)
	if uid == "" {
		return nil, authdomain.ErrInvalidToken
	}

	email, _ := claims["email"].(string)
	verified, _ := claims["email_verified"].(bool)
	name, _ := claims["name"].(string)
	return &authdomain.Session{UID: uid, Email: email, EmailVerified: verified, DisplayName: name}, nil
}
