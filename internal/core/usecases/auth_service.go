package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/samirrijal/touristroute/internal/core/domain"
	"github.com/samirrijal/touristroute/internal/core/ports"
)

const tokenIssuer = "touristroute"

// AuthService forwards credentials to the backend and issues session tokens.
type AuthService struct {
	client ports.AuthClient
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(client ports.AuthClient, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{client: client, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Login checks credentials with the backend. On success the result carries a
// signed session token.
func (s *AuthService) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	return s.authenticate(ctx, creds, s.client.Login)
}

// Register creates an account with the backend and signs the user in.
func (s *AuthService) Register(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	return s.authenticate(ctx, creds, s.client.Register)
}

func (s *AuthService) authenticate(
	ctx context.Context,
	creds domain.Credentials,
	call func(context.Context, domain.Credentials) (*domain.AuthResult, error),
) (*domain.AuthResult, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || !strings.Contains(creds.Email, "@") {
		return nil, &domain.ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	if creds.Password == "" {
		return nil, &domain.ValidationError{Field: "password", Message: "must not be empty"}
	}

	res, err := call(ctx, creds)
	if err != nil {
		return nil, err
	}
	if !res.Succeeded() {
		msg := "invalid credentials"
		if res != nil && res.Message != "" {
			msg = res.Message
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	}

	token, exp, err := s.issue(creds.Email)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &domain.AuthResult{Status: res.Status, Message: res.Message, Token: token, ExpiresAt: &exp}, nil
}

func (s *AuthService) issue(email string) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp.Truncate(time.Second), nil
}

// VerifyToken validates a session token and returns its claims.
func (s *AuthService) VerifyToken(token string) (*domain.SessionClaims, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, domain.ErrUnauthorized
	}

	out := &domain.SessionClaims{Email: claims.Subject}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
