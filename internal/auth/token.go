package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenLifetime applies to user tokens and admin sessions alike
	TokenLifetime = 24 * time.Hour

	roleUser  = "user"
	roleAdmin = "admin"
	adminSub  = "admin"
)

var ErrWrongRole = errors.New("token role not allowed here")

// TokenService issues and validates HS256 JWTs
type TokenService struct {
	jwtSecret []byte
	now       func() time.Time
}

// NewTokenService creates a token service
func NewTokenService(secret string) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret must not be empty")
	}
	return &TokenService{
		jwtSecret: []byte(secret),
		now:       time.Now,
	}, nil
}

// NewToken creates a user token
func (s *TokenService) NewToken(userID uuid.UUID) (string, error) {
	return s.sign(userID.String(), roleUser)
}

// NewAdminToken creates an admin session token
func (s *TokenService) NewAdminToken() (string, error) {
	return s.sign(adminSub, roleAdmin)
}

func (s *TokenService) sign(sub, role string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(TokenLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken checks signature and expiry of tokenString
func (s *TokenService) ValidateToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return token, nil
}

// GetUserIDFromToken extracts the user id of a validated user token
func (s *TokenService) GetUserIDFromToken(token *jwt.Token) (uuid.UUID, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("could not read token claims")
	}
	if role, _ := claims["role"].(string); role == roleAdmin {
		return uuid.Nil, ErrWrongRole
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("could not read 'sub' claim: %w", err)
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("'sub' claim is not a valid UUID: %w", err)
	}

	return userID, nil
}

// ValidateAdminToken accepts only admin session tokens
func (s *TokenService) ValidateAdminToken(tokenString string) error {
	token, err := s.ValidateToken(tokenString)
	if err != nil {
		return err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("could not read token claims")
	}
	if role, _ := claims["role"].(string); role != roleAdmin {
		return ErrWrongRole
	}
	return nil
}
