package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrWrongTokenType is returned when a token of another type is presented.
var ErrWrongTokenType = errors.New("wrong token type")

type jwtCustomClaims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is the session handed to a client after verification.
type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// GenerateToken creates a signed JWT of the given type for the provided user ID.
func GenerateToken(secret string, userID uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &jwtCustomClaims{
		UserID:    userID.String(),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token, checks its type and returns the embedded user ID.
func ParseToken(secret, tokenString, tokenType string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		return uuid.Nil, jwt.ErrTokenInvalidClaims
	}
	if claims.TokenType != tokenType {
		return uuid.Nil, ErrWrongTokenType
	}
	return uuid.Parse(claims.UserID)
}

// JWTIssuer issues access/refresh pairs.
type JWTIssuer struct {
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTIssuer constructs a JWTIssuer.
func NewJWTIssuer(secret string, accessTTL, refreshTTL time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssuePair signs a fresh pair for userID.
func (i *JWTIssuer) IssuePair(userID uuid.UUID) (TokenPair, error) {
	access, err := GenerateToken(i.secret, userID, TokenTypeAccess, i.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := GenerateToken(i.secret, userID, TokenTypeRefresh, i.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (i *JWTIssuer) Refresh(refreshToken string) (uuid.UUID, TokenPair, error) {
	userID, err := ParseToken(i.secret, refreshToken, TokenTypeRefresh)
	if err != nil {
		return uuid.Nil, TokenPair{}, err
	}
	pair, err := i.IssuePair(userID)
	return userID, pair, err
}

// ParseAccess validates an access token.
func (i *JWTIssuer) ParseAccess(accessToken string) (uuid.UUID, error) {
	return ParseToken(i.secret, accessToken, TokenTypeAccess)
}
