package auth

import (
	"chat-link/errors"
	goerrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "chat-link"

// Claims defines the data stored inside both access and refresh tokens.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenConfig holds the two signing secrets and the lifetimes of every token kind.
// A token minted through a refresh gets RefreshedAccessTTL instead of AccessTTL.
type TokenConfig struct {
	AccessSecret       []byte
	RefreshSecret      []byte
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	RefreshedAccessTTL time.Duration
}

type TokenIssuer struct {
	cfg TokenConfig
}

func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg}
}

func (i *TokenIssuer) IssueAccess(userID string) (string, error) {
	return sign(userID, i.cfg.AccessSecret, i.cfg.AccessTTL)
}

func (i *TokenIssuer) IssueRefreshedAccess(userID string) (string, error) {
	return sign(userID, i.cfg.AccessSecret, i.cfg.RefreshedAccessTTL)
}

func (i *TokenIssuer) IssueRefresh(userID string) (string, error) {
	return sign(userID, i.cfg.RefreshSecret, i.cfg.RefreshTTL)
}

// VerifyAccess returns ErrTokenExpired for an expired token so that clients know to refresh,
// and ErrTokenInvalid for every other failure.
func (i *TokenIssuer) VerifyAccess(token string) (*Claims, error) {
	return verify(token, i.cfg.AccessSecret)
}

func (i *TokenIssuer) VerifyRefresh(token string) (*Claims, error) {
	return verify(token, i.cfg.RefreshSecret)
}

func sign(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			// Two tokens issued within the same second must still differ,
			// otherwise a revoked token could be handed out again.
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	return signed, nil
}

func verify(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))

	switch {
	case goerrors.Is(err, jwt.ErrTokenExpired):
		return nil, errors.ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", errors.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.ErrTokenInvalid
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.ErrTokenMissing
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.ErrTokenMissing
	}
	return token, nil
}

// ExpiryOf reads the exp claim without checking the signature.
// Only call it on a token that was verified beforehand, or when a zero time is acceptable.
func ExpiryOf(tokenString string) time.Time {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
