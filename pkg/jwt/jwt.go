package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourorg/csvkit/pkg/logging"
	"github.com/yourorg/csvkit/pkg/utils"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenTooLarge    = errors.New("token size exceeds maximum allowed")
)

const (
	// MaxTokenSize bounds the bearer token accepted by ValidateToken (16KB).
	MaxTokenSize = 16 * 1024
	// MinSecretKeyLength is the shortest accepted HMAC secret.
	MinSecretKeyLength = 32
	// Issuer is stamped into every token this service signs.
	Issuer = "csv-export-service"
	// DefaultTokenExpiry applies when NewJWTService gets a zero expiry.
	DefaultTokenExpiry = 15 * time.Minute
)

// Claims identifies the caller of the export API.
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// JWTService signs and validates HS256 tokens for the export API.
type JWTService struct {
	secretKey []byte
	expiry    time.Duration
	logger    logging.Logger
}

// NewJWTService creates a new JWT service instance.
func NewJWTService(secretKey string, expiry time.Duration, logger logging.Logger) (*JWTService, error) {
	if len(secretKey) < MinSecretKeyLength {
		return nil, fmt.Errorf("secret key must be at least %d characters long", MinSecretKeyLength)
	}
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}

	return &JWTService{
		secretKey: []byte(secretKey),
		expiry:    expiry,
		logger:    logger,
	}, nil
}

// GenerateToken issues a token for clientID.
func (j *JWTService) GenerateToken(clientID string) (string, error) {
	if strings.TrimSpace(clientID) == "" {
		return "", fmt.Errorf("%w: client_id is required", ErrInvalidClaims)
	}

	now := time.Now()
	claims := &Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   clientID,
			ID:        utils.GenerateUUID(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		j.logger.Error("Failed to sign token", logging.NewField("error", err))
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if len(tokenString) > MaxTokenSize {
		return nil, ErrTokenTooLarge
	}
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Reject anything but HMAC to avoid algorithm confusion.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrInvalidToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		}
		j.logger.Warn("Token validation failed", logging.NewField("error", err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id is required", ErrInvalidClaims)
	}

	return claims, nil
}
