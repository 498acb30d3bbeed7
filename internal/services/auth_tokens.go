package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/terraincognita07/bemcuidar/internal/models"
)

const (
	SessionTTL       = 30 * 24 * time.Hour
	PasswordResetTTL = 30 * time.Minute

	sessionTokenPurpose       = "session"
	passwordResetTokenPurpose = "password_reset"
)

var (
	ErrTokenMissing        = errors.New("missing token")
	ErrTokenInvalid        = errors.New("invalid token")
	ErrTokenInvalidPurpose = errors.New("invalid token purpose")
	ErrTokenExpired        = errors.New("expired token")
	ErrTokenInvalidUserID  = errors.New("invalid token user id")
	ErrTokenPasswordState  = errors.New("invalid token password state")
)

// TokenClaims is shared by session and password-reset tokens; Purpose tells them apart.
// PasswordState pins a token to the password hash it was issued for.
type TokenClaims struct {
	UserID        uint   `json:"uid"`
	Role          string `json:"role,omitempty"`
	Purpose       string `json:"purpose"`
	PasswordState string `json:"password_state"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secretKey []byte
}

func NewTokenIssuer(secretKey []byte) *TokenIssuer {
	return &TokenIssuer{secretKey: secretKey}
}

// IssueSession signs a 30-day session token and returns its expiry.
func (issuer *TokenIssuer) IssueSession(user models.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(SessionTTL)
	token, err := issuer.sign(user, sessionTokenPurpose, now, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (issuer *TokenIssuer) ParseSession(rawToken string, now time.Time) (*TokenClaims, error) {
	return issuer.parse(rawToken, sessionTokenPurpose, now)
}

func (issuer *TokenIssuer) IssuePasswordReset(user models.User, now time.Time) (string, error) {
	return issuer.sign(user, passwordResetTokenPurpose, now, now.Add(PasswordResetTTL))
}

func (issuer *TokenIssuer) ParsePasswordReset(rawToken string, now time.Time) (*TokenClaims, error) {
	return issuer.parse(rawToken, passwordResetTokenPurpose, now)
}

func (issuer *TokenIssuer) sign(user models.User, purpose string, now time.Time, expiresAt time.Time) (string, error) {
	passwordState := PasswordStateFingerprint(user.PasswordHash)
	if passwordState == "" {
		return "", ErrTokenPasswordState
	}

	claims := TokenClaims{
		UserID:        user.ID,
		Role:          user.Role,
		Purpose:       purpose,
		PasswordState: passwordState,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(issuer.secretKey)
}

func (issuer *TokenIssuer) parse(rawToken string, purpose string, now time.Time) (*TokenClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrTokenMissing
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return issuer.secretKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != purpose {
		return nil, ErrTokenInvalidPurpose
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(now) {
		return nil, ErrTokenExpired
	}
	if claims.UserID == 0 {
		return nil, ErrTokenInvalidUserID
	}
	if strings.TrimSpace(claims.PasswordState) == "" {
		return nil, ErrTokenPasswordState
	}
	return claims, nil
}

// SessionDaysRemaining rounds the time left up to whole days; expired sessions report 0.
func SessionDaysRemaining(expiresAt time.Time, now time.Time) int {
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

func PasswordStateFingerprint(passwordHash string) string {
	normalizedHash := strings.TrimSpace(passwordHash)
	if normalizedHash == "" {
		return ""
	}

	sum := sha256.Sum256([]byte("bemcuidar.password-state.v1:" + normalizedHash))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func IsPasswordStateFingerprintMatch(expected string, passwordHash string) bool {
	actual := PasswordStateFingerprint(passwordHash)
	if strings.TrimSpace(expected) == "" || strings.TrimSpace(actual) == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}
