package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"opalestay/internal/app/policies"
)

const actionTokenIssuer = "opalestay"

var ErrSecretRequired = errors.New("security: action token secret required")

type actionClaims struct {
	BookingID string `json:"booking_id"`
	Action    string `json:"action"`
	jwt.RegisteredClaims
}

// ActionTokens signs one-click booking links as HS256 JWTs.
type ActionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewActionTokens(secret string, ttl time.Duration) (*ActionTokens, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &ActionTokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock returns a copy reading time from now.
func (t *ActionTokens) WithClock(now func() time.Time) *ActionTokens {
	cp := *t
	cp.now = now
	return &cp
}

func (t *ActionTokens) Issue(claims policies.ActionClaims) (string, error) {
	if claims.BookingID == "" {
		return "", fmt.Errorf("security: booking id required")
	}
	if _, err := policies.ParseBookingAction(string(claims.Action)); err != nil {
		return "", err
	}
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, actionClaims{
		BookingID: claims.BookingID,
		Action:    string(claims.Action),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    actionTokenIssuer,
			Subject:   claims.BookingID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})
	return token.SignedString(t.secret)
}

// Verify checks signature, issuer and expiry. Every failure is reported as
// policies.ErrInvalidActionToken.
func (t *ActionTokens) Verify(raw string) (policies.ActionClaims, error) {
	var claims actionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(actionTokenIssuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return policies.ActionClaims{}, fmt.Errorf("%w: %v", policies.ErrInvalidActionToken, err)
	}
	action, err := policies.ParseBookingAction(claims.Action)
	if err != nil || claims.BookingID == "" {
		return policies.ActionClaims{}, policies.ErrInvalidActionToken
	}
	return policies.ActionClaims{BookingID: claims.BookingID, Action: action}, nil
}

var _ policies.ActionTokens = (*ActionTokens)(nil)
