// Package jwt signs the links that let a vehicle owner confirm an inspection
// straight from a reminder.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer           = "fleet-manager"
	confirmAudience  = "inspection-confirm"
	defaultSecretKey = "default-secret-key-change-this-in-production"
)

var ErrInvalidToken = errors.New("invalid token")

type JWTUtil struct {
	secretKey []byte
	expiry    time.Duration
	now       func() time.Time
}

// ConfirmClaims identify the vehicle and the due date the link was issued for.
// A link for an older cycle stays valid until it expires; confirming twice is
// harmless.
type ConfirmClaims struct {
	VehicleID string `json:"vehicle_id"`
	DueDate   string `json:"due_date,omitempty"`
	jwt.RegisteredClaims
}

func NewJWTUtil(secret string, expiry time.Duration) *JWTUtil {
	if secret == "" {
		secret = defaultSecretKey
	}
	if expiry <= 0 {
		expiry = 45 * 24 * time.Hour
	}

	return &JWTUtil{
		secretKey: []byte(secret),
		expiry:    expiry,
		now:       time.Now,
	}
}

// GenerateConfirmToken signs a confirmation link token for vehicleID.
func (j *JWTUtil) GenerateConfirmToken(vehicleID, dueDate string) (string, error) {
	now := j.now()
	claims := &ConfirmClaims{
		VehicleID: vehicleID,
		DueDate:   dueDate,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   vehicleID,
			Audience:  jwt.ClaimStrings{confirmAudience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateConfirmToken checks signature, expiry and audience.
func (j *JWTUtil) ValidateConfirmToken(tokenString string) (*ConfirmClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ConfirmClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.secretKey, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(confirmAudience),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*ConfirmClaims); ok && token.Valid && claims.VehicleID != "" {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
