// Package auth issues and verifies identity tokens and hashes passwords.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Subject is the account an identity token was issued to. Since is the
// account's creation time in microseconds; together with UserName it tells
// apart accounts that reuse a uid after the counter is reset.
type Subject struct {
	UserID   int64
	UserName string
	Since    int64
	// HardwareVerified is set only on tokens issued after a hardware check.
	HardwareVerified bool
}

// Claims carries the Subject; the user id is repeated in Subject.
type Claims struct {
	jwt.RegisteredClaims
	UserID           int64  `json:"uid"`
	UserName         string `json:"usr"`
	Since            int64  `json:"since"`
	HardwareVerified bool   `json:"hwv,omitempty"`
}

const issuer = "keygate"

func GenerateToken(sub Subject, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(sub.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:           sub.UserID,
		UserName:         sub.UserName,
		Since:            sub.Since,
		HardwareVerified: sub.HardwareVerified,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates tokenString and returns its subject.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// validation yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Subject, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID <= 0 || claims.UserName == "" {
		return nil, common.ErrInvalidToken
	}

	return &Subject{
		UserID:           claims.UserID,
		UserName:         claims.UserName,
		Since:            claims.Since,
		HardwareVerified: claims.HardwareVerified,
	}, nil
}
