// Package token issues the signed access tokens the API authenticates with.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"surveillance_portal_backend/platform/config"
)

// IssueAccessToken signs a short-lived access token carrying the actor's id,
// display name, and surveillance role.
func IssueAccessToken(cfg config.AuthServiceConfig, userID uuid.UUID, name, role string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"name": name,
		"role": role,
		"type": "access",
		"iat":  now.Unix(),
		"exp":  now.Add(cfg.GetAccessTokenTTL()).Unix(),
	}

	signed := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return signed.SignedString([]byte(cfg.GetJWTAccessSecret()))
}
