// Package auth issues and verifies the JWT credentials used by both the
// HTTP API and the websocket handshake.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studysync/studysync/models"
)

// UserInfo is the claim block describing the token's subject.
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Claims is the token payload. The user block is nested to match the
// shape clients already send back on the websocket handshake.
type Claims struct {
	User UserInfo `json:"user"`
	jwt.RegisteredClaims
}

// Verifier resolves credentials into connection identities.
type Verifier struct {
	secret         []byte
	ttl            time.Duration
	allowAnonymous bool
}

func NewVerifier(secret string, ttl time.Duration, allowAnonymous bool) *Verifier {
	return &Verifier{secret: []byte(secret), ttl: ttl, allowAnonymous: allowAnonymous}
}

// Issue signs a token for a registered user.
func (v *Verifier) Issue(user models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		User: UserInfo{ID: user.ID, Name: user.Name, Email: user.Email},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Parse validates a token and returns its claims.
func (v *Verifier) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, models.ErrInvalidCredential
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, models.ErrInvalidCredential
	}
	return claims, nil
}

// Identify resolves the identity for a new connection. A missing or
// invalid token degrades to an anonymous identity keyed by the
// connection ID; it only fails when anonymous access is disabled.
func (v *Verifier) Identify(token, connectionID string) (models.Identity, error) {
	anonymous := models.Identity{
		ConnectionID:    connectionID,
		DisplayName:     models.AnonymousName,
		IsAuthenticated: false,
	}

	if token == "" {
		if !v.allowAnonymous {
			return models.Identity{}, models.ErrInvalidCredential
		}
		return anonymous, nil
	}

	claims, err := v.Parse(token)
	if err != nil {
		if !v.allowAnonymous {
			return models.Identity{}, models.ErrInvalidCredential
		}
		return anonymous, nil
	}

	identity := models.Identity{
		ConnectionID:    connectionID,
		UserID:          claims.User.ID,
		DisplayName:     claims.User.Name,
		Email:           claims.User.Email,
		IsAuthenticated: true,
	}
	if identity.UserID == "" {
		identity.UserID = connectionID
	}
	if identity.DisplayName == "" {
		identity.DisplayName = models.AnonymousName
	}
	return identity, nil
}
