package auth

import (
	"time"

	"github.com/google/uuid"
)

// SessionObject is the Session decoded from a token
type SessionObject struct {
	UserID    string         `json:"user_id,omitempty"`
	Role      string         `json:"role,omitempty"`
	TokenID   string         `json:"token_id,omitempty"`
	Audience  []string       `json:"audience,omitempty"`
	Issuer    string         `json:"issuer,omitempty"`
	IssuedAt  *time.Time     `json:"issued_at,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

func sessionFromClaims(claims *JWTClaims) *SessionObject {
	s := &SessionObject{
		UserID:   claims.UserID(),
		Role:     claims.UserRole,
		TokenID:  claims.ID,
		Audience: claims.Audience,
		Issuer:   claims.Issuer,
		Data: map[string]any{
			"email":   claims.Email,
			"name":    claims.Name,
			"picture": claims.Picture,
		},
	}
	if claims.IssuedAt != nil {
		t := claims.IssuedAt.Time
		s.IssuedAt = &t
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		s.ExpiresAt = &t
	}
	return s
}

func (s *SessionObject) GetUserID() string { return s.UserID }

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetRole() string          { return s.Role }
func (s *SessionObject) GetTokenID() string       { return s.TokenID }
func (s *SessionObject) GetAudience() []string    { return s.Audience }
func (s *SessionObject) GetIssuer() string        { return s.Issuer }
func (s *SessionObject) GetIssuedAt() *time.Time  { return s.IssuedAt }
func (s *SessionObject) GetExpiresAt() *time.Time { return s.ExpiresAt }
func (s *SessionObject) GetData() map[string]any  { return s.Data }

var _ Session = (*SessionObject)(nil)
