// Package auth resolves bearer credentials into user identities. Delegated
// verification against an external user service is tried first when one is
// configured; a locally signed JWT is the fallback. Every failure path
// resolves to (nil, nil): a connection that fails to authenticate simply
// keeps its previous identity.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viewcall/chatrelay/internal/domain"
	"github.com/viewcall/chatrelay/internal/infrastructure/logging"
)

const defaultVerifyTimeout = 3 * time.Second

type Config struct {
	// UserServiceURL is the base URL of the delegated identity service.
	// Empty disables delegation.
	UserServiceURL string
	VerifyTimeout  time.Duration
	// JWTSecret signs locally verifiable tokens. Empty disables the local
	// fallback.
	JWTSecret string
}

type Verifier struct {
	cfg    Config
	client *http.Client
	log    logging.Logger
}

func NewVerifier(cfg Config, log logging.Logger) *Verifier {
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = defaultVerifyTimeout
	}

	return &Verifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.VerifyTimeout},
		log:    log,
	}
}

// TokenClaims is the local JWT claim set. Subject carries the user id when
// UserID is unset, matching tokens minted by the user service.
type TokenClaims struct {
	UserID   string `json:"userId,omitempty"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verify resolves a bearer credential. The "Bearer " prefix is tolerated.
// A nil identity with nil error means the credential did not verify.
func (v *Verifier) Verify(ctx context.Context, credential string) (*domain.Identity, error) {
	token := stripBearer(credential)
	if token == "" {
		return nil, nil
	}

	if v.cfg.UserServiceURL != "" {
		if identity := v.verifyDelegated(ctx, token); identity != nil {
			return identity, nil
		}
		// Delegation failure falls through to the local path.
	}

	return v.verifyLocal(token), nil
}

type delegatedResponse struct {
	User *struct {
		ID       string `json:"id"`
		UserID   string `json:"userId"`
		Sub      string `json:"sub"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"user"`
}

func (v *Verifier) verifyDelegated(ctx context.Context, token string) *domain.Identity {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.VerifyTimeout)
	defer cancel()

	url := strings.TrimRight(v.cfg.UserServiceURL, "/") + "/api/auth/verify"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		v.log.Warn(logging.WebSocket, logging.Auth, "delegated verify failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var body delegatedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.User == nil {
		return nil
	}

	id := firstNonEmpty(body.User.ID, body.User.UserID, body.User.Sub)
	name := firstNonEmpty(body.User.Name, body.User.Username, "User")
	if id == "" {
		return nil
	}

	return &domain.Identity{ID: id, Name: name}
}

func (v *Verifier) verifyLocal(token string) *domain.Identity {
	if v.cfg.JWTSecret == "" {
		return nil
	}

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil
	}

	id := firstNonEmpty(claims.Subject, claims.UserID)
	name := firstNonEmpty(claims.Name, claims.Username, "User")
	if id == "" {
		return nil
	}

	return &domain.Identity{ID: id, Name: name}
}

func stripBearer(credential string) string {
	credential = strings.TrimSpace(credential)
	if len(credential) > 7 && strings.EqualFold(credential[:7], "bearer ") {
		return strings.TrimSpace(credential[7:])
	}
	return credential
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
