// Package tenant resolves the organization and role of a request from its
// bearer token. Every report and ledger route runs behind Authenticate.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Diony-dev/Veloce/internal/platform/httpx"
)

// Role is the access level of an actor within its organization.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// claim checks.
var ErrInvalidToken = fmt.Errorf("tenant: invalid token: %w", httpx.ErrUnauthorized)

const defaultTokenTTL = 12 * time.Hour

// Actor is the authenticated caller.
type Actor struct {
	UserID         string
	OrganizationID uuid.UUID
	Role           Role
}

// IsAdmin reports whether the actor may run destructive operations.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Claims is the token payload.
type Claims struct {
	jwt.RegisteredClaims
	Organization string `json:"org"`
	Role         Role   `json:"role"`
}

// Verifier signs and checks HS256 tokens.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier constructs a verifier. An empty issuer disables the issuer check.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("tenant: signing secret required")
	}
	return &Verifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer), now: time.Now}, nil
}

// WithNow overrides the clock used when issuing tokens.
func (v *Verifier) WithNow(fn func() time.Time) {
	if fn != nil {
		v.now = fn
	}
}

// Issue signs a token for actor valid for ttl.
func (v *Verifier) Issue(actor Actor, ttl time.Duration) (string, error) {
	if actor.OrganizationID == uuid.Nil {
		return "", errors.New("tenant: organization required")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	role := actor.Role
	if role == "" {
		role = RoleMember
	}
	now := v.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Organization: actor.OrganizationID.String(),
		Role:         role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Parse validates a token and returns its actor.
func (v *Verifier) Parse(token string) (Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Actor{}, ErrInvalidToken
	}
	orgID, err := uuid.Parse(claims.Organization)
	if err != nil || orgID == uuid.Nil {
		return Actor{}, ErrInvalidToken
	}
	role := claims.Role
	if role == "" {
		role = RoleMember
	}
	return Actor{UserID: claims.Subject, OrganizationID: orgID, Role: role}, nil
}

type ctxKey struct{}

// WithActor stores actor on ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// ActorFromContext returns the request actor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(ctxKey{}).(Actor)
	return actor, ok
}

// OrganizationID returns the tenant of ctx, or uuid.Nil.
func OrganizationID(ctx context.Context) uuid.UUID {
	actor, _ := ActorFromContext(ctx)
	return actor.OrganizationID
}

// Authenticate rejects requests without a valid bearer token.
func (v *Verifier) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="veloce"`)
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required")
			return
		}
		actor, err := v.Parse(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="veloce", error="invalid_token"`)
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireRole allows only actors holding role.
func RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if actor.Role != role {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", fmt.Sprintf("%s role required", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
