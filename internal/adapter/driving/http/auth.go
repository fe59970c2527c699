package httphandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// TokenVerifier verifies identity-provider tokens issued to operators.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for HS256 tokens signed with secret.
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

// Verify validates the token and returns the identity in its claims. The
// "sub" claim is required; "org_id" and "family_name" may be absent.
func (v *TokenVerifier) Verify(tokenString string) (*model.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	org, _ := claims["org_id"].(string)
	familyName, _ := claims["family_name"].(string)

	return &model.Identity{
		Subject:        sub,
		OrganizationID: org,
		FamilyName:     familyName,
	}, nil
}

// Generate signs a token for identity. Used by tests and local tooling.
func (v *TokenVerifier) Generate(identity model.Identity, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": identity.Subject,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}
	if identity.OrganizationID != "" {
		claims["org_id"] = identity.OrganizationID
	}
	if identity.FamilyName != "" {
		claims["family_name"] = identity.FamilyName
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

type identityContextKey struct{}

// withIdentity returns a copy of ctx carrying identity.
func withIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// identityFrom returns the caller's identity, or nil when the request was
// not authenticated.
func identityFrom(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(identityContextKey{}).(*model.Identity)
	return identity
}

// authMiddleware rejects requests without a valid bearer token and stores
// the verified identity in the request context.
func authMiddleware(verifier *TokenVerifier, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		identity, err := verifier.Verify(tokenString)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				writeError(w, http.StatusUnauthorized, "token expired")
				return
			}
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next(w, r.WithContext(withIdentity(r.Context(), identity)))
	})
}
