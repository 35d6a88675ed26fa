package launchapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"launchpad/crypto"
	"launchpad/observability/logging"
)

type contextKey string

const (
	contextKeyCaller    contextKey = "launchapi_caller"
	contextKeyRequestID contextKey = "launchapi_request_id"
)

var errMissingToken = errors.New("missing bearer token")

// Authenticator verifies HS256 bearer tokens. The token subject is the
// bech32 identity every mutating request acts as.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewAuthenticator constructs a verifier for tokens minted by IssueToken.
func NewAuthenticator(secret []byte, issuer, audience string, leeway time.Duration, logger *slog.Logger) (*Authenticator, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("launchapi: signing secret required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		secret:   append([]byte(nil), secret...),
		issuer:   strings.TrimSpace(issuer),
		audience: strings.TrimSpace(audience),
		leeway:   leeway,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// Verify parses raw and returns the caller identity carried in its subject.
func (a *Authenticator) Verify(raw string) (crypto.Address, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return crypto.Address{}, err
	}
	if !token.Valid {
		return crypto.Address{}, errors.New("token invalid")
	}
	caller, err := crypto.ParseAddress(claims.Subject)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("subject: %w", err)
	}
	return caller, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// caller in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r)
		if err == nil {
			var caller crypto.Address
			caller, err = a.Verify(raw)
			if err == nil {
				ctx := context.WithValue(r.Context(), contextKeyCaller, caller)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}
		a.logger.InfoContext(r.Context(), "authentication failed",
			"reason", err.Error(),
			"request_id", requestIDFrom(r.Context()),
			logging.MaskField("token", raw))
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", RequestID: requestIDFrom(r.Context())})
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

// CallerFrom returns the authenticated identity stored by Middleware.
func CallerFrom(ctx context.Context) (crypto.Address, bool) {
	caller, ok := ctx.Value(contextKeyCaller).(crypto.Address)
	return caller, ok
}

// IssueToken mints an HS256 bearer token for subject.
func IssueToken(secret []byte, issuer, audience string, subject crypto.Address, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("launchapi: signing secret required")
	}
	if subject.IsZero() {
		return "", fmt.Errorf("launchapi: subject required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("launchapi: ttl must be positive")
	}
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Subject:   subject.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
