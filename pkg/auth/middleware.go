package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Config configures the identity middleware.
type Config struct {
	// PublicKeyPath is the PEM-encoded RSA public key for RS256
	// verification. If empty, tokens are parsed but NOT verified
	// (trusted proxy mode).
	PublicKeyPath string

	// Issuer is the expected iss claim. If empty, not validated.
	Issuer string

	// Audience is the expected aud claim. If empty, not validated.
	Audience string

	// RolesClaim is the claim path holding the caller's roles. Supports
	// dot-notation for nested claims. Default: "realm_access.roles".
	RolesClaim string

	// Logger for diagnostics. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Middleware returns HTTP middleware that resolves the acting user from the
// Authorization header, falling back to X-User-Email / X-User-Name /
// X-User-Roles development headers. Requests without identity proceed as
// the anonymous user; role checks happen downstream.
func Middleware(cfg Config) (func(http.Handler) http.Handler, error) {
	if cfg.RolesClaim == "" {
		cfg.RolesClaim = "realm_access.roles"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var publicKey *rsa.PublicKey
	if cfg.PublicKeyPath != "" {
		key, err := loadRSAPublicKey(cfg.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		publicKey = key
		cfg.Logger.Info("auth: using RS256 verification", "keyPath", cfg.PublicKeyPath)
	} else {
		cfg.Logger.Warn("auth: no public key configured, tokens parsed without verification (trusted proxy mode)")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := userFromRequest(r, publicKey, cfg)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}, nil
}

func userFromRequest(r *http.Request, publicKey *rsa.PublicKey, cfg Config) User {
	if token := bearerToken(r); token != "" {
		claims, err := parseClaims(token, publicKey, cfg)
		if err != nil {
			cfg.Logger.Debug("auth: JWT parse failed", "error", err)
			return User{}
		}
		return userFromClaims(claims, cfg.RolesClaim)
	}

	// Development fallback headers.
	email := r.Header.Get("X-User-Email")
	if email == "" {
		return User{}
	}
	u := User{Email: email, FullName: r.Header.Get("X-User-Name")}
	if roles := r.Header.Get("X-User-Roles"); roles != "" {
		for _, role := range strings.Split(roles, ",") {
			if role = strings.TrimSpace(role); role != "" {
				u.Roles = append(u.Roles, role)
			}
		}
	}
	return u
}

func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read JWT public key from %s: %w", path, err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("decode PEM block from %s", path)
	}
	parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	rsaKey, ok := parsedKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA (got %T)", parsedKey)
	}
	return rsaKey, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func parseClaims(tokenString string, publicKey *rsa.PublicKey, cfg Config) (jwt.MapClaims, error) {
	parserOpts := []jwt.ParserOption{}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}

	var token *jwt.Token
	var err error
	if publicKey != nil {
		token, err = jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return publicKey, nil
		}, parserOpts...)
	} else {
		parser := jwt.NewParser(parserOpts...)
		token, _, err = parser.ParseUnverified(tokenString, jwt.MapClaims{})
	}
	if err != nil {
		return nil, fmt.Errorf("JWT parse error: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	return claims, nil
}

func userFromClaims(claims jwt.MapClaims, rolesClaim string) User {
	u := User{}
	if email, ok := claims["email"].(string); ok {
		u.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		u.FullName = name
	}

	parts := strings.Split(rolesClaim, ".")
	var current interface{} = map[string]interface{}(claims)
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return u
		}
		current, ok = m[part]
		if !ok {
			return u
		}
	}

	switch v := current.(type) {
	case string:
		u.Roles = []string{v}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				u.Roles = append(u.Roles, s)
			}
		}
	}
	return u
}
