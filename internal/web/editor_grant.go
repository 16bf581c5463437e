package web

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
)

// EditorGrantScopeLayout authorizes layout override mutations.
const EditorGrantScopeLayout = "layout"

var (
	// ErrEditorGrantInvalid marks a grant that failed structural or
	// signature validation.
	ErrEditorGrantInvalid = errors.New("editor grant is invalid")
	// ErrEditorGrantExpired marks a grant past its expiry.
	ErrEditorGrantExpired = errors.New("editor grant is expired")
	// ErrEditorGrantMismatch marks a grant whose claims do not match the
	// requested mutation.
	ErrEditorGrantMismatch = errors.New("editor grant mismatch")
)

// editorGrantEnv holds raw env values before post-parse validation.
type editorGrantEnv struct {
	Issuer    string `env:"SCREENLOOM_EDITOR_GRANT_ISSUER"`
	Audience  string `env:"SCREENLOOM_EDITOR_GRANT_AUDIENCE"`
	PublicKey string `env:"SCREENLOOM_EDITOR_GRANT_PUBLIC_KEY"`
}

// EditorGrantConfig defines how editor grants are verified.
type EditorGrantConfig struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// EditorGrantExpectation defines the expected target for an editor grant.
type EditorGrantExpectation struct {
	ScreenKey string
	Scope     string
}

// EditorGrantClaims captures validated editor grant claims.
type EditorGrantClaims struct {
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	NotBefore time.Time
	IssuedAt  time.Time
	JWTID     string
	ScreenKey string
	Scope     string
}

// editorGrantClaims is the internal claims type used for JWT parsing.
type editorGrantClaims struct {
	jwt.RegisteredClaims
	ScreenKey string `json:"screen_key"`
	Scope     string `json:"scope"`
}

// LoadEditorGrantConfigFromEnv reads editor grant verification configuration.
func LoadEditorGrantConfigFromEnv(now func() time.Time) (EditorGrantConfig, error) {
	var raw editorGrantEnv
	if err := env.Parse(&raw); err != nil {
		return EditorGrantConfig{}, fmt.Errorf("parse editor grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return EditorGrantConfig{}, fmt.Errorf("SCREENLOOM_EDITOR_GRANT_ISSUER is required")
	}
	if audience == "" {
		return EditorGrantConfig{}, fmt.Errorf("SCREENLOOM_EDITOR_GRANT_AUDIENCE is required")
	}
	if publicKey == "" {
		return EditorGrantConfig{}, fmt.Errorf("SCREENLOOM_EDITOR_GRANT_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return EditorGrantConfig{}, fmt.Errorf("decode editor grant public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return EditorGrantConfig{}, fmt.Errorf("editor grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return EditorGrantConfig{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// ValidateEditorGrant verifies an editor grant token and validates expected claims.
func ValidateEditorGrant(grant string, expected EditorGrantExpectation, cfg EditorGrantConfig) (EditorGrantClaims, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return EditorGrantClaims{}, fmt.Errorf("%w: grant is required", ErrEditorGrantInvalid)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return EditorGrantClaims{}, errors.New("editor grant verifier is not configured")
	}

	var parsed editorGrantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return EditorGrantClaims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return EditorGrantClaims{}, fmt.Errorf("%w: issuer", ErrEditorGrantMismatch)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return EditorGrantClaims{}, fmt.Errorf("%w: audience", ErrEditorGrantMismatch)
	}

	if parsed.ID == "" {
		return EditorGrantClaims{}, fmt.Errorf("%w: jti is required", ErrEditorGrantInvalid)
	}
	if parsed.ExpiresAt == nil {
		return EditorGrantClaims{}, fmt.Errorf("%w: exp is required", ErrEditorGrantInvalid)
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return EditorGrantClaims{}, ErrEditorGrantExpired
	}
	if parsed.NotBefore != nil {
		nbf := parsed.NotBefore.Time.UTC()
		if now.Before(nbf) {
			return EditorGrantClaims{}, fmt.Errorf("%w: not active yet", ErrEditorGrantInvalid)
		}
	}

	if strings.TrimSpace(parsed.ScreenKey) == "" || parsed.ScreenKey != expected.ScreenKey {
		return EditorGrantClaims{}, fmt.Errorf("%w: screen", ErrEditorGrantMismatch)
	}
	if strings.TrimSpace(parsed.Scope) == "" || parsed.Scope != expected.Scope {
		return EditorGrantClaims{}, fmt.Errorf("%w: scope", ErrEditorGrantMismatch)
	}

	claims := EditorGrantClaims{
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		ExpiresAt: exp,
		JWTID:     parsed.ID,
		ScreenKey: parsed.ScreenKey,
		Scope:     parsed.Scope,
	}
	if parsed.NotBefore != nil {
		claims.NotBefore = parsed.NotBefore.Time.UTC()
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to grant errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return fmt.Errorf("%w: signature", ErrEditorGrantInvalid)
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return fmt.Errorf("%w: alg", ErrEditorGrantInvalid)
	}
	return ErrEditorGrantInvalid
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
