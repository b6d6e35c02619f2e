// Package config loads the authorizer's validation policy from the process
// environment. The resulting Config is immutable and built exactly once at
// startup; any invalid value is fatal, since serving with a broken policy
// would silently disable security checks.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/open-rails/authzkit/core"
	policykit "github.com/open-rails/authzkit/policy"
)

const (
	defaultMinRefreshRate    = 900 * time.Second
	defaultPrincipalClaims   = "preferred_username, sub"
	defaultPrincipalFallback = "unknown"
)

// Config is the parsed-once validation policy for the process lifetime.
type Config struct {
	JWKSURI            string
	MinRefreshRate     time.Duration
	AcceptedIssuers    core.AcceptedClaims
	AcceptedAudiences  core.AcceptedClaims
	AcceptedAlgorithms core.AcceptedAlgorithms
	PrincipalClaims    core.PrincipalClaims
	Policy             *policykit.Validator
	Leeway             time.Duration
	DecisionCacheTTL   time.Duration
}

// Load reads the environment and builds the Config. Recognized variables:
//
//	JWKS_URI             required; source for key-set refresh
//	ACCEPTED_ISSUERS     comma list; empty accepts any issuer
//	ACCEPTED_AUDIENCES   comma list; empty accepts any audience
//	ACCEPTED_ALGORITHMS  comma list; empty accepts any supported algorithm
//	MIN_REFRESH_RATE     seconds between key-set refreshes (default 900)
//	PRINCIPAL_ID_CLAIMS  ordered comma list (default "preferred_username, sub")
//	DEFAULT_PRINCIPAL_ID fallback principal (default "unknown")
//	TOKEN_VALIDATION_CEL optional CEL policy expression
//	CLOCK_SKEW_LEEWAY    seconds of leeway for exp/nbf (default 0)
//	DECISION_CACHE_TTL   seconds; 0 disables the decision cache
func Load() (*Config, error) {
	jwksURI := os.Getenv("JWKS_URI")
	if jwksURI == "" {
		return nil, fmt.Errorf("JWKS_URI is required")
	}
	u, err := url.Parse(jwksURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("JWKS_URI %q is not a valid absolute URL", jwksURI)
	}

	minRefresh, err := secondsEnv("MIN_REFRESH_RATE", defaultMinRefreshRate)
	if err != nil {
		return nil, err
	}
	leeway, err := secondsEnv("CLOCK_SKEW_LEEWAY", 0)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := secondsEnv("DECISION_CACHE_TTL", 0)
	if err != nil {
		return nil, err
	}

	algorithms, err := core.ParseAcceptedAlgorithms(os.Getenv("ACCEPTED_ALGORITHMS"))
	if err != nil {
		return nil, fmt.Errorf("ACCEPTED_ALGORITHMS: %w", err)
	}

	policy, err := policykit.Compile(os.Getenv("TOKEN_VALIDATION_CEL"))
	if err != nil {
		return nil, fmt.Errorf("TOKEN_VALIDATION_CEL: %w", err)
	}

	principalFields := os.Getenv("PRINCIPAL_ID_CLAIMS")
	if principalFields == "" {
		principalFields = defaultPrincipalClaims
	}
	principalFallback := os.Getenv("DEFAULT_PRINCIPAL_ID")
	if principalFallback == "" {
		principalFallback = defaultPrincipalFallback
	}

	return &Config{
		JWKSURI:            jwksURI,
		MinRefreshRate:     minRefresh,
		AcceptedIssuers:    core.NewAcceptedClaims(os.Getenv("ACCEPTED_ISSUERS"), "iss"),
		AcceptedAudiences:  core.NewAcceptedClaims(os.Getenv("ACCEPTED_AUDIENCES"), "aud"),
		AcceptedAlgorithms: algorithms,
		PrincipalClaims:    core.NewPrincipalClaims(principalFields, principalFallback),
		Policy:             policy,
		Leeway:             leeway,
		DecisionCacheTTL:   cacheTTL,
	}, nil
}

func secondsEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("%s: %q is not a non-negative number of seconds", name, raw)
	}
	return time.Duration(secs) * time.Second, nil
}
