// Package authorizer decides Allow/Deny for a bearer token and, on Allow,
// attaches identity context for downstream services.
package authorizer

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/open-rails/authzkit/config"
	"github.com/open-rails/authzkit/core"
	jwtkit "github.com/open-rails/authzkit/jwt"
	keykit "github.com/open-rails/authzkit/keys"
	policykit "github.com/open-rails/authzkit/policy"
)

// DecisionCache stores Allow decisions keyed by the raw token, so a warm
// process can skip the full pipeline for tokens it has already validated.
// Implementations must never store Deny decisions.
type DecisionCache interface {
	Get(ctx context.Context, token string) (core.Decision, bool, error)
	Put(ctx context.Context, token string, d core.Decision, ttl time.Duration) error
}

// Authorizer runs the validation pipeline. Construct one per process and
// share it across requests: the key cache and compiled policy live for the
// process lifetime.
type Authorizer struct {
	keys               *keykit.Storage
	acceptedIssuers    core.AcceptedClaims
	acceptedAudiences  core.AcceptedClaims
	acceptedAlgorithms core.AcceptedAlgorithms
	principalClaims    core.PrincipalClaims
	policy             *policykit.Validator
	leeway             time.Duration
	cache              DecisionCache
	cacheTTL           time.Duration
	now                func() time.Time
	log                *logrus.Entry
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithKeyStorage injects a pre-built key cache, e.g. one with a custom HTTP
// client or clock.
func WithKeyStorage(s *keykit.Storage) Option {
	return func(a *Authorizer) { a.keys = s }
}

// WithDecisionCache enables caching of Allow decisions.
func WithDecisionCache(c DecisionCache) Option {
	return func(a *Authorizer) { a.cache = c }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authorizer) { a.now = now }
}

// WithLogger overrides the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(a *Authorizer) { a.log = log }
}

// New builds an Authorizer from the parsed configuration.
func New(cfg *config.Config, opts ...Option) *Authorizer {
	a := &Authorizer{
		acceptedIssuers:    cfg.AcceptedIssuers,
		acceptedAudiences:  cfg.AcceptedAudiences,
		acceptedAlgorithms: cfg.AcceptedAlgorithms,
		principalClaims:    cfg.PrincipalClaims,
		policy:             cfg.Policy,
		leeway:             cfg.Leeway,
		cacheTTL:           cfg.DecisionCacheTTL,
		now:                time.Now,
		log:                logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.keys == nil {
		a.keys = keykit.NewStorage(cfg.JWKSURI, cfg.MinRefreshRate, keykit.WithLogger(a.log))
	}
	return a
}

// Authorize evaluates the Authorization header value and returns a Decision.
// Every stage failure short-circuits to Deny; cheap local checks run before
// the key lookup, which runs before any cryptographic work.
func (a *Authorizer) Authorize(ctx context.Context, authorization string) core.Decision {
	token, err := core.ParseTokenFromHeader(authorization)
	if err != nil {
		a.log.WithError(err).Info("failed to extract token from header")
		return core.Deny(core.ReasonMalformedRequest)
	}

	if d, ok := a.cachedDecision(ctx, token); ok {
		return d
	}

	header, err := jwtkit.DecodeHeader(token)
	if err != nil {
		a.log.WithError(err).Info("failed to decode token header")
		return core.Deny(core.ReasonMalformedRequest)
	}

	if err := a.acceptedAlgorithms.Assert(header.Algorithm); err != nil {
		a.log.WithField("alg", header.Algorithm).Info("rejected signing algorithm")
		return core.Deny(core.ReasonUnsupportedAlgorithm)
	}

	rec, err := a.keys.Get(ctx, header.KeyID)
	if err != nil {
		a.log.WithField("kid", header.KeyID).WithError(err).Info("failed to retrieve verification key")
		if errors.Is(err, keykit.ErrFetchFailed) {
			return core.Deny(core.ReasonUpstreamFetchFailed)
		}
		return core.Deny(core.ReasonKeyNotFound)
	}

	claims, err := jwtkit.Verify(token, rec.Key, header.Algorithm, a.leeway, a.now)
	if err != nil {
		a.log.WithError(err).Info("token verification failed")
		switch {
		case errors.Is(err, jwtkit.ErrExpired):
			return core.Deny(core.ReasonTokenExpired)
		case errors.Is(err, jwtkit.ErrNotYetValid):
			return core.Deny(core.ReasonTokenNotYetValid)
		default:
			return core.Deny(core.ReasonSignatureInvalid)
		}
	}

	if err := a.acceptedIssuers.Assert(claims); err != nil {
		a.log.WithError(err).Info("issuer rejected")
		return core.Deny(core.ReasonIssuerRejected)
	}
	if err := a.acceptedAudiences.Assert(claims); err != nil {
		a.log.WithError(err).Info("audience rejected")
		return core.Deny(core.ReasonAudienceRejected)
	}

	if err := a.policy.Validate(header.AsMap(), claims); err != nil {
		a.log.WithField("expression", a.policy.Expression()).WithError(err).Info("policy validation failed")
		return core.Deny(core.ReasonPolicyRejected)
	}

	principal := a.principalClaims.FromClaims(claims)
	decision := core.Allow(principal, claims)
	a.storeDecision(ctx, token, decision, claims)
	return decision
}

func (a *Authorizer) cachedDecision(ctx context.Context, token string) (core.Decision, bool) {
	if a.cache == nil {
		return core.Decision{}, false
	}
	d, ok, err := a.cache.Get(ctx, token)
	if err != nil {
		a.log.WithError(err).Warn("decision cache read failed")
		return core.Decision{}, false
	}
	// A cached Deny would violate the cache contract; fail closed by
	// re-running the pipeline instead of trusting it.
	if !ok || !d.Allowed() {
		return core.Decision{}, false
	}
	return d, true
}

// storeDecision caches an Allow decision with a TTL clamped to the token's
// remaining lifetime, so a cached decision can never outlive the token.
func (a *Authorizer) storeDecision(ctx context.Context, token string, d core.Decision, claims map[string]any) {
	if a.cache == nil || a.cacheTTL <= 0 {
		return
	}
	ttl := a.cacheTTL
	if exp, ok := claims["exp"].(float64); ok {
		remaining := time.Unix(int64(exp), 0).Sub(a.now())
		if remaining <= 0 {
			return
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	if err := a.cache.Put(ctx, token, d, ttl); err != nil {
		a.log.WithError(err).Warn("decision cache write failed")
	}
}
