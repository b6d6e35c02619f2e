package authgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/open-rails/authzkit/authorizer"
	"github.com/open-rails/authzkit/core"
)

const (
	// ContextPrincipalKey is the gin context key holding the resolved
	// principal on allowed requests.
	ContextPrincipalKey = "authz.principal"
	// ContextDecisionKey is the gin context key holding the full Decision.
	ContextDecisionKey = "authz.decision"
	// RequestIDHeader carries the per-request id assigned by the middleware.
	RequestIDHeader = "X-Request-Id"
)

// Limiter bounds authorization attempts per client key. Both
// ratelimit/memory and ratelimit/redis satisfy it.
type Limiter interface {
	Allow(key string) bool
}

// Options tunes the middleware.
type Options struct {
	// Limiter, when set, bounds authorization attempts per client IP.
	Limiter Limiter
	// Logger defaults to the standard logrus logger.
	Logger *logrus.Entry
}

// AuthRequired returns middleware that runs the authorizer over the
// Authorization header and aborts with 401 on Deny. On Allow the resolved
// principal and decision are stored in the gin context.
func AuthRequired(a *authorizer.Authorizer, opts *Options) gin.HandlerFunc {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Logger == nil {
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return func(c *gin.Context) {
		reqID := uuid.NewString()
		c.Header(RequestIDHeader, reqID)
		log := o.Logger.WithField("request_id", reqID)

		if o.Limiter != nil && !o.Limiter.Allow(c.ClientIP()) {
			log.WithField("client_ip", c.ClientIP()).Info("authorization attempts rate limited")
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}

		decision := a.Authorize(c.Request.Context(), c.GetHeader("Authorization"))
		if !decision.Allowed() {
			log.WithField("reason", string(decision.Reason)).Info("request denied")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ContextPrincipalKey, decision.Principal)
		c.Set(ContextDecisionKey, decision)
		c.Next()
	}
}

// Principal returns the resolved principal for an allowed request.
func Principal(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextPrincipalKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// DecisionFrom returns the full Decision for an allowed request.
func DecisionFrom(c *gin.Context) (core.Decision, bool) {
	v, ok := c.Get(ContextDecisionKey)
	if !ok {
		return core.Decision{}, false
	}
	d, ok := v.(core.Decision)
	return d, ok
}

// AuthorizeHandler exposes the decision itself, for use as an external
// authorization endpoint (forward-auth style): 200 with the decision JSON
// on Allow, 403 on Deny.
func AuthorizeHandler(a *authorizer.Authorizer, opts *Options) gin.HandlerFunc {
	var o Options
	if opts != nil {
		o = *opts
	}
	return func(c *gin.Context) {
		if o.Limiter != nil && !o.Limiter.Allow(c.ClientIP()) {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		decision := a.Authorize(c.Request.Context(), c.GetHeader("Authorization"))
		status := http.StatusOK
		if !decision.Allowed() {
			status = http.StatusForbidden
		}
		c.JSON(status, decision)
	}
}
