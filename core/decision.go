package core

// Effect is the outcome of an authorization decision.
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// Reason classifies why a request was denied. It is diagnostic only: every
// reason surfaces identically as Deny to the caller.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonMalformedRequest     Reason = "malformed_request"
	ReasonUnsupportedAlgorithm Reason = "unsupported_algorithm"
	ReasonKeyNotFound          Reason = "key_not_found"
	ReasonUpstreamFetchFailed  Reason = "upstream_fetch_failed"
	ReasonSignatureInvalid     Reason = "signature_invalid"
	ReasonTokenExpired         Reason = "token_expired"
	ReasonTokenNotYetValid     Reason = "token_not_yet_valid"
	ReasonIssuerRejected       Reason = "issuer_rejected"
	ReasonAudienceRejected     Reason = "audience_rejected"
	ReasonPolicyRejected       Reason = "policy_rejected"
)

// Decision is the result of evaluating a bearer token.
//
// On Allow the resource is always the wildcard "*" rather than the specific
// resource the caller asked about, so that a downstream cache keyed by
// (principal, decision) can reuse one decision across every protected
// resource.
type Decision struct {
	Effect    Effect            `json:"effect"`
	Resource  string            `json:"resource"`
	Principal string            `json:"principal,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
	Reason    Reason            `json:"-"`
}

// Allowed reports whether the decision grants access.
func (d Decision) Allowed() bool { return d.Effect == EffectAllow }

// Allow builds an Allow decision carrying the resolved principal and the
// full claim set flattened into the context map.
func Allow(principal string, claims map[string]any) Decision {
	ctx := make(map[string]string, len(claims)+1)
	ctx["jwt_principal"] = principal
	for name, value := range claims {
		ctx["jwt_claim_"+name] = RenderClaimValue(value)
	}
	return Decision{
		Effect:    EffectAllow,
		Resource:  "*",
		Principal: principal,
		Context:   ctx,
	}
}

// Deny builds a Deny decision with no context.
func Deny(reason Reason) Decision {
	return Decision{
		Effect:   EffectDeny,
		Resource: "*",
		Reason:   reason,
	}
}
