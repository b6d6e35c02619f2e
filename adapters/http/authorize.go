package authhttp

import (
	"encoding/json"
	"net/http"

	"github.com/open-rails/authzkit/authorizer"
)

// AuthorizeHandler translates the authorizer's Decision to a plain HTTP
// response: 200 with the decision JSON on Allow, 403 on Deny. The resolved
// principal is echoed in X-Auth-Principal so reverse proxies can forward it.
func AuthorizeHandler(a *authorizer.Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := a.Authorize(r.Context(), r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		if decision.Allowed() {
			w.Header().Set("X-Auth-Principal", decision.Principal)
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusForbidden)
		}
		_ = json.NewEncoder(w).Encode(decision)
	})
}
