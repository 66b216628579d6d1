package middleware

import (
	"net/http"

	"github.com/hydrazin60/waterManagment-server/internal/domain"
)

// RequireAccountType returns middleware that allows access only to sessions
// whose token names one of the given account variants.
func RequireAccountType(allowed ...domain.AccountType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, t := range allowed {
				if claims.AccountType == string(t) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSONError(w, http.StatusForbidden, "forbidden")
		})
	}
}
