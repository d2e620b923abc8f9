package api

import (
	"context"
	"net/http"
	"strconv"
)

// ownerHeader carries the resolved principal. Identity resolution lives in
// front of this service; the API trusts the value the gateway injects.
const ownerHeader = "X-Owner-ID"

type ownerContextKey struct{}

// OwnerMiddleware extracts the owner ID header and stores it in the request
// context, rejecting requests without a usable value.
func OwnerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := strconv.ParseInt(r.Header.Get(ownerHeader), 10, 64)
		if err != nil || ownerID <= 0 {
			RespondWithError(w, http.StatusUnauthorized, "missing or invalid owner ID")
			return
		}
		ctx := context.WithValue(r.Context(), ownerContextKey{}, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OwnerFromContext returns the owner ID set by OwnerMiddleware.
func OwnerFromContext(ctx context.Context) (int64, bool) {
	ownerID, ok := ctx.Value(ownerContextKey{}).(int64)
	return ownerID, ok
}
