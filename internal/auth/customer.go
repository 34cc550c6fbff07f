package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

// CustomerHeader is set by the authenticating proxy in front of the API.
const CustomerHeader = "X-Customer-ID"

type contextKey struct{}

func WithCustomerID(ctx context.Context, customerID uint) context.Context {
	return context.WithValue(ctx, contextKey{}, customerID)
}

func CustomerID(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(contextKey{}).(uint)
	return id, ok && id > 0
}

// RequireCustomer rejects requests without a valid customer id with 401.
func RequireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(r.Header.Get(CustomerHeader), 10, 0)
		if err != nil || id == 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "UNAUTHORIZED",
				"message": "missing or invalid " + CustomerHeader + " header",
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCustomerID(r.Context(), uint(id))))
	})
}
