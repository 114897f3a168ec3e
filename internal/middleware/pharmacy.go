package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const (
	PharmacyIDKey contextKey = "pharmacy_id"

	// PharmacyIDHeader scopes every catalog request to one pharmacy.
	PharmacyIDHeader = "X-Pharmacy-ID"
)

// PharmacyScopeMiddleware requires the pharmacy header on every request and
// stores its value in the request context for handlers to read.
func PharmacyScopeMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pharmacyID := strings.TrimSpace(r.Header.Get(PharmacyIDHeader))
			if pharmacyID == "" {
				logger.Debug("Missing pharmacy header")
				RespondWithError(w, http.StatusBadRequest, "missing "+PharmacyIDHeader+" header")
				return
			}

			ctx := context.WithValue(r.Context(), PharmacyIDKey, pharmacyID)

			logger.Debug("Request scoped to pharmacy",
				zap.String("pharmacy_id", pharmacyID),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPharmacyID extracts the pharmacy scope from request context
func GetPharmacyID(ctx context.Context) (string, bool) {
	pharmacyID, ok := ctx.Value(PharmacyIDKey).(string)
	return pharmacyID, ok
}
