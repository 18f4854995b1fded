package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/crewnet/enrol-service/app/dto"
	"github.com/crewnet/enrol-service/app/logger"
)

type contextKey string

const (
	requesterIDKey  contextKey = "requester_id"
	capabilitiesKey contextKey = "capabilities"
)

// RequesterContext reads the caller identity the session layer attaches
// to every forwarded request: X-Requester-ID carries the session or user
// id, X-Capabilities a comma-separated capability list. Absent headers
// degrade to an anonymous caller, never to a rejected request; the
// per-route capability check decides what anonymous may do.
func RequesterContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requesterID := r.Header.Get("X-Requester-ID")

			caps := dto.NewCapabilitySet(dto.CapAnonymous)
			if raw := r.Header.Get("X-Capabilities"); raw != "" {
				for _, item := range strings.Split(raw, ",") {
					if trimmed := strings.TrimSpace(item); trimmed != "" {
						caps[dto.ParseCapability(trimmed)] = struct{}{}
					}
				}
			}

			ctx := context.WithValue(r.Context(), requesterIDKey, requesterID)
			ctx = context.WithValue(ctx, capabilitiesKey, caps)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequesterIDFromContext returns the caller's requester id, empty when
// the session layer supplied none.
func RequesterIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requesterIDKey).(string); ok {
		return id
	}
	return ""
}

// CapabilitiesFromContext returns the caller's capability set.
func CapabilitiesFromContext(ctx context.Context) dto.CapabilitySet {
	if caps, ok := ctx.Value(capabilitiesKey).(dto.CapabilitySet); ok {
		return caps
	}
	return dto.NewCapabilitySet(dto.CapAnonymous)
}

// RequireCapability gates a route on one capability. The rejection body
// uses the same envelope shape as everything else so clients need only
// one decoder.
func RequireCapability(capability dto.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !CapabilitiesFromContext(r.Context()).Has(capability) {
				l := logger.WithRequesterID(RequesterIDFromContext(r.Context()))
				l.Warn().
					Str("path", r.URL.Path).
					Str("required", string(capability)).
					Msg("capability denied")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(dto.NewResponse("error", dto.Fail("Insufficient permissions")))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
