package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crewnet/enrol-service/app/dto"
)

func TestRequesterContext(t *testing.T) {
	var gotID string
	var gotCaps dto.CapabilitySet

	handler := RequesterContext()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = RequesterIDFromContext(r.Context())
		gotCaps = CapabilitiesFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("headers present", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", nil)
		req.Header.Set("X-Requester-ID", "session-42")
		req.Header.Set("X-Capabilities", "crew, admin")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "session-42", gotID)
		assert.True(t, gotCaps.Has(dto.CapCrew))
		assert.True(t, gotCaps.Has(dto.CapAdmin))
	})

	t.Run("headers absent degrade to anonymous", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Empty(t, gotID)
		assert.True(t, gotCaps.Has(dto.CapAnonymous))
		assert.False(t, gotCaps.Has(dto.CapAdmin))
	})

	t.Run("unknown capability degrades to anonymous", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", nil)
		req.Header.Set("X-Capabilities", "superuser")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.False(t, gotCaps.Has(dto.CapAdmin))
		assert.True(t, gotCaps.Has(dto.CapAnonymous))
	})
}

func TestRequireCapability(t *testing.T) {
	gate := RequesterContext()(RequireCapability(dto.CapAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	t.Run("allowed", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", nil)
		req.Header.Set("X-Capabilities", "admin")
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("forbidden", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", nil)
		req.Header.Set("X-Capabilities", "crew")
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t,
			`{"component":"enrol","action":"error","data":[false,"Insufficient permissions"]}`,
			rec.Body.String())
	})
}
