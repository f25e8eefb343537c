package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestLimitOTPThrottlesPerAddress(t *testing.T) {
	h, _ := newTestHandler(t)

	wrapped := h.LimitOTP(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// httptest requests share one RemoteAddr, so the burst is consumed
	// by the first three calls and the fourth is refused.
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		wrapped(rec, httptest.NewRequest(http.MethodPost, "/api/auth/otp/send", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := httptest.NewRecorder()
	wrapped(rec, httptest.NewRequest(http.MethodPost, "/api/auth/otp/send", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLimitOTPTracksAddressesIndependently(t *testing.T) {
	h, _ := newTestHandler(t)

	wrapped := h.LimitOTP(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	exhaust := httptest.NewRequest(http.MethodPost, "/api/auth/otp/send", nil)
	exhaust.RemoteAddr = "198.51.100.7:40000"
	for i := 0; i < 4; i++ {
		wrapped(httptest.NewRecorder(), exhaust)
	}

	fresh := httptest.NewRequest(http.MethodPost, "/api/auth/otp/send", nil)
	fresh.RemoteAddr = "198.51.100.8:40000"
	rec := httptest.NewRecorder()
	wrapped(rec, fresh)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOTPLimiterPrunesStaleVisitors(t *testing.T) {
	l := newOTPLimiter(rate.Every(time.Second), 1)
	l.allow("198.51.100.7:40000")
	l.allow("198.51.100.8:40000")

	l.mu.Lock()
	l.visitors["198.51.100.7"].lastSeen = time.Now().Add(-visitorTTL - time.Minute)
	l.lastPrune = time.Now().Add(-pruneInterval - time.Minute)
	l.mu.Unlock()

	l.allow("198.51.100.9:40000")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.visitors, "198.51.100.7")
	assert.Contains(t, l.visitors, "198.51.100.8")
}
