package handlers

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// otpLimiter throttles OTP issuance per client address so the mail
// transport can't be driven as a spam relay. Stale entries are pruned
// lazily on the request path; there is no background goroutine.
type otpLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rate      rate.Limit
	burst     int
	lastPrune time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	visitorTTL    = 10 * time.Minute
	pruneInterval = time.Minute
)

func newOTPLimiter(r rate.Limit, burst int) *otpLimiter {
	return &otpLimiter{
		visitors:  make(map[string]*visitor),
		rate:      r,
		burst:     burst,
		lastPrune: time.Now(),
	}
}

// newSendOTPLimiter is the production configuration: one code every 20
// seconds with a small burst, per client address.
func newSendOTPLimiter() *otpLimiter {
	return newOTPLimiter(rate.Every(20*time.Second), 3)
}

func (l *otpLimiter) allow(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastPrune) > pruneInterval {
		for h, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(l.visitors, h)
			}
		}
		l.lastPrune = now
	}

	v, ok := l.visitors[host]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[host] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

// LimitOTP wraps the OTP-issuing handlers with this handler's limiter.
func (h *Handler) LimitOTP(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.otpLimiter.allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "Too many OTP requests, try again shortly")
			return
		}
		next(w, r)
	}
}
