package web

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"music-downloader/internal/session"
	"music-downloader/internal/web/handlers"
	"music-downloader/pkg/models"
)

// limiterIdle is how long an unused per-client limiter is kept
const limiterIdle = 10 * time.Minute

// New sessions a single client address may open
const (
	sessionCreateInterval = 6 * time.Second
	sessionCreateBurst    = 10
)

// SessionEnsurer resolves the session cookie of a request
type SessionEnsurer interface {
	Ensure(cookieValue string) (models.Session, bool, error)
	Get(id string) (models.Session, bool)
}

// withSession makes sure every request runs inside a session and refreshes the cookie.
// Requests that would open a new session are limited per client address.
func withSession(sessions SessionEnsurer, ttl time.Duration, creations *clientLimiter, next http.Handler) http.Handler {
	logger := slog.Default()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cookieValue string
		if cookie, err := r.Cookie(session.CookieName); err == nil {
			cookieValue = cookie.Value
		}

		if _, known := sessions.Get(cookieValue); !known && !creations.allow(clientAddr(r)) {
			logger.Warn("Session creation rate limited", "client", clientAddr(r))
			writeDetail(w, http.StatusTooManyRequests, "Too many new sessions, slow down")
			return
		}

		s, created, err := sessions.Ensure(cookieValue)
		if err != nil {
			logger.Error("Failed to establish session", "error", err)
			writeDetail(w, http.StatusInternalServerError, "Failed to establish session")
			return
		}
		if created {
			logger.Debug("Issued session cookie", "session_id", s.ID)
		}

		http.SetCookie(w, &http.Cookie{
			Name:     session.CookieName,
			Value:    s.ID,
			Path:     "/",
			MaxAge:   int(ttl.Seconds()),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})

		next.ServeHTTP(w, r.WithContext(handlers.WithSessionID(r.Context(), s.ID)))
	})
}

// clientAddr is the host part of the peer address. Forwarding headers are not trusted.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter hands out one token bucket per client address
type clientLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiter(limit rate.Limit, burst int) *clientLimiter {
	return &clientLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

func (l *clientLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterIdle {
		for k, entry := range l.limiters {
			if now.Sub(entry.lastSeen) > limiterIdle {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *clientLimiter) middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientAddr(r)) {
			writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded, slow down")
			return
		}
		next(w, r)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
