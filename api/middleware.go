package api

import (
	"crypto/subtle"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"conduit/metrics"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	// maxAuthFailures blocks an IP after this many consecutive bad logins
	maxAuthFailures = 5
	authBlockWindow = 10 * time.Minute
	limiterIdleTTL  = time.Hour
)

// rateLimitMiddleware provides rate limiting per IP
func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	rps := a.config.Server.RateLimit.RequestsPerSecond
	if rps <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getRealIP(r, a.config.Server.TrustProxy)
		a.rateLimitersMu.Lock()
		entry, exists := a.rateLimiters[ip]
		if !exists {
			entry = &rateLimiterEntry{
				limiter:  rate.NewLimiter(rate.Limit(rps), a.config.Server.RateLimit.Burst),
				lastSeen: time.Now(),
			}
			a.rateLimiters[ip] = entry
		} else {
			entry.lastSeen = time.Now()
		}
		// Capture limiter reference while holding lock
		limiter := entry.limiter
		a.rateLimitersMu.Unlock()

		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "Too many requests", nil, a.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cleanupRateLimiters periodically removes inactive rate limiters and auth failures
func (a *API) cleanupRateLimiters() {
	ticker := time.NewTicker(limiterIdleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.pruneLimiters(time.Now())
		case <-a.stopCh:
			return
		}
	}
}

func (a *API) pruneLimiters(now time.Time) {
	a.rateLimitersMu.Lock()
	for ip, entry := range a.rateLimiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(a.rateLimiters, ip)
		}
	}
	a.rateLimitersMu.Unlock()

	a.authFailuresMu.Lock()
	for ip, entry := range a.authFailures {
		if now.Sub(entry.lastFail) > limiterIdleTTL {
			delete(a.authFailures, ip)
		}
	}
	a.authFailuresMu.Unlock()
}

// corsMiddleware adds CORS headers
func (a *API) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if a.originAllowed(origin) && origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if a.config.Server.TLS {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// originAllowed reports whether a browser origin may call the API.
// Requests without an Origin header are not cross-origin.
func (a *API) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range a.config.Server.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

// basicAuthMiddleware provides basic authentication with rate limiting for failed attempts
func (a *API) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		ip := getRealIP(r, a.config.Server.TrustProxy)

		a.authFailuresMu.Lock()
		entry, exists := a.authFailures[ip]
		if exists && entry.count >= maxAuthFailures && time.Since(entry.lastFail) < authBlockWindow {
			a.authFailuresMu.Unlock()
			a.logger.Warnw("Too many failed auth attempts", "ip", ip)
			writeError(w, http.StatusTooManyRequests, "Too many requests", nil, a.logger)
			return
		}
		a.authFailuresMu.Unlock()

		username, password, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.config.Auth.Username)) == 1
		passOK := bcrypt.CompareHashAndPassword([]byte(a.config.Auth.HashedPassword), []byte(password)) == nil
		if !ok || !userOK || !passOK {
			a.authFailuresMu.Lock()
			if entry, exists := a.authFailures[ip]; exists {
				entry.count++
				entry.lastFail = time.Now()
			} else {
				a.authFailures[ip] = &authFailureEntry{count: 1, lastFail: time.Now()}
			}
			a.authFailuresMu.Unlock()

			a.logger.Warnw("Failed authentication attempt", "ip", ip)
			w.Header().Set("WWW-Authenticate", `Basic realm="Conduit"`)
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil, a.logger)
			return
		}

		a.authFailuresMu.Lock()
		delete(a.authFailures, ip)
		a.authFailuresMu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// bodyLimitMiddleware caps request body size
func (a *API) bodyLimitMiddleware(next http.Handler) http.Handler {
	limit := a.config.Server.MaxBodyBytes
	if limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware turns handler panics into 500 responses
func (a *API) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				a.logger.Errorw("Panic in handler",
					"request_id", GetRequestID(r.Context()),
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "Internal server error", nil, nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request counts and latencies by route template
func (a *API) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
