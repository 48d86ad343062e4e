package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"coinmachine/kit/cache"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	IdempotencyCacheTTL = 24 * time.Hour

	// LockTimeout bounds how long a crashed request can hold its key.
	LockTimeout = 10 * time.Second

	responseKeyPrefix = "idempotency:"
	lockKeyPrefix     = "idempotency-lock:"
)

type recordingWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

type cachedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Idempotency replays the stored 2xx response for a repeated Idempotency-Key
// and answers 409 while a request with the same key is still in flight.
// Requests without the header pass through untouched.
func Idempotency(c cache.Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			responseKey := responseKeyPrefix + r.URL.Path + ":" + key
			lockKey := lockKeyPrefix + r.URL.Path + ":" + key

			raw, err := c.Get(ctx, responseKey)
			switch {
			case err == nil:
				var cached cachedResponse
				if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("X-Idempotency-Hit", "true")
					w.WriteHeader(cached.Status)
					_, _ = w.Write([]byte(cached.Body))
					return
				}
				log.Printf("layer=middleware component=idempotency key=%s msg=\"discarding unreadable cached response\"", key)
			case !errors.Is(err, cache.ErrMiss):
				log.Printf("layer=middleware component=idempotency method=Get key=%s err=%v", key, err)
				writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "idempotency store unavailable")
				return
			}

			acquired, err := c.SetNX(ctx, lockKey, "processing", LockTimeout)
			if err != nil {
				log.Printf("layer=middleware component=idempotency method=SetNX key=%s err=%v", key, err)
				writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "idempotency store unavailable")
				return
			}
			if !acquired {
				writeJSONError(w, http.StatusConflict, "conflict", "a request with this idempotency key is currently being processed")
				return
			}
			defer func() {
				if err := c.Del(ctx, lockKey); err != nil {
					log.Printf("layer=middleware component=idempotency method=Del key=%s err=%v", key, err)
				}
			}()

			rec := &recordingWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode < 200 || rec.statusCode >= 300 {
				return
			}
			b, _ := json.Marshal(cachedResponse{Status: rec.statusCode, Body: rec.body.String()})
			if err := c.Set(ctx, responseKey, string(b), IdempotencyCacheTTL); err != nil {
				log.Printf("layer=middleware component=idempotency method=Set key=%s err=%v", key, err)
			}
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": msg})
}
