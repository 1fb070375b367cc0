package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem enforces Idempotency-Key semantics for checkout-style write
// endpoints. The reservation is scoped to the authenticated user so two
// customers can reuse the same client-generated key without colliding.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func idemKey(userID, header string) string {
	sum := sha256.Sum256([]byte(userID + "\x00" + header))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware reserves the key before the handler runs. A second request with
// the same key inside the TTL window is answered with 409 and never reaches
// the handler.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		userID, _ := UserID(r.Context())
		key := idemKey(userID, header)

		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		fresh, err := i.R.SetNX(r.Context(), key, "reserved", ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !fresh {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// keep the reservation alive for the full window even when the
			// handler panics mid-flight
			_ = i.R.Expire(context.Background(), key, ttl).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
