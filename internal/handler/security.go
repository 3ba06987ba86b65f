package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/lazzat-eats/order-engine/internal/domain/auth"
)

// APIKeySecurity returns a middleware that authenticates requests via
// HMAC-SHA256 hashed API keys from the api_key header.
func APIKeySecurity(apikeys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("api_key")
			if key == "" {
				key = r.Header.Get("X-API-Key")
			}
			if key == "" {
				writeError(w, http.StatusUnauthorized, "api key required")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
