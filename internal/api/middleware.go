// Package api implements the glanxiv REST API using chi.
package api

import "net/http"

// NoStore marks responses as uncacheable by browsers and CDNs.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, max-age=0")
		w.Header().Set("CDN-Cache-Control", "no-store")
		w.Header().Set("Vary", "Accept-Encoding")
		next.ServeHTTP(w, r)
	})
}
