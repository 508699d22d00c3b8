package api

import (
	"net/http"

	"mail-password-proxy/pkg/serverless"
)

// Handler is the entry point for Vercel serverless functions.
// Vercel routes /api/proxy to this file; it delegates to the shared serverless handler.
func Handler(w http.ResponseWriter, r *http.Request) {
	serverless.Handler(w, r)
}
