package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server. Declarations arrive as hand-filled forms over
// slow connections, so the write timeout stays generous while header reads
// are bounded against slowloris.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
