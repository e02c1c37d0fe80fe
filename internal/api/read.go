// internal/api/read.go
package api

import (
	"encoding/base64"
	"net/http"

	"notification-queue/internal/common/logger"

	"github.com/go-chi/chi/v5"
)

var pixel, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

// readReceipt always answers with the tracking pixel.
func (s *Server) readReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.lifecycle.Read(r.Context(), id, r.UserAgent()); err != nil {
		s.logger.Error("Failed to record read receipt", map[string]interface{}{
			logger.FieldQueueEmailID: id,
			"error":                  err.Error(),
		})
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pixel)
}
