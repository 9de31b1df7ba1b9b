package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// HandleUploads serves captured and cropped images so display URIs can be
// rendered by a browser
func (h *Handler) HandleUploads(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")

	// Prevent directory traversal attacks
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		w.Header().Set("Content-Type", "image/jpeg")
	case ".png":
		w.Header().Set("Content-Type", "image/png")
	}

	http.ServeFile(w, r, filepath.Join(h.uploadDir, name))
}
