package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ludexcms/ludex/internal/core"
)

// handleExport downloads all records of a kind as CSV. An optional
// "columns" query parameter restricts and orders the output columns.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	var columns []string
	if raw := r.URL.Query().Get("columns"); raw != "" {
		for _, col := range strings.Split(raw, ",") {
			if col = strings.TrimSpace(col); col != "" {
				columns = append(columns, col)
			}
		}
	}

	data, err := s.service.Export(r.Context(), kind, columns)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, core.ErrNoData):
			status = http.StatusNotFound
		case strings.Contains(err.Error(), "unknown kind"):
			status = http.StatusNotFound
		}
		writeErr(w, r, status, err)
		return
	}

	filename := fmt.Sprintf("%s_%s.csv", kind, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write([]byte(data))
}

// handleDownloadTemplate returns a header-only CSV for a kind.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	data, err := s.service.Template(kind)
	if err != nil {
		writeErr(w, r, http.StatusNotFound, err)
		return
	}

	filename := fmt.Sprintf("%s_template.csv", kind)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write([]byte(data))
}
