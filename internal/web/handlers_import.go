package web

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ludexcms/ludex/internal/core"
	"github.com/ludexcms/ludex/internal/logging"
)

// readUploadedCSV extracts and validates the "file" part of a multipart
// upload. Only .csv files within the configured size cap are accepted.
func (s *Server) readUploadedCSV(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	maxSize := s.service.MaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, "", fmt.Errorf("file too large or invalid form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.New("no file provided")
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType := header.Header.Get("Content-Type")
	if ext != ".csv" && !strings.Contains(contentType, "csv") && !strings.HasPrefix(contentType, "text/") {
		return nil, "", fmt.Errorf("unsupported file type: %s is not a csv file", header.Filename)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}

	return data, header.Filename, nil
}

// parseOverrides decodes the optional "mapping" form value, a JSON
// object of target field to CSV header.
func parseOverrides(r *http.Request) (map[string]string, error) {
	raw := r.FormValue("mapping")
	if raw == "" {
		return nil, nil
	}

	var overrides map[string]string
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return nil, fmt.Errorf("invalid mapping format: %w", err)
	}
	return overrides, nil
}

// handlePreview analyzes a CSV file and reports what an import would do,
// without persisting anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	data, _, err := s.readUploadedCSV(w, r)
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}

	overrides, err := parseOverrides(r)
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := s.service.Preview(r.Context(), kind, data, overrides)
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleStartImport kicks off an asynchronous import and returns its ID.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	data, fileName, err := s.readUploadedCSV(w, r)
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}

	overrides, err := parseOverrides(r)
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, err)
		return
	}

	page := r.FormValue("page")

	importID, err := s.service.StartImport(r.Context(), kind, fileName, data, overrides, page)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, core.ErrTooManyImports) {
			status = http.StatusTooManyRequests
		}
		writeErr(w, r, status, err)
		return
	}

	logging.FromContext(r.Context()).Info("import started",
		"import_id", importID,
		"kind", kind,
		"file", fileName,
	)

	writeJSON(w, http.StatusAccepted, map[string]string{"import_id": importID})
}

// handleImportProgress streams import progress via Server-Sent Events.
// Supports resumption via the lastEventId query parameter; the event ID
// is the progress percentage so clients can skip replayed events.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	lastEventIDStr := r.URL.Query().Get("lastEventId")
	var lastEventID int
	if lastEventIDStr != "" {
		lastEventID, _ = strconv.Atoi(lastEventIDStr)
	}

	progressCh, err := s.service.SubscribeProgress(importID)
	if err != nil {
		writeErr(w, r, http.StatusNotFound, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, r, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			currentPercent := progress.Percent()
			if lastEventIDStr != "" && currentPercent <= lastEventID {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", currentPercent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleCancelImport cancels an in-progress import.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	if err := s.service.CancelImport(importID); err != nil {
		writeErr(w, r, http.StatusNotFound, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleImportResult returns the final summary of an import, blocking
// until the run finishes.
func (s *Server) handleImportResult(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	result, err := s.service.GetImportResult(importID)
	if err != nil {
		writeErr(w, r, http.StatusNotFound, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleImportHistory returns recorded import runs for a kind.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	if _, ok := s.service.Kind(kind); !ok {
		writeErr(w, r, http.StatusNotFound, fmt.Errorf("unknown kind: %s", kind))
		return
	}

	runs, err := s.service.History(r.Context(), kind)
	if err != nil {
		writeErr(w, r, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleExportFailedRows downloads the failed rows of an import as CSV
// so operators can fix and re-import them.
func (s *Server) handleExportFailedRows(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	failedRows, err := s.service.FailedRows(r.Context(), importID)
	if err != nil {
		writeErr(w, r, http.StatusInternalServerError, err)
		return
	}
	if len(failedRows) == 0 {
		writeErr(w, r, http.StatusNotFound, fmt.Errorf("import not found or has no failed rows: %s", importID))
		return
	}

	writeFailedRowsCSV(w, failedRows)
}

// writeFailedRowsCSV emits each original cell as its own CSV column after
// the row number and error, so quoting survives and the file can be fixed
// and re-imported. Rows dropped by the tokenizer have no cells to echo.
func writeFailedRowsCSV(w http.ResponseWriter, failedRows []core.RowError) {
	filename := fmt.Sprintf("failed_rows_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	csvWriter := csv.NewWriter(w)
	csvWriter.Write([]string{"_row", "_error"})

	for _, row := range failedRows {
		record := append([]string{strconv.Itoa(row.Row), row.Message}, row.Data...)
		csvWriter.Write(record)
	}

	csvWriter.Flush()
}

// handleListKinds returns the entity kinds available for import.
func (s *Server) handleListKinds(w http.ResponseWriter, r *http.Request) {
	type kindInfo struct {
		Key     string   `json:"key"`
		Label   string   `json:"label"`
		Columns []string `json:"columns"`
	}

	defs := s.service.Kinds()
	kinds := make([]kindInfo, 0, len(defs))
	for _, def := range defs {
		kinds = append(kinds, kindInfo{
			Key:     def.Key,
			Label:   def.Label,
			Columns: def.Columns(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"kinds": kinds})
}
