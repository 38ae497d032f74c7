package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service orchestrates import sessions: parsing, preview, the batch run,
// progress fan-out, and run history. Each run is tracked independently
// by ID until cleanup removes it.
type Service struct {
	registry *Registry
	history  *HistoryStore
	limiter  *ImportLimiter

	maxFileSize   int64
	importTimeout time.Duration
	defaultMode   CoercionMode

	mu      sync.RWMutex
	imports map[string]*activeImport
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	MaxFileSize   int64
	MaxConcurrent int
	MaxWaitTime   time.Duration
	ImportTimeout time.Duration
	Mode          CoercionMode
}

type activeImport struct {
	ID       string
	Kind     string
	FileName string
	Cancel   context.CancelFunc
	Progress ImportProgress
	Result   *ImportSummary
	Done     chan struct{}

	listenerMu sync.Mutex
	listeners  []chan ImportProgress
}

// NewService creates a Service backed by the given registry and optional
// history store (nil disables history).
func NewService(registry *Registry, history *HistoryStore, opts ServiceOptions) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 10 * 1024 * 1024
	}
	if opts.ImportTimeout <= 0 {
		opts.ImportTimeout = 10 * time.Minute
	}

	return &Service{
		registry:      registry,
		history:       history,
		limiter:       NewImportLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		maxFileSize:   opts.MaxFileSize,
		importTimeout: opts.ImportTimeout,
		defaultMode:   opts.Mode,
		imports:       make(map[string]*activeImport),
	}
}

// Kinds returns the registered kind definitions.
func (s *Service) Kinds() []KindDefinition {
	return s.registry.All()
}

// Kind returns a single kind definition.
func (s *Service) Kind(key string) (KindDefinition, bool) {
	return s.registry.Get(key)
}

// MaxFileSize returns the configured file size cap in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// LimiterActive returns the number of imports currently running.
func (s *Service) LimiterActive() int {
	return s.limiter.ActiveCount()
}

// WaitForImports blocks until active imports drain or ctx is cancelled.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Preview parses fileData and builds a read-only preview under the given
// mapping overrides (target field -> CSV header). Nothing is persisted
// and no session state is created.
func (s *Service) Preview(ctx context.Context, kind string, fileData []byte, overrides map[string]string) (*PreviewResult, error) {
	def, ok := s.registry.Get(kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind: %s", kind)
	}

	if int64(len(fileData)) > s.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes exceeds %d byte limit", len(fileData), s.maxFileSize)
	}

	table, tokenIssues, err := Parse(string(SanitizeUTF8(fileData)))
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	mappings := AutoMap(def.FieldSpecs, table.Headers)
	mappings.ApplyOverrides(overrides)

	return NewCoercer(s.defaultMode).Preview(table, mappings, tokenIssues), nil
}

// StartImport begins an asynchronous import run and returns its ID.
// Use SubscribeProgress for live updates and GetImportResult for the
// final summary.
func (s *Service) StartImport(ctx context.Context, kind, fileName string, fileData []byte, overrides map[string]string, page string) (string, error) {
	def, ok := s.registry.Get(kind)
	if !ok {
		return "", fmt.Errorf("unknown kind: %s", kind)
	}

	if int64(len(fileData)) > s.maxFileSize {
		return "", fmt.Errorf("file too large: %d bytes exceeds %d byte limit", len(fileData), s.maxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	importID := uuid.New().String()
	runCtx, cancel := context.WithTimeout(context.Background(), s.importTimeout)

	run := &activeImport{
		ID:       importID,
		Kind:     kind,
		FileName: fileName,
		Cancel:   cancel,
		Progress: ImportProgress{
			ImportID: importID,
			Kind:     kind,
			Stage:    StageStarting,
			FileName: fileName,
		},
		Done: make(chan struct{}),
	}

	s.mu.Lock()
	s.imports[importID] = run
	s.mu.Unlock()

	go s.processImport(runCtx, run, def, fileData, overrides, page)

	return importID, nil
}

// processImport runs one import end to end in the background.
func (s *Service) processImport(ctx context.Context, run *activeImport, def KindDefinition, fileData []byte, overrides map[string]string, page string) {
	start := time.Now()
	logger := slog.Default().With("import_id", run.ID, "kind", run.Kind)

	// Done closes before the listener channels so late subscribers can
	// detect completion (see SubscribeProgress).
	defer func() {
		s.limiter.Release()
		close(run.Done)
		run.closeListeners()
		s.cleanup(run.ID, 5*time.Minute)
	}()

	run.setStage(StageParsing, "")

	table, tokenIssues, err := Parse(string(SanitizeUTF8(fileData)))
	if err != nil {
		run.fail(err.Error())
		run.Result = &ImportSummary{
			ImportID: run.ID,
			Kind:     run.Kind,
			FileName: run.FileName,
			Error:    err.Error(),
			Duration: time.Since(start),
		}
		return
	}

	run.setStage(StageMapping, "")

	mappings := AutoMap(def.FieldSpecs, table.Headers)
	mappings.ApplyOverrides(overrides)

	// Rows the tokenizer dropped are reported as failed up front.
	var droppedErrors []RowError
	for _, issue := range tokenIssues {
		if issue.Severity == SeverityError {
			droppedErrors = append(droppedErrors, RowError{Row: issue.Row, Message: issue.Message})
		}
	}

	// Dropped rows count as already-processed failures in the progress
	// stream so the bar completes against the same totals the summary
	// reports.
	dropped := len(droppedErrors)
	summary := ImportAll(ctx, def, table, mappings, ImportOptions{
		Mode: s.defaultMode,
		Page: page,
		Progress: func(p ImportProgress) {
			p.ImportID = run.ID
			p.FileName = run.FileName
			p.Total += dropped
			p.Processed += dropped
			p.ErrorCount += dropped
			run.updateProgress(p)
		},
	})

	summary.ImportID = run.ID
	summary.FileName = run.FileName
	summary.TotalRows += len(droppedErrors)
	summary.Failed += len(droppedErrors)
	summary.RowErrors = append(droppedErrors, summary.RowErrors...)
	summary.Duration = time.Since(start)
	run.Result = summary

	if s.history != nil {
		if err := s.history.RecordRun(context.Background(), summary); err != nil {
			logger.Warn("failed to record import run", "error", err)
		}
	}

	logger.Info("import finished",
		"imported", summary.Imported,
		"failed", summary.Failed,
		"duration_ms", summary.Duration.Milliseconds(),
	)
}

// SubscribeProgress returns a channel receiving progress updates for an
// import. The channel closes when the run completes.
func (s *Service) SubscribeProgress(importID string) (<-chan ImportProgress, error) {
	s.mu.RLock()
	run, ok := s.imports[importID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("import not found: %s", importID)
	}

	ch := make(chan ImportProgress, 10)

	run.listenerMu.Lock()
	select {
	case <-run.Done:
		// Run already finished: deliver the final state and close.
		ch <- run.Progress
		close(ch)
	default:
		run.listeners = append(run.listeners, ch)
		select {
		case ch <- run.Progress:
		default:
		}
	}
	run.listenerMu.Unlock()

	return ch, nil
}

// CancelImport cancels an in-progress import between rows.
func (s *Service) CancelImport(importID string) error {
	s.mu.RLock()
	run, ok := s.imports[importID]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("import not found: %s", importID)
	}

	run.Cancel()
	return nil
}

// GetImportResult returns the final summary, blocking until the run
// completes if it is still in progress.
func (s *Service) GetImportResult(importID string) (*ImportSummary, error) {
	s.mu.RLock()
	run, ok := s.imports[importID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("import not found: %s", importID)
	}

	<-run.Done
	return run.Result, nil
}

// GetImportProgress returns the current progress without blocking.
func (s *Service) GetImportProgress(importID string) (ImportProgress, error) {
	s.mu.RLock()
	run, ok := s.imports[importID]
	s.mu.RUnlock()

	if !ok {
		return ImportProgress{}, fmt.Errorf("import not found: %s", importID)
	}

	run.listenerMu.Lock()
	defer run.listenerMu.Unlock()
	return run.Progress, nil
}

// Export fetches all entities of a kind from the CMS and serializes them
// to CSV, optionally restricted to a column subset.
func (s *Service) Export(ctx context.Context, kind string, columns []string) (string, error) {
	def, ok := s.registry.Get(kind)
	if !ok {
		return "", fmt.Errorf("unknown kind: %s", kind)
	}

	records, err := def.Fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", kind, err)
	}

	return ToCSV(records, columns)
}

// Template returns a header-only CSV for a kind.
func (s *Service) Template(kind string) (string, error) {
	def, ok := s.registry.Get(kind)
	if !ok {
		return "", fmt.Errorf("unknown kind: %s", kind)
	}
	return TemplateCSV(def), nil
}

// History returns recorded import runs for a kind, newest first.
func (s *Service) History(ctx context.Context, kind string) ([]RunRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListRuns(ctx, kind)
}

// FailedRows returns the recorded row errors for a completed import.
func (s *Service) FailedRows(ctx context.Context, importID string) ([]RowError, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.FailedRows(ctx, importID)
}

// cleanup removes the import from tracking after a delay.
func (s *Service) cleanup(importID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.imports, importID)
		s.mu.Unlock()
	})
}

func (run *activeImport) setStage(stage ImportStage, message string) {
	run.listenerMu.Lock()
	run.Progress.Stage = stage
	run.Progress.Message = message
	progress := run.Progress
	run.notifyLocked(progress)
	run.listenerMu.Unlock()
}

func (run *activeImport) fail(message string) {
	run.listenerMu.Lock()
	run.Progress.Stage = StageFailed
	run.Progress.Message = message
	progress := run.Progress
	run.notifyLocked(progress)
	run.listenerMu.Unlock()
}

func (run *activeImport) updateProgress(p ImportProgress) {
	run.listenerMu.Lock()
	run.Progress = p
	run.notifyLocked(p)
	run.listenerMu.Unlock()
}

// notifyLocked sends to all listeners; slow listeners skip the update.
// Callers must hold listenerMu.
func (run *activeImport) notifyLocked(p ImportProgress) {
	for _, ch := range run.listeners {
		select {
		case ch <- p:
		default:
		}
	}
}

func (run *activeImport) closeListeners() {
	run.listenerMu.Lock()
	defer run.listenerMu.Unlock()

	for _, ch := range run.listeners {
		close(ch)
	}
	run.listeners = nil
}
