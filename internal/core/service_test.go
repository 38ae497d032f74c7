package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// newTestService wires a service around an in-memory kind. The persisted
// entities land in the returned slice (guarded by mu for async runs).
func newTestService(t *testing.T, opts ServiceOptions) (*Service, *sync.Mutex, *[]Entity) {
	t.Helper()

	var mu sync.Mutex
	var persisted []Entity

	reg := NewRegistry()
	reg.Register(KindDefinition{
		Key:   "documents",
		Label: "Documents",
		FieldSpecs: []FieldSpec{
			{TargetField: "title", Required: true},
			{TargetField: "category"},
		},
		Persist: func(_ context.Context, e Entity) error {
			mu.Lock()
			defer mu.Unlock()
			persisted = append(persisted, e)
			return nil
		},
		Fetch: func(_ context.Context) ([]Entity, error) {
			mu.Lock()
			defer mu.Unlock()
			return append([]Entity(nil), persisted...), nil
		},
	})

	return NewService(reg, nil, opts), &mu, &persisted
}

func TestServicePreview(t *testing.T) {
	svc, _, _ := newTestService(t, ServiceOptions{})

	result, err := svc.Preview(context.Background(), "documents", []byte("title,category\nAlpha,rules\n,lore\n"), nil)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	if result.TotalRows != 2 || result.ValidRows != 1 || result.InvalidRows != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", result.TotalRows, result.ValidRows, result.InvalidRows)
	}
}

func TestServicePreviewUnknownKind(t *testing.T) {
	svc, _, _ := newTestService(t, ServiceOptions{})

	_, err := svc.Preview(context.Background(), "widgets", []byte("a\n1\n"), nil)
	if err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Errorf("err = %v, want unknown kind", err)
	}
}

func TestServicePreviewFileSizeCap(t *testing.T) {
	svc, _, _ := newTestService(t, ServiceOptions{MaxFileSize: 10})

	_, err := svc.Preview(context.Background(), "documents", []byte("title\nlong enough to exceed\n"), nil)
	if err == nil || !strings.Contains(err.Error(), "file too large") {
		t.Errorf("err = %v, want file too large", err)
	}
}

func TestServiceImportLifecycle(t *testing.T) {
	svc, mu, persisted := newTestService(t, ServiceOptions{})

	importID, err := svc.StartImport(context.Background(), "documents", "docs.csv",
		[]byte("title,category\nAlpha,rules\nBeta,lore\n"), nil, "")
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}

	summary, err := svc.GetImportResult(importID)
	if err != nil {
		t.Fatalf("GetImportResult: %v", err)
	}

	if summary.ImportID != importID {
		t.Errorf("summary.ImportID = %s, want %s", summary.ImportID, importID)
	}
	if summary.FileName != "docs.csv" {
		t.Errorf("summary.FileName = %s", summary.FileName)
	}
	if summary.Imported != 2 || summary.Failed != 0 {
		t.Errorf("imported %d failed %d, want 2/0", summary.Imported, summary.Failed)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(*persisted) != 2 {
		t.Errorf("persisted %d entities, want 2", len(*persisted))
	}
}

func TestServiceImportCountsDroppedRows(t *testing.T) {
	svc, _, _ := newTestService(t, ServiceOptions{})

	importID, err := svc.StartImport(context.Background(), "documents", "docs.csv",
		[]byte("title\nAlpha\n\"broken\nGamma\n"), nil, "")
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}

	summary, err := svc.GetImportResult(importID)
	if err != nil {
		t.Fatalf("GetImportResult: %v", err)
	}

	if summary.TotalRows != 3 {
		t.Errorf("TotalRows = %d, want 3 (includes dropped row)", summary.TotalRows)
	}
	if summary.Imported != 2 || summary.Failed != 1 {
		t.Errorf("imported %d failed %d, want 2/1", summary.Imported, summary.Failed)
	}
	if len(summary.RowErrors) != 1 || summary.RowErrors[0].Row != 2 {
		t.Errorf("RowErrors = %v, want dropped row 2", summary.RowErrors)
	}
}

func TestServiceProgressMatchesSummaryWithDroppedRows(t *testing.T) {
	svc, _, _ := newTestService(t, ServiceOptions{})

	importID, err := svc.StartImport(context.Background(), "documents", "docs.csv",
		[]byte("title\nAlpha\n\"broken\nGamma\n"), nil, "")
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}

	summary, err := svc.GetImportResult(importID)
	if err != nil {
		t.Fatalf("GetImportResult: %v", err)
	}

	progress, err := svc.GetImportProgress(importID)
	if err != nil {
		t.Fatalf("GetImportProgress: %v", err)
	}

	// The progress stream and the summary must agree on totals even when
	// the tokenizer dropped rows before the import loop.
	if progress.Stage != StageComplete {
		t.Errorf("final stage = %s, want complete", progress.Stage)
	}
	if progress.Total != summary.TotalRows {
		t.Errorf("progress.Total = %d, summary.TotalRows = %d", progress.Total, summary.TotalRows)
	}
	if progress.Processed != summary.TotalRows {
		t.Errorf("progress.Processed = %d, want %d", progress.Processed, summary.TotalRows)
	}
	if progress.ErrorCount != summary.Failed {
		t.Errorf("progress.ErrorCount = %d, summary.Failed = %d", progress.ErrorCount, summary.Failed)
	}
	if progress.Percent() != 100 {
		t.Errorf("final Percent = %d, want 100", progress.Percent())
	}
}

func TestServiceSubscribeProgress(t *testing.T) {
	svc, _, _ := newTestService(t, ServiceOptions{})

	importID, err := svc.StartImport(context.Background(), "documents", "docs.csv",
		[]byte("title\nAlpha\nBeta\n"), nil, "")
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}

	ch, err := svc.SubscribeProgress(importID)
	if err != nil {
		t.Fatalf("SubscribeProgress: %v", err)
	}

	sawUpdate := false
	for range ch {
		sawUpdate = true
	}
	if !sawUpdate {
		t.Error("expected at least one progress update before the channel closed")
	}

	// After completion the result is immediately available.
	if _, err := svc.GetImportResult(importID); err != nil {
		t.Errorf("GetImportResult after stream close: %v", err)
	}
}

func TestServiceUnknownImportID(t *testing.T) {
	svc, _, _ := newTestService(t, ServiceOptions{})

	if _, err := svc.SubscribeProgress("nope"); err == nil {
		t.Error("SubscribeProgress should fail for unknown ID")
	}
	if err := svc.CancelImport("nope"); err == nil {
		t.Error("CancelImport should fail for unknown ID")
	}
	if _, err := svc.GetImportResult("nope"); err == nil {
		t.Error("GetImportResult should fail for unknown ID")
	}
	if _, err := svc.GetImportProgress("nope"); err == nil {
		t.Error("GetImportProgress should fail for unknown ID")
	}
}

func TestServiceExport(t *testing.T) {
	svc, mu, persisted := newTestService(t, ServiceOptions{})

	mu.Lock()
	*persisted = append(*persisted, Entity{"title": "Alpha", "category": "rules"})
	mu.Unlock()

	out, err := svc.Export(context.Background(), "documents", []string{"title", "category"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if out != "title,category\nAlpha,rules\n" {
		t.Errorf("Export = %q", out)
	}
}

func TestServiceExportNoData(t *testing.T) {
	svc, _, _ := newTestService(t, ServiceOptions{})

	if _, err := svc.Export(context.Background(), "documents", nil); !errors.Is(err, ErrNoData) {
		t.Errorf("Export error = %v, want ErrNoData", err)
	}
}

func TestServiceTemplate(t *testing.T) {
	svc, _, _ := newTestService(t, ServiceOptions{})

	out, err := svc.Template("documents")
	if err != nil {
		t.Fatalf("Template: %v", err)
	}
	if out != "title,category\n" {
		t.Errorf("Template = %q", out)
	}
}

func TestServiceWaitForImportsDrains(t *testing.T) {
	svc, _, _ := newTestService(t, ServiceOptions{})

	importID, err := svc.StartImport(context.Background(), "documents", "docs.csv",
		[]byte("title\nAlpha\n"), nil, "")
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}

	if _, err := svc.GetImportResult(importID); err != nil {
		t.Fatalf("GetImportResult: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.WaitForImports(ctx); err != nil {
		t.Errorf("WaitForImports: %v", err)
	}
}
