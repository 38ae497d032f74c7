// Package core provides the business logic for CSV import and export.
// This package has no transport dependencies and can be used by any frontend.
package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// FieldType represents the declared data type for a schema field.
type FieldType int

const (
	FieldString FieldType = iota
	FieldNumber
	FieldBool
	FieldDate
	FieldArray
)

// Name returns a human-readable name for a field type.
func (ft FieldType) Name() string {
	switch ft {
	case FieldString:
		return "string"
	case FieldNumber:
		return "number"
	case FieldBool:
		return "boolean"
	case FieldDate:
		return "date"
	case FieldArray:
		return "array"
	default:
		return "value"
	}
}

// FieldSpec declares a single target field of an entity kind.
// Specs are declared statically per kind and never mutated at runtime.
type FieldSpec struct {
	TargetField string    `json:"targetField"`
	Required    bool      `json:"required"`
	Type        FieldType `json:"type"`
}

// RawTable is the tokenizer's output: a header row plus data rows.
// RowNums maps each entry in Rows to its 1-based data row number in the
// source file (header excluded). Rows dropped during tokenization leave
// gaps in the numbering.
type RawTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	RowNums []int      `json:"rowNums"`
}

// Severity classifies a validation issue. Errors block a row from import;
// warnings never block.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single structured parse or validation finding.
// Row is 1-based with the header excluded; 0 means table-level.
type Issue struct {
	Row      int      `json:"row"`
	Column   string   `json:"column,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ColumnMapping associates one schema field with zero or one CSV column.
// An empty SourceColumn means the field is unmapped.
type ColumnMapping struct {
	Spec         FieldSpec `json:"spec"`
	SourceColumn string    `json:"sourceColumn"`
}

// MappingSet is the full set of mappings for one import session, ordered
// like the kind's field specs.
type MappingSet []ColumnMapping

// Set replaces the source column of the mapping at index. It is a pure
// replace with no validation; out-of-range indexes are ignored.
func (m MappingSet) Set(index int, header string) {
	if index < 0 || index >= len(m) {
		return
	}
	m[index].SourceColumn = header
}

// CoercionMode controls how unparsable values are handled.
type CoercionMode int

const (
	// Lenient silently substitutes type defaults for unparsable values
	// (number -> 0, invalid date -> today).
	Lenient CoercionMode = iota
	// Strict records an error issue for unparsable numbers and dates,
	// blocking the row from import.
	Strict
)

// ParseCoercionMode converts a config string to a CoercionMode.
// Unknown values fall back to Lenient.
func ParseCoercionMode(s string) CoercionMode {
	if s == "strict" {
		return Strict
	}
	return Lenient
}

// CellValue is a typed cell produced by coercion. Exactly one of the value
// fields is meaningful, selected by Kind.
type CellValue struct {
	Kind FieldType
	Str  string
	Num  float64
	Bool bool
	Date string // YYYY-MM-DD
	List []string
}

// Value returns the dynamically-typed value for entity construction.
func (v CellValue) Value() any {
	switch v.Kind {
	case FieldNumber:
		return v.Num
	case FieldBool:
		return v.Bool
	case FieldDate:
		return v.Date
	case FieldArray:
		return v.List
	default:
		return v.Str
	}
}

// Entity is a coerced, defaulted record ready for persistence, keyed by
// target field name.
type Entity map[string]any

// DefaultsOptions carries caller-supplied overrides into a defaults policy.
type DefaultsOptions struct {
	// Page is the target page for the import; kinds may use it to default
	// a category or section field.
	Page string
}

// DefaultsFunc fills in identity, timestamps, and kind-specific defaults
// on an entity before persistence.
type DefaultsFunc func(e Entity, opts DefaultsOptions)

// PersistFunc persists a single fully-formed entity. A non-nil error marks
// that one row as failed; the batch continues.
type PersistFunc func(ctx context.Context, e Entity) error

// FetchFunc retrieves all entities of a kind for export.
type FetchFunc func(ctx context.Context) ([]Entity, error)

// KindDefinition contains everything needed to import and export one
// entity kind. Adding a kind means registering a definition; the core
// algorithms are schema-agnostic.
type KindDefinition struct {
	Key        string
	Label      string
	FieldSpecs []FieldSpec
	Defaults   DefaultsFunc
	Persist    PersistFunc
	Fetch      FetchFunc
}

// Columns returns the target field names in spec order.
func (d KindDefinition) Columns() []string {
	cols := make([]string, len(d.FieldSpecs))
	for i, spec := range d.FieldSpecs {
		cols[i] = spec.TargetField
	}
	return cols
}

// PreviewResult aggregates tokenizer, mapper, and validator output for
// operator review before any mutation occurs.
type PreviewResult struct {
	Table       *RawTable  `json:"table"`
	Mappings    MappingSet `json:"mappings"`
	TotalRows   int        `json:"totalRows"`
	ValidRows   int        `json:"validRows"`
	InvalidRows int        `json:"invalidRows"`
	Issues      []Issue    `json:"issues"`
	SampleRows  [][]string `json:"sampleRows"`
}

// ImportStage indicates the current phase of an import run.
type ImportStage string

const (
	StageStarting  ImportStage = "starting"
	StageParsing   ImportStage = "parsing"
	StageMapping   ImportStage = "mapping"
	StageImporting ImportStage = "importing"
	StageComplete  ImportStage = "complete"
	StageFailed    ImportStage = "failed"
	StageCancelled ImportStage = "cancelled"
)

// ImportProgress is the mutable state of an import run, reported after
// every row so callers can render a live bar.
type ImportProgress struct {
	ImportID   string      `json:"importId"`
	Kind       string      `json:"kind"`
	Stage      ImportStage `json:"stage"`
	FileName   string      `json:"fileName,omitempty"`
	Processed  int         `json:"processed"`
	Total      int         `json:"total"`
	ErrorCount int         `json:"errorCount"`
	Message    string      `json:"message,omitempty"`
}

// Percent returns the progress as a percentage (0-100).
func (p ImportProgress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return (p.Processed * 100) / p.Total
}

// RowError records exactly which row failed and why, so failed rows can be
// retried or reported precisely.
type RowError struct {
	Row     int      `json:"row"`
	Message string   `json:"message"`
	Data    []string `json:"data,omitempty"`
}

// ImportSummary is the final result of an import run. Partial success is
// an accepted, reported outcome: Imported + Failed == TotalRows unless the
// run was cancelled or failed before the row loop.
type ImportSummary struct {
	ImportID  string        `json:"importId"`
	Kind      string        `json:"kind"`
	FileName  string        `json:"fileName"`
	TotalRows int           `json:"totalRows"`
	Imported  int           `json:"imported"`
	Failed    int           `json:"failed"`
	RowErrors []RowError    `json:"rowErrors,omitempty"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// ProgressFunc is called after every processed row.
type ProgressFunc func(ImportProgress)
