package core

import (
	"reflect"
	"testing"
)

var previewSpecs = []FieldSpec{
	{TargetField: "name", Required: true},
	{TargetField: "age", Type: FieldNumber},
}

func TestPreviewCountsAlwaysReconcile(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantTotal   int
		wantValid   int
		wantInvalid int
	}{
		{
			name:        "all valid",
			input:       "name,age\nAlice,30\nBob,41\n",
			wantTotal:   2,
			wantValid:   2,
			wantInvalid: 0,
		},
		{
			name:        "missing required field",
			input:       "name,age\nAlice,30\n,41\n",
			wantTotal:   2,
			wantValid:   1,
			wantInvalid: 1,
		},
		{
			name:        "dropped row counts as invalid",
			input:       "name,age\nAlice,30\n\"broken,41\nCara,22\n",
			wantTotal:   3,
			wantValid:   2,
			wantInvalid: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, tokenIssues, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}

			result := NewCoercer(Lenient).BuildPreview(table, previewSpecs, tokenIssues)

			if result.TotalRows != tt.wantTotal {
				t.Errorf("TotalRows = %d, want %d", result.TotalRows, tt.wantTotal)
			}
			if result.ValidRows != tt.wantValid {
				t.Errorf("ValidRows = %d, want %d", result.ValidRows, tt.wantValid)
			}
			if result.InvalidRows != tt.wantInvalid {
				t.Errorf("InvalidRows = %d, want %d", result.InvalidRows, tt.wantInvalid)
			}
			if result.ValidRows+result.InvalidRows != result.TotalRows {
				t.Errorf("ValidRows (%d) + InvalidRows (%d) != TotalRows (%d)",
					result.ValidRows, result.InvalidRows, result.TotalRows)
			}
		})
	}
}

func TestPreviewLenientGarbageNumberStillValid(t *testing.T) {
	// In lenient mode an unparsable number is coerced to 0 with no issue,
	// so the row counts as valid.
	table, tokenIssues, err := Parse("name,age\nBob,notanumber\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	result := NewCoercer(Lenient).BuildPreview(table, previewSpecs, tokenIssues)
	if result.InvalidRows != 0 {
		t.Errorf("InvalidRows = %d, want 0 (lenient mode)", result.InvalidRows)
	}

	strict := NewCoercer(Strict).BuildPreview(table, previewSpecs, tokenIssues)
	if strict.InvalidRows != 1 {
		t.Errorf("InvalidRows = %d, want 1 (strict mode)", strict.InvalidRows)
	}
}

func TestPreviewIdempotent(t *testing.T) {
	table, tokenIssues, err := Parse("name,age\nAlice,30\n,oops\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	c := NewCoercer(Strict)
	first := c.BuildPreview(table, previewSpecs, tokenIssues)
	second := c.BuildPreview(table, previewSpecs, tokenIssues)

	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different previews")
	}
}

func TestPreviewSampleRowsCapped(t *testing.T) {
	input := "name\nr1\nr2\nr3\nr4\nr5\nr6\nr7\n"
	table, tokenIssues, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	result := NewCoercer(Lenient).BuildPreview(table, previewSpecs[:1], tokenIssues)
	if len(result.SampleRows) != maxSampleRows {
		t.Errorf("SampleRows = %d rows, want %d", len(result.SampleRows), maxSampleRows)
	}
	if result.TotalRows != 7 {
		t.Errorf("TotalRows = %d, want 7", result.TotalRows)
	}
}

func TestPreviewCarriesTokenizerWarnings(t *testing.T) {
	table, tokenIssues, err := Parse("name,age\nAlice\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	result := NewCoercer(Lenient).BuildPreview(table, previewSpecs, tokenIssues)

	foundWarning := false
	for _, issue := range result.Issues {
		if issue.Severity == SeverityWarning {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Error("cell count warning should surface in the preview issues")
	}
	// Warnings never make a row invalid.
	if result.InvalidRows != 0 {
		t.Errorf("InvalidRows = %d, want 0", result.InvalidRows)
	}
}
