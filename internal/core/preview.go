package core

// maxSampleRows caps the rows echoed back in a preview response.
const maxSampleRows = 5

// Preview validates every row of a table against a final mapping set and
// aggregates the result with any tokenizer issues. It does not mutate the
// table and is idempotent: identical inputs produce identical results.
//
// InvalidRows counts rows carrying at least one error-severity issue,
// including rows the tokenizer dropped; ValidRows + InvalidRows always
// equals TotalRows.
func (c *Coercer) Preview(table *RawTable, mappings MappingSet, tokenIssues []Issue) *PreviewResult {
	issues := make([]Issue, 0, len(tokenIssues))
	issues = append(issues, tokenIssues...)

	errorRows := make(map[int]bool)
	dropped := 0
	for _, issue := range tokenIssues {
		if issue.Severity == SeverityError && issue.Row > 0 {
			if !errorRows[issue.Row] {
				dropped++
			}
			errorRows[issue.Row] = true
		}
	}

	for i, row := range table.Rows {
		rowNum := i + 1
		if i < len(table.RowNums) {
			rowNum = table.RowNums[i]
		}

		_, rowIssues := c.CoerceRow(mappings, table.Headers, row, rowNum)
		for _, issue := range rowIssues {
			if issue.Severity == SeverityError {
				errorRows[issue.Row] = true
			}
		}
		issues = append(issues, rowIssues...)
	}

	total := len(table.Rows) + dropped
	invalid := len(errorRows)

	samples := table.Rows
	if len(samples) > maxSampleRows {
		samples = samples[:maxSampleRows]
	}

	return &PreviewResult{
		Table:       table,
		Mappings:    mappings,
		TotalRows:   total,
		ValidRows:   total - invalid,
		InvalidRows: invalid,
		Issues:      issues,
		SampleRows:  samples,
	}
}

// BuildPreview is the auto-mapped form of Preview, used when the operator
// has not adjusted any column mappings yet.
func (c *Coercer) BuildPreview(table *RawTable, specs []FieldSpec, tokenIssues []Issue) *PreviewResult {
	return c.Preview(table, AutoMap(specs, table.Headers), tokenIssues)
}
