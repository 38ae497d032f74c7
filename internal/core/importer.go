package core

// importer.go runs the batch import: coerce each row, apply the kind's
// defaults policy, and hand the entity to the persistence collaborator.
//
// Rows are processed sequentially, one persistence call at a time, so the
// progress counters stay a simple monotonic sequence. Failure of one row
// never aborts the batch: the error is recorded with its row number and
// the loop continues. Cancellation is cooperative, checked between rows.
// Already-persisted rows are never rolled back.

import (
	"context"
	"fmt"
	"time"
)

// ImportOptions configures a single import run.
type ImportOptions struct {
	Mode     CoercionMode
	Page     string       // target page override, fed to the defaults policy
	Progress ProgressFunc // called after every row; may be nil
}

// ImportAll imports every row of the table through the kind's persistence
// function, collecting a per-row success/failure tally. Rows with
// error-severity issues are blocked from persistence and counted as
// failed; warnings never block.
func ImportAll(ctx context.Context, def KindDefinition, table *RawTable, mappings MappingSet, opts ImportOptions) *ImportSummary {
	start := time.Now()

	summary := &ImportSummary{
		Kind:      def.Key,
		TotalRows: len(table.Rows),
	}

	coercer := NewCoercer(opts.Mode)

	progress := ImportProgress{
		Kind:  def.Key,
		Stage: StageImporting,
		Total: len(table.Rows),
	}
	notify := func() {
		if opts.Progress != nil {
			opts.Progress(progress)
		}
	}
	notify()

	for i, row := range table.Rows {
		if ctx.Err() != nil {
			progress.Stage = StageCancelled
			progress.Message = "import cancelled"
			notify()
			summary.Error = "cancelled"
			summary.Duration = time.Since(start)
			return summary
		}

		rowNum := i + 1
		if i < len(table.RowNums) {
			rowNum = table.RowNums[i]
		}

		entity, issues := coercer.CoerceRow(mappings, table.Headers, row, rowNum)

		if msg := firstError(issues); msg != "" {
			summary.Failed++
			summary.RowErrors = append(summary.RowErrors, RowError{Row: rowNum, Message: msg, Data: row})
			progress.Processed++
			progress.ErrorCount = summary.Failed
			notify()
			continue
		}

		if def.Defaults != nil {
			def.Defaults(entity, DefaultsOptions{Page: opts.Page})
		}

		if err := def.Persist(ctx, entity); err != nil {
			summary.Failed++
			summary.RowErrors = append(summary.RowErrors, RowError{Row: rowNum, Message: err.Error(), Data: row})
			progress.Processed++
			progress.ErrorCount = summary.Failed
			notify()
			continue
		}

		summary.Imported++
		progress.Processed++
		notify()
	}

	summary.Duration = time.Since(start)

	progress.Stage = StageComplete
	progress.Message = fmt.Sprintf("imported %d of %d rows (%d failed)", summary.Imported, summary.TotalRows, summary.Failed)
	notify()

	return summary
}

// firstError returns the message of the first error-severity issue.
func firstError(issues []Issue) string {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			if issue.Column != "" {
				return fmt.Sprintf("%s: %s", issue.Column, issue.Message)
			}
			return issue.Message
		}
	}
	return ""
}
