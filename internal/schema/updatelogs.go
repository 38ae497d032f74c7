package schema

import (
	"context"
	"time"

	"github.com/ludexcms/ludex/internal/cms"
	"github.com/ludexcms/ludex/internal/core"
)

// updateLogsKind describes release notes for content updates.
func updateLogsKind(client cms.Client) core.KindDefinition {
	return core.KindDefinition{
		Key:   "update-logs",
		Label: "Update Logs",
		FieldSpecs: []core.FieldSpec{
			{TargetField: "version", Required: true, Type: core.FieldString},
			{TargetField: "title", Required: true, Type: core.FieldString},
			{TargetField: "date", Type: core.FieldDate},
			{TargetField: "changes", Type: core.FieldArray},
			{TargetField: "author", Type: core.FieldString},
			{TargetField: "major", Type: core.FieldBool},
		},
		Defaults: func(entity core.Entity, _ core.DefaultsOptions) {
			stampCommon(entity)
			if date, _ := entity["date"].(string); date == "" {
				entity["date"] = time.Now().Format("2006-01-02")
			}
		},
		Persist: func(ctx context.Context, entity core.Entity) error {
			return client.AddUpdateLog(ctx, entity)
		},
		Fetch: func(ctx context.Context) ([]core.Entity, error) {
			return client.ListUpdateLogs(ctx)
		},
	}
}
