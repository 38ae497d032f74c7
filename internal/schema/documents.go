package schema

import (
	"context"

	"github.com/ludexcms/ludex/internal/cms"
	"github.com/ludexcms/ludex/internal/core"
)

// documentsKind describes reference documents: rules pages, guides, and
// other long-form content.
func documentsKind(client cms.Client) core.KindDefinition {
	return core.KindDefinition{
		Key:   "documents",
		Label: "Documents",
		FieldSpecs: []core.FieldSpec{
			{TargetField: "title", Required: true, Type: core.FieldString},
			{TargetField: "slug", Type: core.FieldString},
			{TargetField: "category", Type: core.FieldString},
			{TargetField: "tags", Type: core.FieldArray},
			{TargetField: "summary", Type: core.FieldString},
			{TargetField: "body", Type: core.FieldString},
			{TargetField: "published", Type: core.FieldBool},
			{TargetField: "release_date", Type: core.FieldDate},
			{TargetField: "sort_order", Type: core.FieldNumber},
		},
		Defaults: func(entity core.Entity, opts core.DefaultsOptions) {
			stampCommon(entity)
			if category, _ := entity["category"].(string); category == "" {
				if opts.Page != "" {
					entity["category"] = opts.Page
				} else {
					entity["category"] = "general"
				}
			}
		},
		Persist: func(ctx context.Context, entity core.Entity) error {
			return client.AddDocument(ctx, entity)
		},
		Fetch: func(ctx context.Context) ([]core.Entity, error) {
			return client.ListDocuments(ctx)
		},
	}
}
