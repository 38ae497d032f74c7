// Package cms talks to the Ludex content API, the system of record for
// documents and update logs. The import pipeline persists through it and
// the exporter reads back through it.
package cms

import (
	"context"

	"github.com/ludexcms/ludex/internal/core"
)

// Client is the persistence surface the pipeline needs from the content
// API. Implementations must be safe for concurrent use.
type Client interface {
	AddDocument(ctx context.Context, doc core.Entity) error
	AddUpdateLog(ctx context.Context, log core.Entity) error
	ListDocuments(ctx context.Context) ([]core.Entity, error)
	ListUpdateLogs(ctx context.Context) ([]core.Entity, error)
}
