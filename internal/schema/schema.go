// Package schema defines the importable entity kinds and wires their
// persistence to the content API client.
package schema

import (
	"time"

	"github.com/google/uuid"

	"github.com/ludexcms/ludex/internal/cms"
	"github.com/ludexcms/ludex/internal/core"
)

// NewRegistry builds a registry with every supported entity kind bound
// to the given content API client.
func NewRegistry(client cms.Client) *core.Registry {
	reg := core.NewRegistry()
	reg.Register(documentsKind(client))
	reg.Register(updateLogsKind(client))
	return reg
}

// stampCommon fills the fields every new record gets regardless of kind.
// Values already present on the entity are kept.
func stampCommon(entity core.Entity) {
	now := time.Now().UTC().Format(time.RFC3339)
	if id, _ := entity["id"].(string); id == "" {
		entity["id"] = uuid.New().String()
	}
	if created, _ := entity["created_at"].(string); created == "" {
		entity["created_at"] = now
	}
	if updated, _ := entity["updated_at"].(string); updated == "" {
		entity["updated_at"] = now
	}
}
