package core

import "testing"

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(KindDefinition{Key: "documents", Label: "Documents"})

	def, ok := r.Get("documents")
	if !ok || def.Label != "Documents" {
		t.Errorf("Get(documents) = %+v, %v", def, ok)
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) should return false")
	}

	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate registration should panic")
		}
	}()

	r := NewRegistry()
	r.Register(KindDefinition{Key: "documents"})
	r.Register(KindDefinition{Key: "documents"})
}

func TestRegistryAllSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(KindDefinition{Key: "update-logs"})
	r.Register(KindDefinition{Key: "documents"})

	defs := r.All()
	if len(defs) != 2 {
		t.Fatalf("All = %d kinds, want 2", len(defs))
	}
	if defs[0].Key != "documents" || defs[1].Key != "update-logs" {
		t.Errorf("All not sorted by key: %v, %v", defs[0].Key, defs[1].Key)
	}
}
