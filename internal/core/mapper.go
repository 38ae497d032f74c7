package core

import "strings"

// AutoMap seeds a MappingSet by fuzzy-matching field names against CSV
// headers: a field maps to the first header where either lowercased name
// contains the other. Ties are broken by header order, so the result is
// deterministic for identical inputs. Fields with no match stay unmapped
// for the operator to resolve.
func AutoMap(specs []FieldSpec, headers []string) MappingSet {
	mappings := make(MappingSet, len(specs))

	for i, spec := range specs {
		mappings[i] = ColumnMapping{Spec: spec}

		want := strings.ToLower(spec.TargetField)
		for _, header := range headers {
			have := strings.ToLower(strings.TrimSpace(header))
			if have == "" {
				continue
			}
			if strings.Contains(have, want) || strings.Contains(want, have) {
				mappings[i].SourceColumn = header
				break
			}
		}
	}

	return mappings
}

// ApplyOverrides replaces auto-matched source columns with operator
// choices, keyed by target field name. An empty header unmaps the field.
func (m MappingSet) ApplyOverrides(overrides map[string]string) {
	if len(overrides) == 0 {
		return
	}
	for i := range m {
		if header, ok := overrides[m[i].Spec.TargetField]; ok {
			m[i].SourceColumn = header
		}
	}
}

// headerIndex maps header names to their first position in the header row.
// Duplicate headers resolve to the earliest occurrence.
func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	return idx
}

// resolveCell looks up the raw cell for a mapping. The second return is
// false when the field is unmapped or the row is too short to contain the
// mapped column.
func resolveCell(m ColumnMapping, idx map[string]int, row []string) (string, bool) {
	if m.SourceColumn == "" {
		return "", false
	}
	pos, ok := idx[m.SourceColumn]
	if !ok || pos >= len(row) {
		return "", false
	}
	return row[pos], true
}
