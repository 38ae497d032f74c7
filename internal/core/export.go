package core

// export.go serializes in-memory entity records back to CSV.
//
// Arrays join with "; ", the pipeline's in-cell separator. Nested maps
// serialize to compact JSON. Quoting follows RFC 4180 via
// encoding/csv. Export never sorts or deduplicates: row order matches
// input order.

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNoData signals an export with zero records. Non-fatal: the caller
// decides how to surface it.
var ErrNoData = errors.New("nothing to export")

// ToCSV serializes a homogeneous collection of records to CSV text. The
// header row is columns if given, else the first record's key set in
// sorted order.
func ToCSV(records []Entity, columns []string) (string, error) {
	if len(records) == 0 {
		return "", ErrNoData
	}

	if len(columns) == 0 {
		columns = make([]string, 0, len(records[0]))
		for key := range records[0] {
			columns = append(columns, key)
		}
		sort.Strings(columns)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(columns))
	for _, record := range records {
		for i, col := range columns {
			row[i] = formatCell(record[col])
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush: %w", err)
	}

	return buf.String(), nil
}

// TemplateCSV returns a header-only CSV for an entity kind, so operators
// can start from a file with the right columns.
func TemplateCSV(def KindDefinition) string {
	return strings.Join(def.Columns(), ",") + "\n"
}

// formatCell renders a single value for a CSV cell.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		return strings.Join(val, "; ")
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatCell(elem)
		}
		return strings.Join(parts, "; ")
	case time.Time:
		return val.Format("2006-01-02")
	case map[string]any, Entity:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", val)
	}
}
