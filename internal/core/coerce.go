package core

// coerce.go converts raw string cells into typed values per the field's
// declared data type.
//
// Coercion is deliberately forgiving in Lenient mode, matching how the
// pipeline has always behaved: unparsable numbers become 0 and invalid
// dates become today, with no issue recorded. Strict mode surfaces both
// as error issues instead. Required fields with no mapped column or an
// empty resolved value always produce an error issue, in either mode.

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when coercing date cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
}

// Coercer converts raw cells into CellValues under a CoercionMode.
// The zero value is a Lenient coercer.
type Coercer struct {
	Mode CoercionMode

	// now is overridable for tests; defaults to time.Now.
	now func() time.Time
}

// NewCoercer returns a coercer for the given mode.
func NewCoercer(mode CoercionMode) *Coercer {
	return &Coercer{Mode: mode}
}

func (c *Coercer) today() string {
	nowFn := c.now
	if nowFn == nil {
		nowFn = time.Now
	}
	return nowFn().Format("2006-01-02")
}

// Coerce converts one raw cell per the spec's type. The returned issue is
// nil unless Strict mode rejected the value; the CellValue is always
// usable, holding the fallback in that case.
func (c *Coercer) Coerce(spec FieldSpec, raw string) (CellValue, *Issue) {
	raw = strings.TrimSpace(raw)

	switch spec.Type {
	case FieldNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil && raw != "" && c.Mode == Strict {
			return CellValue{Kind: FieldNumber}, &Issue{
				Column:   spec.TargetField,
				Message:  fmt.Sprintf("invalid number: %q", raw),
				Severity: SeverityError,
			}
		}
		if err != nil {
			n = 0
		}
		return CellValue{Kind: FieldNumber, Num: n}, nil

	case FieldBool:
		switch strings.ToLower(raw) {
		case "true", "1", "yes":
			return CellValue{Kind: FieldBool, Bool: true}, nil
		default:
			return CellValue{Kind: FieldBool}, nil
		}

	case FieldDate:
		if raw == "" {
			return CellValue{Kind: FieldDate, Date: c.today()}, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return CellValue{Kind: FieldDate, Date: t.Format("2006-01-02")}, nil
			}
		}
		if c.Mode == Strict {
			return CellValue{Kind: FieldDate, Date: c.today()}, &Issue{
				Column:   spec.TargetField,
				Message:  fmt.Sprintf("invalid date: %q", raw),
				Severity: SeverityError,
			}
		}
		return CellValue{Kind: FieldDate, Date: c.today()}, nil

	case FieldArray:
		var list []string
		for _, part := range strings.Split(raw, ";") {
			part = strings.TrimSpace(part)
			if part != "" {
				list = append(list, part)
			}
		}
		if list == nil {
			list = []string{}
		}
		return CellValue{Kind: FieldArray, List: list}, nil

	default:
		return CellValue{Kind: FieldString, Str: raw}, nil
	}
}

// CoerceRow coerces all mapped fields of one row into an Entity, keyed by
// target field name. Unmapped optional fields are omitted so the defaults
// policy can fill them later. The row number is stamped onto every issue.
func (c *Coercer) CoerceRow(mappings MappingSet, headers []string, row []string, rowNum int) (Entity, []Issue) {
	idx := headerIndex(headers)
	entity := make(Entity, len(mappings))
	var issues []Issue

	for _, m := range mappings {
		raw, ok := resolveCell(m, idx, row)

		if m.Spec.Required && (!ok || strings.TrimSpace(raw) == "") {
			issues = append(issues, Issue{
				Row:      rowNum,
				Column:   m.Spec.TargetField,
				Message:  "required field is empty",
				Severity: SeverityError,
			})
			continue
		}

		if !ok {
			continue
		}

		value, issue := c.Coerce(m.Spec, raw)
		if issue != nil {
			issue.Row = rowNum
			issues = append(issues, *issue)
		}
		entity[m.Spec.TargetField] = value.Value()
	}

	return entity, issues
}
