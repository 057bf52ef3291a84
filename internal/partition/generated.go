package partition

import (
	"regexp"
	"strings"

	"github.com/tablemesh/tablemesh/internal/errs"
	"github.com/tablemesh/tablemesh/internal/model"
)

var (
	funcExprRe  = regexp.MustCompile(`^(YEAR|MONTH|DAY|HOUR)\(\s*([A-Za-z_][A-Za-z0-9_.]*)\s*\)$`)
	castDateRe  = regexp.MustCompile(`^CAST\(\s*([A-Za-z_][A-Za-z0-9_.]*)\s+AS\s+DATE\s*\)$`)
	dateFmtRe   = regexp.MustCompile(`^DATE_FORMAT\(\s*([A-Za-z_][A-Za-z0-9_.]*)\s*,\s*'([^']*)'\s*\)$`)
)

var dateFormatPatterns = map[string]model.TransformKind{
	"yyyy":            model.TransformYear,
	"yyyy-MM":         model.TransformMonth,
	"yyyy-MM-dd":      model.TransformDay,
	"yyyy-MM-dd-HH":   model.TransformHour,
}

// ParseGeneratedExpression recognizes a Delta generated-column expression
// string and returns the source column name and the transform it encodes.
func ParseGeneratedExpression(expr string) (sourceColumn string, kind model.TransformKind, err error) {
	expr = strings.TrimSpace(expr)

	if m := funcExprRe.FindStringSubmatch(expr); m != nil {
		switch m[1] {
		case "YEAR":
			return m[2], model.TransformYear, nil
		case "MONTH":
			return m[2], model.TransformMonth, nil
		case "DAY":
			return m[2], model.TransformDay, nil
		case "HOUR":
			return m[2], model.TransformHour, nil
		}
	}

	if m := castDateRe.FindStringSubmatch(expr); m != nil {
		return m[1], model.TransformDay, nil
	}

	if m := dateFmtRe.FindStringSubmatch(expr); m != nil {
		col, pattern := m[1], m[2]
		if k, ok := dateFormatPatterns[pattern]; ok {
			return col, k, nil
		}
		return "", 0, errs.New(errs.UnsupportedPartitionTransform, "DATE_FORMAT pattern %q is not a recognized granularity", pattern)
	}

	return "", 0, errs.New(errs.UnsupportedPartitionTransform, "generated column expression %q is not a recognized transform", expr)
}

// GeneratedColumn is one of a Delta table's partition columns as read off
// its metaData action: either a plain partition column over a source field
// (GeneratedExpr == "") or one whose values are computed from GeneratedExpr.
type GeneratedColumn struct {
	Name            string
	SourceFieldID   int
	SourceFieldName string
	GeneratedExpr   string
}

// CollapseGeneratedColumns implements the Delta canonicalization rule: among
// generated columns sharing a source field, only the finest granularity
// survives as that field's PartitionField; duplicate same-granularity
// columns over one source field are rejected as InvalidPartitionSpec.
// Non-generated columns become VALUE transforms unconditionally.
func CollapseGeneratedColumns(cols []GeneratedColumn) (model.PartitionSpec, error) {
	type candidate struct {
		field GeneratedColumn
		kind  model.TransformKind
	}
	bySource := map[int][]candidate{}
	order := []int{}

	var plain []model.PartitionField
	for _, c := range cols {
		if c.GeneratedExpr == "" {
			plain = append(plain, model.PartitionField{
				SourceFieldID: c.SourceFieldID,
				SourceName:    c.SourceFieldName,
				Transform:     model.ValueTransform(),
				Name:          c.Name,
			})
			continue
		}
		_, kind, err := ParseGeneratedExpression(c.GeneratedExpr)
		if err != nil {
			return model.PartitionSpec{}, err
		}
		if _, seen := bySource[c.SourceFieldID]; !seen {
			order = append(order, c.SourceFieldID)
		}
		bySource[c.SourceFieldID] = append(bySource[c.SourceFieldID], candidate{field: c, kind: kind})
	}

	fields := plain
	for _, fid := range order {
		cands := bySource[fid]
		best := cands[0]
		seenKinds := map[model.TransformKind]bool{best.kind: true}
		for _, c := range cands[1:] {
			if seenKinds[c.kind] {
				return model.PartitionSpec{}, errs.New(errs.InvalidPartitionSpec,
					"source field %d has two generated columns at the same %s granularity", fid, c.kind)
			}
			seenKinds[c.kind] = true
			if c.kind.Finer(best.kind) {
				best = c
			}
		}
		fields = append(fields, model.PartitionField{
			SourceFieldID: fid,
			SourceName:    best.field.SourceFieldName,
			Transform:     transformForKind(best.kind),
			Name:          best.field.Name,
		})
	}

	return model.PartitionSpec{Fields: fields}, nil
}

func transformForKind(kind model.TransformKind) model.Transform {
	switch kind {
	case model.TransformYear:
		return model.YearTransform()
	case model.TransformMonth:
		return model.MonthTransform()
	case model.TransformDay:
		return model.DayTransform()
	case model.TransformHour:
		return model.HourTransform()
	default:
		return model.ValueTransform()
	}
}
