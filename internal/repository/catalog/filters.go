package catalog

import (
	"github.com/kailas-cloud/souq/internal/db"
	"github.com/kailas-cloud/souq/internal/domain/language"
	"github.com/kailas-cloud/souq/internal/domain/search/filter"
	itemrepo "github.com/kailas-cloud/souq/internal/repository/item"
)

// fieldFilters maps catalog attributes onto the index fields of lang.
func fieldFilters(expr filter.Expression, lang language.Language) []db.FieldFilter {
	if expr.IsEmpty() {
		return nil
	}
	conds := expr.Conditions()
	out := make([]db.FieldFilter, 0, len(conds))
	for _, c := range conds {
		switch c.Attribute() {
		case filter.Category:
			out = append(out, db.FieldFilter{Field: itemrepo.FieldCategory, Value: c.Value()})
		case filter.Material:
			out = append(out, db.FieldFilter{Field: itemrepo.FieldMaterial, Value: c.Value()})
		case filter.Color:
			out = append(out, db.FieldFilter{Field: itemrepo.ColorField(lang), Value: c.Value()})
		case filter.Price:
			out = append(out, db.FieldFilter{Field: itemrepo.FieldPrice, Numeric: true, Number: c.Number()})
		}
	}
	return out
}
