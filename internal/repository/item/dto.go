package item

import (
	"strconv"
	"time"

	"github.com/kailas-cloud/souq/internal/db"
	domitem "github.com/kailas-cloud/souq/internal/domain/item"
	"github.com/kailas-cloud/souq/internal/domain/language"
	"github.com/kailas-cloud/souq/internal/textnorm"
)

// Hash field names shared with the catalog FT indexes.
const (
	FieldID        = "id"
	FieldCategory  = "category"
	FieldMaterial  = "material"
	FieldPrice     = "price"
	FieldCreatedAt = "created_at"
)

// NameField returns the localized name field for lang.
func NameField(lang language.Language) string { return "name_" + string(lang) }

// DescriptionField returns the localized description field for lang.
func DescriptionField(lang language.Language) string { return "description_" + string(lang) }

// ColorField returns the localized color TAG field for lang.
func ColorField(lang language.Language) string { return "color_" + string(lang) }

// SearchField returns the normalized full-text field for lang.
func SearchField(lang language.Language) string { return "search_" + string(lang) }

// VectorField returns the embedding field for lang.
func VectorField(lang language.Language) string { return "vec_" + string(lang) }

// SearchText is the normalized text indexed for lexical search in lang.
func SearchText(it *domitem.Item, lang language.Language) string {
	return textnorm.Normalize(it.CompositeText(lang))
}

// buildHashFields flattens an item into HSET fields. Empty values are
// omitted so TAG fields never index blanks. TAG matching is
// case-insensitive on the index side.
func buildHashFields(it *domitem.Item) map[string]string {
	m := make(map[string]string, 16)
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}

	set(FieldID, it.ID())
	set(FieldCategory, it.Category())
	set(FieldMaterial, it.Material())
	m[FieldPrice] = strconv.FormatFloat(it.Price(), 'f', -1, 64)
	if !it.CreatedAt().IsZero() {
		m[FieldCreatedAt] = it.CreatedAt().Format(time.RFC3339Nano)
	}

	for _, lang := range language.All {
		set(NameField(lang), it.Name().Exact(lang))
		set(DescriptionField(lang), it.Description().Exact(lang))
		set(ColorField(lang), it.Color().Exact(lang))
		set(SearchField(lang), SearchText(it, lang))
		if v := it.Vector(lang); len(v) > 0 {
			m[VectorField(lang)] = db.EncodeVector(v)
		}
	}
	return m
}

// parseHashFields rebuilds an item from HGETALL output. ok is false for an
// empty hash (missing or deleted key).
func parseHashFields(id string, m map[string]string) (domitem.Item, bool) {
	if len(m) == 0 {
		return domitem.Item{}, false
	}

	var name, desc, color domitem.Localized
	for _, lang := range language.All {
		assign(&name, lang, m[NameField(lang)])
		assign(&desc, lang, m[DescriptionField(lang)])
		assign(&color, lang, m[ColorField(lang)])
	}

	price, _ := strconv.ParseFloat(m[FieldPrice], 64)
	var created time.Time
	if raw := m[FieldCreatedAt]; raw != "" {
		created, _ = time.Parse(time.RFC3339Nano, raw)
	}

	it := domitem.Reconstruct(id, name, desc, color, m[FieldMaterial], m[FieldCategory], price, created)

	vecs := make(map[language.Language][]float32, len(language.All))
	for _, lang := range language.All {
		if blob, ok := m[VectorField(lang)]; ok {
			if v, err := db.DecodeVector(blob); err == nil {
				vecs[lang] = v
			}
		}
	}
	if len(vecs) > 0 {
		it = it.WithVectors(vecs)
	}
	return it, true
}

func assign(l *domitem.Localized, lang language.Language, v string) {
	if lang == language.Arabic {
		l.Arabic = v
		return
	}
	l.English = v
}

// Decode rebuilds an item from hash fields returned by HGETALL or FT.SEARCH.
// ok is false when fields is empty.
func Decode(id string, fields map[string]string) (domitem.Item, bool) {
	return parseHashFields(id, fields)
}

// ReturnFields lists every non-vector hash field, for FT.SEARCH RETURN.
func ReturnFields() []string {
	out := []string{FieldID, FieldCategory, FieldMaterial, FieldPrice, FieldCreatedAt}
	for _, lang := range language.All {
		out = append(out, NameField(lang), DescriptionField(lang), ColorField(lang))
	}
	return out
}
