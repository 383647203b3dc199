// Package item is the catalog item aggregate.
package item

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kailas-cloud/souq/internal/domain/language"
)

// Field limits.
const (
	MaxNameLength        = 512
	MaxDescriptionLength = 16384
	MaxAttributeLength   = 128
)

// Localized holds one value per catalog language.
type Localized struct {
	Arabic  string
	English string
}

// In returns the value for lang, falling back to the other language when empty.
func (l Localized) In(lang language.Language) string {
	primary, fallback := l.English, l.Arabic
	if lang == language.Arabic {
		primary, fallback = l.Arabic, l.English
	}
	if primary != "" {
		return primary
	}
	return fallback
}

// Exact returns the value for lang without fallback.
func (l Localized) Exact(lang language.Language) string {
	if lang == language.Arabic {
		return l.Arabic
	}
	return l.English
}

// IsEmpty reports whether neither language has a value.
func (l Localized) IsEmpty() bool { return l.Arabic == "" && l.English == "" }

// Input is the caller-supplied content of a new item.
type Input struct {
	Name        Localized
	Description Localized
	Color       Localized
	Material    string
	Category    string
	Price       float64
}

// Item is a catalog entity (immutable value object).
type Item struct {
	id          string
	name        Localized
	description Localized
	color       Localized
	material    string
	category    string
	price       float64
	createdAt   time.Time
	vectors     map[language.Language][]float32
}

// New validates in and creates an Item with the given identifier.
func New(id string, in Input, createdAt time.Time) (Item, error) {
	if id == "" {
		return Item{}, fmt.Errorf("item ID is required")
	}
	if in.Name.IsEmpty() {
		return Item{}, fmt.Errorf("name is required in at least one language")
	}
	if len(in.Name.Arabic) > MaxNameLength || len(in.Name.English) > MaxNameLength {
		return Item{}, fmt.Errorf("name too long (max %d bytes)", MaxNameLength)
	}
	if len(in.Description.Arabic) > MaxDescriptionLength || len(in.Description.English) > MaxDescriptionLength {
		return Item{}, fmt.Errorf("description too long (max %d bytes)", MaxDescriptionLength)
	}
	if strings.TrimSpace(in.Category) == "" {
		return Item{}, fmt.Errorf("category is required")
	}
	for _, attr := range []string{in.Category, in.Material, in.Color.Arabic, in.Color.English} {
		if len(attr) > MaxAttributeLength {
			return Item{}, fmt.Errorf("attribute %q too long (max %d bytes)", attr, MaxAttributeLength)
		}
	}
	if math.IsNaN(in.Price) || math.IsInf(in.Price, 0) || in.Price < 0 {
		return Item{}, fmt.Errorf("price must be a non-negative number")
	}

	return Item{
		id:          id,
		name:        in.Name,
		description: in.Description,
		color:       in.Color,
		material:    strings.TrimSpace(in.Material),
		category:    strings.TrimSpace(in.Category),
		price:       in.Price,
		createdAt:   createdAt.UTC(),
	}, nil
}

// Reconstruct creates an Item without validation (storage hydration).
func Reconstruct(
	id string, name, description, color Localized,
	material, category string, price float64, createdAt time.Time,
) Item {
	return Item{
		id: id, name: name, description: description, color: color,
		material: material, category: category, price: price, createdAt: createdAt,
	}
}

// ID returns the item identifier.
func (i *Item) ID() string { return i.id }

// Name returns the localized display name.
func (i *Item) Name() Localized { return i.name }

// Description returns the localized description.
func (i *Item) Description() Localized { return i.description }

// Color returns the localized display color.
func (i *Item) Color() Localized { return i.color }

// Material returns the language-neutral material.
func (i *Item) Material() string { return i.material }

// Category returns the language-neutral category.
func (i *Item) Category() string { return i.category }

// Price returns the item price.
func (i *Item) Price() float64 { return i.price }

// CreatedAt returns the creation time in UTC.
func (i *Item) CreatedAt() time.Time { return i.createdAt }

// Vector returns the stored embedding for lang, or nil.
func (i *Item) Vector(lang language.Language) []float32 { return i.vectors[lang] }

// WithVectors returns a copy carrying one embedding per language.
func (i *Item) WithVectors(v map[language.Language][]float32) Item {
	c := *i
	c.vectors = make(map[language.Language][]float32, len(v))
	for lang, vec := range v {
		c.vectors[lang] = vec
	}
	return c
}

// CompositeText joins name, description and color in lang, skipping empty
// parts. Other-language parts are never mixed in; only when every part in lang
// is empty does it fall back to the name in the other language, so an item
// listed in one language can still be reranked.
func (i *Item) CompositeText(lang language.Language) string {
	parts := make([]string, 0, 3)
	for _, l := range []Localized{i.name, i.description, i.color} {
		if s := strings.TrimSpace(l.Exact(lang)); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(i.name.In(lang))
	}
	return strings.Join(parts, " ")
}

// ImagePath returns the static image location for the item.
func (i *Item) ImagePath(staticPrefix string) string {
	base := i.name.English
	if base == "" {
		base = i.id
	}
	return strings.TrimRight(staticPrefix, "/") + "/" + base + ".jpg"
}

// IDs returns the identifiers of items in order.
func IDs(items []Item) []string {
	ids := make([]string, len(items))
	for n := range items {
		ids[n] = items[n].id
	}
	return ids
}
