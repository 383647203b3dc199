// Package filter models structured equality predicates over the closed set of
// catalog attributes.
package filter

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// MaxConditions is the maximum number of conditions in one expression.
const MaxConditions = 32

// Attribute is a filterable catalog attribute.
type Attribute string

// Filterable attributes.
const (
	Category Attribute = "category"
	Material Attribute = "material"
	Color    Attribute = "color"
	Price    Attribute = "price"
)

// ParseAttribute maps a wire name onto an Attribute.
func ParseAttribute(s string) (Attribute, error) {
	switch a := Attribute(strings.ToLower(strings.TrimSpace(s))); a {
	case Category, Material, Color, Price:
		return a, nil
	default:
		return "", fmt.Errorf("unknown filter attribute %q", s)
	}
}

// IsNumeric reports whether the attribute is compared as a number.
func (a Attribute) IsNumeric() bool { return a == Price }

// IsLocalized reports whether the attribute has one value per language.
func (a Attribute) IsLocalized() bool { return a == Color }

// Operator is the comparison applied by a Condition.
type Operator int

const (
	// OpEqual matches attribute values equal to the condition value.
	OpEqual Operator = iota + 1
)

func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "eq"
	default:
		return fmt.Sprintf("Operator(%d)", int(o))
	}
}

// Condition is a single predicate.
type Condition struct {
	attr   Attribute
	op     Operator
	value  string
	number float64
}

// NewEqual creates an equality condition on attr.
func NewEqual(attr Attribute, value string) (Condition, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Condition{}, fmt.Errorf("value is required for attribute %q", attr)
	}
	c := Condition{attr: attr, op: OpEqual, value: value}
	switch attr {
	case Category, Material, Color:
	case Price:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return Condition{}, fmt.Errorf("price filter must be a number, got %q", value)
		}
		c.number = n
	default:
		return Condition{}, fmt.Errorf("unknown filter attribute %q", attr)
	}
	return c, nil
}

// Attribute returns the filtered attribute.
func (c Condition) Attribute() Attribute { return c.attr }

// Operator returns the comparison operator.
func (c Condition) Operator() Operator { return c.op }

// Value returns the raw comparison value.
func (c Condition) Value() string { return c.value }

// Number returns the parsed value of a numeric condition.
func (c Condition) Number() float64 { return c.number }

// Expression is a conjunction of conditions.
type Expression struct {
	conditions []Condition
}

// NewExpression validates and creates an Expression.
func NewExpression(conditions ...Condition) (Expression, error) {
	if len(conditions) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	cp := make([]Condition, len(conditions))
	copy(cp, conditions)
	return Expression{conditions: cp}, nil
}

// FromMap builds an Expression from attribute → value pairs in sorted key order.
func FromMap(m map[string]string) (Expression, error) {
	if len(m) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	conds := make([]Condition, 0, len(keys))
	for _, k := range keys {
		attr, err := ParseAttribute(k)
		if err != nil {
			return Expression{}, err
		}
		c, err := NewEqual(attr, m[k])
		if err != nil {
			return Expression{}, err
		}
		conds = append(conds, c)
	}
	return NewExpression(conds...)
}

// Conditions returns a copy of the conditions.
func (e Expression) Conditions() []Condition {
	cp := make([]Condition, len(e.conditions))
	copy(cp, e.conditions)
	return cp
}

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }

// Len returns the number of conditions.
func (e Expression) Len() int { return len(e.conditions) }
