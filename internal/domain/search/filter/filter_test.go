package filter

import (
	"strings"
	"testing"
)

func TestParseAttribute(t *testing.T) {
	for _, in := range []string{"category", "Material", " color ", "PRICE"} {
		if _, err := ParseAttribute(in); err != nil {
			t.Errorf("ParseAttribute(%q): %v", in, err)
		}
	}
	if _, err := ParseAttribute("brand"); err == nil {
		t.Error("expected error for unknown attribute")
	}
}

func TestNewEqual(t *testing.T) {
	c, err := NewEqual(Category, " tools ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Attribute() != Category || c.Operator() != OpEqual || c.Value() != "tools" {
		t.Errorf("condition = %+v", c)
	}
}

func TestNewEqual_Price(t *testing.T) {
	c, err := NewEqual(Price, "12.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Number() != 12.5 {
		t.Errorf("Number() = %v", c.Number())
	}
	if !c.Attribute().IsNumeric() {
		t.Error("price must be numeric")
	}
}

func TestNewEqual_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		attr  Attribute
		value string
		sub   string
	}{
		{"empty value", Color, " ", "value is required"},
		{"bad price", Price, "cheap", "must be a number"},
		{"nan price", Price, "NaN", "must be a number"},
		{"unknown attr", Attribute("brand"), "x", "unknown filter attribute"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEqual(tc.attr, tc.value)
			if err == nil || !strings.Contains(err.Error(), tc.sub) {
				t.Errorf("error = %v, want substring %q", err, tc.sub)
			}
		})
	}
}

func TestNewExpression_TooMany(t *testing.T) {
	c, _ := NewEqual(Category, "tools")
	conds := make([]Condition, MaxConditions+1)
	for i := range conds {
		conds[i] = c
	}
	if _, err := NewExpression(conds...); err == nil {
		t.Error("expected error for too many conditions")
	}
	if _, err := NewExpression(conds[:MaxConditions]...); err != nil {
		t.Errorf("unexpected error at limit: %v", err)
	}
}

func TestFromMap_SortedAndValidated(t *testing.T) {
	e, err := FromMap(map[string]string{"material": "steel", "category": "tools"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	conds := e.Conditions()
	if len(conds) != 2 || conds[0].Attribute() != Category || conds[1].Attribute() != Material {
		t.Errorf("conditions = %+v", conds)
	}

	if _, err := FromMap(map[string]string{"brand": "acme"}); err == nil {
		t.Error("expected error for unknown attribute")
	}
}

func TestExpression_Empty(t *testing.T) {
	var e Expression
	if !e.IsEmpty() || e.Len() != 0 {
		t.Error("zero Expression must be empty")
	}
	e, _ = FromMap(nil)
	if !e.IsEmpty() {
		t.Error("FromMap(nil) must be empty")
	}
}

func TestExpression_ConditionsIsCopy(t *testing.T) {
	c, _ := NewEqual(Category, "tools")
	e, _ := NewExpression(c)
	got := e.Conditions()
	got[0] = Condition{}
	if e.Conditions()[0].Value() != "tools" {
		t.Error("Conditions must return a copy")
	}
}

func TestOperatorString(t *testing.T) {
	if OpEqual.String() != "eq" {
		t.Errorf("OpEqual.String() = %q", OpEqual.String())
	}
}
