package engine

import (
	"encoding/json"
	"errors"
	"testing"
)

func testOverlay() *Overlay {
	return BuildOverlay(Sources{
		CustomHeaders: map[string]string{
			"functionName": "${prefix}-hotel",
			"region-name":  "eu-west-1",
		},
		Variables: map[string]any{
			"prefix": "book",
			"city":   "NYC",
			"count":  3.0,
			"order": map[string]any{
				"id":    "A-1",
				"items": []any{"room", "breakfast"},
			},
			"empty": "",
			"nil":   nil,
		},
		Environment: map[string]any{
			"STAGE": "prod",
		},
		JobKey:             100,
		ProcessInstanceKey: 200,
	}, nil)
}

func TestResolve_Simple(t *testing.T) {
	o := testOverlay()
	p := NewPlaceholderProcessor()

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"no placeholders", "Plain text", "Plain text"},
		{"empty template", "", ""},
		{"single key", "${city}", "NYC"},
		{"embedded", "hotel-${city}-${STAGE}", "hotel-NYC-prod"},
		{"number", "rooms=${count}", "rooms=3"},
		{"job key", "${jobKey}/${processInstanceKey}", "100/200"},
		{"non identifier key", "${region-name}", "eu-west-1"},
		{"whitespace", "${ city }", "NYC"},
		{"empty value", "[${empty}]", "[]"},
		{"unterminated", "cost ${city", "cost ${city"},
		{"dollar without brace", "$city costs $5", "$city costs $5"},
		{"object", "${order.items}", `["room","breakfast"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.Resolve(tt.template, o)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestResolve_Expressions(t *testing.T) {
	o := testOverlay()
	p := NewPlaceholderProcessor()

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"field access", "${order.id}", "A-1"},
		{"index", "${order.items[1]}", "breakfast"},
		{"size", "${size(order.items)}", "2"},
		{"concat", "${city + '-' + STAGE}", "NYC-prod"},
		{"arithmetic", "${count * 2.0}", "6"},
		{"conditional", "${count > 2.0 ? 'many' : 'few'}", "many"},
		{"map literal", "${ {'a': 1}.a }", "1"},
		{"string with brace", "${'}' + city}", "}NYC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.Resolve(tt.template, o)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestResolve_UnresolvedIsError(t *testing.T) {
	o := testOverlay()
	p := NewPlaceholderProcessor()

	templates := []string{
		"${missing}",
		"prefix ${missing} suffix",
		"${nil}",
		"${order.missing}",
		"${}",
		"${city +}",
	}

	for _, tmpl := range templates {
		t.Run(tmpl, func(t *testing.T) {
			result, err := p.Resolve(tmpl, o)
			if err == nil {
				t.Fatalf("expected error, got %q", result)
			}
			if !errors.Is(err, ErrUnresolvedPlaceholder) {
				t.Errorf("expected ErrUnresolvedPlaceholder, got %v", err)
			}
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	o := testOverlay()
	p := NewPlaceholderProcessor()

	tmpl := "${order} ${variablesJson} ${city}"
	first, err := p.Resolve(tmpl, o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 20; i++ {
		again, err := p.Resolve(tmpl, o)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("resolution is not deterministic: %q vs %q", first, again)
		}
	}
}

func TestResolve_NestedTemplateNotExpanded(t *testing.T) {
	o := testOverlay()
	p := NewPlaceholderProcessor()

	// Значение подставляется как есть, без повторного раскрытия
	result, err := p.Resolve("${functionName}", o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "${prefix}-hotel" {
		t.Errorf("expected raw header value, got %q", result)
	}
}

func TestHasPlaceholder(t *testing.T) {
	if HasPlaceholder("plain") {
		t.Error("plain text should not have placeholders")
	}
	if !HasPlaceholder("a ${b}") {
		t.Error("should detect placeholder")
	}
}

func TestIsIdentifier(t *testing.T) {
	valid := []string{"a", "_a", "camelCase", "snake_case", "a1"}
	invalid := []string{"", "1a", "a-b", "a.b", "a b"}

	for _, s := range valid {
		if !isIdentifier(s) {
			t.Errorf("%q should be an identifier", s)
		}
	}
	for _, s := range invalid {
		if isIdentifier(s) {
			t.Errorf("%q should not be an identifier", s)
		}
	}
}

// --- Key-like Expression Tests ---

func TestResolve_HyphenatedMissingKeyIsError(t *testing.T) {
	o := NewOverlay(map[string]any{"first": 10, "name": 3})
	p := NewPlaceholderProcessor()

	result, err := p.Resolve("${first-name}", o)
	if !errors.Is(err, ErrUnresolvedPlaceholder) {
		t.Fatalf("expected ErrUnresolvedPlaceholder, got %q, %v", result, err)
	}

	// С пробелами это выражение CEL
	result, err = p.Resolve("${first - name}", o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "7" {
		t.Errorf("expected 7, got %q", result)
	}
}

func TestIsKeyLike(t *testing.T) {
	valid := []string{"a", "first-name", "x_1-b", "_a-"}
	invalid := []string{"", "-a", "1a", "a.b", "a - b", "a+b", "size(a)"}

	for _, s := range valid {
		if !isKeyLike(s) {
			t.Errorf("%q should be key-like", s)
		}
	}
	for _, s := range invalid {
		if isKeyLike(s) {
			t.Errorf("%q should not be key-like", s)
		}
	}
}

// --- Number Precision Tests ---

func TestResolve_JSONNumberVariables(t *testing.T) {
	o := BuildOverlay(Sources{
		Variables: map[string]any{
			"parentKey": json.Number("2251799813685249123"),
			"count":     json.Number("3"),
			"price":     json.Number("42.0"),
			"order":     map[string]any{"qty": json.Number("2")},
		},
	}, nil)
	p := NewPlaceholderProcessor()

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"large integer", "${parentKey}", "2251799813685249123"},
		{"integer arithmetic", "${count + 1}", "4"},
		{"large integer in expression", "${string(parentKey)}", "2251799813685249123"},
		{"float", "${price}", "42"},
		{"nested", "${order.qty * count}", "6"},
		{"variables json", "${variablesJson}", `{"count":3,"order":{"qty":2},"parentKey":2251799813685249123,"price":42.0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.Resolve(tt.template, o)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}
