package models

import (
	"reflect"
	"testing"
)

func TestDecodeQueryNode_Match(t *testing.T) {
	node := DecodeQueryNode(map[string]any{
		"match": map[string]any{"vendor_name": "Acme"},
	})

	want := QueryNode{Kind: KindMatch, Field: "vendor_name", Value: "Acme"}
	if !reflect.DeepEqual(node, want) {
		t.Errorf("node = %+v, want %+v", node, want)
	}
}

func TestDecodeQueryNode_MultiKeyLeafIsDeterministic(t *testing.T) {
	raw := map[string]any{
		"match": map[string]any{
			"vendor_name": "Acme",
			"boost":       2.0,
			"operator":    "and",
			"fuzziness":   "AUTO",
		},
	}

	for i := 0; i < 50; i++ {
		node := DecodeQueryNode(raw)
		if node.Field != "vendor_name" {
			t.Fatalf("call %d: field = %q, want vendor_name", i, node.Field)
		}
		if node.Value != "Acme" {
			t.Fatalf("call %d: value = %v, want Acme", i, node.Value)
		}
	}
}

func TestDecodeQueryNode_MultiFieldLeafPicksSortedFirst(t *testing.T) {
	raw := map[string]any{
		"term": map[string]any{"zeta": "z", "alpha": "a"},
	}

	for i := 0; i < 50; i++ {
		node := DecodeQueryNode(raw)
		if node.Field != "alpha" {
			t.Fatalf("call %d: field = %q, want alpha", i, node.Field)
		}
	}
}

func TestDecodeQueryNode_RangeIgnoresOptionKeys(t *testing.T) {
	raw := map[string]any{
		"range": map[string]any{
			"amount": map[string]any{"gte": 100.0, "lt": 500.0},
			"boost":  map[string]any{"gte": 1.0},
		},
	}

	for i := 0; i < 50; i++ {
		node := DecodeQueryNode(raw)
		if node.Kind != KindRange || node.Field != "amount" {
			t.Fatalf("call %d: node = %+v, want range on amount", i, node)
		}
		if !reflect.DeepEqual(node.Bounds, map[string]any{"gte": 100.0, "lt": 500.0}) {
			t.Fatalf("call %d: bounds = %v", i, node.Bounds)
		}
	}
}
