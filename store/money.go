package store

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ficoreafrica/ficore/schema"
)

// SurplusDeficit returns income minus fixed expenses, variable expenses and
// the savings goal, rounded to the kobo.
func SurplusDeficit(income, fixed, variable, savings float64) float64 {
	return decimal.NewFromFloat(income).
		Sub(decimal.NewFromFloat(fixed)).
		Sub(decimal.NewFromFloat(variable)).
		Sub(decimal.NewFromFloat(savings)).
		Round(2).
		InexactFloat64()
}

// ListTotalSpent sums price times quantity over the bought items.
func ListTotalSpent(items []ListItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		if it.Status != schema.ItemBought {
			continue
		}
		total = total.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total.Round(2).InexactFloat64()
}

// listTotalFromDoc computes ListTotalSpent over the raw items value of a
// list document. It reports false when items is not an array of documents.
func listTotalFromDoc(v any) (float64, bool) {
	elems, ok := asSlice(v)
	if !ok {
		return 0, false
	}
	items := make([]ListItem, 0, len(elems))
	for _, e := range elems {
		raw, err := bson.Marshal(e)
		if err != nil {
			return 0, false
		}
		var it ListItem
		if err := bson.Unmarshal(raw, &it); err != nil {
			return 0, false
		}
		items = append(items, it)
	}
	return ListTotalSpent(items), true
}

// budgetSurplus computes surplus_deficit from a budget document.
func budgetSurplus(doc Doc) (float64, bool) {
	income, ok1 := number(doc["income"])
	fixed, ok2 := number(doc["fixed_expenses"])
	variable, ok3 := number(doc["variable_expenses"])
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	savings, _ := number(doc["savings_goal"])
	return SurplusDeficit(income, fixed, variable, savings), true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asSlice(v any) ([]any, bool) {
	switch a := v.(type) {
	case bson.A:
		return a, true
	case []any:
		return a, true
	case []bson.M:
		out := make([]any, len(a))
		for i := range a {
			out[i] = a[i]
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(a))
		for i := range a {
			out[i] = a[i]
		}
		return out, true
	case []ListItem:
		out := make([]any, len(a))
		for i := range a {
			out[i] = a[i]
		}
		return out, true
	}
	return nil, false
}
