package model

import "sort"

// ItemStack is a count of one item kind, named by its block or item name.
type ItemStack struct {
	Item  string
	Count int
}

// Tool is whatever broke a block. The zero Tool is an empty hand.
type Tool struct {
	Name string
	Tier int
}

func (t *Tool) IsHand() bool { return t == nil || t.Name == "" }

// Inventory is a sparse item -> count map.
type Inventory map[string]int

func (inv Inventory) Add(item string, n int) {
	if n <= 0 || item == "" {
		return
	}
	inv[item] += n
}

// Stacks lists non-empty entries sorted by item name.
func (inv Inventory) Stacks() []ItemStack {
	out := make([]ItemStack, 0, len(inv))
	for item, n := range inv {
		if n <= 0 {
			continue
		}
		out = append(out, ItemStack{Item: item, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}
