package blocks

import "fmt"

// Registry maps each kind to its behavior.
type Registry struct {
	byKind [kindCount]Behavior
}

// Default returns a registry with the built-in behaviors.
func Default() *Registry {
	r := &Registry{}
	for _, k := range Kinds() {
		r.byKind[k] = Basic{Kind: k}
	}
	r.byKind[Air] = Basic{Kind: Air}
	r.byKind[Grass] = Basic{Kind: Grass, Drop: Dirt}
	r.byKind[Leaves] = Leafy{}
	r.byKind[Torch] = Attached{Kind: Torch}
	r.byKind[Rail] = Attached{Kind: Rail}
	r.byKind[Sand] = Falling{Kind: Sand}
	r.byKind[Gravel] = Falling{Kind: Gravel}
	r.byKind[TNT] = Charge{Basic: Basic{Kind: TNT}}
	r.byKind[Chest] = Container{Kind: Chest}
	return r
}

// Register replaces the behavior for k.
func (r *Registry) Register(k Kind, b Behavior) {
	if !k.Valid() {
		panic(fmt.Sprintf("blocks: register unknown kind %d", uint16(k)))
	}
	r.byKind[k] = b
}

// Behavior returns the hooks for k; unknown kinds behave like air.
func (r *Registry) Behavior(k Kind) Behavior {
	if r == nil || !k.Valid() || r.byKind[k] == nil {
		return Basic{Kind: Air}
	}
	return r.byKind[k]
}
