package entities

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"voxelsim.ai/internal/sim/world/kernel/model"
)

var ErrNotFound = errors.New("entity not found")

type Kind uint8

const (
	Living Kind = iota + 1
	Item
)

func (k Kind) String() string {
	switch k {
	case Living:
		return "living"
	case Item:
		return "item"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

type Entity struct {
	ID   uuid.UUID
	Kind Kind
	Pos  mgl64.Vec3
	Rot  mgl64.Quat
	Vel  mgl64.Vec3

	Health int
	// Age counts steps since spawn; an item with Age 0 was spawned this step.
	Age   int
	Stack model.ItemStack
	Dead  bool

	seq uint64
}

// Fresh reports whether e is an item spawned during the current step.
func (e *Entity) Fresh() bool { return e.Kind == Item && e.Age == 0 }

// Registry is an in-memory entity set iterated in spawn order.
type Registry struct {
	byID    map[uuid.UUID]*Entity
	nextSeq uint64
	newID   func() uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{byID: map[uuid.UUID]*Entity{}, newID: uuid.New}
}

// WithIDSource makes ids come from fn, for reproducible runs.
func (r *Registry) WithIDSource(fn func() uuid.UUID) *Registry {
	r.newID = fn
	return r
}

func (r *Registry) add(e *Entity) *Entity {
	if e.ID == uuid.Nil {
		e.ID = r.newID()
	}
	r.nextSeq++
	e.seq = r.nextSeq
	r.byID[e.ID] = e
	return e
}

func (r *Registry) SpawnLiving(pos mgl64.Vec3, health int) *Entity {
	return r.add(&Entity{Kind: Living, Pos: pos, Rot: mgl64.QuatIdent(), Health: health})
}

// SpawnItem places an item entity with the given rotation and initial impulse.
func (r *Registry) SpawnItem(stack model.ItemStack, pos mgl64.Vec3, rot mgl64.Quat, impulse mgl64.Vec3) *Entity {
	return r.add(&Entity{Kind: Item, Pos: pos, Rot: rot, Vel: impulse, Stack: stack})
}

func (r *Registry) Get(id uuid.UUID) (*Entity, bool) {
	e, ok := r.byID[id]
	return e, ok
}

func (r *Registry) Len() int { return len(r.byID) }

// All lists live entities in spawn order.
func (r *Registry) All() []*Entity {
	out := make([]*Entity, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Overlap returns entities whose position lies within radius of center, in spawn order.
func (r *Registry) Overlap(center mgl64.Vec3, radius float64) []*Entity {
	var out []*Entity
	r2 := radius * radius
	for _, e := range r.All() {
		d := e.Pos.Sub(center)
		if d.Dot(d) <= r2 {
			out = append(out, e)
		}
	}
	return out
}

// Damage lowers a living entity's health and kills it at zero.
func (r *Registry) Damage(id uuid.UUID, amount int) error {
	e, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("damage %s: %w", id, ErrNotFound)
	}
	if e.Kind != Living {
		return r.Kill(id)
	}
	e.Health -= amount
	if e.Health <= 0 {
		return r.Kill(id)
	}
	return nil
}

func (r *Registry) Kill(id uuid.UUID) error {
	e, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("kill %s: %w", id, ErrNotFound)
	}
	e.Dead = true
	delete(r.byID, id)
	return nil
}

// Step ages every entity and integrates item velocity with simple drag.
func (r *Registry) Step(dt float64) {
	for _, e := range r.byID {
		e.Age++
		if e.Kind == Item && e.Vel.Len() > 0 {
			e.Pos = e.Pos.Add(e.Vel.Mul(dt))
			e.Vel = e.Vel.Mul(0.8)
			if e.Vel.Len() < 1e-3 {
				e.Vel = mgl64.Vec3{}
			}
		}
	}
}

// RandomRotation builds a yaw rotation from a uniform draw in [0,1).
func RandomRotation(u float64) mgl64.Quat {
	return mgl64.QuatRotate(u*2*math.Pi, mgl64.Vec3{0, 1, 0})
}
