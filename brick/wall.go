package brick

import (
	"sync"

	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/internal/errs"
)

// materializationState tracks whether a Wall's bricks have been computed
// yet (spec.md data model, "BrickWall": lazy vs persisted).
type materializationState int

const (
	lazy materializationState = iota
	persisted
)

// Key identifies a brick within a Wall by its logical box origin — the
// grid block index coordinate, not the block's own block-index vector,
// so two walls on different grids never collide by accident.
type Key = geom.Vec3

// Wall is a distributed collection of bricks covering BoundingBox on
// Grid. Invariant: every brick's LogicalBox lies on Grid and intersects
// BoundingBox; no two bricks share a LogicalBox (spec.md §8 P7).
type Wall struct {
	BoundingBox geom.Box
	Grid        geom.Grid

	mu     sync.RWMutex
	state  materializationState
	bricks map[Key]*Brick

	// build, when state == lazy, recomputes bricks on demand.
	// PersistAndExecute calls it while holding the write lock, so it
	// never runs concurrently with itself.
	build func() (map[Key]*Brick, error)
}

// NewEmpty returns a Wall with no bricks, already persisted — the base
// case for Map/FlatMap accumulation.
func NewEmpty(boundingBox geom.Box, grid geom.Grid) *Wall {
	return &Wall{
		BoundingBox: boundingBox,
		Grid:        grid,
		state:       persisted,
		bricks:      make(map[Key]*Brick),
	}
}

// NewLazy returns a Wall whose bricks are computed by build on first
// PersistAndExecute call.
func NewLazy(boundingBox geom.Box, grid geom.Grid, build func() (map[Key]*Brick, error)) *Wall {
	return &Wall{BoundingBox: boundingBox, Grid: grid, state: lazy, build: build}
}

// NewPersisted returns an already-materialized Wall over the given
// bricks, validating the no-duplicate-logical-box invariant (P7) up
// front. Used by components — the partition and halo engines, mainly —
// that compute a complete brick set eagerly rather than lazily.
func NewPersisted(boundingBox geom.Box, grid geom.Grid, bricks map[Key]*Brick) (*Wall, error) {
	if err := validateNoDuplicateLogicalBox(bricks); err != nil {
		return nil, err
	}
	return &Wall{BoundingBox: boundingBox, Grid: grid, state: persisted, bricks: bricks}, nil
}

// PersistAndExecute forces computation of every brick and caches the
// result. Idempotent: a second call is a no-op (spec.md data model,
// "persist_and_execute is idempotent").
func (w *Wall) PersistAndExecute() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == persisted {
		return nil
	}
	bricks, err := w.build()
	if err != nil {
		return err
	}
	if err := validateNoDuplicateLogicalBox(bricks); err != nil {
		return err
	}
	w.bricks = bricks
	w.state = persisted
	return nil
}

// Unpersist releases the cached brick set, reverting to lazy. The build
// closure must still be present (captured at construction); calling
// Unpersist on a Wall built from NewEmpty or whose bricks were replaced
// via Map has no recomputation path and simply drops the cache.
func (w *Wall) Unpersist() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bricks = nil
	if w.build != nil {
		w.state = lazy
	}
}

// Bricks returns the persisted brick set. Callers must call
// PersistAndExecute first; Bricks on a lazy Wall returns an empty map.
func (w *Wall) Bricks() map[Key]*Brick {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[Key]*Brick, len(w.bricks))
	for k, v := range w.bricks {
		out[k] = v
	}
	return out
}

// Len reports the number of persisted bricks.
func (w *Wall) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.bricks)
}

func validateNoDuplicateLogicalBox(bricks map[Key]*Brick) error {
	seen := make(map[geom.Box]struct{}, len(bricks))
	for _, b := range bricks {
		if _, ok := seen[b.LogicalBox]; ok {
			return errs.Newf(errs.Geometry, "duplicate logical box %v in wall", b.LogicalBox)
		}
		seen[b.LogicalBox] = struct{}{}
	}
	return nil
}

// Map applies f to every brick, preserving the Wall's grid: each
// resulting brick keeps the same logical box as its source.
func (w *Wall) Map(f func(*Brick) (*Brick, error)) (*Wall, error) {
	if err := w.PersistAndExecute(); err != nil {
		return nil, err
	}
	src := w.Bricks()
	out := make(map[Key]*Brick, len(src))
	for k, b := range src {
		nb, err := f(b)
		if err != nil {
			return nil, err
		}
		if nb == nil {
			continue // Skippable: dropped
		}
		if nb.LogicalBox != b.LogicalBox {
			return nil, errs.New(errs.Geometry, "Map must preserve logical box; use FlatMap to re-key")
		}
		out[k] = nb
	}
	result := NewEmpty(w.BoundingBox, w.Grid)
	result.bricks = out
	return result, nil
}

// FlatMap applies f to every brick, producing zero or more (key, brick)
// pairs on a caller-supplied target grid. Used by the partition engine's
// split stage, which re-keys fragments onto a new grid.
func (w *Wall) FlatMap(targetGrid geom.Grid, f func(*Brick) ([]KeyedBrick, error)) (*Wall, error) {
	if err := w.PersistAndExecute(); err != nil {
		return nil, err
	}
	src := w.Bricks()
	out := make(map[Key]*Brick)
	for _, b := range src {
		pairs, err := f(b)
		if err != nil {
			return nil, err
		}
		for _, kb := range pairs {
			out[kb.Key] = kb.Brick
		}
	}
	result := NewEmpty(w.BoundingBox, targetGrid)
	result.bricks = out
	return result, nil
}

// KeyedBrick pairs a shuffle key with the fragment or assembled brick
// that was emitted under it.
type KeyedBrick struct {
	Key   Key
	Brick *Brick
}
