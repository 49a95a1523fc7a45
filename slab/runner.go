package slab

import "context"

// Task processes one slab at one pyramid scale. Across bricks within a
// task, order is unconstrained (spec.md §5); across scales and slabs,
// Runner enforces the strict sequencing itself.
type Task func(ctx context.Context, s Slab, scale uint8) error

// Runner drives Slabs sequentially, low scale to high within each
// slab, skipping work already recorded in Checkpoint — the single-node
// equivalent of the teacher's strictly-ordered stage sequence (carried
// as an owned slice, never mutated mid-run).
type Runner struct {
	Slabs              []Slab
	MinScale, MaxScale uint8
	// Checkpoint is the progress of a prior run. The zero Checkpoint
	// means no prior progress: Run then skips nothing.
	Checkpoint Checkpoint

	// OnCheckpoint, if set, is called after each (slab, scale) task
	// completes successfully, so the caller can persist resumability
	// state incrementally rather than only at the end of a run.
	OnCheckpoint func(Checkpoint)
}

// Run executes task over every (slab, scale) pair not already covered
// by r.Checkpoint, in strict slab-then-scale order. The next slab
// begins only after the previous slab's writes are acknowledged
// (spec.md §5, "across slabs: strictly sequential"); Run returns on the
// first error, per task's own cancellation contract.
func (r *Runner) Run(ctx context.Context, task Task) error {
	for _, s := range r.Slabs {
		for scale := r.MinScale; scale <= r.MaxScale; scale++ {
			if r.Checkpoint != (Checkpoint{}) && r.Checkpoint.Skip(s.Index, scale) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := task(ctx, s, scale); err != nil {
				return err
			}
			if r.OnCheckpoint != nil {
				r.OnCheckpoint(Checkpoint{Scale: scale, SlabIndex: s.Index})
			}
		}
	}
	return nil
}
