package slab

import (
	"context"
	"testing"

	"github.com/aplbrain/flyemflows/geom"
	"github.com/stretchr/testify/require"
)

func TestDecompose_contiguousAndIndexed(t *testing.T) {
	box := geom.Box{Start: geom.Vec3{0, 0, 0}, Stop: geom.Vec3{100, 8, 8}}
	slabs := Decompose(box, 32, geom.AxisZ)
	require.Len(t, slabs, 4) // 32,32,32,4

	for i, s := range slabs {
		require.Equal(t, i, s.Index)
	}
	require.Equal(t, int64(0), slabs[0].Box.Start[0])
	require.Equal(t, int64(100), slabs[3].Box.Stop[0])
}

func TestCheckpoint_skipsCompletedSlabsAndScales(t *testing.T) {
	c := Checkpoint{Scale: 2, SlabIndex: 3}
	require.True(t, c.Skip(0, 0))
	require.True(t, c.Skip(3, 0))
	require.True(t, c.Skip(3, 2))
	require.False(t, c.Skip(3, 3))
	require.False(t, c.Skip(4, 0))
}

type event struct {
	slabIndex int
	scale     uint8
}

// TestRunner_sequentialOrder verifies the iterator visits slabs in
// index order, and within a slab, scales in ascending order.
func TestRunner_sequentialOrder(t *testing.T) {
	slabs := []Slab{{Index: 0}, {Index: 1}, {Index: 2}}
	r := &Runner{Slabs: slabs, MinScale: 0, MaxScale: 2}

	var events []event
	err := r.Run(context.Background(), func(_ context.Context, s Slab, scale uint8) error {
		events = append(events, event{slabIndex: s.Index, scale: scale})
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 9)
	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		require.True(t, cur.slabIndex > prev.slabIndex || (cur.slabIndex == prev.slabIndex && cur.scale > prev.scale))
	}
}

// TestRunner_resumesFromCheckpoint is scenario S5: a run resumed with a
// checkpoint skips already-completed (slab, scale) pairs.
func TestRunner_resumesFromCheckpoint(t *testing.T) {
	slabs := []Slab{{Index: 0}, {Index: 1}, {Index: 2}}
	r := &Runner{
		Slabs:      slabs,
		MinScale:   0,
		MaxScale:   1,
		Checkpoint: Checkpoint{Scale: 1, SlabIndex: 1},
	}

	var events []event
	err := r.Run(context.Background(), func(_ context.Context, s Slab, scale uint8) error {
		events = append(events, event{slabIndex: s.Index, scale: scale})
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []event{{slabIndex: 2, scale: 0}, {slabIndex: 2, scale: 1}}, events)
}

func TestRunner_stopsOnFirstError(t *testing.T) {
	slabs := []Slab{{Index: 0}, {Index: 1}}
	r := &Runner{Slabs: slabs, MinScale: 0, MaxScale: 0}

	calls := 0
	err := r.Run(context.Background(), func(_ context.Context, s Slab, scale uint8) error {
		calls++
		if s.Index == 0 {
			return context.Canceled
		}
		return nil
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestRunner_recordsCheckpointAfterEachTask(t *testing.T) {
	slabs := []Slab{{Index: 0}, {Index: 1}}
	var recorded []Checkpoint
	r := &Runner{
		Slabs:        slabs,
		MinScale:     0,
		MaxScale:     0,
		OnCheckpoint: func(c Checkpoint) { recorded = append(recorded, c) },
	}
	err := r.Run(context.Background(), func(context.Context, Slab, uint8) error { return nil })
	require.NoError(t, err)
	require.Equal(t, []Checkpoint{{Scale: 0, SlabIndex: 0}, {Scale: 0, SlabIndex: 1}}, recorded)
}
