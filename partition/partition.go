// Package partition implements the re-grid engine: splitting bricks from
// a source grid onto a target grid's boxes, shuffling the fragments by
// key, and assembling each group into a brick on the new grid
// (spec.md §4.P).
package partition

import (
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/internal/errs"
)

// fragment is one piece of a source brick destined for a single new
// logical box.
type fragment struct {
	logicalBox  geom.Box
	physicalBox geom.Box
	volume      *brick.Buffer
}

// Realign re-grids wall onto targetGrid, producing a new Wall whose
// bricks contain the union of the source voxel data with no
// duplication (spec.md §4.P). Split and assemble run in parallel across
// bricks/groups; the group (shuffle) stage is an in-process map, the
// single-node equivalent of a hash-partitioned distributed shuffle
// (spec.md §9).
func Realign(wall *brick.Wall, targetGrid geom.Grid, parallelism int) (*brick.Wall, error) {
	if err := wall.PersistAndExecute(); err != nil {
		return nil, err
	}
	srcBricks := wall.Bricks()

	fragments, err := split(srcBricks, targetGrid, parallelism)
	if err != nil {
		return nil, err
	}

	groups := group(fragments)

	assembled, err := assemble(groups, targetGrid, parallelism)
	if err != nil {
		return nil, err
	}

	return brick.NewPersisted(wall.BoundingBox, targetGrid, assembled)
}

// split enumerates, for every source brick B, the target-grid boxes
// boxes_from_grid(B.PhysicalBox, targetGrid) and emits one fragment per
// non-empty intersection (spec.md §4.P, "Split").
func split(srcBricks map[geom.Vec3]*brick.Brick, targetGrid geom.Grid, parallelism int) ([]fragment, error) {
	keys := make([]geom.Vec3, 0, len(srcBricks))
	for k := range srcBricks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessVec3(keys[i], keys[j]) })

	var mu sync.Mutex
	var fragments []fragment

	g := newGroup(parallelism)
	for _, k := range keys {
		b := srcBricks[k]
		g.Go(func() error {
			frags, err := splitOne(b, targetGrid)
			if err != nil {
				return err
			}
			mu.Lock()
			fragments = append(fragments, frags...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fragments, nil
}

func splitOne(b *brick.Brick, targetGrid geom.Grid) ([]fragment, error) {
	if b.IsEmpty() {
		return nil, nil // source brick intersects no new grid blocks
	}
	newBoxes := geom.BoxesFromGrid(b.PhysicalBox, targetGrid)
	out := make([]fragment, 0, len(newBoxes))
	for _, newLogical := range newBoxes {
		splitBox := geom.Intersection(newLogical, b.PhysicalBox)
		if splitBox.IsEmpty() {
			continue
		}
		rel := splitBox.Start.Sub(b.PhysicalBox.Start)
		var vol *brick.Buffer
		if splitBox == b.PhysicalBox {
			vol = b.Volume // zero-copy fast path: whole brick fits in one new box
		} else {
			vol = b.Volume.SubBuffer(rel, splitBox.Shape())
		}
		out = append(out, fragment{logicalBox: newLogical, physicalBox: splitBox, volume: vol})
	}
	return out, nil
}

// group shuffles fragments by their target logical box — the
// hash-partition-and-collect step (spec.md §9, "Distributed shuffle
// semantics").
func group(fragments []fragment) map[geom.Box][]fragment {
	groups := make(map[geom.Box][]fragment)
	for _, f := range fragments {
		groups[f.logicalBox] = append(groups[f.logicalBox], f)
	}
	return groups
}

// assemble combines each group's fragments into one brick on the new
// grid (spec.md §4.P, "Assemble").
func assemble(groups map[geom.Box][]fragment, targetGrid geom.Grid, parallelism int) (map[geom.Vec3]*brick.Brick, error) {
	logicalBoxes := make([]geom.Box, 0, len(groups))
	for lb := range groups {
		logicalBoxes = append(logicalBoxes, lb)
	}
	sort.Slice(logicalBoxes, func(i, j int) bool { return lessVec3(logicalBoxes[i].Start, logicalBoxes[j].Start) })

	var mu sync.Mutex
	out := make(map[geom.Vec3]*brick.Brick, len(groups))

	g := newGroup(parallelism)
	for _, lb := range logicalBoxes {
		frags := groups[lb]
		g.Go(func() error {
			b, err := assembleOne(lb, frags, targetGrid)
			if err != nil {
				return err
			}
			if b == nil {
				return nil
			}
			mu.Lock()
			out[lb.Start] = b
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func assembleOne(logicalBox geom.Box, frags []fragment, targetGrid geom.Grid) (*brick.Brick, error) {
	if len(frags) == 0 {
		return nil, nil
	}
	for _, f := range frags {
		if f.logicalBox != logicalBox {
			return nil, errs.Newf(errs.AssemblyMismatch, "fragment logical box %v != group key %v", f.logicalBox, logicalBox)
		}
	}

	finalMin := frags[0].physicalBox.Start
	finalMax := frags[0].physicalBox.Stop
	for _, f := range frags[1:] {
		finalMin = finalMin.Min(f.physicalBox.Start)
		finalMax = finalMax.Max(f.physicalBox.Stop)
	}
	finalBox := geom.Box{Start: finalMin, Stop: finalMax}
	if !logicalBox.Contains(finalBox) {
		return nil, errs.Newf(errs.Geometry, "assembled physical box %v exceeds logical box %v", finalBox, logicalBox)
	}

	if len(frags) == 1 && frags[0].physicalBox == finalBox {
		// zero-copy fast path: a single fragment already spans the
		// assembled box.
		return brick.New(logicalBox, finalBox, frags[0].volume, targetGrid)
	}

	vol := brick.NewBuffer(finalBox.Shape(), frags[0].volume.DType)
	for _, f := range frags {
		rel := f.physicalBox.Start.Sub(finalBox.Start)
		vol.BlitFrom(f.volume, rel)
	}
	return brick.New(logicalBox, finalBox, vol, targetGrid)
}

func lessVec3(a, b geom.Vec3) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}

func newGroup(parallelism int) *errgroup.Group {
	g := new(errgroup.Group)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	return g
}
