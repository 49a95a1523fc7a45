package stitch

import (
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/labelmap"
)

// RegionBrick pairs a subvolume's descriptor with its locally-labeled
// brick.
type RegionBrick struct {
	Region Region
	Brick  *brick.Brick
}

// Result is the driver-broadcast output of Reconcile: the per-region
// offset map and the global merge mapper (spec.md §4.S step 7,
// "broadcast the final remap"). ApplyOffset then Mapper.Apply (with
// allow_unmapped=true) together implement step 8's relabel.
type Result struct {
	Offsets map[uint32]uint64
	Mapper  *labelmap.Mapper
}

// Reconcile runs the full boundary-reconciliation pipeline (spec.md
// §4.S) over a set of independently-segmented subvolumes: global
// offsetting, boundary extraction, shuffle+group, local reconciliation,
// candidate merges, and global union-find. Extraction runs in parallel
// across subvolumes; everything after the shuffle barrier is driver-side
// (spec.md §5: collect/broadcast are barriers).
func Reconcile(subvolumes []RegionBrick, mode Mode, parallelism int) (*Result, error) {
	regions := make([]Region, len(subvolumes))
	for i, s := range subvolumes {
		regions[i] = s.Region
	}
	offsets := ComputeOffsets(regions)

	if mode == ModeNone {
		m, err := labelmap.New(nil, nil)
		if err != nil {
			return nil, err
		}
		return &Result{Offsets: offsets, Mapper: m}, nil
	}

	allSlabs, err := extractAll(subvolumes, parallelism)
	if err != nil {
		return nil, err
	}

	groups := GroupBoundaries(allSlabs)
	pairs, err := PairGroups(groups)
	if err != nil {
		return nil, err
	}

	keys := make([]PairKey, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Lo != keys[j].Lo {
			return keys[i].Lo < keys[j].Lo
		}
		return keys[i].Hi < keys[j].Hi
	})

	var edges []Edge
	for _, k := range keys {
		pair := pairs[k]
		counts, err := CoOccurrenceCounts(pair)
		if err != nil {
			return nil, err
		}
		edges = append(edges, CandidateMerges(counts, offsets[k.Lo], offsets[k.Hi], mode)...)
	}

	remap := GlobalMerge(edges)
	domain := make([]uint64, 0, len(remap))
	codomain := make([]uint64, 0, len(remap))
	for d, c := range remap {
		domain = append(domain, d)
		codomain = append(codomain, c)
	}
	m, err := labelmap.New(domain, codomain)
	if err != nil {
		return nil, err
	}
	return &Result{Offsets: offsets, Mapper: m}, nil
}

// extractAll runs ExtractBoundary over every subvolume in parallel.
func extractAll(subvolumes []RegionBrick, parallelism int) ([]BoundarySlab, error) {
	var mu sync.Mutex
	var out []BoundarySlab

	g := new(errgroup.Group)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for _, sv := range subvolumes {
		sv := sv
		g.Go(func() error {
			slabs := ExtractBoundary(sv.Region, sv.Brick.Volume, sv.Brick.PhysicalBox)
			mu.Lock()
			out = append(out, slabs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
