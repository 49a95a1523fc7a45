// Package evaluate scores agreement between two label volumes covering
// the same bounding box — the "rand"/"vi"/"count" metrics
// EvaluateSeg.py reports, reduced to the voxel-count contingency table
// the stitching engine already builds for boundary reconciliation.
package evaluate

import (
	"math"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/internal/errs"
)

// Contingency counts co-occurring (ground-truth label, test label)
// voxel pairs across two aligned walls.
type Contingency map[[2]uint64]int64

// Build walks gt and test brick-by-brick (they must share identical
// logical boxes — callers align grids before calling Build, same
// precondition as stitch.CoOccurrenceCounts) and accumulates voxel
// co-occurrence counts.
func Build(gt, test *brick.Wall) (Contingency, error) {
	c := make(Contingency)
	gtBricks := gt.Bricks()
	testBricks := test.Bricks()

	for key, gb := range gtBricks {
		tb, ok := testBricks[key]
		if !ok {
			continue
		}
		if gb.Volume.DType != brick.Uint64 || tb.Volume.DType != brick.Uint64 {
			return nil, errs.New(errs.Validation, "evaluate.Build requires Uint64 label volumes")
		}
		shape := gb.Volume.Shape
		if shape != tb.Volume.Shape {
			return nil, errs.New(errs.Validation, "evaluate.Build requires matching brick shapes")
		}
		for z := int64(0); z < shape[0]; z++ {
			for y := int64(0); y < shape[1]; y++ {
				for x := int64(0); x < shape[2]; x++ {
					pair := [2]uint64{gb.Volume.GetUint64(z, y, x), tb.Volume.GetUint64(z, y, x)}
					c[pair]++
				}
			}
		}
	}
	return c, nil
}

func comb2(n int64) int64 {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// RandIndex computes the classic (unadjusted) Rand index: the fraction
// of voxel pairs on which gt and test agree, counting both
// same-label-in-both and different-label-in-both pairs as agreement.
func (c Contingency) RandIndex() float64 {
	rowSums := make(map[uint64]int64)
	colSums := make(map[uint64]int64)
	var total, sumPairs int64

	for pair, n := range c {
		rowSums[pair[0]] += n
		colSums[pair[1]] += n
		total += n
		sumPairs += comb2(n)
	}
	if total < 2 {
		return 1
	}

	var sumRow, sumCol int64
	for _, n := range rowSums {
		sumRow += comb2(n)
	}
	for _, n := range colSums {
		sumCol += comb2(n)
	}

	totalPairs := comb2(total)
	agree := sumPairs + (totalPairs - sumRow - sumCol + sumPairs)
	return float64(agree) / float64(totalPairs)
}

// VariationOfInformation computes VI(gt, test) = H(gt|test) + H(test|gt)
// in bits, the information-theoretic split/merge metric EvaluateSeg.py's
// "vi" plugin reports.
func (c Contingency) VariationOfInformation() float64 {
	rowSums := make(map[uint64]int64)
	colSums := make(map[uint64]int64)
	var total int64

	for pair, n := range c {
		rowSums[pair[0]] += n
		colSums[pair[1]] += n
		total += n
	}
	if total == 0 {
		return 0
	}
	n := float64(total)

	var hGivenTest, hGivenGT float64
	for pair, count := range c {
		pij := float64(count) / n
		if pij == 0 {
			continue
		}
		pi := float64(rowSums[pair[0]]) / n
		pj := float64(colSums[pair[1]]) / n
		hGivenTest -= pij * log2(pij/pj)
		hGivenGT -= pij * log2(pij/pi)
	}
	return hGivenTest + hGivenGT
}

func log2(x float64) float64 {
	return math.Log(x) / math.Ln2
}

// LabelCounts reduces the contingency table to per-ground-truth-label
// voxel counts — the "count" plugin's per-body aggregate.
func (c Contingency) LabelCounts() map[uint64]int64 {
	out := make(map[uint64]int64)
	for pair, n := range c {
		out[pair[0]] += n
	}
	return out
}
