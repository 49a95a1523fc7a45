// Package labelmap implements the label remapper: applying a
// domain→codomain relabeling to segmentation bricks (spec.md §4.M).
// The in-memory table shape mirrors DVID's own merge/split bookkeeping
// (a flat map[uint64]uint64), not a general graph structure — labelmap
// operations are bulk substitutions, never graph traversals.
package labelmap

import (
	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/internal/errs"
)

// Mapper is an immutable domain→codomain label relabeling, safe for
// concurrent use by multiple worker goroutines (spec.md §5: read-only
// state broadcast by value).
type Mapper struct {
	table map[uint64]uint64
}

// New builds a Mapper from parallel domain/codomain slices. Returns
// AmbiguousLabelMap if domain contains a repeated label (spec.md §4.M
// invariant).
func New(domain, codomain []uint64) (*Mapper, error) {
	if len(domain) != len(codomain) {
		return nil, errs.Newf(errs.Validation, "domain length %d != codomain length %d", len(domain), len(codomain))
	}
	table := make(map[uint64]uint64, len(domain))
	for i, d := range domain {
		if _, dup := table[d]; dup {
			return nil, errs.Newf(errs.AmbiguousLabelMap, "label %d appears more than once in domain", d)
		}
		table[d] = codomain[i]
	}
	return &Mapper{table: table}, nil
}

// Lookup returns the mapped label for v and whether v was present in
// the domain.
func (m *Mapper) Lookup(v uint64) (uint64, bool) {
	out, ok := m.table[v]
	return out, ok
}

// Len reports the number of domain entries.
func (m *Mapper) Len() int {
	return len(m.table)
}

// Apply relabels buf in place. If allowUnmapped is false, any voxel
// value absent from the domain is an error (spec.md §4.M,
// "allow_unmapped=false"); otherwise unmapped voxels pass through
// unchanged.
func (m *Mapper) Apply(buf *brick.Buffer, allowUnmapped bool) error {
	if buf.DType != brick.Uint64 {
		return errs.Newf(errs.Validation, "label map requires a Uint64 volume, got %v", buf.DType)
	}
	shape := buf.Shape
	for z := int64(0); z < shape[0]; z++ {
		for y := int64(0); y < shape[1]; y++ {
			for x := int64(0); x < shape[2]; x++ {
				v := buf.GetUint64(z, y, x)
				mapped, ok := m.Lookup(v)
				if !ok {
					if !allowUnmapped {
						return errs.Newf(errs.Validation, "voxel value %d has no entry in label map domain", v)
					}
					continue
				}
				buf.SetUint64(z, y, x, mapped)
			}
		}
	}
	return nil
}

// ApplyToBrick returns a copy of b with its volume relabeled, leaving b
// untouched (spec.md §4.M applies per-brick, preserving the Brick
// exclusive-ownership invariant).
func (m *Mapper) ApplyToBrick(b *brick.Brick, allowUnmapped bool) (*brick.Brick, error) {
	nb := b.Copy()
	if err := m.Apply(nb.Volume, allowUnmapped); err != nil {
		return nil, err
	}
	return nb, nil
}

// ApplyToWall relabels every brick in wall, producing a new Wall on the
// same grid (spec.md §4.M; per-worker mapper reuse is free since Mapper
// is immutable and read-only).
func ApplyToWall(wall *brick.Wall, m *Mapper, allowUnmapped bool) (*brick.Wall, error) {
	return wall.Map(func(b *brick.Brick) (*brick.Brick, error) {
		return m.ApplyToBrick(b, allowUnmapped)
	})
}

// Compose returns the Mapper equivalent to applying first then second
// in sequence: composed(v) == second(first(v)) when first(v) is
// defined, else second(v) directly — the identity that makes applying
// first then second equal to applying Compose(first, second) once
// (spec.md §8 P4).
func Compose(first, second *Mapper) *Mapper {
	table := make(map[uint64]uint64, len(first.table)+len(second.table))
	for d, mid := range first.table {
		if final, ok := second.table[mid]; ok {
			table[d] = final
		} else {
			table[d] = mid
		}
	}
	for d, v := range second.table {
		if _, already := table[d]; !already {
			table[d] = v
		}
	}
	return &Mapper{table: table}
}
