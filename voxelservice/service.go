// Package voxelservice defines the VoxelService capability: the narrow
// contract external collaborators (DVID, N5, Zarr, HDF5, BrainMaps
// readers/writers) implement, and that the core consumes abstractly.
// Concrete backends are out of scope (spec.md §1); this package only
// specifies the interface, a retry decorator, and an in-memory test
// double.
package voxelservice

import (
	"context"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
)

// VoxelService reads axis-aligned rectangular regions of voxels at a
// chosen scale. The core does not construct a client per partition:
// partition.FromVolumeService and the pipeline's parallel writes share
// one VoxelService value across all of their worker goroutines, so its
// methods are called concurrently.
type VoxelService interface {
	BoundingBox() geom.Box
	// PreferredMessageShape suggests a brick shape, possibly different
	// from the service's own block_shape.
	PreferredMessageShape() geom.Vec3u32
	BlockWidth() uint32
	AvailableScales() map[uint8]struct{}
	// GetSubvolume reads a rectangular region at scale. Failures are
	// tagged with errs.OutOfBounds-equivalent (errs.Validation),
	// errs.Validation for ScaleUnavailable, or errs.Transient for
	// retry-eligible failures.
	GetSubvolume(ctx context.Context, box geom.Box, scale uint8) (*brick.Buffer, error)
}

// Writer is the subset of VoxelService capable of persisting data. Not
// every backend implements it (read-only sources don't).
type Writer interface {
	VoxelService
	// WriteSubvolume must be idempotent at block granularity when the
	// service is block-aligned (spec.md §9, "Idempotent writes").
	WriteSubvolume(ctx context.Context, buf *brick.Buffer, origin geom.Vec3, scale uint8) error
}

// Creator is implemented by writer backends that support lazy dataset
// creation and extent growth (spec.md §6, "create_if_necessary",
// "update_extents").
type Creator interface {
	Writer
	CreateIfNecessary(ctx context.Context) error
	UpdateExtents(ctx context.Context, box geom.Box) error
}
