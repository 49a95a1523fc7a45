package voxelservice

import (
	"context"
	"sync"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/internal/errs"
)

// Memory is an in-process, map-backed VoxelService/Writer used purely as
// a test double for the rest of this module's suites. It is not a
// production backend and implements no wire protocol of its own
// (spec.md §1 excludes authoring new wire protocols).
type Memory struct {
	mu sync.Mutex

	boundingBox   geom.Box
	messageShape  geom.Vec3u32
	blockWidth    uint32
	scales        map[uint8]struct{}
	dtype         brick.DType
	data          map[uint8]*brick.Buffer // one dense buffer per scale, rooted at boundingBox.Start
	failNextCalls int                     // when > 0, GetSubvolume/WriteSubvolume returns Transient and decrements
}

// NewMemory builds a Memory service pre-seeded with buf as the full
// content of boundingBox at scale 0.
func NewMemory(boundingBox geom.Box, messageShape geom.Vec3u32, blockWidth uint32, buf *brick.Buffer) *Memory {
	return &Memory{
		boundingBox:  boundingBox,
		messageShape: messageShape,
		blockWidth:   blockWidth,
		scales:       map[uint8]struct{}{0: {}},
		dtype:        buf.DType,
		data:         map[uint8]*brick.Buffer{0: buf},
	}
}

func (m *Memory) BoundingBox() geom.Box                    { return m.boundingBox }
func (m *Memory) PreferredMessageShape() geom.Vec3u32       { return m.messageShape }
func (m *Memory) BlockWidth() uint32                        { return m.blockWidth }
func (m *Memory) AvailableScales() map[uint8]struct{}        { return m.scales }

// AddScale registers a precomputed buffer for an additional pyramid
// scale (e.g. a downsampled copy), so tests can exercise
// pyramid-source=copy against a service that already has scale>0 data.
func (m *Memory) AddScale(scale uint8, buf *brick.Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scales[scale] = struct{}{}
	m.data[scale] = buf
}

// FailNext makes the next n GetSubvolume/WriteSubvolume calls return a
// Transient error, exercising the retry wrapper.
func (m *Memory) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNextCalls = n
}

func (m *Memory) consumeFailure() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNextCalls > 0 {
		m.failNextCalls--
		return true
	}
	return false
}

func (m *Memory) GetSubvolume(ctx context.Context, box geom.Box, scale uint8) (*brick.Buffer, error) {
	if m.consumeFailure() {
		return nil, errs.New(errs.Transient, "simulated transient failure")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scales[scale]; !ok {
		return nil, errs.Newf(errs.Validation, "scale %d unavailable", scale)
	}
	root, ok := m.data[scale]
	if !ok {
		return nil, errs.Newf(errs.Validation, "scale %d unavailable", scale)
	}
	scaleBox := scaledBox(m.boundingBox, scale)
	if !scaleBox.Contains(box) {
		return nil, errs.Newf(errs.Validation, "box %v out of bounds %v at scale %d", box, scaleBox, scale)
	}
	rel := box.Start.Sub(scaleBox.Start)
	return root.SubBuffer(rel, box.Shape()), nil
}

func (m *Memory) WriteSubvolume(ctx context.Context, buf *brick.Buffer, origin geom.Vec3, scale uint8) error {
	if m.consumeFailure() {
		return errs.New(errs.Transient, "simulated transient failure")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	root, ok := m.data[scale]
	if !ok {
		root = brick.NewBuffer(scaledBox(m.boundingBox, scale).Shape(), m.dtype)
		m.data[scale] = root
		m.scales[scale] = struct{}{}
	}
	scaleBox := scaledBox(m.boundingBox, scale)
	rel := origin.Sub(scaleBox.Start)
	root.BlitFrom(buf, rel)
	return nil
}

// scaledBox halves the bounding box's extent per scale level, matching
// the usual 2x-per-scale pyramid convention.
func scaledBox(box geom.Box, scale uint8) geom.Box {
	start := box.Start
	stop := box.Stop
	for i := uint8(0); i < scale; i++ {
		start = geom.Vec3{start[0] / 2, start[1] / 2, start[2] / 2}
		stop = geom.Vec3{stop[0] / 2, stop[1] / 2, stop[2] / 2}
	}
	return geom.Box{Start: start, Stop: stop}
}

var (
	_ VoxelService = (*Memory)(nil)
	_ Writer       = (*Memory)(nil)
)
