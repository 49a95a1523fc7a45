// Package pipeline assembles the bricked volume partitioning engine's
// components into a single driver-side run: per §5's ordering
// guarantee, pad -> remap -> downsample -> write, over a slab.Runner.
// This is the thin equivalent of the teacher's App/Module/Commands
// bootstrap (app.go, commands.go, app_builder.go): a builder wires
// components once, then Run(ctx) drives slabs sequentially.
package pipeline

import (
	"github.com/google/uuid"

	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/internal/config"
	"github.com/aplbrain/flyemflows/internal/errs"
	"github.com/aplbrain/flyemflows/internal/logging"
	"github.com/aplbrain/flyemflows/internal/stats"
	"github.com/aplbrain/flyemflows/labelmap"
	"github.com/aplbrain/flyemflows/voxelservice"
)

// Builder accumulates the components a Pipeline needs before Build
// validates them together. Mirrors the teacher's NewApp().UseModules()
// chain: each Use* method returns the receiver for chaining.
type Builder struct {
	cfg    *config.Config
	logger logging.Logger

	source voxelservice.VoxelService
	sink   voxelservice.Writer

	retry voxelservice.RetryConfig

	statsWriter *stats.Writer
	labelMapper *labelmap.Mapper

	maskCenter *geom.Vec3
	maskRadius float64

	parallelismHint    int
	voxelsPerPartition int64
}

// NewBuilder returns a Builder with spec.md defaults: retry policy from
// voxelservice.DefaultRetryConfig, parallelism hint of 1 (callers
// should set it from the job's worker count).
func NewBuilder() *Builder {
	return &Builder{
		retry:           voxelservice.DefaultRetryConfig(),
		parallelismHint: 1,
	}
}

func (b *Builder) UseConfig(cfg *config.Config) *Builder {
	b.cfg = cfg
	return b
}

func (b *Builder) UseLogger(l logging.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) UseSource(svc voxelservice.VoxelService) *Builder {
	b.source = svc
	return b
}

func (b *Builder) UseSink(w voxelservice.Writer) *Builder {
	b.sink = w
	return b
}

func (b *Builder) UseRetry(cfg voxelservice.RetryConfig) *Builder {
	b.retry = cfg
	return b
}

func (b *Builder) UseStats(w *stats.Writer) *Builder {
	b.statsWriter = w
	return b
}

func (b *Builder) UseLabelMapper(m *labelmap.Mapper) *Builder {
	b.labelMapper = m
	return b
}

// UseSphereMask configures scenario S3's ROI mask: voxels farther than
// radius from center (global voxel coordinates) are zeroed, and bricks
// lying entirely outside the sphere are dropped rather than written.
func (b *Builder) UseSphereMask(center geom.Vec3, radius float64) *Builder {
	b.maskCenter = &center
	b.maskRadius = radius
	return b
}

func (b *Builder) UseParallelism(hint int, voxelsPerPartition int64) *Builder {
	b.parallelismHint = hint
	b.voxelsPerPartition = voxelsPerPartition
	return b
}

// Build validates the accumulated configuration and wires the retry
// decorator around source and sink, returning a ready-to-run Pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if b.cfg == nil {
		return nil, errs.New(errs.Validation, "pipeline: config is required")
	}
	if b.source == nil {
		return nil, errs.New(errs.Validation, "pipeline: source is required")
	}
	if b.sink == nil {
		return nil, errs.New(errs.Validation, "pipeline: sink is required")
	}

	b.cfg.OutputBrickWidth = int64(b.sink.BlockWidth())
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Nop{}
	}

	source := voxelservice.WithRetry(b.source, b.retry)
	sinkSvc := voxelservice.WithRetry(b.sink, b.retry)
	sink, ok := sinkSvc.(voxelservice.Writer)
	if !ok {
		return nil, errs.New(errs.Validation, "pipeline: sink does not implement Writer after wrapping")
	}

	return &Pipeline{
		RunID:              uuid.NewString(),
		cfg:                b.cfg,
		logger:             logger,
		source:             source,
		sink:               sink,
		statsWriter:        b.statsWriter,
		labelMapper:        b.labelMapper,
		maskCenter:         b.maskCenter,
		maskRadius:         b.maskRadius,
		parallelismHint:    b.parallelismHint,
		voxelsPerPartition: b.voxelsPerPartition,
	}, nil
}
