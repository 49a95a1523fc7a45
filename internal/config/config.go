// Package config decodes and validates the job configuration enumerated
// in spec.md §6. Decoding is a thin gopkg.in/yaml.v3 unmarshal; the real
// work is Validate, which enforces every constraint so a bad config
// fails fast at startup (errs.Validation) rather than mid-run.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/internal/errs"
)

// PyramidSource selects how downsampled pyramid levels are produced.
type PyramidSource string

const (
	PyramidCopy           PyramidSource = "copy"
	PyramidCompute        PyramidSource = "compute"
	PyramidComputeAsLabel PyramidSource = "compute-as-labels"
)

// ContrastAdjustment selects a grayscale pre-processing pass.
type ContrastAdjustment string

const (
	ContrastNone            ContrastAdjustment = "none"
	ContrastCLAHE           ContrastAdjustment = "clahe"
	ContrastHotknifeDestripe ContrastAdjustment = "hotknife-destripe"
)

// StitchAlgorithm names a stitch.Mode by its config-facing spelling.
type StitchAlgorithm string

const (
	StitchNone         StitchAlgorithm = "none"
	StitchConservative StitchAlgorithm = "conservative"
	StitchMedium       StitchAlgorithm = "medium"
	StitchAggressive   StitchAlgorithm = "aggressive"
)

// SlabAxis names geom.Axis by its config-facing spelling.
type SlabAxis string

const (
	SlabAxisX SlabAxis = "x"
	SlabAxisY SlabAxis = "y"
	SlabAxisZ SlabAxis = "z"
)

// Geom converts a as its geom.Axis equivalent. Callers must call
// Validate first; Geom does not re-check membership.
func (a SlabAxis) Geom() geom.Axis {
	switch a {
	case SlabAxisX:
		return geom.AxisX
	case SlabAxisY:
		return geom.AxisY
	default:
		return geom.AxisZ
	}
}

// Resume is the `{scale, batch-index}` resume specification from §6,
// carried into a slab.Checkpoint by the pipeline.
type Resume struct {
	Scale      uint8 `yaml:"scale"`
	BatchIndex int   `yaml:"batch-index"`
}

// Config is the job configuration enumerated in spec.md §6.
type Config struct {
	MinPyramidScale    uint8              `yaml:"min-pyramid-scale"`
	MaxPyramidScale    uint8              `yaml:"max-pyramid-scale"`
	PyramidSource      PyramidSource      `yaml:"pyramid-source"`
	SlabDepth          int64              `yaml:"slab-depth"`
	SlabAxis           SlabAxis           `yaml:"slab-axis"`
	StartingSlice      int64              `yaml:"starting-slice"`
	ContrastAdjustment ContrastAdjustment `yaml:"contrast-adjustment"`
	HotknifeSeams      []int64            `yaml:"hotknife-seams"`
	StitchAlgorithm    StitchAlgorithm    `yaml:"stitch-algorithm"`
	Resume             *Resume            `yaml:"resume"`

	// OutputBrickWidth is not itself a §6 key; it is threaded in from the
	// output VoxelService's brick grid so Validate can check slab-depth
	// divisibility without the config package depending on voxelservice.
	OutputBrickWidth int64 `yaml:"-"`
}

// Parse decodes yaml job configuration and validates it.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errs.Wrap(errs.Validation, "decoding config", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate enforces every constraint spec.md §6 enumerates. It returns
// the first violation found, tagged errs.Validation.
func (c *Config) Validate() error {
	if c.MinPyramidScale > 10 {
		return errs.Newf(errs.Validation, "min-pyramid-scale %d out of range [0,10]", c.MinPyramidScale)
	}
	if c.MaxPyramidScale > 10 {
		return errs.Newf(errs.Validation, "max-pyramid-scale %d out of range [0,10]", c.MaxPyramidScale)
	}
	if c.MinPyramidScale > c.MaxPyramidScale {
		return errs.Newf(errs.Validation, "min-pyramid-scale %d exceeds max-pyramid-scale %d", c.MinPyramidScale, c.MaxPyramidScale)
	}

	switch c.PyramidSource {
	case PyramidCopy, PyramidCompute, PyramidComputeAsLabel:
	default:
		return errs.Newf(errs.Validation, "pyramid-source %q not one of copy, compute, compute-as-labels", c.PyramidSource)
	}

	if c.SlabDepth <= 0 {
		return errs.Newf(errs.Validation, "slab-depth %d must be positive", c.SlabDepth)
	}
	if c.OutputBrickWidth > 0 && c.SlabDepth%c.OutputBrickWidth != 0 {
		return errs.Newf(errs.Validation, "slab-depth %d is not a multiple of output brick width %d", c.SlabDepth, c.OutputBrickWidth)
	}

	switch c.SlabAxis {
	case SlabAxisX, SlabAxisY, SlabAxisZ:
	default:
		return errs.Newf(errs.Validation, "slab-axis %q not one of x, y, z", c.SlabAxis)
	}

	if c.StartingSlice%c.SlabDepth != 0 {
		return errs.Newf(errs.Validation, "starting-slice %d is not a multiple of slab-depth %d", c.StartingSlice, c.SlabDepth)
	}

	switch c.ContrastAdjustment {
	case ContrastNone, ContrastCLAHE, ContrastHotknifeDestripe, "":
	default:
		return errs.Newf(errs.Validation, "contrast-adjustment %q not one of none, clahe, hotknife-destripe", c.ContrastAdjustment)
	}

	if len(c.HotknifeSeams) > 0 && c.HotknifeSeams[0] != -1 {
		return errs.Newf(errs.Validation, "hotknife-seams must begin with -1, got %v", c.HotknifeSeams)
	}

	switch c.StitchAlgorithm {
	case StitchNone, StitchConservative, StitchMedium, StitchAggressive, "":
	default:
		return errs.Newf(errs.Validation, "stitch-algorithm %q not one of none, conservative, medium, aggressive", c.StitchAlgorithm)
	}

	if c.Resume != nil {
		if c.Resume.BatchIndex < 0 {
			return errs.Newf(errs.Validation, "resume batch-index %d must be non-negative", c.Resume.BatchIndex)
		}
		if c.Resume.Scale > 10 {
			return errs.Newf(errs.Validation, "resume scale %d out of range [0,10]", c.Resume.Scale)
		}
	}

	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("config{scales:[%d,%d] source:%s slab:%d/%s stitch:%s}",
		c.MinPyramidScale, c.MaxPyramidScale, c.PyramidSource, c.SlabDepth, c.SlabAxis, c.StitchAlgorithm)
}
