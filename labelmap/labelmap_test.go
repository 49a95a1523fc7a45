package labelmap

import (
	"testing"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/internal/errs"
	"github.com/stretchr/testify/require"
)

func TestNew_rejectsDuplicateDomain(t *testing.T) {
	_, err := New([]uint64{1, 2, 1}, []uint64{10, 20, 30})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.AmbiguousLabelMap))
}

func TestApply_remapsKnownLabels(t *testing.T) {
	m, err := New([]uint64{1, 2, 3}, []uint64{100, 200, 300})
	require.NoError(t, err)

	buf := brick.NewBuffer(geom.Vec3{1, 1, 3}, brick.Uint64)
	buf.SetUint64(0, 0, 0, 1)
	buf.SetUint64(0, 0, 1, 2)
	buf.SetUint64(0, 0, 2, 3)

	require.NoError(t, m.Apply(buf, false))
	require.Equal(t, uint64(100), buf.GetUint64(0, 0, 0))
	require.Equal(t, uint64(200), buf.GetUint64(0, 0, 1))
	require.Equal(t, uint64(300), buf.GetUint64(0, 0, 2))
}

func TestApply_rejectsUnmappedWhenDisallowed(t *testing.T) {
	m, err := New([]uint64{1}, []uint64{100})
	require.NoError(t, err)

	buf := brick.NewBuffer(geom.Vec3{1, 1, 1}, brick.Uint64)
	buf.SetUint64(0, 0, 0, 99)

	err = m.Apply(buf, false)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Validation))
}

func TestApply_passesThroughUnmappedWhenAllowed(t *testing.T) {
	m, err := New([]uint64{1}, []uint64{100})
	require.NoError(t, err)

	buf := brick.NewBuffer(geom.Vec3{1, 1, 1}, brick.Uint64)
	buf.SetUint64(0, 0, 0, 99)

	require.NoError(t, m.Apply(buf, true))
	require.Equal(t, uint64(99), buf.GetUint64(0, 0, 0))
}

// TestCompose is property P4: applying m1 then m2 is equivalent to
// applying Compose(m1, m2) once.
func TestCompose(t *testing.T) {
	m1, err := New([]uint64{1, 2, 3}, []uint64{10, 20, 30})
	require.NoError(t, err)
	m2, err := New([]uint64{10, 20, 99}, []uint64{1000, 2000, 9999})
	require.NoError(t, err)

	composed := Compose(m1, m2)

	labels := []uint64{1, 2, 3, 99}
	for _, v := range labels {
		sequential := v
		if mapped, ok := m1.Lookup(sequential); ok {
			sequential = mapped
		}
		if mapped, ok := m2.Lookup(sequential); ok {
			sequential = mapped
		}

		composedVal, ok := composed.Lookup(v)
		if !ok {
			composedVal = v
		}
		require.Equal(t, sequential, composedVal, "label %d", v)
	}
}

func TestApplyToWall_preservesGridAndRelabels(t *testing.T) {
	m, err := New([]uint64{7}, []uint64{42})
	require.NoError(t, err)

	buf := brick.NewBuffer(geom.Vec3{1, 1, 1}, brick.Uint64)
	buf.SetUint64(0, 0, 0, 7)

	logical := geom.Box{Start: geom.Vec3{0, 0, 0}, Stop: geom.Vec3{8, 8, 8}}
	physical := geom.Box{Start: geom.Vec3{0, 0, 0}, Stop: geom.Vec3{1, 1, 1}}
	grid := geom.Grid{BlockShape: geom.Vec3u32{8, 8, 8}, Offset: geom.Vec3{0, 0, 0}}

	b, err := brick.New(logical, physical, buf, grid)
	require.NoError(t, err)

	wall, err := brick.NewPersisted(logical, grid, map[brick.Key]*brick.Brick{{0, 0, 0}: b})
	require.NoError(t, err)

	out, err := ApplyToWall(wall, m, true)
	require.NoError(t, err)
	require.NoError(t, out.PersistAndExecute())
	require.Equal(t, grid, out.Grid)
	require.Equal(t, 1, out.Len())

	for _, ob := range out.Bricks() {
		require.Equal(t, uint64(42), ob.Volume.GetUint64(0, 0, 0))
	}
}
