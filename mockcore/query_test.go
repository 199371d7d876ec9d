package mockcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wdstat/statmock/config"
)

func TestHasMocks(t *testing.T) {
	m, _ := newTestMock(t, 1024)
	assert.False(t, m.HasMocks("ReadSensor"))
	require.NoError(t, m.Add("ReadSensor", []byte{1}, nil))
	assert.True(t, m.HasMocks("ReadSensor"))
}

func TestCountCalls_AcrossVariants(t *testing.T) {
	m, _ := newTestMock(t, 1024)
	require.NoError(t, m.AddMany("ReadSensor", [][]byte{{1}, {2}}, nil))
	require.NoError(t, m.AddReusable("ReadSensor", []byte{3}, 2, nil))

	assert.Equal(t, uint32(0), m.CountCalls("ReadSensor"))
	for i := 0; i < 4; i++ {
		_, err := m.Pop("ReadSensor", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, uint32(4), m.CountCalls("ReadSensor"))
}

func TestCountCallables_FiniteAndInfinite(t *testing.T) {
	m, _ := newTestMock(t, 1024)
	require.NoError(t, m.AddReusable("ReadSensor", []byte{1}, 3, nil))
	assert.Equal(t, uint32(3), m.CountCallables("ReadSensor"))

	require.NoError(t, m.AddInfinite("ReadSensor", []byte{2}, nil))
	assert.Equal(t, uint32(3), m.CountCallables("ReadSensor")) // infinite contributes 0 before any pop

	_, err := m.Pop("ReadSensor", nil) // consumes the reusable entry first (arena order)
	require.NoError(t, err)
	_, err = m.Pop("ReadSensor", nil)
	require.NoError(t, err)
	_, err = m.Pop("ReadSensor", nil)
	require.NoError(t, err)
	_, err = m.Pop("ReadSensor", nil) // now falls through to infinite
	require.NoError(t, err)
	assert.Equal(t, uint32(4), m.CountCallables("ReadSensor")) // reusable's 3 + infinite's 1 used so far
}

func TestCountCallables_PrimitivePureSpyAndOverrideEachCountOne(t *testing.T) {
	m, _ := newTestMock(t, 1024)
	require.NoError(t, m.Add("ReadSensor", []byte{1}, nil))
	require.NoError(t, m.AddEmpty("ReadSensor", nil))
	assert.Equal(t, uint32(2), m.CountCallables("ReadSensor"))

	require.NoError(t, m.SpyOnly("Logged", []byte{2}))
	assert.Equal(t, uint32(1), m.CountCallables("Logged"))

	require.NoError(t, m.Override("Clock", func(uint32, []byte) []byte { return nil }))
	assert.Equal(t, uint32(1), m.CountCallables("Clock"))
	_, err := m.Pop("Clock", nil)
	require.NoError(t, err)
	_, err = m.Pop("Clock", nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), m.CountCallables("Clock")) // override always counts 1, regardless of pops
}

func TestGetHandle_StepsOneIndexPerConsumptionOnExtendedEntries(t *testing.T) {
	m, _ := newTestMock(t, 2048)
	require.NoError(t, m.AddReusable("X", []byte{0x11}, 3, nil))
	require.NoError(t, m.AddReusable("Y", []byte{0x22}, 3, nil))

	for i := 0; i < 3; i++ {
		_, err := m.Pop("X", nil)
		require.NoError(t, err)
		_, err = m.Pop("Y", nil)
		require.NoError(t, err)
	}

	// X is popped at call orders 1, 3, 5; its single call-data block is
	// overwritten on each reuse, so every occurrence index in range
	// resolves to the same entry and its latest (5th) call order — the
	// fix here is that occurrences 1 and 2 resolve at all, rather than
	// erroring with NotFound.
	for i := 0; i < 3; i++ {
		h, err := m.GetHandle("X", i)
		require.NoError(t, err, "occurrence %d", i)
		order, err := m.GetCallOrder(h)
		require.NoError(t, err)
		assert.Equal(t, uint32(5), order, "X occurrence %d", i)
	}

	_, err := m.GetHandle("X", 3)
	assert.Error(t, err)

	assert.Equal(t, uint32(3), m.CountCalls("X"))
	assert.Equal(t, uint32(3), m.CountCallables("X"))
	assert.False(t, m.HasUnconsumedMocks())
}

func TestHasUnconsumedMocks_AndFindAnyUnconsumed(t *testing.T) {
	m, _ := newTestMock(t, 1024)
	assert.False(t, m.HasUnconsumedMocks())

	require.NoError(t, m.Add("ReadSensor", []byte{1}, nil))
	assert.True(t, m.HasUnconsumedMocks())

	decl, found := m.FindAnyUnconsumed()
	require.True(t, found)
	assert.Equal(t, "ReadSensor", decl)

	_, err := m.Pop("ReadSensor", nil)
	require.NoError(t, err)
	assert.False(t, m.HasUnconsumedMocks())
}

func TestTearDown_FailsOnUnconsumedMocks(t *testing.T) {
	m, h := newTestMock(t, 1024)
	require.NoError(t, m.Add("ReadSensor", []byte{1}, nil))

	err := m.TearDown()
	require.Error(t, err)
	assert.Len(t, h.fails, 1)
	assert.Contains(t, h.fails[0], "ReadSensor")
}

func TestTearDown_IgnoresOverrideAndInfinite(t *testing.T) {
	m, h := newTestMock(t, 1024)
	require.NoError(t, m.Override("ReadSensor", func(uint32, []byte) []byte { return nil }))
	require.NoError(t, m.AddInfinite("WriteSensor", []byte{1}, nil))

	err := m.TearDown()
	assert.NoError(t, err)
	assert.Empty(t, h.fails)
}

func TestTearDown_Permissive_DowngradesToIgnore(t *testing.T) {
	h := &recordingHarness{}
	m, err := New(config.Config{ArenaSize: 1024, Permissive: true}, h, nil)
	require.NoError(t, err)
	require.NoError(t, m.Add("ReadSensor", []byte{1}, nil))

	tdErr := m.TearDown()
	require.Error(t, tdErr)
	assert.Empty(t, h.fails)
	assert.Len(t, h.ignores, 1)
}
