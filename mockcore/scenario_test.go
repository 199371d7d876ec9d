package mockcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wdstat/statmock/config"
)

// End-to-end scenarios combining registry, engine, and query behavior the
// way a real test suite driving a mocked dependency would.

func TestScenario_SequentialDistinctResponses(t *testing.T) {
	m, h := newTestMock(t, 2048)
	require.NoError(t, m.AddMany("ReadTemperature", [][]byte{{20}, {21}, {22}}, nil))

	for _, want := range []byte{20, 21, 22} {
		got, err := m.Pop("ReadTemperature", nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{want}, got)
	}
	require.NoError(t, m.TearDown())
	assert.Empty(t, h.fails)
}

func TestScenario_MixedPrimitiveAndReusable_PreservesArenaOrder(t *testing.T) {
	m, _ := newTestMock(t, 2048)
	require.NoError(t, m.Add("Log", []byte("first"), nil))
	require.NoError(t, m.AddReusable("Log", []byte("reused"), 2, nil))

	first, err := m.Pop("Log", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), first)

	for i := 0; i < 2; i++ {
		again, err := m.Pop("Log", nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("reused"), again)
	}

	_, err = m.Pop("Log", nil)
	assert.Error(t, err)
}

func TestScenario_OverrideCoexistsWithOtherDeclarators(t *testing.T) {
	m, _ := newTestMock(t, 2048)
	var seen []uint32
	require.NoError(t, m.Override("Clock", func(order uint32, spy []byte) []byte {
		seen = append(seen, order)
		return []byte{byte(order)}
	}))
	require.NoError(t, m.Add("ReadSensor", []byte{7}, nil))

	sensor, err := m.Pop("ReadSensor", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, sensor)

	clockA, err := m.Pop("Clock", nil)
	require.NoError(t, err)
	clockB, err := m.Pop("Clock", nil)
	require.NoError(t, err)
	assert.NotEqual(t, clockA, clockB)
	assert.Len(t, seen, 2)

	require.NoError(t, m.TearDown())
}

func TestScenario_SpyOnlyDoesNotBlockTeardown(t *testing.T) {
	m, h := newTestMock(t, 2048)
	require.NoError(t, m.SpyOnly("UnregisteredCallback", []byte("observed")))

	require.NoError(t, m.TearDown())
	assert.Empty(t, h.fails)
}

func TestScenario_PermissiveValidationDowngradesOutOfSpace(t *testing.T) {
	h := &recordingHarness{}
	m, err := New(config.Config{ArenaSize: 64, Permissive: true}, h, nil)
	require.NoError(t, err)

	err = m.Add("TooBig", make([]byte, 256), nil)
	require.Error(t, err)
	assert.Empty(t, h.fails)
	assert.Len(t, h.ignores, 1)
}

func TestScenario_ResetClearsBetweenTests(t *testing.T) {
	m, _ := newTestMock(t, 2048)
	require.NoError(t, m.Add("ReadSensor", []byte{1}, nil))
	_, err := m.Pop("ReadSensor", nil)
	require.NoError(t, err)

	m.Reset()
	assert.False(t, m.HasMocks("ReadSensor"))
	require.NoError(t, m.Add("ReadSensor", []byte{2}, nil))
	got, err := m.Pop("ReadSensor", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, got)
}
