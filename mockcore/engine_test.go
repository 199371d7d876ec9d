package mockcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPop_NoMockRegistered(t *testing.T) {
	m, h := newTestMock(t, 1024)
	_, err := m.Pop("Unregistered", nil)
	require.Error(t, err)
	assert.Len(t, h.fails, 1)
}

func TestPop_EnforceOrder_FailsWhenSkippingAhead(t *testing.T) {
	m, _ := newTestMock(t, 1024)
	require.NoError(t, m.Add("First", []byte{1}, nil))
	require.NoError(t, m.Add("Second", []byte{2}, nil))
	m.EnforceCallOrderTracking()

	_, err := m.Pop("Second", nil)
	assert.Error(t, err)
}

func TestPop_EnforceOrder_SucceedsInOrder(t *testing.T) {
	m, _ := newTestMock(t, 1024)
	require.NoError(t, m.Add("First", []byte{1}, nil))
	require.NoError(t, m.Add("Second", []byte{2}, nil))
	m.EnforceCallOrderTracking()

	_, err := m.Pop("First", nil)
	require.NoError(t, err)
	_, err = m.Pop("Second", nil)
	require.NoError(t, err)
}

func TestPop_CeaseCallOrderTracking_AllowsSkippingAgain(t *testing.T) {
	m, _ := newTestMock(t, 1024)
	require.NoError(t, m.Add("First", []byte{1}, nil))
	require.NoError(t, m.Add("Second", []byte{2}, nil))
	m.EnforceCallOrderTracking()
	m.CeaseCallOrderTracking()

	_, err := m.Pop("Second", nil)
	require.NoError(t, err)
}

func TestSpyOnly_RecordsObservationWithoutAMock(t *testing.T) {
	m, _ := newTestMock(t, 1024)
	require.NoError(t, m.SpyOnly("Unregistered", []byte{0x11}))

	handle, err := m.GetHandle("Unregistered", 0)
	require.NoError(t, err)
	spy, err := m.GetSpyData(handle)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11}, spy)

	order, err := m.GetCallOrder(handle)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), order)
}

func TestRecordCallData_SpySizeCannotGrowAcrossReuses(t *testing.T) {
	m, h := newTestMock(t, 1024)
	require.NoError(t, m.AddInfinite("ReadSensor", []byte{1}, nil))

	_, err := m.Pop("ReadSensor", []byte{1, 2})
	require.NoError(t, err)

	_, err = m.Pop("ReadSensor", []byte{1, 2, 3})
	require.Error(t, err)
	assert.NotEmpty(t, h.fails)
}

func TestRecordCallData_SmallerSpyOnReuseIsAccepted(t *testing.T) {
	m, _ := newTestMock(t, 1024)
	require.NoError(t, m.AddInfinite("ReadSensor", []byte{1}, nil))

	_, err := m.Pop("ReadSensor", []byte{1, 2, 3})
	require.NoError(t, err)

	_, err = m.Pop("ReadSensor", []byte{9})
	require.NoError(t, err)
}

func TestCallOrder_OverflowsToExtendedCallData(t *testing.T) {
	m, _ := newTestMock(t, 4096) // narrow regime, CallOrderMax == 255
	require.NoError(t, m.AddInfinite("ReadSensor", []byte{1}, nil))

	var lastOrder uint32
	var err error
	for i := 0; i < 300; i++ {
		_, err = m.Pop("ReadSensor", nil)
		require.NoError(t, err)
	}
	handle, err := m.GetHandle("ReadSensor", 0)
	require.NoError(t, err)
	lastOrder, err = m.GetCallOrder(handle)
	require.NoError(t, err)
	assert.Equal(t, uint32(300), lastOrder)
}
