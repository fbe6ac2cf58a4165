package linkbus_test

import (
	"testing"
	"time"

	"github.com/robocorp-link/linkbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackBroadcastsToOtherEndpointsOnly(t *testing.T) {
	medium := linkbus.NewLoopbackMedium()
	defer medium.Close()

	a := medium.Open()
	b := medium.Open()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.Write([]byte{0x01, 0x02, 0x03}))

	ready, err := b.Available(100 * time.Millisecond)
	require.NoError(t, err)
	require.True(t, ready)

	buf := make([]byte, 3)
	n, err := b.ReadInto(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, buf)

	ready, err = a.Available(20 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ready, "a must not receive its own write")
}

func TestLoopbackAvailableTimesOutWithoutData(t *testing.T) {
	medium := linkbus.NewLoopbackMedium()
	defer medium.Close()
	a := medium.Open()
	defer a.Close()

	ready, err := a.Available(10 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestLoopbackCloseUnblocksAvailableAndRejectsWrite(t *testing.T) {
	medium := linkbus.NewLoopbackMedium()
	defer medium.Close()
	a := medium.Open()

	require.NoError(t, a.Close())

	_, err := a.Available(50 * time.Millisecond)
	assert.Error(t, err)

	err = a.Write([]byte{0x01})
	assert.Error(t, err)
}

func TestLoopbackMediumCloseClosesAllEndpoints(t *testing.T) {
	medium := linkbus.NewLoopbackMedium()
	a := medium.Open()
	b := medium.Open()

	medium.Close()

	_, errA := a.Available(10 * time.Millisecond)
	_, errB := b.Available(10 * time.Millisecond)
	assert.Error(t, errA)
	assert.Error(t, errB)
}

func TestLoopbackThreeEndpointFanout(t *testing.T) {
	medium := linkbus.NewLoopbackMedium()
	defer medium.Close()
	a := medium.Open()
	b := medium.Open()
	c := medium.Open()
	defer a.Close()
	defer b.Close()
	defer c.Close()

	require.NoError(t, a.Write([]byte{0xAA}))

	for _, ep := range []*linkbus.LoopbackLink{b, c} {
		ready, err := ep.Available(100 * time.Millisecond)
		require.NoError(t, err)
		require.True(t, ready)
		buf := make([]byte, 1)
		n, err := ep.ReadInto(buf)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, byte(0xAA), buf[0])
	}
}
