package queue

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingOrder(t *testing.T) {
	r := NewRing(8)
	for n := 0; n < 5; n++ {
		require.True(t, r.Enqueue(Sample{Value: byte(n), Marker: n == 0}))
	}
	require.Equal(t, 5, r.Len())
	s, err := r.Peek()
	require.NoError(t, err)
	require.Equal(t, Sample{Value: 0, Marker: true}, s)
	for n := 0; n < 5; n++ {
		s, err := r.Dequeue()
		require.NoError(t, err)
		require.Equal(t, byte(n), s.Value)
	}
	_, err = r.Dequeue()
	require.Equal(t, ErrEmpty, err)
	_, err = r.Peek()
	require.Equal(t, ErrEmpty, err)
}

func TestRingBounded(t *testing.T) {
	testCases := []struct {
		name string
		max  int
	}{
		{"default", 0},
		{"power of two", 64},
		{"odd", 53},
		{"one", 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRing(tc.max)
			max := tc.max
			if max <= 0 {
				max = DefaultSize
			}
			require.Equal(t, max, r.Cap())
			var accepted int
			for n := 0; n < max*3; n++ {
				if r.Enqueue(Sample{Value: byte(n)}) {
					accepted++
				}
				require.True(t, r.Len() <= max)
			}
			require.Equal(t, max, accepted)
			for n := 0; n < max; n++ {
				s, err := r.Dequeue()
				require.NoError(t, err)
				require.Equal(t, byte(n), s.Value, "retains the first samples")
			}
			require.Zero(t, r.Len())
		})
	}
}

func TestRingClear(t *testing.T) {
	r := NewRing(4)
	r.Enqueue(Sample{Value: 1})
	r.Enqueue(Sample{Value: 2})
	r.Clear()
	require.Zero(t, r.Len())
	r.Clear()
	require.Zero(t, r.Len())
	require.True(t, r.Enqueue(Sample{Value: 3}))
	s, err := r.Dequeue()
	require.NoError(t, err)
	require.Equal(t, byte(3), s.Value)
}

func TestRingWrap(t *testing.T) {
	r := NewRing(3)
	for n := 0; n < 100; n++ {
		require.True(t, r.Enqueue(Sample{Value: byte(n)}))
		require.True(t, r.Enqueue(Sample{Value: byte(n + 1)}))
		s, err := r.Dequeue()
		require.NoError(t, err)
		require.Equal(t, byte(n), s.Value)
		s, err = r.Dequeue()
		require.NoError(t, err)
		require.Equal(t, byte(n+1), s.Value)
	}
}

func TestRingConcurrent(t *testing.T) {
	const count = 20000
	r := NewRing(16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 0; n < count; {
			if !r.Enqueue(Sample{Value: byte(n)}) {
				runtime.Gosched()
				continue
			}
			n++
		}
	}()
	for n := 0; n < count; n++ {
		s, err := r.Dequeue()
		for err == ErrEmpty {
			runtime.Gosched()
			s, err = r.Dequeue()
		}
		require.NoError(t, err)
		if s.Value != byte(n) {
			require.Equal(t, byte(n), s.Value, "sample %d", n)
		}
	}
	wg.Wait()
	require.Zero(t, r.Len())
}
