package workerpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"
)

func TestPoolProcessesEveryTask(t *testing.T) {
	pool := New(4)
	tb := &tomb.Tomb{}

	var processed int64
	pool.Setup(tb, func(_ *tomb.Tomb, task any) error {
		atomic.AddInt64(&processed, int64(task.(int)))
		return nil
	})

	const n = 50
	for i := 1; i <= n; i++ {
		pool.AddTask(i)
	}

	deadline := time.Now().Add(2 * time.Second)
	expected := int64(n * (n + 1) / 2)
	for atomic.LoadInt64(&processed) != expected && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	assert.Equal(t, expected, atomic.LoadInt64(&processed))

	tb.Kill(nil)
	require.NoError(t, tb.Wait())
}
