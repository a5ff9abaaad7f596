package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidSpec(t *testing.T) {
	_, err := New("not a spec", func() {}, nil)
	assert.Error(t, err)

	_, err = New("@every 1m", nil, nil)
	assert.Error(t, err)
}

func TestNewAcceptsStandardSpecs(t *testing.T) {
	for _, spec := range []string{"*/5 * * * *", "@hourly", "@every 90s"} {
		s, err := New(spec, func() {}, nil)
		require.NoError(t, err, spec)
		assert.NotNil(t, s)
	}
}

func TestSchedulerRunsJob(t *testing.T) {
	var runs atomic.Int32
	s, err := New("@every 1s", func() { runs.Add(1) }, nil)
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	assert.False(t, s.Next().IsZero())

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
