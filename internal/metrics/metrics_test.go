package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	c := New()
	c.CacheHit()
	c.CacheMiss()
	c.TranscodeSucceeded(100)
	c.TranscodeFailed()

	metricFamilies, err := c.registry.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, metricFamilies)
}

func TestServeDisabledReturnsOnContextCancel(t *testing.T) {
	c := New()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Serve(ctx, "")
	assert.NoError(t, err)
}
