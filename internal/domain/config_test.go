package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8090, config.Server.Port)
	assert.Equal(t, "https://itunes.apple.com/search", config.Search.BaseURL)
	assert.Equal(t, "music", config.Search.Media)
	assert.Equal(t, "song", config.Search.Entity)
	assert.Equal(t, 15*time.Second, config.Search.Timeout)
	assert.Equal(t, int64(32*1024), config.Download.ProgressInterval)
	assert.True(t, config.History.Enabled)
	assert.Equal(t, 64, config.History.BufferSize)
	assert.Equal(t, 90, config.History.RetentionDays)
	assert.False(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "/metrics", config.Metrics.Path)
}
