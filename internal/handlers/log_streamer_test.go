package handlers

import (
	"testing"
	"time"

	plog "github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/placetunes/internal/common"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, levels.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, levels.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, levels.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, levels.InfoLevel, parseLogLevel(""))
	assert.Equal(t, levels.InfoLevel, parseLogLevel("bogus"))
}

func TestMapLevel(t *testing.T) {
	assert.Equal(t, "error", mapLevel(levels.ErrorLevel))
	assert.Equal(t, "warn", mapLevel(levels.WarnLevel))
	assert.Equal(t, "info", mapLevel(levels.InfoLevel))
	assert.Equal(t, "debug", mapLevel(levels.DebugLevel))
}

func TestLogStreamerDrainsBatches(t *testing.T) {
	handler := NewWebSocketHandler(arbor.NewLogger())
	streamer := NewLogStreamer(handler, &common.WebSocketConfig{
		MinLevel:        "info",
		ExcludePatterns: []string{"HTTP request"},
	})

	streamer.Start()

	// Below min level, excluded pattern, and a survivor: all must drain
	// without blocking even with no connected clients.
	streamer.Channel() <- []arbormodels.LogEvent{
		{Level: plog.DebugLevel, Message: "noise", Timestamp: time.Now()},
		{Level: plog.InfoLevel, Message: "HTTP request GET /api/tasks", Timestamp: time.Now()},
		{Level: plog.InfoLevel, Message: "Task created", Timestamp: time.Now()},
	}

	streamer.Stop()
}
