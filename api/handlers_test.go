package api

import (
	"chat-link/errors"
	"chat-link/runtime"
	"chat-link/runtime/workers"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fixedStats struct {
	stats workers.ProcessStats
}

func (f fixedStats) Latest() workers.ProcessStats {
	return f.stats
}

func TestHandlers_Health(t *testing.T) {
	sampledAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name     string
		source   ProcessStatsSource
		expected string
	}{
		{
			name:     "no stats worker",
			source:   nil,
			expected: `{"status":"ok","live_sessions":0}`,
		},
		{
			name:     "before the first sample",
			source:   fixedStats{},
			expected: `{"status":"ok","live_sessions":0}`,
		},
		{
			name: "latest sample",
			source: fixedStats{stats: workers.ProcessStats{
				Status: "running", CPUPercent: 1.5, MemoryPercent: 2.5, RSSBytes: 1024, SampledAt: sampledAt,
			}},
			expected: `{"status":"ok","live_sessions":0,"process":{"status":"running","cpu_percent":1.5,` +
				`"memory_percent":2.5,"rss_bytes":1024,"sampled_at":"2026-01-02T03:04:05Z"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers := NewHandlers(logs.GetLoggerFromLevel(slog.LevelDebug), nil, nil, nil, runtime.NewRegistry(), tt.source)
			recorder := httptest.NewRecorder()

			handlers.Health(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			require.Equal(t, http.StatusOK, recorder.Code)
			require.JSONEq(t, tt.expected, recorder.Body.String())
		})
	}
}

func TestWriteError(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	internal := fmt.Errorf("failed to load contacts: %w", fmt.Errorf("badger: value log truncated"))

	// Server failures never leak their cause
	recorder := httptest.NewRecorder()
	writeError(log, recorder, http.StatusInternalServerError, internal)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.JSONEq(t, `{"error":"Internal Server Error"}`, recorder.Body.String())

	// Client errors keep their message
	recorder = httptest.NewRecorder()
	writeError(log, recorder, http.StatusNotFound, errors.ErrInvalidUserID)
	require.Equal(t, http.StatusNotFound, recorder.Code)
	require.JSONEq(t, `{"error":"invalid user id"}`, recorder.Body.String())
}
