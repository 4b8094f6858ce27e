package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		app     string
		want    string
	}{
		{"relative", "logs", "sceneedit", filepath.Join("logs", "sceneedit_20260212T213836Z.log")},
		{"dotted", "./logs", "sceneedit", filepath.Join("logs", "sceneedit_20260212T213836Z.log")},
		{"separator in name", "logs", "plant/7", filepath.Join("logs", "plant-7_20260212T213836Z.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, tt.app, start))
		})
	}
}

func TestLogFilePath_LocalStartIsUTC(t *testing.T) {
	start := time.Date(2026, 2, 12, 23, 38, 36, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, filepath.Join("l", "x_20260212T213836Z.log"), LogFilePath("l", "x", start))
}
