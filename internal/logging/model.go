package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// ModelLog appends one JSON object per line to logs/model.log, each of the
// shape {"timestamp": <UTC ISO8601>, "direction": "request"|"response"|
// "tool_result", "data": <arbitrary>}.
type ModelLog struct {
	mu sync.Mutex
	f  *os.File
}

func newModelLog(path string) (*ModelLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &ModelLog{f: f}, nil
}

type modelLogEntry struct {
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
	Data      any    `json:"data"`
}

// Append writes one line. direction is typically "request", "response", or
// "tool_result"; data may be any JSON-marshalable value.
func (m *ModelLog) Append(direction string, data any) error {
	entry := modelLogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Direction: direction,
		Data:      data,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal model log entry: %w", err)
	}
	line = append(line, '\n')

	m.mu.Lock()
	defer m.mu.Unlock()
	_, err = m.f.Write(line)
	return err
}

// Close closes the underlying file.
func (m *ModelLog) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.f.Close()
}
