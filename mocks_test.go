package carprefs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MockStorage implements the Storage interface for testing. It keeps
// documents JSON-encoded, like a real backend, and counts calls.
type MockStorage struct {
	mu      sync.Mutex
	data    map[string][]byte
	closed  bool
	getErr  error
	saveErr error

	gets  int
	saves int
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		data: make(map[string][]byte),
	}
}

func (m *MockStorage) GetAttributes(ctx context.Context, userID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gets++
	if m.closed {
		return Document{}, ErrStorageUnavailable
	}
	if m.getErr != nil {
		return Document{}, m.getErr
	}

	data, ok := m.data[userID]
	if !ok {
		return Document{}, ErrNotFound
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("mockstorage: %w", err)
	}
	return doc, nil
}

func (m *MockStorage) SaveAttributes(ctx context.Context, userID string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.closed {
		return ErrStorageUnavailable
	}
	if m.saveErr != nil {
		return m.saveErr
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("mockstorage: %w", err)
	}
	m.data[userID] = data
	return nil
}

func (m *MockStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockStorage) calls() (gets, saves int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets, m.saves
}

func (m *MockStorage) raw(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.data[userID])
}

// MockLogger records messages so tests can assert on them.
type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *MockLogger) record(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	b.WriteString(level + " " + msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	l.messages = append(l.messages, b.String())
}

func (l *MockLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args...) }
func (l *MockLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args...) }
func (l *MockLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args...) }
func (l *MockLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args...) }
func (l *MockLogger) SetLevel(LogLevel)             {}

func (l *MockLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}
