package store

import (
	"context"
	"fmt"
	"sync"

	"ordersync/internal/core"
	"ordersync/internal/notice"
)

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, f ...interface{})              { fmt.Printf("DEBUG: %s %v\n", msg, f) }
func (m *mockLogger) Info(msg string, f ...interface{})               { fmt.Printf("INFO: %s %v\n", msg, f) }
func (m *mockLogger) Warn(msg string, f ...interface{})               { fmt.Printf("WARN: %s %v\n", msg, f) }
func (m *mockLogger) Error(msg string, f ...interface{})              { fmt.Printf("ERROR: %s %v\n", msg, f) }
func (m *mockLogger) Fatal(msg string, f ...interface{})              { fmt.Printf("FATAL: %s %v\n", msg, f) }
func (m *mockLogger) WithField(k string, v interface{}) core.Logger   { return m }
func (m *mockLogger) WithFields(f map[string]interface{}) core.Logger { return m }

type stubSession struct {
	mu    sync.RWMutex
	actor *core.Actor
}

func (s *stubSession) Actor() *core.Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actor
}

func (s *stubSession) set(a *core.Actor) {
	s.mu.Lock()
	s.actor = a
	s.mu.Unlock()
}

type chimeRecord struct {
	orderID string
	status  string
}

type recordingChimer struct {
	mu     sync.Mutex
	chimes []chimeRecord
}

func (r *recordingChimer) Chime(_ context.Context, orderID, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chimes = append(r.chimes, chimeRecord{orderID: orderID, status: status})
}

func (r *recordingChimer) all() []chimeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chimeRecord(nil), r.chimes...)
}

type recordingToaster struct {
	mu     sync.Mutex
	toasts []string
}

func (r *recordingToaster) Toast(_ context.Context, _ notice.Level, title, _ string, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, title)
}

func (r *recordingToaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.toasts)
}

func testPipeline() core.Pipeline {
	return core.Pipeline{
		Statuses: []core.StatusDef{
			{ID: "received", Name: "Received", PlaySound: true},
			{ID: "preparing", Name: "Preparing"},
			{ID: "ready", Name: "Ready", PlaySound: true},
			{ID: "completed", Name: "Completed"},
			{ID: "refused", Name: "Refused"},
		},
		CompletedID: "completed",
		RefusedID:   "refused",
	}
}

func allowAll(*core.Actor, string) bool { return true }
func denyAll(*core.Actor, string) bool  { return false }

func confirmYes(context.Context, string) bool { return true }
func confirmNo(context.Context, string) bool  { return false }
