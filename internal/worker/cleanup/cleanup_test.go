package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// mockDeleter はExpiredSessionDeleterのモック実装。
// Startのテストで別ゴルーチンから参照されるため呼び出し回数はatomicで数える。
type mockDeleter struct {
	called  atomic.Int32
	deleted int64
	err     error
}

func (m *mockDeleter) DeleteExpired(ctx context.Context) (int64, error) {
	m.called.Add(1)
	return m.deleted, m.err
}

var _ ExpiredSessionDeleter = (*mockDeleter)(nil)

// mockRecorder はSweepRecorderのモック実装。
type mockRecorder struct {
	total int64
}

func (m *mockRecorder) RecordSessionsSwept(count int64) {
	m.total += count
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestSweepJob_Run_DeletesAndLogs(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockDeleter{deleted: 5}
	recorder := &mockRecorder{}
	job := NewSweepJob(deleter, newTestLogger(&buf), recorder)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := deleter.called.Load(); got != 1 {
		t.Errorf("DeleteExpired called %d times, want 1", got)
	}
	if recorder.total != 5 {
		t.Errorf("recorded swept count = %d, want 5", recorder.total)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log is not valid JSON: %v", err)
	}
	if entry["deleted_count"] != float64(5) {
		t.Errorf("deleted_count = %v, want 5", entry["deleted_count"])
	}
}

func TestSweepJob_Run_EmptySweepIsNotAnError(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockDeleter{deleted: 0}
	job := NewSweepJob(deleter, newTestLogger(&buf), nil)

	if err := job.Run(context.Background()); err != nil {
		t.Errorf("empty sweep should not fail: %v", err)
	}
}

func TestSweepJob_Run_PropagatesError(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockDeleter{err: errors.New("connection refused")}
	job := NewSweepJob(deleter, newTestLogger(&buf), nil)

	if err := job.Run(context.Background()); err == nil {
		t.Error("expected error when deletion fails")
	}
}

func TestSweepJob_Run_NilRecorderIsSafe(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockDeleter{deleted: 3}
	job := NewSweepJob(deleter, newTestLogger(&buf), nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestSweepJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	deleter := &mockDeleter{}
	job := NewSweepJob(deleter, newTestLogger(&buf), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	// 初回実行を待ってからキャンセル
	deadline := time.After(time.Second)
	for deleter.called.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("initial sweep did not run")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not stop after context cancellation")
	}
}
