package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type keyRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (r *keyRecorder) record(key string) {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
}

func (r *keyRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, k := range r.keys {
		if k == key {
			n++
		}
	}
	return n
}

func TestFSWatch_ReportsWritesFromAnotherHandle(t *testing.T) {
	a := tempStore(t)
	b, err := NewFS(a.Root())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &keyRecorder{}
	go a.Watch(ctx, quietLogger(), rec.record)
	time.Sleep(100 * time.Millisecond)

	if err := b.Set("technologies", []byte("[]")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.count("technologies") > 0
	}, "expected technologies change from second handle")
}

func TestFSWatch_IgnoresTempAndForeignFiles(t *testing.T) {
	s := tempStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &keyRecorder{}
	go s.Watch(ctx, quietLogger(), rec.record)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(s.Root(), ".techtrack-tmp-123"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(s.Root(), "notes.txt"), []byte("x"), 0o644)
	_ = s.Set("username", []byte("admin"))

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.count("username") > 0
	}, "expected username change")

	if rec.count(".techtrack-tmp-123") != 0 || rec.count("notes.txt") != 0 {
		t.Error("temp or foreign files were reported as keys")
	}
}

func TestFSWatch_CoalescesBursts(t *testing.T) {
	s := tempStore(t)
	s.debounce = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &keyRecorder{}
	go s.Watch(ctx, quietLogger(), rec.record)
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		_ = s.Set("technologies", []byte{byte('0' + i)})
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.count("technologies") > 0
	}, "expected a coalesced change")
	time.Sleep(300 * time.Millisecond)
	if n := rec.count("technologies"); n != 1 {
		t.Errorf("callbacks = %d, want 1", n)
	}
}

func TestMemoryWatch_SharedBetweenInstances(t *testing.T) {
	m := NewMemory()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &keyRecorder{}
	go m.Watch(ctx, quietLogger(), rec.record)
	time.Sleep(20 * time.Millisecond)

	_ = m.Set("appSettings", []byte("{}"))
	_ = m.Remove("appSettings")
	_ = m.Remove("appSettings")

	eventually(t, time.Second, 10*time.Millisecond, func() bool {
		return rec.count("appSettings") == 2
	}, "expected set + remove to be reported once each")
}
