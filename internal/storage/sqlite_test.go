package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "techtrack.db"), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteSetGetRemove(t *testing.T) {
	db := testSQLite(t)
	if _, err := db.Get("technologies"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
	if err := db.Set("technologies", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := db.Set("technologies", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	got, err := db.Get("technologies")
	if err != nil || string(got) != "v2" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	revs, _ := db.revisions()
	if revs["technologies"] != 2 {
		t.Errorf("revision = %d, want 2", revs["technologies"])
	}
	if err := db.Remove("technologies"); err != nil {
		t.Fatal(err)
	}
	keys, _ := db.Keys()
	if len(keys) != 0 {
		t.Errorf("keys after remove = %v", keys)
	}
}

func TestSQLiteWatchSeesRevisionBumps(t *testing.T) {
	db := testSQLite(t)
	_ = db.Set("appSettings", []byte("{}"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &keyRecorder{}
	go db.Watch(ctx, quietLogger(), rec.record)
	time.Sleep(50 * time.Millisecond)

	_ = db.Set("appSettings", []byte(`{"theme":"dark"}`))
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return rec.count("appSettings") == 1
	}, "expected appSettings revision change")

	_ = db.Remove("appSettings")
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return rec.count("appSettings") == 2
	}, "expected appSettings removal")
}
