package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestSetAndGet(t *testing.T) {
	s := tempStore(t)
	value := []byte(`{"version":"2","items":[]}`)
	if err := s.Set("technologies", value); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("technologies")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(value) {
		t.Errorf("value mismatch: got %q", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := tempStore(t)
	_, err := s.Get("appSettings")
	if !errors.Is(err, ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

func TestRemove(t *testing.T) {
	s := tempStore(t)
	_ = s.Set("isLoggedIn", []byte("true"))
	if err := s.Remove("isLoggedIn"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get("isLoggedIn"); !errors.Is(err, ErrNotExist) {
		t.Error("expected ErrNotExist reading removed key")
	}
	if err := s.Remove("isLoggedIn"); err != nil {
		t.Errorf("removing an absent key should succeed: %v", err)
	}
}

func TestKeys(t *testing.T) {
	s := tempStore(t)
	_ = s.Set("technologies", []byte("[]"))
	_ = s.Set("username", []byte("admin"))
	_ = os.WriteFile(filepath.Join(s.root, ".hidden"), []byte("x"), 0o644)
	_ = os.Mkdir(filepath.Join(s.root, "sub"), 0o755)

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "technologies" || keys[1] != "username" {
		t.Errorf("keys = %v", keys)
	}
}

func TestInvalidKeysRejected(t *testing.T) {
	s := tempStore(t)

	cases := []string{
		"../../etc/passwd",
		"../outside",
		"/etc/shadow",
		"",
		".hidden",
		"a/b",
	}
	for _, k := range cases {
		if _, err := s.Get(k); err == nil {
			t.Errorf("expected error for key %q", k)
		}
		if err := s.Set(k, []byte("x")); err == nil {
			t.Errorf("expected error for set of %q", k)
		}
	}
}

func TestAtomicSetLeavesNoTempFiles(t *testing.T) {
	s := tempStore(t)
	_ = s.Set("technologies", []byte("original"))

	updated := []byte("updated")
	if err := s.Set("technologies", updated); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ := s.Get("technologies")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, tmpPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "techtrack-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
