package storage

import (
	"errors"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	if _, err := m.Get("technologies"); !errors.Is(err, ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
	value := []byte("abc")
	if err := m.Set("technologies", value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'z'
	got, _ := m.Get("technologies")
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller buffer: %q", got)
	}
	if m.Writes("technologies") != 1 {
		t.Errorf("writes = %d, want 1", m.Writes("technologies"))
	}
}

func TestMemoryFailWrites(t *testing.T) {
	m := NewMemory()
	quota := errors.New("quota exceeded")
	m.FailWrites(quota)
	if err := m.Set("technologies", []byte("x")); !errors.Is(err, quota) {
		t.Fatalf("err = %v, want wrapped quota error", err)
	}
	m.FailWrites(nil)
	if err := m.Set("technologies", []byte("x")); err != nil {
		t.Fatalf("Set after restore: %v", err)
	}
}
