package prof_test

import (
	"os"
	"path/filepath"
	"testing"

	"ipa/internal/prof"
)

func TestSessionWritesFiles(t *testing.T) {
	dir := t.TempDir()
	mem := filepath.Join(dir, "mem.pprof")
	s, err := prof.Start("", "", mem)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if st, err := os.Stat(mem); err != nil || st.Size() == 0 {
		t.Fatalf("heap profile missing: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestStartBadPath(t *testing.T) {
	if _, err := prof.Start(filepath.Join(t.TempDir(), "missing", "cpu.pprof"), "", ""); err == nil {
		t.Fatalf("Start into a missing directory should fail")
	}
}

func TestNilSessionStop(t *testing.T) {
	var s *prof.Session
	if err := s.Stop(); err != nil {
		t.Errorf("nil Stop: %v", err)
	}
}
