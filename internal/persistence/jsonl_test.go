package persistence

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFailures(t *testing.T) {
	input := strings.Join([]string{
		`{"test":"MyClass:testAdd","message":"Expected 1 but was 2","callstack":"testAdd MyClass.cls at line 42  (MyClass.r)"}`,
		``,
		`{"message":"** Unable to run x.p. (293)","callstack":"x.p at line 1  (x.r)\nABLUnitCore.p at line 79  (ABLUnitCore.r)"}`,
	}, "\n")

	records, err := ReadFailures(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadFailures() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ReadFailures() returned %d records, want 2", len(records))
	}
	if records[0].Test != "MyClass:testAdd" {
		t.Errorf("records[0].Test = %q", records[0].Test)
	}
	if !strings.Contains(records[1].CallStack, "\nABLUnitCore.p") {
		t.Errorf("records[1].CallStack = %q", records[1].CallStack)
	}
}

func TestReadFailures_BadLine(t *testing.T) {
	_, err := ReadFailures(strings.NewReader("{\"message\":\"ok\"}\n{broken\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("ReadFailures() error = %v, want line 2", err)
	}
}

func TestReadFailuresFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures.jsonl")
	if err := os.WriteFile(path, []byte(`{"message":"m","callstack":"a.p at line 1  (a.r)"}`+"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	records, err := ReadFailuresFile(path)
	if err != nil || len(records) != 1 {
		t.Errorf("ReadFailuresFile() = %+v, %v", records, err)
	}
	if _, err := ReadFailuresFile(filepath.Join(t.TempDir(), "none")); err == nil {
		t.Error("ReadFailuresFile() of a missing file should fail")
	}
}

func TestComputeFileHash(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	_ = os.WriteFile(a, []byte("same"), 0o600)
	_ = os.WriteFile(b, []byte("same"), 0o600)

	ha, err := ComputeFileHash(a)
	if err != nil {
		t.Fatalf("ComputeFileHash() error = %v", err)
	}
	hb, _ := ComputeFileHash(b)
	if ha != hb || len(ha) != 64 {
		t.Errorf("hashes = %s, %s", ha, hb)
	}
}
