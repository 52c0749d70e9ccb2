package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoadMsgdata(t *testing.T) {
	fsys := fstest.MapFS{
		"prohelp/msgdata/msg1":   {Data: []byte(`1 "one (1)"` + "\n")},
		"prohelp/msgdata/msg2":   {Data: []byte(`2 "two (2)" "help"` + "\n")},
		"prohelp/other/msg3":     {Data: []byte(`3 "three"` + "\n")},
		"prohelp/msgdata/readme": {Data: []byte("not a message file")},
	}

	entries, err := LoadMsgdata(context.Background(), fsys)
	if err != nil {
		t.Fatalf("LoadMsgdata() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("LoadMsgdata() returned %d entries, want 2", len(entries))
	}
	if entries[0].Code != 1 || entries[1].Code != 2 {
		t.Errorf("entries out of order: %+v", entries)
	}
}

func TestLoadMsgdata_Canceled(t *testing.T) {
	fsys := fstest.MapFS{"prohelp/msgdata/msg1": {Data: []byte(`1 "one"`)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := LoadMsgdata(ctx, fsys); err == nil {
		t.Error("LoadMsgdata() with canceled context should fail")
	}
}

func TestLoad_WritesAndPrefersCache(t *testing.T) {
	dlc := t.TempDir()
	cacheDir := filepath.Join(t.TempDir(), "state")
	writeFile(t, filepath.Join(dlc, "prohelp", "msgdata", "msg1"),
		`132 "** exists. (132)" "Second segment.\nMore." "Third segment."`+"\n")

	c, err := Load(context.Background(), Options{DLC: dlc, CacheDir: cacheDir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := c.Lookup(132); !ok {
		t.Fatal("Lookup(132) missing after msgdata load")
	}

	cachePath := filepath.Join(cacheDir, CacheFileName)
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("cache not written: %v", err)
	}
	if _, err := os.Stat(cachePath + ".lock"); !os.IsNotExist(err) {
		t.Errorf("lock file left behind: %v", err)
	}

	// The cache is used even once the runtime is gone.
	c, err = Load(context.Background(), Options{DLC: filepath.Join(dlc, "missing"), CacheDir: cacheDir})
	if err != nil {
		t.Fatalf("Load() from cache error = %v", err)
	}
	e, ok := c.Lookup(132)
	if !ok || len(e.Text) != 3 {
		t.Errorf("Lookup(132) from cache = %+v, %v", e, ok)
	}
}

func TestLoad_NoDLC(t *testing.T) {
	c, err := Load(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestLoad_CorruptCacheFallsBack(t *testing.T) {
	dlc := t.TempDir()
	cacheDir := t.TempDir()
	writeFile(t, filepath.Join(dlc, "prohelp", "msgdata", "msg1"), `7 "seven (7)"`+"\n")
	writeFile(t, filepath.Join(cacheDir, CacheFileName), "{not json")

	c, err := Load(context.Background(), Options{DLC: dlc, CacheDir: cacheDir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := c.Lookup(7); !ok {
		t.Error("Lookup(7) missing after fallback")
	}

	entries, err := ReadCache(filepath.Join(cacheDir, CacheFileName))
	if err != nil || len(entries) != 1 {
		t.Errorf("cache not rewritten: %v, %+v", err, entries)
	}
}

func TestWriteCache_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), CacheFileName)
	in := []Entry{{Code: 132, Text: []string{"a", `b\nc`}}}
	if err := WriteCache(path, in); err != nil {
		t.Fatalf("WriteCache() error = %v", err)
	}
	out, err := ReadCache(path)
	if err != nil {
		t.Fatalf("ReadCache() error = %v", err)
	}
	if len(out) != 1 || out[0].Code != 132 || out[0].Text[1] != `b\nc` {
		t.Errorf("ReadCache() = %+v", out)
	}
}
