//go:build cgo

package store

import (
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state", "yomu.duckdb")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveLoad(t *testing.T) {
	db := newTestDB(t)

	if err := db.Save("resume:/comics/ch1", `{"index":5}`); err != nil {
		t.Fatalf("save: %v", err)
	}
	v, ok, err := db.Load("resume:/comics/ch1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok || v != `{"index":5}` {
		t.Errorf("load = %q ok=%v", v, ok)
	}
}

func TestLoadMissing(t *testing.T) {
	db := newTestDB(t)
	_, ok, err := db.Load("no-such-key")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Error("missing key reported as present")
	}
}

func TestSaveOverwrites(t *testing.T) {
	db := newTestDB(t)

	for _, v := range []string{"one", "two", "three"} {
		if err := db.Save("k", v); err != nil {
			t.Fatalf("save %q: %v", v, err)
		}
	}
	v, ok, err := db.Load("k")
	if err != nil || !ok {
		t.Fatalf("load: %v ok=%v", err, ok)
	}
	if v != "three" {
		t.Errorf("load = %q, want last write", v)
	}
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)

	if err := db.Save("k", "v"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := db.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := db.Load("k"); ok {
		t.Error("key present after delete")
	}
	if err := db.Delete("k"); err != nil {
		t.Errorf("deleting an absent key: %v", err)
	}
}

func TestKeysPrefix(t *testing.T) {
	db := newTestDB(t)

	for _, k := range []string{"resume:/a", "resume:/b", "sessions"} {
		if err := db.Save(k, "v"); err != nil {
			t.Fatalf("save %q: %v", k, err)
		}
	}
	keys, err := db.Keys("resume:")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("keys = %v, want the two resume entries", keys)
	}
	for _, k := range keys {
		if k != "resume:/a" && k != "resume:/b" {
			t.Errorf("unexpected key %q", k)
		}
	}
}
