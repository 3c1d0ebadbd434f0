package database

import (
	"slices"
	"testing"
	"testing/fstest"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_assets.up.sql": {Data: []byte("SELECT 2")},
		"001_init.up.sql":   {Data: []byte("SELECT 1")},
		"001_init.down.sql": {Data: []byte("SELECT 0")},
		"003_extra.up.sql":  {Data: []byte("SELECT 3")},
		"README.md":         {Data: []byte("notes")},
		"nested/004.up.sql": {Data: []byte("SELECT 4")},
	}

	got, err := pendingMigrations(fsys, []string{"002_assets.up.sql"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"001_init.up.sql", "003_extra.up.sql"}
	if !slices.Equal(got, want) {
		t.Errorf("pendingMigrations() = %v, want %v", got, want)
	}
}
