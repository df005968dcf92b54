package db

import (
	"path/filepath"
	"testing"
)

func TestOpen_MemoryRunsMigrations(t *testing.T) {
	d, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	for _, table := range []string{"links", "tags", "link_tags", "unique_visitors", "referers", "countries", "regions"} {
		var name string
		err := d.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := Migrate(d); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	d.Close()

	d, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	d.Close()
}

func TestSchema_RejectsInvalidRows(t *testing.T) {
	d, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if _, err := d.Exec(`INSERT INTO links (key, destination) VALUES ('', 'https://a.com')`); err == nil {
		t.Error("empty key should violate the length check")
	}
	if _, err := d.Exec(`INSERT INTO links (key, destination, total_clicks) VALUES ('neg', 'https://a.com', -1)`); err == nil {
		t.Error("negative total_clicks should violate the check")
	}
	if _, err := d.Exec(`INSERT INTO referers (link_id, source, total_clicks) VALUES (999, 'direct', 1)`); err == nil {
		t.Error("referer for unknown link should violate the foreign key")
	}
}

func TestSchema_CascadesLinkDeletion(t *testing.T) {
	d, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	res, err := d.Exec(`INSERT INTO links (key, destination) VALUES ('gone', 'https://a.com')`)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := res.LastInsertId()
	if _, err := d.Exec(`INSERT INTO referers (link_id, source, total_clicks) VALUES (?, 'direct', 1)`, id); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Exec(`INSERT INTO unique_visitors (link_id, ip_address, first_seen) VALUES (?, '1.1.1.1', CURRENT_TIMESTAMP)`, id); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Exec(`DELETE FROM links WHERE id = ?`, id); err != nil {
		t.Fatal(err)
	}

	var n int
	d.QueryRow(`SELECT (SELECT COUNT(*) FROM referers) + (SELECT COUNT(*) FROM unique_visitors)`).Scan(&n)
	if n != 0 {
		t.Errorf("owned rows left after delete = %d, want 0", n)
	}
}

func TestIsRemote(t *testing.T) {
	for path, want := range map[string]bool{
		"libsql://db.turso.io":  true,
		"wss://db.example.com":  true,
		"./shortener.db":        false,
		":memory:":              false,
		"file:test.db?cache=sh": false,
	} {
		if got := isRemote(path); got != want {
			t.Errorf("isRemote(%q) = %v, want %v", path, got, want)
		}
	}
}
