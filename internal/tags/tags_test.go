package tags

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/sjbitcode/url-shortener/internal/db"
	"github.com/sjbitcode/url-shortener/internal/models"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func createTestLink(t *testing.T, d *sql.DB, key string) int64 {
	t.Helper()
	l := &models.Link{Key: key, Destination: "https://example.com/" + key}
	if err := models.InsertLink(context.Background(), d, l); err != nil {
		t.Fatal(err)
	}
	return l.ID
}

func tagNames(tags []models.Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names
}

func TestSplit(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"go", []string{"go"}},
		{"go, rust ,zig", []string{"go", " rust ", "zig"}},
	}
	for _, tt := range tests {
		if got := Split(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Split(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNames(t *testing.T) {
	got := Names([]string{"The Sky", " ", "", "bad_tag", "the-sky", "go", "GO"})
	want := []string{"the-sky", "go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %q, want %q", got, want)
	}
}

func TestSetTags_CreatesAndLinks(t *testing.T) {
	d := testDB(t)
	l := NewLinker(d, 0)
	ctx := context.Background()
	id := createTestLink(t, d, "a")

	got, err := l.SetTags(ctx, id, []string{"News", "two  words"})
	if err != nil {
		t.Fatal(err)
	}
	if names := tagNames(got); !reflect.DeepEqual(names, []string{"news", "two-words"}) {
		t.Errorf("SetTags = %q", names)
	}

	stored, err := l.Tags(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if names := tagNames(stored); !reflect.DeepEqual(names, []string{"news", "two-words"}) {
		t.Errorf("Tags = %q", names)
	}
}

func TestSetTags_LimitRejectsWholeOperation(t *testing.T) {
	d := testDB(t)
	l := NewLinker(d, 2)
	ctx := context.Background()
	id := createTestLink(t, d, "a")

	if _, err := l.SetTags(ctx, id, []string{"keep"}); err != nil {
		t.Fatal(err)
	}

	_, err := l.SetTags(ctx, id, []string{"a", "b", "c"})
	if !errors.Is(err, ErrTagLimitExceeded) {
		t.Fatalf("err = %v, want ErrTagLimitExceeded", err)
	}

	stored, err := l.Tags(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if names := tagNames(stored); !reflect.DeepEqual(names, []string{"keep"}) {
		t.Errorf("Tags after rejected update = %q, want [keep]", names)
	}
	for _, name := range []string{"a", "b", "c"} {
		if ok, _ := models.TagExists(ctx, d, name); ok {
			t.Errorf("tag %q should not have been created", name)
		}
	}
}

func TestSetTags_LimitCountsSurvivingNames(t *testing.T) {
	d := testDB(t)
	l := NewLinker(d, 2)
	id := createTestLink(t, d, "a")

	_, err := l.SetTags(context.Background(), id, []string{"x", "X", " ", "bad!", "y"})
	if err != nil {
		t.Fatalf("duplicates and invalid entries must not count: %v", err)
	}
}

func TestSetTags_PrunesLastReference(t *testing.T) {
	d := testDB(t)
	l := NewLinker(d, 0)
	ctx := context.Background()
	id := createTestLink(t, d, "a")

	if _, err := l.SetTags(ctx, id, []string{"old", "stay"}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.SetTags(ctx, id, []string{"stay"}); err != nil {
		t.Fatal(err)
	}

	if ok, _ := models.TagExists(ctx, d, "old"); ok {
		t.Error("tag with no remaining links should be deleted")
	}
	if ok, _ := models.TagExists(ctx, d, "stay"); !ok {
		t.Error("tag still linked should survive")
	}
}

func TestSetTags_SharedTagSurvives(t *testing.T) {
	d := testDB(t)
	l := NewLinker(d, 0)
	ctx := context.Background()
	a := createTestLink(t, d, "a")
	b := createTestLink(t, d, "b")

	if _, err := l.SetTags(ctx, a, []string{"shared"}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.SetTags(ctx, b, []string{"shared"}); err != nil {
		t.Fatal(err)
	}

	if _, err := l.SetTags(ctx, a, nil); err != nil {
		t.Fatal(err)
	}
	if ok, _ := models.TagExists(ctx, d, "shared"); !ok {
		t.Fatal("tag referenced by another link must survive")
	}

	if _, err := l.SetTags(ctx, b, nil); err != nil {
		t.Fatal(err)
	}
	if ok, _ := models.TagExists(ctx, d, "shared"); ok {
		t.Error("tag should be deleted once its last link drops it")
	}
}

func TestSetTags_ReusesExistingTag(t *testing.T) {
	d := testDB(t)
	l := NewLinker(d, 0)
	ctx := context.Background()
	a := createTestLink(t, d, "a")
	b := createTestLink(t, d, "b")

	ta, err := l.SetTags(ctx, a, []string{"go"})
	if err != nil {
		t.Fatal(err)
	}
	tb, err := l.SetTags(ctx, b, []string{"Go"})
	if err != nil {
		t.Fatal(err)
	}
	if ta[0].ID != tb[0].ID {
		t.Errorf("tag ids differ: %d vs %d", ta[0].ID, tb[0].ID)
	}
}
