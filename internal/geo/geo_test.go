package geo

import (
	"context"
	"testing"
)

func TestOpen_EmptyPath_ReturnsNoOpReader(t *testing.T) {
	r, err := Open("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil {
		t.Fatal("expected non-nil Reader")
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/geo.mmdb"); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestLookup_NoOpReader_ReturnsAbsent(t *testing.T) {
	r, _ := Open("")
	loc, ok := r.Lookup(context.Background(), "8.8.8.8")
	if ok {
		t.Errorf("expected absent location, got %+v", loc)
	}
}

func TestLookup_NilReader_ReturnsAbsent(t *testing.T) {
	var r *Reader
	if _, ok := r.Lookup(context.Background(), "8.8.8.8"); ok {
		t.Error("nil reader should report absent")
	}
}

func TestRecordLocation(t *testing.T) {
	var rec record
	rec.Country.ISOCode = "US"
	rec.Country.Names = map[string]string{"en": "United States"}
	rec.Subdivisions = append(rec.Subdivisions, struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	}{ISOCode: "CA", Names: map[string]string{"en": "California"}})

	loc, ok := rec.location()
	if !ok {
		t.Fatal("expected location")
	}
	want := Location{CountryCode: "US", CountryName: "United States", Region: "CA"}
	if loc != want {
		t.Errorf("got %+v, want %+v", loc, want)
	}
}

func TestRecordLocation_RegionFallsBackToName(t *testing.T) {
	var rec record
	rec.Country.ISOCode = "GB"
	rec.Subdivisions = append(rec.Subdivisions, struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	}{Names: map[string]string{"en": "England"}})

	loc, ok := rec.location()
	if !ok || loc.Region != "England" {
		t.Errorf("got %+v ok=%v, want region England", loc, ok)
	}
}

func TestRecordLocation_NoCountry(t *testing.T) {
	if _, ok := (record{}).location(); ok {
		t.Error("record without a country should be absent")
	}
}

func TestClose_NoOpReader_NoPanic(t *testing.T) {
	r, _ := Open("")
	r.Close()
}
