// Package geo resolves visitor IPs to a country and region using a MaxMind
// database.
package geo

import (
	"context"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

type Location struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name,omitempty"`
	Region      string `json:"region"`
}

type Reader struct {
	db *maxminddb.Reader
}

// Open opens a MaxMind .mmdb file. Returns a no-op Reader if path is empty.
func Open(path string) (*Reader, error) {
	if path == "" {
		return &Reader{}, nil
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() {
	if r != nil && r.db != nil {
		r.db.Close()
	}
}

type record struct {
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	Subdivisions []struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"subdivisions"`
}

// Lookup resolves an IP to a location. ok is false when the reader has no
// database, the IP is malformed, or the database has no country for it.
func (r *Reader) Lookup(ctx context.Context, ipStr string) (Location, bool) {
	if r == nil || r.db == nil || ctx.Err() != nil {
		return Location{}, false
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return Location{}, false
	}

	var rec record
	if err := r.db.Lookup(ip, &rec); err != nil {
		return Location{}, false
	}
	return rec.location()
}

func (rec record) location() (Location, bool) {
	if rec.Country.ISOCode == "" {
		return Location{}, false
	}
	loc := Location{
		CountryCode: rec.Country.ISOCode,
		CountryName: rec.Country.Names["en"],
	}
	if len(rec.Subdivisions) > 0 {
		sub := rec.Subdivisions[0]
		loc.Region = sub.ISOCode
		if loc.Region == "" {
			loc.Region = sub.Names["en"]
		}
	}
	return loc, true
}
