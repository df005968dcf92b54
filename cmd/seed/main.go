package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sjbitcode/url-shortener/internal/analytics"
	"github.com/sjbitcode/url-shortener/internal/db"
	"github.com/sjbitcode/url-shortener/internal/geo"
	"github.com/sjbitcode/url-shortener/internal/links"
	"github.com/sjbitcode/url-shortener/internal/logger"
	"github.com/sjbitcode/url-shortener/internal/tags"
)

type seedLink struct {
	key   string
	dest  string
	title string
	tags  string
	// weight controls relative visit volume (higher = more visits)
	weight float64
}

var seedLinks = []seedLink{
	{"docs", "https://go.dev/doc/", "Go Documentation", "docs", 5.0},
	{"tour", "https://go.dev/tour/welcome/1", "A Tour of Go", "docs, learning", 4.0},
	{"effective", "https://go.dev/doc/effective_go", "Effective Go", "docs,style", 4.5},
	{"modules", "https://go.dev/ref/mod", "Modules Reference", "docs,modules", 3.5},
	{"blog", "https://go.dev/blog/", "The Go Blog", "news", 3.0},
	{"release", "https://go.dev/doc/devel/release", "Release History", "news,releases", 2.8},
	{"play", "https://go.dev/play/", "Playground", "tools", 4.2},
	{"pkg", "https://pkg.go.dev/", "Package Index", "tools,modules", 3.2},
	{"sqlite", "https://www.sqlite.org/lang_upsert.html", "SQLite UPSERT", "databases", 2.0},
	{"chi", "https://go-chi.io/", "chi router", "libraries, http", 2.3},
	{"zap", "https://pkg.go.dev/go.uber.org/zap", "zap logger", "libraries,logging", 1.8},
	{"wiki", "https://go.dev/wiki/", "Go Wiki", "community", 1.2},
}

var referrers = []struct {
	url    string
	weight float64
}{
	{"https://www.google.com/search?q=golang", 30},
	{"", 20}, // direct traffic
	{"https://github.com/", 15},
	{"https://twitter.com/", 8},
	{"https://www.reddit.com/r/golang/", 7},
	{"https://dev.to/", 5},
	{"https://news.ycombinator.com/item?id=1", 5},
	{"https://www.linkedin.com/feed/", 4},
	{"https://stackoverflow.com/questions", 3},
	{"https://t.co/x", 1},
}

// regions is the fake geolocation table; the last octet of an IP picks an entry.
var regions = []geo.Location{
	{CountryCode: "US", CountryName: "United States", Region: "CA"},
	{CountryCode: "US", CountryName: "United States", Region: "NY"},
	{CountryCode: "US", CountryName: "United States", Region: "TX"},
	{CountryCode: "IN", CountryName: "India", Region: "KA"},
	{CountryCode: "IN", CountryName: "India", Region: "MH"},
	{CountryCode: "DE", CountryName: "Germany", Region: "BE"},
	{CountryCode: "GB", CountryName: "United Kingdom", Region: "ENG"},
	{CountryCode: "BR", CountryName: "Brazil", Region: "SP"},
	{CountryCode: "FR", CountryName: "France", Region: "IDF"},
	{CountryCode: "JP", CountryName: "Japan", Region: "13"},
}

// fakeLookup resolves IPs deterministically and leaves every 13th one unknown.
func fakeLookup(_ context.Context, ip string) (geo.Location, bool) {
	var a, b, c, d int
	if _, err := fmt.Sscanf(ip, "%d.%d.%d.%d", &a, &b, &c, &d); err != nil {
		return geo.Location{}, false
	}
	if d%13 == 0 {
		return geo.Location{}, false
	}
	return regions[d%len(regions)], true
}

func pickReferrer(rng *rand.Rand) string {
	var total float64
	for _, r := range referrers {
		total += r.weight
	}
	v := rng.Float64() * total
	for _, r := range referrers {
		v -= r.weight
		if v <= 0 {
			return r.url
		}
	}
	return referrers[0].url
}

func main() {
	dbPath := os.Getenv("SHORTENER_DB_PATH")
	if dbPath == "" {
		dbPath = "./shortener.db"
	}

	zlog, err := logger.New("development", "warn")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	database, err := db.Open(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	registry := links.NewRegistry(database, nil, nil, zlog)
	linker := tags.NewLinker(database, tags.DefaultLimit)
	aggregator := analytics.NewAggregator(database, registry, analytics.AggregatorOptions{
		Lookup: fakeLookup,
		Log:    zlog,
	})

	rng := rand.New(rand.NewSource(42)) // deterministic seed
	now := time.Now().UTC()
	ownerID := int64(1)

	fmt.Println("Seeding links...")

	for _, sl := range seedLinks {
		link, err := registry.Create(ctx, links.CreateParams{
			Key:         sl.key,
			Destination: sl.dest,
			Title:       sl.title,
			OwnerID:     &ownerID,
		})
		if errors.Is(err, links.ErrDuplicateKey) {
			fmt.Printf("  %-10s already exists, skipping\n", sl.key)
			continue
		}
		if err != nil {
			log.Fatalf("create link %q: %v", sl.key, err)
		}
		if _, err := linker.SetTags(ctx, link.ID, tags.Split(sl.tags)); err != nil {
			log.Fatalf("tag link %q: %v", sl.key, err)
		}

		// Visitors come from a pool so some of them return.
		visits := int(sl.weight * 40)
		pool := visits/2 + 1
		var unique int
		for range visits {
			ip := fmt.Sprintf("10.%d.%d.%d", rng.Intn(4), rng.Intn(pool)%256, rng.Intn(pool)%256)
			at := now.Add(-time.Duration(rng.Intn(90*24)) * time.Hour)

			out, err := aggregator.RecordVisit(ctx, link, analytics.Visit{
				IP:      ip,
				Referer: pickReferrer(rng),
				At:      at,
			})
			if err != nil {
				zlog.Warn("record visit", zap.String("key", link.Key), zap.Error(err))
				continue
			}
			if out.NewUnique {
				unique++
			}
		}

		fmt.Printf("  /%-10s %4d visits, %4d unique -> %s\n", link.Key, visits, unique, sl.title)
	}

	summary, err := registry.Summary(ctx, 5)
	if err != nil {
		log.Fatalf("summary: %v", err)
	}
	fmt.Printf("\nDone! %d links with %d total clicks.\n", summary.TotalLinks, summary.TotalClicks)
	fmt.Printf("Database: %s\n", dbPath)
}
