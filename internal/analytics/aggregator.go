package analytics

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sjbitcode/url-shortener/internal/geo"
	"github.com/sjbitcode/url-shortener/internal/metrics"
	"github.com/sjbitcode/url-shortener/internal/models"
)

// DirectSource is the referer source recorded when a visit has no usable
// Referer header.
const DirectSource = "direct"

const DefaultGeoTimeout = 500 * time.Millisecond

// LookupFunc resolves an IP to a location. ok is false when nothing is known.
type LookupFunc func(ctx context.Context, ip string) (loc geo.Location, ok bool)

// ClickCounter increments the total click count of a link.
type ClickCounter interface {
	IncrementTotalClicks(ctx context.Context, linkID int64) error
}

type Visit struct {
	IP      string
	Referer string
	// At defaults to the current time.
	At time.Time
	// Bot limits the visit to the total click count.
	Bot bool
}

// Outcome describes what a visit changed.
type Outcome struct {
	NewUnique bool
	Source    string
	Region    *geo.Location
}

type AggregatorOptions struct {
	Lookup     LookupFunc
	GeoTimeout time.Duration
	// HashKey, when set, makes stored visitor IPs an HMAC-SHA256 of the IP.
	HashKey []byte
	Log     *zap.Logger
}

type Aggregator struct {
	db         *sql.DB
	clicks     ClickCounter
	lookup     LookupFunc
	geoTimeout time.Duration
	hashKey    []byte
	log        *zap.Logger
	now        func() time.Time
}

func NewAggregator(db *sql.DB, clicks ClickCounter, opts AggregatorOptions) *Aggregator {
	a := &Aggregator{
		db:         db,
		clicks:     clicks,
		lookup:     opts.Lookup,
		geoTimeout: opts.GeoTimeout,
		hashKey:    opts.HashKey,
		log:        opts.Log,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if a.geoTimeout <= 0 {
		a.geoTimeout = DefaultGeoTimeout
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	return a
}

// RecordVisit applies a visit to the link's aggregates: unique visitors,
// referer counts, region counts and the total click count. Each update is
// attempted regardless of whether the others fail, and the returned error
// joins the failures. A missing geolocation is not an error. Bot visits only
// count toward the total.
func (a *Aggregator) RecordVisit(ctx context.Context, link *models.Link, v Visit) (Outcome, error) {
	at := v.At
	if at.IsZero() {
		at = a.now()
	}

	var out Outcome
	var errs []error

	if !v.Bot {
		out, errs = a.recordAudience(ctx, link.ID, v, at)
	}

	if err := a.clicks.IncrementTotalClicks(ctx, link.ID); err != nil {
		metrics.AggregationFailures.WithLabelValues("total_clicks").Inc()
		errs = append(errs, fmt.Errorf("total clicks: %w", err))
	}

	metrics.VisitsRecorded.Inc()
	return out, errors.Join(errs...)
}

// recordAudience runs the unique visitor, referer and region updates.
func (a *Aggregator) recordAudience(ctx context.Context, linkID int64, v Visit, at time.Time) (Outcome, []error) {
	var out Outcome
	var errs []error

	newUnique, err := a.trackVisitor(ctx, linkID, v.IP, at)
	if err != nil {
		metrics.AggregationFailures.WithLabelValues("unique_visitor").Inc()
		errs = append(errs, fmt.Errorf("unique visitor: %w", err))
	}
	out.NewUnique = newUnique
	if newUnique {
		metrics.UniqueVisitors.Inc()
	}

	out.Source = RefererSource(v.Referer)
	if err := models.IncrementReferer(ctx, a.db, linkID, out.Source); err != nil {
		metrics.AggregationFailures.WithLabelValues("referer").Inc()
		errs = append(errs, fmt.Errorf("referer: %w", err))
	}

	if loc, ok := a.geolocate(ctx, v.IP); ok {
		out.Region = &loc
		if err := a.trackRegion(ctx, linkID, loc, at); err != nil {
			metrics.AggregationFailures.WithLabelValues("region").Inc()
			errs = append(errs, fmt.Errorf("region: %w", err))
		}
	} else {
		metrics.GeoMisses.Inc()
	}

	return out, errs
}

func (a *Aggregator) trackVisitor(ctx context.Context, linkID int64, ip string, at time.Time) (bool, error) {
	if ip == "" {
		return false, nil
	}
	return models.InsertUniqueVisitor(ctx, a.db, linkID, a.visitorID(ip), at)
}

// visitorID is the value stored for ip in unique_visitors.
func (a *Aggregator) visitorID(ip string) string {
	if len(a.hashKey) == 0 {
		return ip
	}
	mac := hmac.New(sha256.New, a.hashKey)
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *Aggregator) trackRegion(ctx context.Context, linkID int64, loc geo.Location, at time.Time) error {
	countryID, err := models.UpsertCountry(ctx, a.db, loc.CountryCode, loc.CountryName)
	if err != nil {
		return err
	}
	return models.IncrementRegion(ctx, a.db, linkID, countryID, loc.CountryCode, loc.Region, at)
}

type lookupResult struct {
	loc geo.Location
	ok  bool
}

// geolocate runs the lookup bounded by the geo timeout. A slow or failing
// lookup yields ok == false.
func (a *Aggregator) geolocate(ctx context.Context, ip string) (geo.Location, bool) {
	if a.lookup == nil || ip == "" {
		return geo.Location{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, a.geoTimeout)
	defer cancel()

	ch := make(chan lookupResult, 1)
	go func() {
		loc, ok := a.lookup(ctx, ip)
		ch <- lookupResult{loc: loc, ok: ok}
	}()

	select {
	case res := <-ch:
		if res.ok && res.loc.CountryCode == "" {
			return geo.Location{}, false
		}
		return res.loc, res.ok
	case <-ctx.Done():
		a.log.Debug("geolocation timed out", zap.Duration("timeout", a.geoTimeout))
		return geo.Location{}, false
	}
}

// RefererSource reduces a Referer header to the referring host, lower-cased
// and without a leading "www.". Empty or unparseable values map to
// DirectSource.
func RefererSource(referer string) string {
	referer = strings.TrimSpace(referer)
	if referer == "" {
		return DirectSource
	}
	u, err := url.Parse(referer)
	if err != nil {
		return DirectSource
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return DirectSource
	}
	return host
}
