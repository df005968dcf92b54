// Command bench builds the server, seeds it with links and measures redirect
// latency under concurrent load. After the run it reports how many visits the
// analytics pipeline recorded.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/sjbitcode/url-shortener/internal/db"
	"github.com/sjbitcode/url-shortener/internal/links"
	"github.com/sjbitcode/url-shortener/internal/logger"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	"curl/8.4.0",
}

var referers = []string{"", "https://www.google.com/", "https://news.ycombinator.com/item?id=1"}

type options struct {
	links       int
	concurrency int
	duration    time.Duration
}

type result struct {
	latencies []time.Duration
	failures  int
}

func main() {
	var opts options
	flag.IntVar(&opts.links, "n", 200, "number of links to seed")
	flag.IntVar(&opts.concurrency, "c", 50, "number of concurrent workers")
	flag.DurationVar(&opts.duration, "d", 10*time.Second, "benchmark duration")
	flag.Parse()

	log, err := logger.New("development", "info")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, opts); err != nil {
		log.Fatal("bench failed", zap.Error(err))
	}
}

func run(log *zap.Logger, opts options) error {
	dir, err := os.MkdirTemp("", "shortener-bench-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	bin := filepath.Join(dir, "server")
	build := exec.Command("go", "build", "-o", bin, "./cmd/server")
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	dbPath := filepath.Join(dir, "bench.db")
	keys, err := seed(dbPath, opts.links)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	log.Info("seeded", zap.Int("links", len(keys)))

	srv, baseURL, err := start(bin, dir, dbPath)
	if err != nil {
		return err
	}
	stop := sync.OnceFunc(func() {
		srv.Process.Signal(syscall.SIGINT)
		srv.Wait()
	})
	defer stop()

	log.Info("benchmarking", zap.String("url", baseURL), zap.Duration("duration", opts.duration), zap.Int("workers", opts.concurrency))
	res := hammer(baseURL, keys, opts)

	// The server drains its visit buffer on shutdown.
	stop()
	clicks, uniques, err := recorded(dbPath)
	if err != nil {
		return fmt.Errorf("read totals: %w", err)
	}

	report(os.Stdout, res, opts.duration, clicks, uniques)
	return nil
}

func seed(dbPath string, n int) ([]string, error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	registry := links.NewRegistry(database, nil, nil, nil)
	keys := make([]string, 0, n)
	for i := range n {
		l, err := registry.Create(context.Background(), links.CreateParams{
			Destination: fmt.Sprintf("https://example.com/bench/%d", i),
		})
		if err != nil {
			return nil, err
		}
		keys = append(keys, l.Key)
	}
	return keys, nil
}

func start(bin, dir, dbPath string) (*exec.Cmd, string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", err
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	out, err := os.Create(filepath.Join(dir, "server.log"))
	if err != nil {
		return nil, "", err
	}

	srv := exec.Command(bin)
	srv.Stdout = out
	srv.Stderr = out
	srv.Env = append(os.Environ(),
		"SHORTENER_PASSWORD=bench",
		"SHORTENER_SITE_DOMAIN=127.0.0.1",
		fmt.Sprintf("SHORTENER_PORT=%d", port),
		"SHORTENER_DB_PATH="+dbPath,
		"SHORTENER_BUFFER_SIZE=500000",
		"SHORTENER_LOG_LEVEL=warn",
	)
	if err := srv.Start(); err != nil {
		return nil, "", fmt.Errorf("start server: %w", err)
	}

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	client := &http.Client{Timeout: 500 * time.Millisecond}
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); time.Sleep(50 * time.Millisecond) {
		resp, err := client.Get(baseURL + "/healthz")
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return srv, baseURL, nil
		}
	}
	srv.Process.Kill()
	srv.Wait()
	return nil, "", fmt.Errorf("server not ready on port %d", port)
}

// hammer issues redirects against random keys from every worker until the
// duration elapses. Anything but a 301 counts as a failure.
func hammer(baseURL string, keys []string, opts options) result {
	client := &http.Client{
		Transport: &http.Transport{MaxIdleConnsPerHost: opts.concurrency},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	deadline := time.Now().Add(opts.duration)

	var mu sync.Mutex
	var res result
	var wg sync.WaitGroup
	for w := range opts.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(w), 42))
			var local result
			for time.Now().Before(deadline) {
				req, _ := http.NewRequest(http.MethodGet, baseURL+"/"+keys[rng.IntN(len(keys))], nil)
				req.Header.Set("User-Agent", userAgents[rng.IntN(len(userAgents))])
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.%d.%d.%d", w, rng.IntN(256), rng.IntN(256)))
				if ref := referers[rng.IntN(len(referers))]; ref != "" {
					req.Header.Set("Referer", ref)
				}

				began := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					local.failures++
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				if resp.StatusCode != http.StatusMovedPermanently {
					local.failures++
					continue
				}
				local.latencies = append(local.latencies, time.Since(began))
			}

			mu.Lock()
			res.latencies = append(res.latencies, local.latencies...)
			res.failures += local.failures
			mu.Unlock()
		}()
	}
	wg.Wait()

	slices.Sort(res.latencies)
	return res
}

func recorded(dbPath string) (clicks, uniques int64, err error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return 0, 0, err
	}
	defer database.Close()

	err = database.QueryRow(`SELECT
		(SELECT COALESCE(SUM(total_clicks), 0) FROM links),
		(SELECT COUNT(*) FROM unique_visitors)`).Scan(&clicks, &uniques)
	return clicks, uniques, err
}

func report(w io.Writer, res result, d time.Duration, clicks, uniques int64) {
	ok := int64(len(res.latencies))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "redirects\t%d\n", ok)
	fmt.Fprintf(tw, "failures\t%d\n", res.failures)
	fmt.Fprintf(tw, "rps\t%.1f\n", float64(ok+int64(res.failures))/d.Seconds())
	for _, p := range []int{50, 95, 99} {
		fmt.Fprintf(tw, "p%d\t%s\n", p, percentile(res.latencies, p))
	}
	fmt.Fprintf(tw, "clicks recorded\t%d (%d dropped)\n", clicks, ok-clicks)
	fmt.Fprintf(tw, "unique visitors\t%d\n", uniques)
	tw.Flush()
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[min(len(sorted)*p/100, len(sorted)-1)]
}
