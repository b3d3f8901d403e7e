// http-loadgen is a small HTTP load generator for the storefront API.
// It reuses HTTP connections (keep-alive) and spreads product views across
// concurrent workers.
//
// Modes:
//   - single: every request views one product as one signed-in user
//   - zipf:   approximate 80/20 skew without PRNG: the hot product gets 4/5 of views
//   - guest:  each worker is a separate browser with its own cookie jar
//
// Usage examples:
//
//	http-loadgen -base=http://127.0.0.1:8080 -mode=single -product=smart-watch -jwt_secret=dev -n=5000 -c=16
//	http-loadgen -base=http://127.0.0.1:8080 -mode=zipf -hot=running-shoes -cold=smart-watch,cotton-t-shirt -jwt_secret=dev
//	http-loadgen -base=http://127.0.0.1:8080 -mode=guest -product=running-shoes -n=2000 -c=8
//
// Prints a one-line summary with duration, throughput and status counts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type modeType string

const (
	modeSingle modeType = "single"
	modeZipf   modeType = "zipf"
	modeGuest  modeType = "guest"
)

func main() {
	var (
		base      = flag.String("base", "http://127.0.0.1:8080", "Base URL including scheme and host, e.g. http://127.0.0.1:8080")
		modeS     = flag.String("mode", string(modeSingle), "Mode: single|zipf|guest")
		product   = flag.String("product", "smart-watch", "Product id for single and guest modes")
		hot       = flag.String("hot", "running-shoes", "Hot product id for zipf mode")
		cold      = flag.String("cold", "smart-watch,cotton-t-shirt,programming-book", "Comma-separated cold product ids for zipf mode")
		user      = flag.String("user", "load-user", "Signed-in user id (single and zipf modes)")
		jwtSecret = flag.String("jwt_secret", "", "HS256 secret shared with the server; required unless -mode=guest")
		N         = flag.Int("n", 5000, "Total requests to send")
		conc      = flag.Int("c", 8, "Number of concurrent workers")
		// Deterministic skew: hotEvery=5 means 4/5 go to the hot product.
		hotEvery = flag.Int("hot_every", 5, "Zipf-like skew period (4 of this period go to hot; minimum 2)")
		// Timeouts & transport tuning
		timeout    = flag.Duration("timeout", 20*time.Second, "Overall timeout for the loadgen run")
		connIdle   = flag.Duration("idle_timeout", 30*time.Second, "HTTP idle connection timeout")
		maxIdle    = flag.Int("max_idle", 256, "Max idle connections total")
		maxIdlePer = flag.Int("max_idle_per_host", 256, "Max idle connections per host")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeSingle && m != modeZipf && m != modeGuest {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want single|zipf|guest)\n", *modeS)
		os.Exit(2)
	}
	if *N <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}
	coldIDs := splitIDs(*cold)
	if m == modeZipf {
		if len(coldIDs) == 0 {
			fmt.Fprintln(os.Stderr, "-cold must list at least one product in zipf mode")
			os.Exit(2)
		}
		if *hotEvery < 2 {
			*hotEvery = 2
		}
	}

	var auth string
	if m != modeGuest {
		if *jwtSecret == "" {
			fmt.Fprintln(os.Stderr, "-jwt_secret is required for signed-in modes")
			os.Exit(2)
		}
		tok, err := signToken([]byte(*jwtSecret), *user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
			os.Exit(2)
		}
		auth = "Bearer " + tok
	}

	baseURL := strings.TrimRight(*base, "/")
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        *maxIdle,
		MaxIdleConnsPerHost: *maxIdlePer,
		IdleConnTimeout:     *connIdle,
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var ok2xx, other, failed atomic.Int64
	start := time.Now()

	worker := func(id, count int) {
		client := &http.Client{Transport: tr, Timeout: 5 * time.Second}
		if m == modeGuest {
			jar, _ := cookiejar.New(nil)
			client.Jar = jar
		}
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			item := *product
			if m == modeZipf {
				item = pickZipf(i+id, *hotEvery, *hot, coldIDs)
			}
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/products/"+item, nil)
			if auth != "" {
				req.Header.Set("Authorization", auth)
			}
			resp, err := client.Do(req)
			if err != nil {
				failed.Add(1)
				// Brief backoff on errors to avoid hot spinning
				time.Sleep(200 * time.Microsecond)
				continue
			}
			// Drain and close body to enable connection reuse
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode/100 == 2 {
				ok2xx.Add(1)
			} else {
				other.Add(1)
			}
		}
	}

	// Split N across conc workers
	per := *N / *conc
	rem := *N - per**conc
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(id, n int) {
			defer wg.Done()
			worker(id, n)
		}(w, count)
	}
	wg.Wait()
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(*N) / elapsed.Seconds()
	fmt.Printf("LoadGen: mode=%s N=%d c=%d go=%d Duration=%s Throughput=%.0f req/s 2xx=%d other=%d errors=%d\n",
		m, *N, *conc, runtime.GOMAXPROCS(0), elapsed.Truncate(time.Millisecond), ops, ok2xx.Load(), other.Load(), failed.Load())
}

// pickZipf sends n to the hot product unless n falls on the period boundary,
// in which case it round-robins the cold products.
func pickZipf(n, hotEvery int, hot string, cold []string) string {
	if n%hotEvery != 0 {
		return hot
	}
	return cold[(n/hotEvery)%len(cold)]
}

func splitIDs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func signToken(secret []byte, sub string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  sub,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}).SignedString(secret)
}
