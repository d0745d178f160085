// Check program for the CONFAZ CFOP sources.
// It probes every reference URL and reports robots.txt, status and parsed
// entries, then runs the crawl that refdata fetch would perform.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/fiscalia/internal/cache"
	"github.com/ppiankov/fiscalia/internal/model"
	"github.com/ppiankov/fiscalia/internal/refdata"
	"github.com/ppiankov/fiscalia/internal/util"
	"github.com/ppiankov/fiscalia/internal/worker"
)

func main() {
	fmt.Println("=== CONFAZ Source Check ===")
	fmt.Println()

	urls := refdata.DefaultURLs
	if len(os.Args) > 1 {
		urls = os.Args[1:]
	}

	cfg := model.DefaultConfig()
	robots := util.NewRobotsChecker(cfg.HTTP.UserAgent, util.NewHTTPClient(15, "", "", ""))
	pages := cache.NewMemoryCache(cfg.Cache.MemoryTTL, time.Minute)
	fetcher := refdata.NewFetcher(cfg.HTTP, refdata.Options{
		Limiter: worker.NewLimiterFromConfig(cfg.RateLimiting),
		Cache:   pages,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	authority := refdata.NewAuthorityClassifier(nil, nil)

	failures := 0
	for _, url := range urls {
		fmt.Printf("Testing: %s\n", url)
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("  Source tier: %s\n", authority.Classify(url))

		allowed, delay, err := robots.CanFetch(ctx, url)
		switch {
		case err != nil:
			fmt.Printf("  robots.txt check error: %v\n", err)
		case !allowed:
			fmt.Println("  ⚠️  DISALLOWED by robots.txt")
		default:
			fmt.Printf("  ✓ Allowed by robots.txt (crawl delay %v)\n", delay)
		}

		start := time.Now()
		page, err := fetcher.Fetch(ctx, url)
		if err != nil {
			failures++
			fmt.Printf("  ✗ Fetch failed: %v\n\n", err)
			continue
		}
		fmt.Printf("  ✓ HTTP %d, %s, %d bytes in %v\n",
			page.StatusCode, page.ContentType, len(page.HTML), time.Since(start).Round(time.Millisecond))

		text, err := refdata.ExtractText(page.HTML)
		if err != nil {
			failures++
			fmt.Printf("  ✗ HTML parse failed: %v\n\n", err)
			continue
		}

		entries := refdata.ParseEntries(text, time.Now())
		if len(entries) == 0 {
			failures++
			fmt.Println("  ⚠️  NO CFOP ENTRIES FOUND (page layout may have changed)")
			fmt.Println()
			continue
		}

		stats := refdata.ComputeStats(entries)
		fmt.Printf("  ✓ %d entries", stats.Total)
		for _, t := range []string{"Entrada", "Saída", "Outro"} {
			if n := stats.ByType[t]; n > 0 {
				fmt.Printf(", %s %d", t, n)
			}
		}
		fmt.Println()
		fmt.Println()
	}

	fmt.Println("Crawl (as refdata fetch)")
	fmt.Println(strings.Repeat("-", 60))
	start := time.Now()
	entries, err := refdata.Crawl(ctx, fetcher, urls, time.Now())
	if err != nil {
		failures++
		fmt.Printf("  ✗ Crawl failed: %v\n", err)
	} else {
		fmt.Printf("  ✓ %d entries from %s in %v\n", len(entries), entries[0].Source, time.Since(start).Round(time.Millisecond))
	}
	st := pages.Stats()
	fmt.Printf("  Page cache: %d hits, %d misses\n\n", st.MemoryHits, st.Misses)

	fmt.Println("=== Check Complete ===")
	if failures > 0 {
		fmt.Printf("%d of %d checks failed\n", failures, len(urls)+1)
		os.Exit(1)
	}
}
