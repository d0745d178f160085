package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fiscalia/internal/cache"
	"github.com/ppiankov/fiscalia/internal/cfop"
	"github.com/ppiankov/fiscalia/internal/model"
	"github.com/ppiankov/fiscalia/internal/refdata"
	"github.com/ppiankov/fiscalia/internal/util"
	"github.com/ppiankov/fiscalia/internal/worker"
)

var (
	refdataOutputDir string
	refdataName      string
	refdataURLs      []string
	refdataNoCache   bool
	refdataNoRobots  bool
	refdataInsecure  bool
	refdataTimeout   time.Duration
)

var refdataCmd = &cobra.Command{
	Use:   "refdata",
	Short: "Manage the CFOP reference dataset",
}

var refdataFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the CFOP table from CONFAZ",
	Long: `Fetch downloads the official CFOP listing and writes it as CSV and JSON.

The HTTPS source is tried first with an HTTP fallback. Requests honor
robots.txt, are rate limited per host and cached on disk.

Example:
  fiscalia refdata fetch
  fiscalia refdata fetch --output-dir data --name cfop
  fiscalia refdata fetch --url https://example.org/cfop.html --no-cache`,
	Args: cobra.NoArgs,
	RunE: runRefdataFetch,
}

var refdataShowCmd = &cobra.Command{
	Use:   "show <code>",
	Short: "Look up a CFOP in the configured reference dataset",
	Long:  `Show prints the reference entry for a code, given as 5101 or 5.101.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRefdataShow,
}

func init() {
	rootCmd.AddCommand(refdataCmd)
	refdataCmd.AddCommand(refdataFetchCmd)
	refdataCmd.AddCommand(refdataShowCmd)

	refdataFetchCmd.Flags().StringVar(&refdataOutputDir, "output-dir", "", "directory for the CSV and JSON files (default output.dir)")
	refdataFetchCmd.Flags().StringVar(&refdataName, "name", "", "base file name without extension (default cfop_confaz_<timestamp>)")
	refdataFetchCmd.Flags().StringArrayVar(&refdataURLs, "url", nil, "source URL, repeatable (default CONFAZ)")
	refdataFetchCmd.Flags().BoolVar(&refdataNoCache, "no-cache", false, "bypass the page cache")
	refdataFetchCmd.Flags().BoolVar(&refdataNoRobots, "no-robots", false, "do not check robots.txt")
	refdataFetchCmd.Flags().BoolVar(&refdataInsecure, "insecure", false, "skip TLS certificate verification")
	refdataFetchCmd.Flags().DurationVar(&refdataTimeout, "timeout", 0, "per-request timeout (default http.timeout)")
}

func runRefdataFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Output.Dir = refdataOutputDir
	}
	if refdataNoCache {
		cfg.Cache.Enabled = false
	}
	if refdataNoRobots {
		cfg.HTTP.RespectRobots = false
	}
	if refdataInsecure {
		cfg.HTTP.InsecureTLS = true
	}
	if refdataTimeout > 0 {
		cfg.HTTP.Timeout = refdataTimeout
	}

	urls := refdataURLs
	if len(urls) == 0 {
		urls = refdata.DefaultURLs
	}

	opts := fetchOptions(cfg)
	fetcher := refdata.NewFetcher(cfg.HTTP, opts)

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  CFOP Reference Fetch\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	authority := refdata.NewAuthorityClassifier(nil, nil)
	for _, u := range urls {
		fmt.Fprintf(stderr, "  Source:       %s (%s)\n", u, authority.Classify(u))
	}
	fmt.Fprintf(stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(stderr, "\n")

	now := time.Now()
	entries, err := refdata.Crawl(cmd.Context(), fetcher, urls, now)
	if err != nil {
		return fmt.Errorf("fetch reference data: %w", err)
	}

	csvPath, jsonPath, err := refdata.Save(cfg.Output.Dir, refdataName, entries, now)
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "✓ Wrote %s\n", csvPath)
	fmt.Fprintf(stderr, "✓ Wrote %s\n", jsonPath)
	if r, ok := opts.Cache.(cache.Reporter); ok {
		st := r.Stats()
		fmt.Fprintf(stderr, "  Page cache: %d memory hits, %d disk hits, %d misses\n", st.MemoryHits, st.DiskHits, st.Misses)
	}
	fmt.Fprintln(stderr)
	refdata.WriteStats(cmd.OutOrStdout(), refdata.ComputeStats(entries))
	return nil
}

// fetchOptions wires the limiter, robots checker and page cache from cfg
func fetchOptions(cfg *model.Config) refdata.Options {
	opts := refdata.Options{
		Limiter:  worker.NewLimiterFromConfig(cfg.RateLimiting),
		Cache:    cache.New(cfg.Cache, homeDir()),
		CacheTTL: cfg.Cache.DiskTTL,
	}
	if cfg.HTTP.RespectRobots {
		client := util.NewHTTPClient(int(cfg.HTTP.Timeout/time.Second), cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
		opts.Robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, client)
	}
	return opts
}

func runRefdataShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.Data.Path(cfg.Data.Reference)
	table, err := cfop.Load(path)
	if err != nil {
		return err
	}

	code := cfop.Normalize(args[0])
	entry, ok := table.Lookup(code)
	if !ok {
		return fmt.Errorf("CFOP %s not found in %s", code, path)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "CFOP:        %s\n", entry.Code)
	fmt.Fprintf(out, "Description: %s\n", entry.Description)
	if entry.OperationType != "" {
		fmt.Fprintf(out, "Operation:   %s\n", entry.OperationType)
	} else {
		fmt.Fprintf(out, "Operation:   %s\n", cfop.DirectionOf(entry.Code).OperationType())
	}
	if entry.Source != "" {
		fmt.Fprintf(out, "Source:      %s", entry.Source)
		if entry.ExtractedAt != "" {
			fmt.Fprintf(out, " (%s)", entry.ExtractedAt)
		}
		fmt.Fprintln(out)
	}
	return nil
}
