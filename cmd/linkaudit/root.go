package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bahjat/link-audit/internal/linkaudit"
	"github.com/Bahjat/link-audit/internal/platform/config"
	"github.com/Bahjat/link-audit/internal/platform/logger"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	debug            bool
	domain           string
	concurrency      int
	batchConcurrency int
	format           string
	allowPrivate     bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "linkaudit",
		Short:        "Crawl and classify the links of travel-site pages",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.domain, "domain", "", "canonical site domain (defaults to SITE_DOMAIN or the seed URL's host)")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "maximum concurrent link requests (defaults to LINK_CHECK_CONCURRENCY)")
	flags.IntVar(&opts.batchConcurrency, "batch-concurrency", 0, "maximum concurrent seed pages in a batch (defaults to BATCH_CONCURRENCY)")
	flags.StringVarP(&opts.format, "format", "f", formatTable, "output format: table or json")
	flags.BoolVar(&opts.allowPrivate, "allow-private", false, "allow requests to private and loopback addresses")

	root.AddCommand(
		newExtractCommand(opts),
		newAuditCommand(opts),
		newBatchCommand(opts),
	)
	return root
}

func newExtractCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract URL",
		Short: "List the links of a page without validating them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			result, err := engine.Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			renderExtract(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func newAuditCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "audit URL",
		Short: "Extract, validate and check availability of a page's links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			result, err := engine.Audit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			renderAudit(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func newBatchCommand(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "batch [URL...]",
		Short: fmt.Sprintf("Audit up to %d pages concurrently", linkaudit.MaxBatchSize),
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if file != "" {
				fromFile, err := readURLFile(file)
				if err != nil {
					return err
				}
				urls = append(urls, fromFile...)
			}
			if err := linkaudit.ValidateBatch(urls); err != nil {
				return err
			}

			engine, err := opts.engine(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			result, err := engine.AuditBatch(cmd.Context(), urls)
			if err != nil {
				return err
			}
			if opts.format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			renderBatch(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read seed URLs from a file, one per line ('-' for stdin)")
	return cmd
}

// engine builds a linkaudit.Engine from environment config overridden by
// flags.
func (o *options) engine(logOut io.Writer) (*linkaudit.Engine, error) {
	if o.format != formatJSON && o.format != formatTable {
		return nil, fmt.Errorf("unknown format %q: want %s or %s", o.format, formatTable, formatJSON)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	o.apply(&cfg)

	level := cfg.LogLevel
	if o.debug {
		level = "DEBUG"
	}
	log := logger.NewConsole(logOut, level)
	log.Debug("configuration loaded",
		"domain", cfg.SiteDomain,
		"link_concurrency", cfg.LinkCheckConcurrency,
		"batch_concurrency", cfg.BatchConcurrency,
	)

	return newEngine(cfg, log), nil
}

func (o *options) apply(cfg *config.Config) {
	if o.domain != "" {
		cfg.SiteDomain = o.domain
	}
	if o.concurrency > 0 {
		cfg.LinkCheckConcurrency = o.concurrency
	}
	if o.batchConcurrency > 0 {
		cfg.BatchConcurrency = o.batchConcurrency
	}
	if o.allowPrivate {
		cfg.AllowPrivateNetworks = true
	}
}

func newEngine(cfg config.Config, log *slog.Logger) *linkaudit.Engine {
	fetcher := linkaudit.NewHTTPClient(cfg.UserAgent, cfg.PageTimeout, cfg.AllowPrivateNetworks)
	prober := linkaudit.NewProber(linkaudit.ProberOptions{
		UserAgent:            cfg.UserAgent,
		LinkTimeout:          cfg.LinkTimeout,
		ExternalTimeout:      cfg.ExternalTimeout,
		AllowPrivateNetworks: cfg.AllowPrivateNetworks,
	}, cfg.LinkCheckConcurrency)

	return linkaudit.NewEngine(fetcher, prober,
		linkaudit.NewGate(cfg.LinkCheckConcurrency),
		linkaudit.NewGate(cfg.BatchConcurrency),
		linkaudit.EngineConfig{
			Domain:  cfg.SiteDomain,
			Profile: linkaudit.DefaultSiteProfile(),
			Logger:  log,
		},
	)
}

func readURLFile(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return scanURLs(r)
}

// scanURLs returns the non-blank, non-comment lines of r.
func scanURLs(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, sc.Err()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
