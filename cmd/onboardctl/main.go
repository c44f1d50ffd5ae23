package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MrSnakeDoc/onboard/internal/domain"
	"github.com/MrSnakeDoc/onboard/internal/logger"
	"github.com/MrSnakeDoc/onboard/internal/manifest"
	"github.com/MrSnakeDoc/onboard/internal/version"
)

type options struct {
	fixtures   bool
	dir        string
	suffix     string
	defaultApp string
	path       string
	timeout    time.Duration
	logLevel   string
	asJSON     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "onboardctl",
		Short: "Resolve a deployment connection from the terminal",
		Long: `onboardctl asks for a deployment domain, fetches its console manifest and
walks through app and realm selection until a connection is resolved.

Type :restart at the app or realm prompt to enter another domain.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runResolve(ctx, cmd, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.fixtures, "fixtures", false, "serve the built-in test manifests instead of fetching over HTTPS")
	f.StringVar(&opts.dir, "dir", "", "read manifests from <label>.json files in this directory")
	f.StringVar(&opts.suffix, "suffix", domain.DefaultPlatformSuffix, "platform suffix appended to bare domains")
	f.StringVar(&opts.defaultApp, "default-app", domain.DefaultAppName, "app used when a manifest lists none")
	f.StringVar(&opts.path, "path", manifest.DefaultManifestPath, "manifest path below the deployment URL")
	f.DurationVar(&opts.timeout, "timeout", manifest.DefaultFetchTimeout, "manifest request timeout")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	f.BoolVar(&opts.asJSON, "json", false, "print the resolved connection as JSON")
	cmd.MarkFlagsMutuallyExclusive("fixtures", "dir")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("onboardctl " + version.String())
		},
	})

	return cmd
}

func runResolve(ctx context.Context, cmd *cobra.Command, opts *options) error {
	if _, ok := logger.ParseLevel(opts.logLevel); !ok {
		return fmt.Errorf("invalid log level %q", opts.logLevel)
	}
	log := logger.New(opts.logLevel, true)
	defer func() { _ = log.Sync() }()

	fetcher, err := newFetcher(opts, log)
	if err != nil {
		return err
	}

	resolver := domain.NewResolver(fetcher, domain.Options{
		PlatformSuffix: opts.suffix,
		DefaultApp:     opts.defaultApp,
	})

	quiet := !isTerminal(os.Stdin)
	cfg, err := newPrompter(resolver, cmd.InOrStdin(), cmd.ErrOrStderr(), quiet).run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(domain.EncodeState(domain.Complete{Config: cfg}).Config)
	}
	_, err = fmt.Fprintf(out, "base_url=%s\napp=%s\nrealm=%s\n", cfg.BaseURL, cfg.App, cfg.RealmName())
	return err
}

func newFetcher(opts *options, log logger.Logger) (domain.ManifestFetcher, error) {
	switch {
	case opts.fixtures:
		return manifest.NewFixtureFetcher(), nil
	case opts.dir != "":
		if _, err := os.Stat(opts.dir); err != nil {
			return nil, fmt.Errorf("manifest directory: %w", err)
		}
		return manifest.NewDirFetcher(opts.dir), nil
	default:
		return manifest.NewHTTPFetcher(manifest.HTTPOptions{
			Path:      opts.path,
			Timeout:   opts.timeout,
			UserAgent: version.UserAgent(),
		}, log), nil
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
