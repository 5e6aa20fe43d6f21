package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cdpmock/internal/config"
	"cdpmock/internal/logger"
	"cdpmock/pkg/api"
	"cdpmock/pkg/browser"
	"cdpmock/pkg/model"

	"github.com/spf13/cobra"
)

// version is set by ldflags at build time.
var version = "dev"

func main() {
	var (
		flagConfig   string
		flagDevtools string
	)

	rootCmd := &cobra.Command{
		Use:     "cdpmock",
		Short:   "relay headless browser traffic through the Go HTTP client",
		Version: version,
		Long: `Opens pages in a running Chrome whose requests are intercepted and
re-issued through the Go HTTP client, so transport-level mocks apply to
browser traffic.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagDevtools, "devtools", "", "DevTools endpoint, overrides devtools.url")

	setup := func() (*config.Config, logger.Logger, error) {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return nil, nil, err
		}
		if flagDevtools != "" {
			cfg.DevTools.URL = flagDevtools
		}
		return cfg, logger.New(cfg.LoggerOptions()), nil
	}

	var (
		flagTitle  bool
		flagText   bool
		flagSettle time.Duration
		flagNative bool
	)
	fetchCmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "load a page with the request bridge and print its content",
		Long: `Activates the request bridge, opens a new page, navigates to the URL and
prints the resulting document (or only its title or body text).

Examples:
  cdpmock fetch https://example.org --title
  cdpmock fetch https://example.org --text
  cdpmock fetch --devtools http://127.0.0.1:9222 --settle 2s https://example.org
  cdpmock fetch --native https://example.org`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := browser.Connect(ctx, cfg.DevTools.URL,
				browser.WithLogger(l), browser.WithCommandTimeout(cfg.CommandTimeout()))
			if err != nil {
				return err
			}

			if !flagNative {
				events := make(chan model.Event, 64)
				go logEvents(ctx, l, events)
				if err := api.Activate(api.WithConfig(cfg), api.WithLogger(l), api.WithEvents(events)); err != nil {
					return err
				}
				defer api.Deactivate()
			}

			p, err := b.NewPage(ctx)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = p.Close(closeCtx)
			}()

			if err := p.Navigate(ctx, args[0]); err != nil {
				return err
			}
			select {
			case <-time.After(flagSettle):
			case <-ctx.Done():
				return ctx.Err()
			}

			html, err := p.Content(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flagTitle {
				title, err := browser.Title(html)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, title)
				return nil
			}
			if flagText {
				text, err := browser.BodyText(html)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, text)
				return nil
			}
			fmt.Fprintln(out, html)
			return nil
		},
	}
	fetchCmd.Flags().BoolVar(&flagTitle, "title", false, "print only the document title")
	fetchCmd.Flags().BoolVar(&flagText, "text", false, "print only the text content of the body")
	fetchCmd.Flags().DurationVar(&flagSettle, "settle", 500*time.Millisecond, "wait after load before reading content")
	fetchCmd.Flags().BoolVar(&flagNative, "native", false, "load without the request bridge")

	pagesCmd := &cobra.Command{
		Use:   "pages",
		Short: "list page targets of the browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := setup()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.CommandTimeout())
			defer cancel()
			b, err := browser.Connect(ctx, cfg.DevTools.URL, browser.WithLogger(l))
			if err != nil {
				return err
			}
			pages, err := b.Pages(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range pages {
				fmt.Fprintf(out, "%s\t%s\t%s\n", p.ID, p.URL, p.Title)
			}
			return nil
		},
	}

	rootCmd.AddCommand(fetchCmd, pagesCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func logEvents(ctx context.Context, l logger.Logger, events <-chan model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			if evt.Error != "" {
				l.Warn("转发事件", "type", evt.Type, "method", evt.Method, "url", evt.URL, "error", evt.Error)
				continue
			}
			l.Debug("转发事件", "type", evt.Type, "method", evt.Method, "url", evt.URL,
				"status", evt.StatusCode, "durationMS", evt.DurationMS)
		}
	}
}
