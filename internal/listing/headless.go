package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const (
	defaultNavTimeout    = 45 * time.Second
	defaultSettleDelay   = 500 * time.Millisecond
	defaultReadySelector = "table.wikitable"
)

// HeadlessConfig controls the browser-backed fetcher.
type HeadlessConfig struct {
	UserAgent         string
	NavigationTimeout time.Duration
	// SettleDelay is waited out after ReadySelector appears so late
	// table rewrites land before the DOM is captured.
	SettleDelay   time.Duration
	ReadySelector string
}

// HeadlessFetcher renders listing pages in one shared headless Chrome
// process; each Fetch opens its own tab.
type HeadlessFetcher struct {
	cfg      HeadlessConfig
	browser  context.Context
	shutdown context.CancelFunc
}

// NewHeadless prepares the browser allocator. Chrome starts lazily on the
// first Fetch. Call Close when done.
func NewHeadless(cfg HeadlessConfig) (*HeadlessFetcher, error) {
	switch {
	case cfg.NavigationTimeout < 0:
		return nil, errors.New("headless: navigation timeout must be >= 0")
	case cfg.SettleDelay < 0:
		return nil, errors.New("headless: settle delay must be >= 0")
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.ReadySelector == "" {
		cfg.ReadySelector = defaultReadySelector
	}

	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+3)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	browser, shutdown := chromedp.NewExecAllocator(context.Background(), opts...)
	return &HeadlessFetcher{cfg: cfg, browser: browser, shutdown: shutdown}, nil
}

// Close terminates the browser process.
func (f *HeadlessFetcher) Close() {
	f.shutdown()
}

// Fetch implements Fetcher and returns the rendered document.
func (f *HeadlessFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	tab, closeTab := chromedp.NewContext(f.browser)
	defer closeTab()
	tab, cancel := context.WithTimeout(tab, f.cfg.NavigationTimeout)
	defer cancel()
	defer context.AfterFunc(ctx, cancel)()

	var html string
	err := chromedp.Run(tab,
		f.prepareTab(),
		chromedp.Navigate(url),
		chromedp.WaitReady(f.cfg.ReadySelector, chromedp.ByQuery),
		chromedp.Sleep(f.cfg.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("headless fetch %s: %w", url, ctx.Err())
		}
		return nil, fmt.Errorf("headless fetch %s: %w", url, err)
	}
	return []byte(html), nil
}

// prepareTab pins the language so month headings parse as English.
func (f *HeadlessFetcher) prepareTab() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network: %w", err)
		}
		headers := network.Headers{"Accept-Language": "en-US,en;q=0.9"}
		if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
			return fmt.Errorf("set headers: %w", err)
		}
		if f.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).WithAcceptLanguage("en-US").Do(ctx); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
		return nil
	})
}
