package stuytown

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"stuytown-watcher/config"
	"stuytown-watcher/models"
	"stuytown-watcher/utils"
)

const defaultOrigin = "https://www.stuytown.com"

// CSS selectors for the listing page. These are the site's obfuscated
// class names and will need updating whenever the site redeploys its CSS.
const (
	selContainer    = ".bG_cM"
	selBedrooms     = ".bG_2"
	selAddress      = ".bG_cQ"
	selAvailability = ".bG_bz"
	selPrice        = ".bG_jY"
	selLink         = ".bG_ct"
)

// Scraper drives a single headless Chrome session against the StuyTown
// listing page. It is not safe for concurrent use; the monitor runs one
// check cycle at a time.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	origin string

	browser context.Context
	stop    context.CancelFunc
}

// New creates a Scraper. The site origin used to resolve relative listing
// links is derived from the configured listing URL.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	origin := defaultOrigin
	if u, err := url.Parse(cfg.ListingURL); err == nil && u.Scheme != "" && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}
	return &Scraper{cfg: cfg, logger: logger, origin: origin}
}

// Start launches the browser session. A failure here is fatal to the
// caller: nothing else can run without a rendering session.
func (s *Scraper) Start(ctx context.Context) error {
	chromeBin := s.findChromeBinary()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)

	// Suppress chromedp log noise
	browser, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(browser); err != nil {
		cancelBrowser()
		cancelAlloc()
		return fmt.Errorf("stuytown: start browser session: %w", err)
	}

	s.browser = browser
	s.stop = func() {
		cancelBrowser()
		cancelAlloc()
	}
	s.logger.Info("[stuytown] Browser session started (binary: %s)", chromeBin)
	return nil
}

// Stop tears down the browser session. Safe to call after a failed Start.
func (s *Scraper) Stop() {
	if s.stop == nil {
		return
	}
	s.stop()
	s.stop = nil
	s.logger.Info("[stuytown] Browser session closed")
}

// Snapshot navigates to the listing page, forces the lazily-loaded list to
// fully materialize, and extracts one structured record per listing
// container. A page that never shows any containers yields an empty slice,
// not an error.
func (s *Scraper) Snapshot() ([]*models.Listing, error) {
	if err := chromedp.Run(s.browser, chromedp.Navigate(s.cfg.ListingURL)); err != nil {
		return nil, fmt.Errorf("stuytown: navigate: %w", err)
	}
	s.logger.Info("[stuytown] Loaded page: %s", s.cfg.ListingURL)

	if err := s.scrollToEnd(); err != nil {
		return nil, err
	}
	return s.extract()
}

// scrollToEnd repeatedly scrolls to the bottom of the page and waits for
// asynchronous content to settle, until the document height stops growing
// or the scroll cap is hit. Hitting the cap is a warning, not an error:
// the page may simply be very long.
func (s *Scraper) scrollToEnd() error {
	settle := time.Duration(s.cfg.ScrollSettleMs) * time.Millisecond

	var lastHeight int64
	err := chromedp.Run(s.browser,
		chromedp.Evaluate(`document.body.scrollHeight`, &lastHeight))
	if err != nil {
		return fmt.Errorf("stuytown: measure height: %w", err)
	}

	for i := 1; ; i++ {
		var height int64
		err := chromedp.Run(s.browser,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(settle),
			chromedp.Evaluate(`document.body.scrollHeight`, &height),
		)
		if err != nil {
			return fmt.Errorf("stuytown: scroll pass %d: %w", i, err)
		}

		s.logger.Debug("[stuytown] Scroll %d: height %d -> %d", i, lastHeight, height)

		if height == lastHeight {
			s.logger.Info("[stuytown] Content stabilized after %d scroll(s)", i)
			return nil
		}
		lastHeight = height

		if i >= s.cfg.MaxScrolls {
			s.logger.Warn("[stuytown] Reached maximum scroll attempts (%d) before the page stabilized",
				s.cfg.MaxScrolls)
			return nil
		}
	}
}

// extract waits for at least one listing container to be present, then
// reads the raw field text of every container in page order. Each field is
// read independently inside the page, so one missing field never aborts
// the rest of the container or the rest of the page.
func (s *Scraper) extract() ([]*models.Listing, error) {
	waitCtx, cancel := context.WithTimeout(s.browser,
		time.Duration(s.cfg.WaitTimeoutSec)*time.Second)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitReady(selContainer, chromedp.ByQuery)); err != nil {
		s.logger.Warn("[stuytown] No listing containers appeared within %ds: %v",
			s.cfg.WaitTimeoutSec, err)
		return nil, nil
	}

	var cards []card
	if err := chromedp.Run(s.browser, chromedp.Evaluate(extractScript(), &cards)); err != nil {
		return nil, fmt.Errorf("stuytown: extract containers: %w", err)
	}
	s.logger.Info("[stuytown] Found %d listing containers", len(cards))

	now := time.Now()
	listings := make([]*models.Listing, 0, len(cards))
	for _, c := range cards {
		l := buildRecord(c, s.cfg.ListingURL, s.origin, now)
		if l == nil {
			s.logger.Warn("[stuytown] Skipping container with missing required data — address: %q, price: %q",
				strings.TrimSpace(c.Address), strings.TrimSpace(c.Price))
			continue
		}
		s.logger.Debug("[stuytown] Extracted: %s - %s", l.Address, l.Price)
		listings = append(listings, l)
	}

	s.logger.Info("[stuytown] Extracted %d valid listings", len(listings))
	return listings, nil
}

// extractScript builds the in-page script that gathers raw field text per
// container. Missing fields resolve to empty strings in the page; the
// fallback policy is applied Go-side in buildRecord.
func extractScript() string {
	return fmt.Sprintf(`
		(function() {
			var results = [];
			var containers = document.querySelectorAll(%[1]q);
			for (var i = 0; i < containers.length; i++) {
				var c = containers[i];
				var text = function(sel) {
					var el = c.querySelector(sel);
					return el ? (el.textContent || '') : '';
				};
				var linkEl = c.querySelector(%[6]q);
				results.push({
					bedrooms:     text(%[2]q),
					address:      text(%[3]q),
					availability: text(%[4]q),
					price:        text(%[5]q),
					link:         linkEl ? (linkEl.getAttribute('href') || '') : ''
				});
			}
			return results;
		})()
	`, selContainer, selBedrooms, selAddress, selAvailability, selPrice, selLink)
}

// findChromeBinary locates the Chrome/Chromium binary to launch.
func (s *Scraper) findChromeBinary() string {
	if s.cfg.ChromeBin != "" {
		return s.cfg.ChromeBin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
