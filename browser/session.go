// Package browser drives a Chrome page through rod and turns it into
// dom snapshots.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anxuanzi/bua-dom/dom"
)

var (
	// ErrElementNotFound is returned when a selector chain matches nothing
	// in the live page.
	ErrElementNotFound = errors.New("browser: element not found")

	// ErrStaleIndex is returned for an index that is not in the current
	// selector map.
	ErrStaleIndex = errors.New("browser: index not in current snapshot")

	// ErrURLNotAllowed is returned when navigation is blocked by the
	// domain allowlist.
	ErrURLNotAllowed = errors.New("browser: url not allowed")
)

// Viewport is the emulated window size.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Config controls how a Session is launched.
type Config struct {
	// ControlURL connects to a running Chrome instead of launching one.
	ControlURL string
	Headless   bool
	Viewport   Viewport
	Stealth    StealthConfig

	// AllowedDomains restricts Navigate. Empty means unrestricted.
	AllowedDomains []string

	// DynamicAttributes adds classes and test hooks to selectors used to
	// locate elements.
	DynamicAttributes bool

	// Logger defaults to zerolog.Nop().
	Logger *zerolog.Logger
}

// StateOptions control one snapshot.
type StateOptions struct {
	HighlightElements bool
	// FocusElement highlights only that index; -1 highlights all.
	FocusElement int
	// ViewportExpansion is how many pixels beyond the viewport still count
	// as visible; -1 includes the whole page.
	ViewportExpansion int
	Debug             bool
	Screenshot        bool
}

// DefaultStateOptions returns the options used by tools and Relocate.
func DefaultStateOptions() StateOptions {
	return StateOptions{
		HighlightElements: false,
		FocusElement:      -1,
		ViewportExpansion: 500,
	}
}

// State is one snapshot of the page.
type State struct {
	SnapshotID  string
	URL         string
	Title       string
	ElementTree *dom.ElementNode
	SelectorMap dom.SelectorMap
	// NewElements counts elements flagged new against the previous
	// snapshot of the same URL.
	NewElements int
	Screenshot  []byte
	PerfMetrics json.RawMessage
	TakenAt     time.Time
}

// Session is a launched browser with one page. All methods may be called
// from several goroutines; snapshots are serialized.
type Session struct {
	cfg    Config
	log    zerolog.Logger
	driver pageDriver
	policy *urlPolicy

	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page

	mu      sync.Mutex
	differ  *dom.Differ
	current *State
}

func newSession(driver pageDriver, cfg Config) *Session {
	base := zerolog.Nop()
	if cfg.Logger != nil {
		base = *cfg.Logger
	}
	log := base.With().Str("comp", "browser").Logger()
	return &Session{
		cfg:    cfg,
		log:    log,
		driver: driver,
		policy: newURLPolicy(cfg.AllowedDomains, log),
		differ: dom.NewDiffer(),
	}
}

// Launch starts (or connects to) Chrome and opens a blank page.
func Launch(ctx context.Context, cfg Config) (*Session, error) {
	var l *launcher.Launcher
	controlURL := cfg.ControlURL
	if controlURL == "" {
		l = launcher.New().Context(ctx).Headless(cfg.Headless)
		if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
			l = l.Set("window-size", fmt.Sprintf("%d,%d", cfg.Viewport.Width, cfg.Viewport.Height))
		}
		if cfg.Stealth.Enabled {
			l = withStealthFlags(l)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Cleanup()
		}
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	var page *rod.Page
	var err error
	if cfg.Stealth.Enabled {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	s := newSession(&rodDriver{page: page}, cfg)
	s.browser, s.launcher, s.page = b, l, page

	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.Viewport.Width,
			Height:            cfg.Viewport.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("set viewport: %w", err)
		}
	}
	if err := applyStealth(page, cfg.Stealth, s.log); err != nil {
		_ = s.Close()
		return nil, err
	}

	s.log.Info().Str("control_url", controlURL).Bool("headless", cfg.Headless).Msg("browser session ready")
	return s, nil
}

// Page returns the underlying rod page, or nil for sessions not backed by
// rod.
func (s *Session) Page() *rod.Page {
	return s.page
}

// Close shuts the page and browser down.
func (s *Session) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	return errors.Join(errs...)
}

// Navigate opens url if the allowlist permits it.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.policy.check(url); err != nil {
		return err
	}
	if s.cfg.Stealth.Enabled {
		humanDelay(s.cfg.Stealth.MinDelay, s.cfg.Stealth.MaxDelay)
	}
	s.log.Debug().Str("url", url).Msg("navigate")
	return s.driver.Navigate(ctx, url)
}

// State takes a snapshot of the page. Interactive elements are compared
// with the previous snapshot of the same URL and flagged new where they
// did not exist before.
func (s *Session) State(ctx context.Context, opts StateOptions) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	url, title, err := s.driver.Info(ctx)
	if err != nil {
		return nil, err
	}

	st := &State{
		SnapshotID: uuid.NewString(),
		URL:        url,
		Title:      title,
		TakenAt:    start,
	}

	if isBlankPage(url) {
		empty := dom.EmptyState()
		st.ElementTree, st.SelectorMap = empty.ElementTree, empty.SelectorMap
		st.NewElements = s.differ.Mark(url, empty.ElementTree)
		s.current = st
		return st, nil
	}

	raw, err := s.driver.Walk(ctx, walkArgs{
		DoHighlightElements: opts.HighlightElements,
		FocusHighlightIndex: opts.FocusElement,
		ViewportExpansion:   opts.ViewportExpansion,
		DebugMode:           opts.Debug,
	})
	if err != nil {
		return nil, err
	}

	walk, err := dom.ParseWalk(raw)
	if err != nil {
		s.log.Error().Err(err).Str("url", url).Int("bytes", len(raw)).Msg("page walk rejected")
		return nil, err
	}
	if len(walk.PerfMetrics) > 0 {
		s.log.Debug().RawJSON("perf", walk.PerfMetrics).Str("url", url).Msg("page walk metrics")
	}

	tree, err := dom.MaterializeWalk(walk)
	if err != nil {
		s.log.Error().Err(err).Str("url", url).Msg("materialize failed")
		return nil, err
	}
	st.ElementTree, st.SelectorMap = tree.ElementTree, tree.SelectorMap
	st.PerfMetrics = walk.PerfMetrics

	if opts.Screenshot {
		img, err := s.driver.Screenshot(ctx)
		if err != nil {
			return nil, err
		}
		st.Screenshot = img
	}

	// Mark last so a failed snapshot leaves the cache alone.
	st.NewElements = s.differ.Mark(url, tree.ElementTree)

	s.current = st
	s.log.Debug().
		Str("snapshot", st.SnapshotID).
		Str("url", url).
		Int("elements", len(st.SelectorMap)).
		Int("new", st.NewElements).
		Dur("took", time.Since(start)).
		Msg("snapshot")
	return st, nil
}

// Current returns the last snapshot, or nil before the first one.
func (s *Session) Current() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// RemoveHighlights clears overlays drawn by a highlighted snapshot.
func (s *Session) RemoveHighlights(ctx context.Context) error {
	return s.driver.RemoveHighlights(ctx)
}

// ElementByIndex resolves an index of the current snapshot to a live
// element.
func (s *Session) ElementByIndex(ctx context.Context, index int) (*rod.Element, error) {
	s.mu.Lock()
	var node *dom.ElementNode
	if s.current != nil {
		node = s.current.SelectorMap[index]
	}
	s.mu.Unlock()

	if node == nil {
		return nil, fmt.Errorf("%w: %d", ErrStaleIndex, index)
	}
	return s.Locate(ctx, node)
}

// Locate finds node in the live page, entering every enclosing iframe on
// the way.
func (s *Session) Locate(ctx context.Context, node *dom.ElementNode) (*rod.Element, error) {
	if node == nil {
		return nil, ErrElementNotFound
	}
	return s.driver.Locate(ctx, dom.FrameChain(node, s.cfg.DynamicAttributes))
}

// Relocate takes a fresh snapshot and looks for the element rec was
// recorded from. A miss returns nil values and no error.
func (s *Session) Relocate(ctx context.Context, rec *dom.HistoryElement) (*rod.Element, *dom.ElementNode, error) {
	st, err := s.State(ctx, DefaultStateOptions())
	if err != nil {
		return nil, nil, err
	}

	node := dom.Relocate(rec, st.ElementTree)
	if node == nil {
		s.log.Info().Str("xpath", rec.XPath).Str("url", st.URL).Msg("recorded element not found")
		return nil, nil, nil
	}

	el, err := s.Locate(ctx, node)
	if err != nil {
		return nil, node, err
	}
	return el, node, nil
}

func isBlankPage(url string) bool {
	return url == "" || url == "about:blank"
}
