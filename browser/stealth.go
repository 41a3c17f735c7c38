package browser

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// StealthConfig configures anti-detection measures.
type StealthConfig struct {
	// Enabled opens the page through go-rod/stealth and adds the launch
	// flags and overrides below.
	Enabled bool `yaml:"enabled"`

	// UserAgent overrides the browser user agent.
	UserAgent string `yaml:"user_agent"`

	// Locale sets Accept-Language and navigator.languages (e.g. "en-US").
	Locale string `yaml:"locale"`

	// Timezone sets the browser timezone (e.g. "America/New_York").
	Timezone string `yaml:"timezone"`

	WebGLVendor   string `yaml:"webgl_vendor"`
	WebGLRenderer string `yaml:"webgl_renderer"`

	// MinDelay and MaxDelay bound the random pause before navigations, in
	// milliseconds. Zero disables it.
	MinDelay int `yaml:"min_delay_ms"`
	MaxDelay int `yaml:"max_delay_ms"`
}

// DefaultStealthConfig returns sensible stealth defaults.
func DefaultStealthConfig() StealthConfig {
	return StealthConfig{
		Enabled:       true,
		UserAgent:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Locale:        "en-US",
		Timezone:      "America/Los_Angeles",
		WebGLVendor:   "Google Inc. (Apple)",
		WebGLRenderer: "ANGLE (Apple, ANGLE Metal Renderer: Apple M2 Pro, Unspecified Version)",
		MinDelay:      50,
		MaxDelay:      150,
	}
}

// stealthJS is layered on top of go-rod/stealth, which already hides
// webdriver, plugins, permissions and chrome.runtime.
const stealthJS = `
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });
Object.defineProperty(navigator, 'deviceMemory', { get: () => 8 });
`

const webglJS = `
(() => {
    for (const ctx of [WebGLRenderingContext, WebGL2RenderingContext]) {
        const getParameter = ctx.prototype.getParameter;
        ctx.prototype.getParameter = function(p) {
            if (p === 37445) return %q;
            if (p === 37446) return %q;
            return getParameter.call(this, p);
        };
    }
})();
`

const languagesJS = `
Object.defineProperty(navigator, 'languages', { get: () => %s, configurable: true });
`

// applyStealth prepares page before its first navigation.
func applyStealth(page *rod.Page, cfg StealthConfig, log zerolog.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: cfg.Locale,
		}); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}

	if cfg.Timezone != "" {
		err := proto.EmulationSetTimezoneOverride{TimezoneID: cfg.Timezone}.Call(page)
		if err != nil {
			log.Debug().Err(err).Str("timezone", cfg.Timezone).Msg("timezone override rejected")
		}
	}

	script := stealthJS
	if cfg.Locale != "" {
		script += fmt.Sprintf(languagesJS, languagesLiteral(cfg.Locale))
	}
	if cfg.WebGLVendor != "" || cfg.WebGLRenderer != "" {
		script += fmt.Sprintf(webglJS, cfg.WebGLVendor, cfg.WebGLRenderer)
	}

	if _, err := page.EvalOnNewDocument(script); err != nil {
		return fmt.Errorf("inject stealth script: %w", err)
	}
	return nil
}

// languagesLiteral turns "en-US" into the JS array ["en-US","en"].
func languagesLiteral(locale string) string {
	langs := []string{locale}
	if base, _, ok := strings.Cut(locale, "-"); ok && base != "" {
		langs = append(langs, base)
	}
	quoted := make([]string, len(langs))
	for i, l := range langs {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

// humanDelay sleeps for a random duration in [minMs, maxMs).
func humanDelay(minMs, maxMs int) {
	if minMs <= 0 || maxMs <= minMs {
		return
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(maxMs-minMs)))
	if err != nil {
		time.Sleep(time.Duration(minMs) * time.Millisecond)
		return
	}
	time.Sleep(time.Duration(minMs+int(n.Int64())) * time.Millisecond)
}

// stealthLaunchFlags are added to the Chrome command line in stealth mode.
var stealthLaunchFlags = []string{
	"disable-blink-features=AutomationControlled",
	"disable-infobars",
	"disable-dev-shm-usage",
	"disable-renderer-backgrounding",
	"disable-backgrounding-occluded-windows",
	"disable-background-timer-throttling",
	"no-first-run",
	"no-default-browser-check",
}

// withStealthFlags adds stealthLaunchFlags to l.
func withStealthFlags(l *launcher.Launcher) *launcher.Launcher {
	for _, f := range stealthLaunchFlags {
		name, value, hasValue := strings.Cut(f, "=")
		if hasValue {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	return l
}
