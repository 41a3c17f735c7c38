package browser

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// urlPolicy restricts navigation to an allowlist of domains. It lives as
// long as one Session, so the "unrestricted" warning is logged once per
// session.
type urlPolicy struct {
	allowed []string
	log     zerolog.Logger

	warnOnce sync.Once
}

func newURLPolicy(allowed []string, log zerolog.Logger) *urlPolicy {
	p := &urlPolicy{log: log}
	for _, d := range allowed {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			p.allowed = append(p.allowed, d)
		}
	}
	return p
}

// allows reports whether raw may be opened. An entry "example.com" matches
// the host itself and any subdomain; "*.example.com" is accepted as an
// alias of the same rule.
func (p *urlPolicy) allows(raw string) bool {
	if len(p.allowed) == 0 {
		p.warnOnce.Do(func() {
			p.log.Warn().Msg("no allowed domains configured, navigation is unrestricted")
		})
		return true
	}
	if isBlankPage(raw) || strings.HasPrefix(raw, "chrome://new-tab-page") {
		return true
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	for _, d := range p.allowed {
		d = strings.TrimPrefix(d, "*.")
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func (p *urlPolicy) check(raw string) error {
	if !p.allows(raw) {
		return fmt.Errorf("%w: %s", ErrURLNotAllowed, raw)
	}
	return nil
}
