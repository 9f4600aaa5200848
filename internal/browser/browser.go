// Package browser is the narrow set of browser capabilities the scraper needs.
// The session driver only ever talks to these interfaces, the chromedp
// implementation lives in chromedp.go.
package browser

import (
	"context"
	"errors"
	"time"
)

var ErrElementNotFound = errors.New("element not found")

// Session is a single live browser tab. Selectors are CSS selectors.
type Session interface {
	Navigate(url string) error
	Reload() error
	// IsPresent reports whether `selector` currently matches an element, it does not wait.
	IsPresent(selector string) (bool, error)
	// WaitFor blocks until `selector` is visible or the timeout elapses.
	WaitFor(selector string, timeout time.Duration) error
	Type(selector, text string) error
	Click(selector string) error
	// Attribute returns ErrElementNotFound when the element or the attribute is missing.
	Attribute(selector, name string) (string, error)
	Source() (string, error)
	Title() (string, error)
	URL() (string, error)
	// Screenshot returns a PNG of the whole page.
	Screenshot() ([]byte, error)
	// SolveChallenge makes one best-effort attempt at clearing an anti-bot interstitial.
	// It is fine to call when no challenge is showing.
	SolveChallenge() error
	Close() error
}

// Launcher opens fresh sessions, sessions are never shared between callers.
type Launcher interface {
	Open(ctx context.Context) (Session, error)
}
