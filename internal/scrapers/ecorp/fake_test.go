package ecorp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/browser"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/chrono"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/diagnostics"
)

const never time.Duration = -1

const fakeDetailUrl = "https://ecorp.sos.ga.gov/BusinessSearch/BusinessInformation?businessId=1"

// attemptScript describes how the fake browser behaves during one attempt.
type attemptScript struct {
	openErr     error
	navigateErr error
	// how long after navigating the search form / detail table appear, `never` for never
	searchReadyAfter time.Duration
	detailReadyAfter time.Duration
	// the detail table appears right after a reload
	reloadClears  bool
	resultMissing bool
	title         string
	html          string
	// method name that panics instead of returning
	panicOn string
}

type fakeSession struct {
	script  attemptScript
	clock   *chrono.Fake
	options Options

	mu          sync.Mutex
	url         string
	navigatedAt time.Time
	reloaded    bool
	typed       []string
	solves      int
	reloads     int
	waits       []string
	closed      bool
}

func (s *fakeSession) maybePanic(method string) {
	if s.script.panicOn == method {
		panic(fmt.Sprintf("%s exploded", method))
	}
}

func (s *fakeSession) Navigate(url string) error {
	s.maybePanic("Navigate")
	if s.script.navigateErr != nil {
		return s.script.navigateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
	s.navigatedAt = s.clock.Now()
	return nil
}

func (s *fakeSession) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloads++
	s.reloaded = true
	s.navigatedAt = s.clock.Now()
	return nil
}

func (s *fakeSession) onDetail() bool {
	return s.url == fakeDetailUrl
}

func readyAfter(after time.Duration, since time.Duration) bool {
	return after != never && since >= after
}

func (s *fakeSession) IsPresent(selector string) (bool, error) {
	s.maybePanic("IsPresent")
	s.mu.Lock()
	defer s.mu.Unlock()
	since := s.clock.Now().Sub(s.navigatedAt)
	switch {
	case selector == s.options.SearchInput && !s.onDetail():
		return readyAfter(s.script.searchReadyAfter, since), nil
	case selector == s.options.DetailReady && s.onDetail():
		if s.reloaded && s.script.reloadClears {
			return true, nil
		}
		return readyAfter(s.script.detailReadyAfter, since), nil
	}
	return false, nil
}

func (s *fakeSession) WaitFor(selector string, timeout time.Duration) error {
	s.maybePanic("WaitFor")
	s.mu.Lock()
	s.waits = append(s.waits, selector)
	s.mu.Unlock()

	if selector == s.options.ResultLink {
		if s.script.resultMissing {
			s.clock.Advance(timeout)
			return fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
		}
		return nil
	}
	present, _ := s.IsPresent(selector)
	if !present {
		s.clock.Advance(timeout)
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	return nil
}

func (s *fakeSession) Type(selector, text string) error {
	s.maybePanic("Type")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typed = append(s.typed, text)
	return nil
}

func (s *fakeSession) Click(selector string) error {
	s.maybePanic("Click")
	return nil
}

func (s *fakeSession) Attribute(selector, name string) (string, error) {
	return "/BusinessSearch/BusinessInformation?businessId=1", nil
}

func (s *fakeSession) Source() (string, error) {
	s.maybePanic("Source")
	return s.script.html, nil
}

func (s *fakeSession) Title() (string, error) {
	return s.script.title, nil
}

func (s *fakeSession) URL() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, nil
}

func (s *fakeSession) Screenshot() ([]byte, error) {
	return []byte("png"), nil
}

func (s *fakeSession) SolveChallenge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solves++
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.maybePanic("Close")
	return nil
}

// fakeLauncher hands out one scripted session per Open, in order.
type fakeLauncher struct {
	scripts  []attemptScript
	clock    *chrono.Fake
	options  Options
	sessions []*fakeSession
}

func (l *fakeLauncher) Open(ctx context.Context) (browser.Session, error) {
	idx := len(l.sessions)
	if idx >= len(l.scripts) {
		return nil, fmt.Errorf("unexpected session #%d", idx+1)
	}
	script := l.scripts[idx]
	session := &fakeSession{script: script, clock: l.clock, options: l.options}
	l.sessions = append(l.sessions, session)
	if script.panicOn == "Open" {
		panic("browser process crashed during startup")
	}
	if script.openErr != nil {
		return nil, script.openErr
	}
	return session, nil
}

// recordingOutput keeps the names of every checkpoint written.
type recordingOutput struct {
	mu          sync.Mutex
	screenshots []string
	dumps       []string
}

func (o *recordingOutput) Enabled() bool {
	return true
}

func (o *recordingOutput) WriteScreenshot(cp diagnostics.Checkpoint, _ []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.screenshots = append(o.screenshots, fmt.Sprintf("%d:%s", cp.Attempt, cp.Name))
}

func (o *recordingOutput) WriteHTML(cp diagnostics.Checkpoint, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dumps = append(o.dumps, fmt.Sprintf("%d:%s", cp.Attempt, cp.Name))
}
