package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/telemetry"

	"github.com/chromedp/chromedp"
)

const (
	report_chromedp_open      = "chromedp.open"
	report_chromedp_close     = "chromedp.close"
	report_chromedp_challenge = "chromedp.solve-challenge"
)

type ChromedpOptions struct {
	Headless bool
	// ExecPath overrides the chrome binary, empty means chromedp's lookup.
	ExecPath     string
	UserAgent    string
	Locale       string
	WindowWidth  int
	WindowHeight int
	// ActionTimeout bounds every single browser action that does not take its own timeout.
	ActionTimeout time.Duration
}

// ChromedpLauncher starts a new chrome process for every Open.
type ChromedpLauncher struct {
	opts ChromedpOptions
	tel  telemetry.API
}

func NewChromedpLauncher(opts ChromedpOptions, tel telemetry.API) ChromedpLauncher {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 30 * time.Second
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth = 1366
		opts.WindowHeight = 900
	}
	return ChromedpLauncher{
		opts: opts,
		tel:  telemetry.NewScopedAPI("browser", tel),
	}
}

func (l ChromedpLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(l.opts.WindowWidth, l.opts.WindowHeight),
	)
	if l.opts.Locale != "" {
		opts = append(opts, chromedp.Flag("lang", l.opts.Locale))
	}
	if l.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.opts.UserAgent))
	}
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	return opts
}

func (l ChromedpLauncher) Open(ctx context.Context) (Session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		l.tel.ReportDebug(fmt.Sprintf(format, args...))
	}))

	// an empty Run starts the browser process
	err := chromedp.Run(tabCtx)
	if err != nil {
		cancelTab()
		cancelAlloc()
		l.tel.ReportBroken(report_chromedp_open, err)
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &chromedpSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		timeout:     l.opts.ActionTimeout,
		tel:         l.tel,
	}, nil
}

type chromedpSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	tel         telemetry.API
}

func (s *chromedpSession) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// notFound turns a timed out lookup into ErrElementNotFound, as long as it was the
// action that timed out and not the whole session.
func (s *chromedpSession) notFound(err error, selector string) error {
	if errors.Is(err, context.DeadlineExceeded) && s.ctx.Err() == nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return err
}

func jsString(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		// marshalling a plain string cannot fail
		panic(err)
	}
	return string(encoded)
}

func (s *chromedpSession) Navigate(url string) error {
	return s.run(s.timeout, chromedp.Navigate(url))
}

func (s *chromedpSession) Reload() error {
	return s.run(s.timeout, chromedp.Reload())
}

func (s *chromedpSession) IsPresent(selector string) (bool, error) {
	var present bool
	err := s.run(s.timeout, chromedp.Evaluate(
		fmt.Sprintf("document.querySelector(%s) !== null", jsString(selector)),
		&present,
	))
	return present, err
}

func (s *chromedpSession) WaitFor(selector string, timeout time.Duration) error {
	err := s.run(timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	return s.notFound(err, selector)
}

func (s *chromedpSession) Type(selector, text string) error {
	err := s.run(s.timeout, chromedp.SendKeys(selector, text, chromedp.ByQuery))
	return s.notFound(err, selector)
}

func (s *chromedpSession) Click(selector string) error {
	err := s.run(s.timeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
	return s.notFound(err, selector)
}

func (s *chromedpSession) Attribute(selector, name string) (string, error) {
	var value string
	var ok bool
	err := s.run(s.timeout, chromedp.AttributeValue(selector, name, &value, &ok, chromedp.ByQuery))
	if err != nil {
		return "", s.notFound(err, selector)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s[%s]", ErrElementNotFound, selector, name)
	}
	return value, nil
}

func (s *chromedpSession) Source() (string, error) {
	var html string
	err := s.run(s.timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *chromedpSession) Title() (string, error) {
	var title string
	err := s.run(s.timeout, chromedp.Title(&title))
	return title, err
}

func (s *chromedpSession) URL() (string, error) {
	var location string
	err := s.run(s.timeout, chromedp.Location(&location))
	return location, err
}

func (s *chromedpSession) Screenshot() ([]byte, error) {
	var buf []byte
	// quality 100 makes chrome encode png instead of jpeg
	err := s.run(s.timeout, chromedp.FullScreenshot(&buf, 100))
	return buf, err
}

// challengeBox is the bounding rect of a challenge widget in viewport coordinates.
type challengeBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

const locateChallengeJS = `(() => {
	const el = document.querySelector('iframe[src*="challenges.cloudflare.com"]')
		|| document.querySelector('.cf-turnstile')
		|| document.querySelector('#turnstile-wrapper')
		|| document.querySelector('#challenge-stage');
	if (!el) {
		return null;
	}
	const r = el.getBoundingClientRect();
	return {x: r.left, y: r.top, width: r.width, height: r.height};
})()`

// SolveChallenge clicks where the turnstile checkbox sits inside the challenge widget,
// the checkbox lives in a cross origin iframe so it cannot be clicked by selector.
func (s *chromedpSession) SolveChallenge() error {
	var box *challengeBox
	err := s.run(s.timeout, chromedp.Evaluate(locateChallengeJS, &box))
	if err != nil {
		return fmt.Errorf("locate challenge: %w", err)
	}
	if box == nil || box.Width <= 0 || box.Height <= 0 {
		return nil
	}

	x := box.X + min(30, box.Width/2)
	y := box.Y + box.Height/2
	s.tel.ReportDebug(report_chromedp_challenge, x, y)

	err = s.run(s.timeout, chromedp.MouseClickXY(x, y))
	if err != nil {
		return fmt.Errorf("click challenge: %w", err)
	}
	return nil
}

func (s *chromedpSession) Close() error {
	defer s.cancelAlloc()
	defer s.cancelTab()

	err := chromedp.Cancel(s.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.tel.ReportWarning(report_chromedp_close, err)
		return err
	}
	return nil
}
