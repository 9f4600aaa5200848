package ecorp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/browser"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/assert"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/chrono"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/telemetry"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/diagnostics"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/lib/htmlutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_driver_attempt    = "driver.attempt"
	report_driver_close      = "driver.close"
	report_driver_checkpoint = "driver.checkpoint"
)

const DefaultSearchURL = "https://ecorp.sos.ga.gov/BusinessSearch"

// Options parameterize the session driver, the zero value of a duration is not
// valid, start from DefaultOptions.
type Options struct {
	SearchURL    string
	SearchInput  string
	SearchButton string
	ResultLink   string
	// DetailReady is present once the detail page has loaded past the challenge.
	DetailReady string

	MaxAttempts      int
	ChallengeTimeout time.Duration
	PollInterval     time.Duration
	ResultTimeout    time.Duration
	// SettleDelay is waited between the search form appearing and typing into it.
	SettleDelay time.Duration

	DetectChallengeByTitle   bool
	ReloadOnChallengeTimeout bool
}

func DefaultOptions() Options {
	return Options{
		SearchURL:        DefaultSearchURL,
		SearchInput:      `input[id="txtControlNo"]`,
		SearchButton:     `input[id="btnSearch"]`,
		ResultLink:       "td > a",
		DetailReady:      "table",
		MaxAttempts:      3,
		ChallengeTimeout: 30 * time.Second,
		PollInterval:     time.Second,
		ResultTimeout:    10 * time.Second,
		SettleDelay:      2 * time.Second,
	}
}

// Driver runs the search -> detail page flow in fresh browser sessions until a
// complete record comes out or the attempts run out.
type Driver struct {
	launcher    browser.Launcher
	extractor   Extractor
	checkpoints diagnostics.Output
	clock       chrono.API
	tel         telemetry.API
	opts        Options
}

func NewDriver(
	launcher browser.Launcher,
	extractor Extractor,
	checkpoints diagnostics.Output,
	clock chrono.API,
	tel telemetry.API,
	opts Options,
) Driver {
	assert.NotNil(launcher)
	assert.NotNil(checkpoints)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.NotNil(extractor.tel)
	assert.NotEmptyStr(opts.SearchURL)
	assert.Positive("max attempts", opts.MaxAttempts)
	assert.Positive("challenge timeout", opts.ChallengeTimeout.Seconds())
	assert.Positive("poll interval", opts.PollInterval.Seconds())

	return Driver{
		launcher:    launcher,
		extractor:   extractor,
		checkpoints: checkpoints,
		clock:       clock,
		tel:         telemetry.NewScopedAPI("ecorp", tel),
		opts:        opts,
	}
}

// Run tries up to MaxAttempts whole sessions. Every failure inside an attempt only
// ends that attempt, the returned error wraps ErrAttemptsExhausted and each
// attempt's *AttemptError. Cancelling ctx stops the loop with ctx's error.
func (d Driver) Run(ctx context.Context, key SearchKey) (Record, error) {
	ctx, span := tracer.Start(ctx, "Driver.Run", trace.WithAttributes(
		attribute.String("control_number", key.String()),
		attribute.Int("max_attempts", d.opts.MaxAttempts),
	))
	defer span.End()

	var errs []error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		err := ctx.Err()
		if err != nil {
			return Record{}, err
		}

		d.tel.ReportInfo("starting attempt", key.String(), fmt.Sprintf("%d/%d", attempt, d.opts.MaxAttempts))
		record, err := d.attempt(ctx, key, attempt)
		if err == nil {
			attemptCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))
			d.tel.ReportInfo("scraping successful", key.String(), attempt)
			return record, nil
		}
		attemptCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failure")))

		if ctx.Err() != nil {
			return Record{}, ctx.Err()
		}

		errs = append(errs, err)
		d.tel.ReportWarning(report_driver_attempt, err)
		if attempt < d.opts.MaxAttempts {
			d.tel.ReportInfo("retrying with a new browser session", key.String())
		}
	}

	err := fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, d.opts.MaxAttempts, errors.Join(errs...))
	span.RecordError(err)
	span.SetStatus(codes.Error, "all attempts failed")
	d.tel.ReportBroken(report_driver_attempt, err)
	return Record{}, err
}

// attempt is one complete session, from opening the browser to extracting the record.
// The session is closed before it returns, whatever the outcome.
func (d Driver) attempt(ctx context.Context, key SearchKey, attempt int) (record Record, err error) {
	ctx, span := tracer.Start(ctx, "Driver.attempt", trace.WithAttributes(
		attribute.Int("attempt", attempt),
	))
	defer span.End()

	stage := StageOpen

	// registered before Open so a panic while starting the browser still only fails
	// this attempt
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err == nil {
			return
		}
		var attemptErr *AttemptError
		if !errors.As(err, &attemptErr) {
			err = &AttemptError{Attempt: attempt, Stage: stage, Err: err}
		}
		record = Record{}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(stage))
	}()

	session, err := d.launcher.Open(ctx)
	if err != nil {
		return Record{}, err
	}
	defer d.closeSession(session)

	capture := func(name string, withHTML bool) {
		d.capture(session, key, attempt, name, withHTML)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			capture("failed_"+string(stage), true)
		}
	}()

	stage = StageNavigate
	d.tel.ReportInfo("opening search portal", d.opts.SearchURL)
	err = session.Navigate(d.opts.SearchURL)
	if err != nil {
		return Record{}, err
	}
	capture("initial", false)

	stage = StageSearchChallenge
	err = d.pollChallenge(ctx, session, d.opts.SearchInput)
	if err != nil {
		return Record{}, err
	}
	capture("challenge_cleared", false)

	stage = StageSearch
	if d.opts.SettleDelay > 0 {
		err = d.clock.Sleep(ctx, d.opts.SettleDelay)
		if err != nil {
			return Record{}, err
		}
	}
	d.tel.ReportInfo("typing control number", key.String())
	err = session.Type(d.opts.SearchInput, key.String())
	if err != nil {
		return Record{}, err
	}
	err = session.Click(d.opts.SearchButton)
	if err != nil {
		return Record{}, err
	}
	capture("search_results", false)

	stage = StageResults
	err = session.WaitFor(d.opts.ResultLink, d.opts.ResultTimeout)
	if err != nil {
		if errors.Is(err, browser.ErrElementNotFound) {
			return Record{}, fmt.Errorf("%w: %w", ErrNoResults, err)
		}
		return Record{}, err
	}
	href, err := session.Attribute(d.opts.ResultLink, "href")
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrNoResults, err)
	}
	current, err := session.URL()
	if err != nil {
		return Record{}, err
	}
	detailUrl, err := htmlutil.ResolveHref(current, href)
	if err != nil {
		return Record{}, err
	}
	d.tel.ReportInfo("opening business details", detailUrl)
	err = session.Navigate(detailUrl)
	if err != nil {
		return Record{}, err
	}
	capture("details_opened", false)

	stage = StageDetailChallenge
	err = d.clearDetailChallenge(ctx, session)
	if err != nil {
		return Record{}, err
	}

	stage = StageExtract
	markup, err := session.Source()
	if err != nil {
		return Record{}, err
	}
	d.writeCheckpoint(key, attempt, "final_details", nil, markup)
	d.captureScreenshot(session, key, attempt, "final_details")

	record = d.extractor.Extract(markup)
	if !record.Complete() {
		return Record{}, ErrIncompleteRecord
	}
	return record, nil
}

// closeSession ends the session of an attempt, a failure to close never fails the
// attempt itself.
func (d Driver) closeSession(session browser.Session) {
	defer func() {
		if r := recover(); r != nil {
			d.tel.ReportWarning(report_driver_close, fmt.Errorf("panic: %v", r))
		}
	}()
	err := session.Close()
	if err != nil {
		d.tel.ReportWarning(report_driver_close, err)
	}
}

func (d Driver) checkpoint(key SearchKey, attempt int, name string) diagnostics.Checkpoint {
	return diagnostics.Checkpoint{
		ControlNumber: key.String(),
		Name:          name,
		Attempt:       attempt,
		Time:          d.clock.Now(),
	}
}

func (d Driver) writeCheckpoint(key SearchKey, attempt int, name string, png []byte, markup string) {
	if !d.checkpoints.Enabled() {
		return
	}
	cp := d.checkpoint(key, attempt, name)
	if png != nil {
		d.checkpoints.WriteScreenshot(cp, png)
	}
	if markup != "" {
		d.checkpoints.WriteHTML(cp, markup)
	}
}

func (d Driver) captureScreenshot(session browser.Session, key SearchKey, attempt int, name string) {
	if !d.checkpoints.Enabled() {
		return
	}
	png, err := session.Screenshot()
	if err != nil {
		d.tel.ReportWarning(report_driver_checkpoint, name, err)
		return
	}
	d.writeCheckpoint(key, attempt, name, png, "")
}

// capture saves a screenshot, and the page source when asked to. A capture that fails
// (even by panicking, the session may be what broke the attempt) is only reported.
func (d Driver) capture(session browser.Session, key SearchKey, attempt int, name string, withHTML bool) {
	if !d.checkpoints.Enabled() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.tel.ReportWarning(report_driver_checkpoint, name, fmt.Errorf("panic: %v", r))
		}
	}()

	d.captureScreenshot(session, key, attempt, name)
	if !withHTML {
		return
	}
	markup, err := session.Source()
	if err != nil {
		d.tel.ReportWarning(report_driver_checkpoint, name, err)
		return
	}
	d.writeCheckpoint(key, attempt, name, nil, markup)
}
