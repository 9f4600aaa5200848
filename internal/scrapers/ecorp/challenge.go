package ecorp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/browser"
)

const (
	report_driver_challenge = "driver.challenge"
)

// page titles the interstitial is served with
var challengeTitles = []string{
	"just a moment",
	"attention required",
	"checking your browser",
}

func isChallengeTitle(title string) bool {
	title = strings.ToLower(title)
	for _, marker := range challengeTitles {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

// pollChallenge waits for `ready` to be present, poking the challenge on every
// poll where it is still missing. It gives up with ErrChallengeTimeout once the
// challenge timeout has elapsed.
func (d Driver) pollChallenge(ctx context.Context, session browser.Session, ready string) error {
	start := d.clock.Now()
	for {
		present, err := session.IsPresent(ready)
		if err != nil {
			d.tel.ReportDebug(report_driver_challenge, "presence check failed", err)
		}
		elapsed := d.clock.Now().Sub(start)
		if present {
			d.tel.ReportInfo("challenge cleared", ready, elapsed.String())
			challengeWait.Record(ctx, elapsed.Seconds())
			return nil
		}
		if elapsed >= d.opts.ChallengeTimeout {
			return fmt.Errorf("%w: %s not present after %s", ErrChallengeTimeout, ready, elapsed)
		}

		err = session.SolveChallenge()
		if err != nil {
			d.tel.ReportDebug(report_driver_challenge, "challenge click failed", err)
		}

		err = d.clock.Sleep(ctx, d.opts.PollInterval)
		if err != nil {
			return err
		}
	}
}

// clearDetailChallenge waits for the detail page. With title detection on, a page that
// is not showing the interstitial gets a plain bounded wait instead of polling. With
// reload on, a poll that times out is followed by one reload and one more poll.
func (d Driver) clearDetailChallenge(ctx context.Context, session browser.Session) error {
	ready := d.opts.DetailReady

	if d.opts.DetectChallengeByTitle {
		title, err := session.Title()
		if err == nil && !isChallengeTitle(title) {
			d.tel.ReportDebug(report_driver_challenge, "no challenge title", title)
			return session.WaitFor(ready, d.opts.ChallengeTimeout)
		}
	}

	err := d.pollChallenge(ctx, session, ready)
	if err == nil || !errors.Is(err, ErrChallengeTimeout) || !d.opts.ReloadOnChallengeTimeout {
		return err
	}

	d.tel.ReportWarning(report_driver_challenge, "challenge did not clear, reloading", err)
	err = session.Reload()
	if err != nil {
		return fmt.Errorf("reload after challenge timeout: %w", err)
	}
	return d.pollChallenge(ctx, session, ready)
}
