package telemetry

import (
	"fmt"
)

// API is an abstraction over logging/metrics.
// Every component that narrates its progress takes an API instead of calling slog directly,
// this lets tests assert on what was reported.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that has broken in a way that should be addressed.
	//
	// The `id` identifies the **component** that broke, not the specific line that failed.
	// ex. if typing into the search form fails inside the session driver, the id is
	// `driver.search`, the fact that it was a missing element belongs in the error param.
	//
	// Formatting rules:
	// 1) all lowercase
	// 2) use underscores for large components
	// 3) use dashes for methods part of a larger component
	ReportBroken(id string, params ...any)

	// ReportWarning reports a scenario that does not necessarily indicate brokenness, but may be subject to
	// investigation (a challenge that took a retry to clear, a label missing from a page).
	//
	// For what value to provide as `id` refer to ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportInfo narrates a normal step of a run, this is what shows up in CI logs.
	ReportInfo(msg string, params ...any)

	// ReportDebug reports some debug information that will be hidden unless verbose output is on.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current count of a specific event at the current time.
	ReportCount(id string, count int64)
}

// ScopedAPI is a telemetry API that attaches a namespace for a given API, kind of like creating a
// "sub" logger using things like log.New(), in which you can define the prefix for the logs.
type ScopedAPI struct {
	namespace string
	inner     API
}

// NewScopedAPI creates a ScopedAPI out of a given namespace and another api.
func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportInfo(msg string, params ...any) {
	s.inner.ReportInfo(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}

// Nop discards every report.
type Nop struct{}

func (Nop) ReportBroken(string, ...any)  {}
func (Nop) ReportWarning(string, ...any) {}
func (Nop) ReportInfo(string, ...any)    {}
func (Nop) ReportDebug(string, ...any)   {}
func (Nop) ReportCount(string, int64)    {}
