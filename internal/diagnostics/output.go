// Package diagnostics writes the screenshots and html dumps taken at the
// checkpoints of a scraping attempt. Nothing reads these files back, they exist
// for whoever is debugging a failed CI run.
package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/telemetry"
)

const (
	report_diagnostics_write = "diagnostics.write"
)

// Checkpoint names a point of an attempt at which the page was captured.
type Checkpoint struct {
	ControlNumber string
	Name          string
	Attempt       int
	Time          time.Time
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func sanitize(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}

// Basename is the file name of the checkpoint without an extension,
// ex. `K805670_initial_attempt_1_20240102_150405`.
func (c Checkpoint) Basename() string {
	return fmt.Sprintf(
		"%s_%s_attempt_%d_%s",
		sanitize(c.ControlNumber),
		sanitize(c.Name),
		c.Attempt,
		c.Time.Format("20060102_150405"),
	)
}

type Output interface {
	// Enabled reports whether captures are kept, callers skip taking screenshots otherwise.
	Enabled() bool
	WriteScreenshot(cp Checkpoint, png []byte)
	WriteHTML(cp Checkpoint, markup string)
}

// FilesystemOutput writes captures into a directory, which is created on the first write.
type FilesystemOutput struct {
	directory string
	tel       telemetry.API
}

func NewFilesystemOutput(dir string, tel telemetry.API) FilesystemOutput {
	return FilesystemOutput{
		directory: dir,
		tel:       telemetry.NewScopedAPI("diagnostics", tel),
	}
}

func (FilesystemOutput) Enabled() bool {
	return true
}

func (o FilesystemOutput) write(name string, contents []byte) {
	err := os.MkdirAll(o.directory, 0777)
	if err != nil {
		o.tel.ReportWarning(report_diagnostics_write, err, o.directory)
		return
	}
	path := filepath.Join(o.directory, name)
	err = os.WriteFile(path, contents, 0644)
	if err != nil {
		o.tel.ReportWarning(report_diagnostics_write, err, path)
		return
	}
	o.tel.ReportInfo("saved diagnostic file", path)
}

func (o FilesystemOutput) WriteScreenshot(cp Checkpoint, png []byte) {
	o.write(cp.Basename()+".png", png)
}

func (o FilesystemOutput) WriteHTML(cp Checkpoint, markup string) {
	var out strings.Builder
	fmt.Fprintf(&out, "<!-- Control Number: %s -->\n", cp.ControlNumber)
	fmt.Fprintf(&out, "<!-- Checkpoint: %s (attempt %d) -->\n", cp.Name, cp.Attempt)
	fmt.Fprintf(&out, "<!-- Timestamp: %s -->\n\n", cp.Time.Format(time.RFC3339))
	out.WriteString(markup)
	o.write(cp.Basename()+".html", []byte(out.String()))
}

// Nop drops every capture.
type Nop struct{}

func (Nop) Enabled() bool                       { return false }
func (Nop) WriteScreenshot(Checkpoint, []byte) {}
func (Nop) WriteHTML(Checkpoint, string)       {}
