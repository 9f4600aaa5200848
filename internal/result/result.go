package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/scrapers/ecorp"

	"github.com/shirou/gopsutil/v4/host"
)

const TimestampLayout = "2006-01-02 15:04:05 UTC"

// ExtractionMethod values name how the record was obtained.
const (
	MethodBrowser = "browser_automation"
	MethodParse   = "saved_page"
)

// RunResult is the artifact one run leaves behind. Exactly one of Data and
// Error is set.
type RunResult struct {
	Success          bool          `json:"success"`
	ControlNumber    string        `json:"control_number"`
	RequestID        string        `json:"request_id"`
	Timestamp        string        `json:"timestamp"`
	ExtractionMethod string        `json:"extraction_method,omitempty"`
	Platform         string        `json:"platform,omitempty"`
	Data             *ecorp.Record `json:"data,omitempty"`
	Error            string        `json:"error,omitempty"`
}

type Meta struct {
	ControlNumber    string
	RequestID        string
	ExtractionMethod string
	Platform         string
	Time             time.Time
}

func (m Meta) base() RunResult {
	return RunResult{
		ControlNumber:    m.ControlNumber,
		RequestID:        m.RequestID,
		Timestamp:        m.Time.UTC().Format(TimestampLayout),
		ExtractionMethod: m.ExtractionMethod,
		Platform:         m.Platform,
	}
}

func Success(meta Meta, record ecorp.Record) RunResult {
	res := meta.base()
	res.Success = true
	res.Data = &record
	return res
}

func Failure(meta Meta, err error) RunResult {
	res := meta.base()
	res.Error = "unknown error"
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// Filename is the name downstream jobs look the artifact up by.
func Filename(requestID string) string {
	return fmt.Sprintf("processed_data_%s.json", sanitize(requestID))
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitize(id string) string {
	id = unsafeChars.ReplaceAllString(id, "_")
	if id == "" {
		return "unknown"
	}
	return id
}

func (r RunResult) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(r)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores the artifact in `dir`, creating it when needed, and returns the
// path it was written to.
func (r RunResult) Write(dir string) (string, error) {
	contents, err := r.Encode()
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, Filename(r.RequestID))
	err = os.WriteFile(path, contents, 0644)
	if err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}

// Platform describes the machine the run happened on, e.g. "linux/amd64 ubuntu 22.04".
func Platform() string {
	platform := fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	info, err := host.Info()
	if err != nil || info.Platform == "" {
		return platform
	}
	return fmt.Sprintf("%s %s %s", platform, info.Platform, info.PlatformVersion)
}
