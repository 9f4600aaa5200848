package result

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/telemetry"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/scrapers/ecorp"

	"github.com/stretchr/testify/require"
)

const page = `<html><body><table>
<tr><td>Business Information</td></tr>
<tr><td>Business Name:</td><td>Smith &amp; Sons, LLC</td><td>Control Number:</td><td>K805670</td></tr>
</table></body></html>`

var meta = Meta{
	ControlNumber:    "K805670",
	RequestID:        "run-42",
	ExtractionMethod: MethodBrowser,
	Time:             time.Date(2024, 6, 1, 9, 5, 3, 0, time.FixedZone("EDT", -4*3600)),
}

func TestSuccessArtifact(t *testing.T) {
	record := ecorp.NewExtractor(telemetry.Nop{}).Extract(page)
	res := Success(meta, record)

	contents, err := res.Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{
		"success": true,
		"control_number": "K805670",
		"request_id": "run-42",
		"timestamp": "2024-06-01 13:05:03 UTC",
		"extraction_method": "browser_automation",
		"data": {
			"Business Information": {
				"Business Name": "Smith & Sons, LLC",
				"Control Number": "K805670",
				"Business Type": null,
				"Business Status": null,
				"Business Purpose": null,
				"Principal Office Address": null,
				"Date of Formation / Registration Date": null,
				"Jurisdiction": null,
				"Last Annual Registration Year": null,
				"Dissolved Date": null
			},
			"Registered Agent Information": {},
			"Officer Information": []
		}
	}`, string(contents))
	require.Contains(t, string(contents), "Smith & Sons")
}

func TestFailureArtifact(t *testing.T) {
	res := Failure(meta, errors.New("all attempts failed"))
	require.False(t, res.Success)
	require.Nil(t, res.Data)

	contents, err := res.Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{
		"success": false,
		"control_number": "K805670",
		"request_id": "run-42",
		"timestamp": "2024-06-01 13:05:03 UTC",
		"extraction_method": "browser_automation",
		"error": "all attempts failed"
	}`, string(contents))
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	res := Failure(meta, nil)

	path, err := res.Write(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "processed_data_run-42.json"), path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"error": "unknown error"`)
}

func TestFilename(t *testing.T) {
	require.Equal(t, "processed_data_123.json", Filename("123"))
	require.Equal(t, "processed_data_a_b.json", Filename("a/b"))
	require.Equal(t, "processed_data_unknown.json", Filename(""))
}

func TestPlatform(t *testing.T) {
	require.NotEmpty(t, Platform())
}
