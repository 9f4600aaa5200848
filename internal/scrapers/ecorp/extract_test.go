package ecorp

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/telemetry"

	_ "embed"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/business_details_K805670.html
var detailsFixture string

func ptr(s string) *string {
	return &s
}

func TestExtractFixture(t *testing.T) {
	record := NewExtractor(telemetry.Nop{}).Extract(detailsFixture)

	expectedBusiness := Fields{
		{Label: LabelBusinessName, Value: ptr("Example LLC")},
		{Label: LabelControlNumber, Value: ptr("K805670")},
		{Label: LabelBusinessType, Value: ptr("Domestic Limited Liability Company")},
		{Label: LabelBusinessStatus, Value: ptr("Active")},
		{Label: LabelBusinessPurpose, Value: ptr("NONE")},
		{Label: LabelPrincipalOffice, Value: ptr("123 Peachtree St NE, Atlanta, GA, 30303, USA")},
		{Label: LabelFormationDate, Value: ptr("3/14/2018")},
		{Label: LabelJurisdiction, Value: ptr("Georgia")},
		{Label: LabelLastAnnualRegistered, Value: ptr("2024")},
		{Label: LabelDissolvedDate, Value: ptr("")},
	}
	if diff := cmp.Diff(expectedBusiness, record.BusinessInformation()); diff != "" {
		t.Fatalf("business information mismatch (-want +got):\n%s", diff)
	}

	expectedAgent := Fields{
		{Label: LabelAgentName, Value: ptr("Jane Q. Agent")},
		{Label: LabelPhysicalAddress, Value: ptr("500 Main St, Suite 2, Decatur, GA, 30030, USA")},
		{Label: LabelCounty, Value: ptr("Dekalb")},
	}
	if diff := cmp.Diff(expectedAgent, record.RegisteredAgentInformation()); diff != "" {
		t.Fatalf("registered agent mismatch (-want +got):\n%s", diff)
	}

	expectedOfficers := []Officer{
		{Name: "John Smith", Title: "Organizer", BusinessAddress: "123 Peachtree St NE, Atlanta, GA, 30303, USA"},
		{Name: "Mary Major", Title: "Manager", BusinessAddress: "77 Ponce De Leon Ave, Atlanta, GA, 30308, USA"},
	}
	if diff := cmp.Diff(expectedOfficers, record.OfficerInformation()); diff != "" {
		t.Fatalf("officers mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, "K805670", record.ControlNumber())
	require.True(t, record.Complete())
}

func TestExtractFixtureJSON(t *testing.T) {
	record := NewExtractor(telemetry.Nop{}).Extract(detailsFixture)

	encoded, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded struct {
		Business map[string]*string `json:"Business Information"`
		Agent    map[string]*string `json:"Registered Agent Information"`
		Officers []map[string]string `json:"Officer Information"`
	}
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	require.Equal(t, "Example LLC", *decoded.Business["Business Name"])
	require.Equal(t, "K805670", *decoded.Business["Control Number"])
	require.Equal(t, "Active", *decoded.Business["Business Status"])
	require.Equal(t, "Dekalb", *decoded.Agent["County"])
	require.Len(t, decoded.Officers, 2)
	require.Equal(t, "Mary Major", decoded.Officers[1]["Officer Name"])
	require.Equal(t, "Manager", decoded.Officers[1]["Officer Title"])

	// keys keep the order of the page labels
	text := string(encoded)
	require.Less(t, strings.Index(text, `"Business Name"`), strings.Index(text, `"Control Number"`))
	require.Less(t, strings.Index(text, `"Jurisdiction"`), strings.Index(text, `"Dissolved Date"`))
}

func TestExtractWithoutSections(t *testing.T) {
	cases := []string{
		"",
		"<html><body><p>Just a moment...</p></body></html>",
		"<table><tr><td>Something else entirely</td><td>value</td></tr></table>",
		"<<<not really html",
	}

	for _, markup := range cases {
		record := NewExtractor(telemetry.Nop{}).Extract(markup)
		require.Empty(t, record.BusinessInformation(), markup)
		require.Empty(t, record.RegisteredAgentInformation(), markup)
		require.Empty(t, record.OfficerInformation(), markup)
		require.False(t, record.Complete(), markup)

		encoded, err := json.Marshal(record)
		require.NoError(t, err)
		require.JSONEq(t, `{
			"Business Information": {},
			"Registered Agent Information": {},
			"Officer Information": []
		}`, string(encoded), markup)
	}
}

func TestExtractLabelWithoutValue(t *testing.T) {
	markup := `<table>
		<tr><td>Business Information</td></tr>
		<tr><td>Control Number:</td><td>K1</td></tr>
		<tr><td>Business Name:</td></tr>
	</table>`

	record := NewExtractor(telemetry.Nop{}).Extract(markup)
	business := record.BusinessInformation()

	require.True(t, business.Has(LabelBusinessName))
	_, ok := business.Get(LabelBusinessName)
	require.False(t, ok)

	encoded, err := json.Marshal(record)
	require.NoError(t, err)
	require.Contains(t, string(encoded), `"Business Name":null`)
	require.Contains(t, string(encoded), `"Control Number":"K1"`)
}

func TestExtractFirstLabelWins(t *testing.T) {
	markup := `<table>
		<tr><td><b>Registered Agent Information</b></td></tr>
		<tr><td>County:</td><td>Fulton</td></tr>
		<tr><td>County:</td><td>Cobb</td></tr>
	</table>`

	record := NewExtractor(telemetry.Nop{}).Extract(markup)
	county, ok := record.RegisteredAgentInformation().Get(LabelCounty)
	require.True(t, ok)
	require.Equal(t, "Fulton", county)
}

func TestExtractOfficerRows(t *testing.T) {
	markup := `<table>
		<tr><td>Officer Information</td></tr>
		<tr><td>
			<table class="gridstyle">
				<tbody>
					<tr><td>A</td><td>CEO</td><td>1 First St</td></tr>
					<tr><td>only</td><td>two</td></tr>
					<tr><td>B</td><td>CFO</td><td>2 Second St</td><td>extra</td></tr>
					<tr><td>short</td><td>row</td></tr>
					<tr><td> C </td><td> Secretary </td><td> 3 Third St </td></tr>
				</tbody>
			</table>
		</td></tr>
	</table>`

	rec := &telemetry.Recorder{}
	record := NewExtractor(rec).Extract(markup)
	require.Equal(t, []Officer{
		{Name: "A", Title: "CEO", BusinessAddress: "1 First St"},
		{Name: "B", Title: "CFO", BusinessAddress: "2 Second St"},
		{Name: "C", Title: "Secretary", BusinessAddress: "3 Third St"},
	}, record.OfficerInformation())

	counts := rec.Find(telemetry.KindCount, report_extractor_officers)
	require.Len(t, counts, 1)
	require.Equal(t, int64(3), counts[0].Count)
}

func TestExtractOfficerSectionWithoutGrid(t *testing.T) {
	markup := `<table><tr><td>Officer Information</td></tr><tr><td>No officers</td></tr></table>`

	record := NewExtractor(telemetry.Nop{}).Extract(markup)
	require.NotNil(t, record.OfficerInformation())
	require.Empty(t, record.OfficerInformation())
}

func TestExtractIsIdempotent(t *testing.T) {
	extractor := NewExtractor(telemetry.Nop{})
	first := extractor.Extract(detailsFixture)
	second := extractor.Extract(detailsFixture)
	require.Equal(t, first, second)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(firstJSON), string(secondJSON))
}

func TestExtractIgnoresLayoutCells(t *testing.T) {
	// the outer cell contains the title in its descendants, only the inner
	// title cell may anchor the section
	markup := `<table id="outer"><tr><td>
		<table id="inner">
			<tr><td>Business Information</td></tr>
			<tr><td>Control Number:</td><td>K2</td></tr>
		</table>
	</td><td>Business Name:</td><td>wrong</td></tr></table>`

	record := NewExtractor(telemetry.Nop{}).Extract(markup)
	require.Equal(t, "K2", record.ControlNumber())
	_, ok := record.BusinessInformation().Get(LabelBusinessName)
	require.False(t, ok)
}

func TestExtractReportsMissingLabels(t *testing.T) {
	markup := `<table>
		<tr><td>Registered Agent Information</td></tr>
		<tr><td>Registered Agent:</td><td>Someone</td></tr>
		<tr><td>Physical Address:</td><td>1 Road</td></tr>
		<tr><td>County:</td><td>Fulton</td></tr>
	</table>`

	rec := &telemetry.Recorder{}
	record := NewExtractor(rec).Extract(markup)

	_, ok := record.RegisteredAgentInformation().Get(LabelAgentName)
	require.False(t, ok)

	warnings := rec.Find(telemetry.KindWarning, report_extractor_label)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Params[0], LabelAgentName)
	require.Contains(t, warnings[0].Params[1], "Registered Agent:")
}
