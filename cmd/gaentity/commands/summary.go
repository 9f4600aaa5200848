package commands

import (
	"fmt"
	"io"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/result"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/scrapers/ecorp"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

// display renders a field of `section`, telling a field without a value apart
// from a section the page did not have.
func display(section ecorp.Fields, label string) string {
	if !section.Has(label) {
		return "(section missing)"
	}
	value, ok := section.Get(label)
	if !ok {
		return "-"
	}
	return value
}

func renderSummary(out io.Writer, res result.RunResult, path string) {
	t := newTable(out)
	t.SetTitle("Georgia Business Entity")
	t.AppendRow(table.Row{"Control Number", res.ControlNumber})
	t.AppendRow(table.Row{"Request ID", res.RequestID})
	t.AppendRow(table.Row{"Timestamp", res.Timestamp})

	if res.Success && res.Data != nil {
		t.AppendRow(table.Row{"Status", "success"})
		business := res.Data.BusinessInformation()
		for _, label := range []string{
			ecorp.LabelBusinessName,
			ecorp.LabelBusinessStatus,
			ecorp.LabelBusinessType,
		} {
			t.AppendRow(table.Row{label, display(business, label)})
		}
		agent := res.Data.RegisteredAgentInformation()
		t.AppendRow(table.Row{ecorp.LabelAgentName, display(agent, ecorp.LabelAgentName)})
		t.AppendRow(table.Row{"Officers", fmt.Sprint(len(res.Data.OfficerInformation()))})
	} else {
		t.AppendRow(table.Row{"Status", "failed"})
		t.AppendRow(table.Row{"Error", res.Error})
	}

	if path != "" {
		t.AppendRow(table.Row{"Output", path})
	}
	t.Render()
}

func printRecord(out io.Writer, res result.RunResult) error {
	contents, err := res.Encode()
	if err != nil {
		return err
	}
	_, err = out.Write(contents)
	return err
}
