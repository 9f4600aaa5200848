package ecorp

import (
	"fmt"
	"strings"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/telemetry"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"golang.org/x/net/html"
)

const (
	report_extractor_parse    = "extractor.parse"
	report_extractor_section  = "extractor.section"
	report_extractor_label    = "extractor.label"
	report_extractor_officers = "extractor.officers"
)

// cells longer than this are values, not labels, and are never suggested as a
// near miss for a missing label
const maxLabelLength = 64

// Extractor turns the markup of a business detail page into a Record. It holds no
// state between calls.
type Extractor struct {
	tel telemetry.API
}

func NewExtractor(tel telemetry.API) Extractor {
	return Extractor{tel: telemetry.NewScopedAPI("ecorp", tel)}
}

// Extract never fails, sections that cannot be found are left empty and a page
// that cannot be parsed at all yields an empty Record.
func (e Extractor) Extract(markup string) (record Record) {
	defer func() {
		if r := recover(); r != nil {
			e.tel.ReportBroken(report_extractor_parse, fmt.Errorf("panic: %v", r))
			record = Record{}
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.tel.ReportBroken(report_extractor_parse, err)
		return Record{}
	}

	if section, ok := findSection(doc.Selection, SectionBusiness); ok {
		record.business = e.fields(section, SectionBusiness, BusinessLabels)
	} else {
		e.tel.ReportWarning(report_extractor_section, "section not found", SectionBusiness)
	}

	if section, ok := findSection(doc.Selection, SectionRegisteredAgent); ok {
		record.agent = e.fields(section, SectionRegisteredAgent, AgentLabels)
	} else {
		e.tel.ReportWarning(report_extractor_section, "section not found", SectionRegisteredAgent)
	}

	if section, ok := findSection(doc.Selection, SectionOfficers); ok {
		record.officers = e.officers(section)
	} else {
		e.tel.ReportWarning(report_extractor_section, "section not found", SectionOfficers)
	}

	return record
}

// anchorsTitle reports whether the cell is the title cell of a section, only text
// that belongs to the cell itself counts so layout cells wrapping the whole page
// never match.
func anchorsTitle(node *html.Node, title string) bool {
	if text, ok := htmlutil.SoleString(node); ok && strings.Contains(text, title) {
		return true
	}
	return strings.Contains(htmlutil.OwnText(node), title)
}

// findSection locates the first cell carrying `title` and returns its nearest
// enclosing table.
func findSection(root *goquery.Selection, title string) (*goquery.Selection, bool) {
	var anchor *goquery.Selection
	root.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		if anchorsTitle(td.Nodes[0], title) {
			anchor = td
			return false
		}
		return true
	})
	if anchor == nil {
		return nil, false
	}

	table := anchor.Closest("table")
	if table.Length() == 0 {
		return nil, false
	}
	return table, true
}

// lookupLabel scans rows in document order, and the cells of each row in order, for the
// first cell containing `label`. The value is the text of the cell right after it, or
// nil when the label cell ends the row.
func lookupLabel(section *goquery.Selection, label string) (value *string, found bool) {
	section.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.ChildrenFiltered("td")
		cells.EachWithBreak(func(i int, cell *goquery.Selection) bool {
			if !strings.Contains(htmlutil.Clean(cell), label) {
				return true
			}
			found = true
			if i+1 < cells.Length() {
				text := htmlutil.Clean(cells.Eq(i + 1))
				value = &text
			}
			return false
		})
		return !found
	})
	return value, found
}

func (e Extractor) fields(section *goquery.Selection, title string, labels []string) Fields {
	out := make(Fields, len(labels))
	for i, label := range labels {
		value, found := lookupLabel(section, label)
		if !found {
			e.reportMissingLabel(section, title, label)
		}
		out[i] = Field{Label: label, Value: value}
	}
	return out
}

// reportMissingLabel names the label-like cell closest to the missing label, a
// reworded label on the portal shows up here before anyone reads the html dumps.
func (e Extractor) reportMissingLabel(section *goquery.Selection, title, label string) {
	closest := ""
	bestScore := 0.0
	section.Find("td").Each(func(_ int, cell *goquery.Selection) {
		text := htmlutil.Clean(cell)
		if text == "" || len(text) > maxLabelLength {
			return
		}
		score := matchr.JaroWinkler(label, text, false)
		if score > bestScore {
			bestScore = score
			closest = text
		}
	})
	e.tel.ReportWarning(
		report_extractor_label,
		fmt.Sprintf("label %q not found in %q", label, title),
		fmt.Sprintf("closest cell %q (%.2f)", closest, bestScore),
	)
}

func (e Extractor) officers(section *goquery.Selection) []Officer {
	officers := []Officer{}

	grid := section.Find("table.gridstyle").First()
	if grid.Length() == 0 {
		e.tel.ReportDebug(report_extractor_officers, "no officer grid in section")
		return officers
	}
	body := grid.Find("tbody").First()
	if body.Length() == 0 {
		return officers
	}

	body.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 3 {
			return
		}
		officers = append(officers, Officer{
			Name:            htmlutil.Clean(cells.Eq(0)),
			Title:           htmlutil.Clean(cells.Eq(1)),
			BusinessAddress: htmlutil.Clean(cells.Eq(2)),
		})
	})
	e.tel.ReportCount(report_extractor_officers, int64(len(officers)))
	return officers
}
