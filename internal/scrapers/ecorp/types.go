package ecorp

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// SearchKey is the control number used as the search query, it is used verbatim
// apart from trimming surrounding whitespace.
type SearchKey string

var ErrEmptySearchKey = errors.New("control number must not be empty")

func NewSearchKey(raw string) (SearchKey, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", ErrEmptySearchKey
	}
	return SearchKey(key), nil
}

func (k SearchKey) String() string {
	return string(k)
}

// section titles, these anchor each section of the detail page
const (
	SectionBusiness        = "Business Information"
	SectionRegisteredAgent = "Registered Agent Information"
	SectionOfficers        = "Officer Information"
)

// labels of the business information section, in output order
const (
	LabelBusinessName         = "Business Name"
	LabelControlNumber        = "Control Number"
	LabelBusinessType         = "Business Type"
	LabelBusinessStatus       = "Business Status"
	LabelBusinessPurpose      = "Business Purpose"
	LabelPrincipalOffice      = "Principal Office Address"
	LabelFormationDate        = "Date of Formation / Registration Date"
	LabelJurisdiction         = "Jurisdiction"
	LabelLastAnnualRegistered = "Last Annual Registration Year"
	LabelDissolvedDate        = "Dissolved Date"
)

// labels of the registered agent section, in output order
const (
	LabelAgentName       = "Registered Agent Name"
	LabelPhysicalAddress = "Physical Address"
	LabelCounty          = "County"
)

var BusinessLabels = []string{
	LabelBusinessName,
	LabelControlNumber,
	LabelBusinessType,
	LabelBusinessStatus,
	LabelBusinessPurpose,
	LabelPrincipalOffice,
	LabelFormationDate,
	LabelJurisdiction,
	LabelLastAnnualRegistered,
	LabelDissolvedDate,
}

var AgentLabels = []string{
	LabelAgentName,
	LabelPhysicalAddress,
	LabelCounty,
}

// Field is one label/value pair of a section. A nil Value means the label was
// not followed by a value cell (or was not on the page at all).
type Field struct {
	Label string
	Value *string
}

// Fields is an ordered set of labelled values, it serializes as a JSON object
// whose keys keep the order they were extracted in.
type Fields []Field

// Get returns the value of `label`, ok is false for both a missing label and a null value.
func (f Fields) Get(label string) (string, bool) {
	for _, field := range f {
		if field.Label == label {
			if field.Value == nil {
				return "", false
			}
			return *field.Value, true
		}
	}
	return "", false
}

// Has reports whether `label` is a key of the section, regardless of its value.
func (f Fields) Has(label string) bool {
	for _, field := range f {
		if field.Label == label {
			return true
		}
	}
	return false
}

func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encodeNoEscape(field.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if field.Value == nil {
			buf.WriteString("null")
			continue
		}
		value, err := encodeNoEscape(*field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeNoEscape is json.Marshal without the html escaping, addresses and names
// routinely contain '&'.
func encodeNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(v)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type Officer struct {
	Name            string `json:"Officer Name"`
	Title           string `json:"Officer Title"`
	BusinessAddress string `json:"Officer Business Address"`
}

// Record is the structured content of one business detail page. It is built once
// by the Extractor and only read afterwards.
type Record struct {
	business Fields
	agent    Fields
	officers []Officer
}

func (r Record) BusinessInformation() Fields {
	return append(Fields(nil), r.business...)
}

func (r Record) RegisteredAgentInformation() Fields {
	return append(Fields(nil), r.agent...)
}

func (r Record) OfficerInformation() []Officer {
	return append([]Officer{}, r.officers...)
}

// ControlNumber is the control number printed on the page, empty when missing.
func (r Record) ControlNumber() string {
	value, _ := r.business.Get(LabelControlNumber)
	return value
}

// Complete is the success predicate of an attempt: the page resolved to a real
// entity when it carries a control number.
func (r Record) Complete() bool {
	return r.ControlNumber() != ""
}

type recordJSON struct {
	Business Fields    `json:"Business Information"`
	Agent    Fields    `json:"Registered Agent Information"`
	Officers []Officer `json:"Officer Information"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	officers := r.officers
	if officers == nil {
		officers = []Officer{}
	}
	return encodeNoEscape(recordJSON{
		Business: r.business,
		Agent:    r.agent,
		Officers: officers,
	})
}
