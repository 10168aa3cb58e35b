// Package property discovers property records in submission documents,
// correlates records from the standard and advanced property sections, and
// normalizes them to one canonical record per location.
package property

import (
	"strings"

	"github.com/sells-group/intake-cli/internal/extract"
)

// UnknownAddress is used when no address can be assembled.
const UnknownAddress = "Address Unknown"

// Section names the part of a submission a raw record came from.
type Section string

const (
	SectionStandard Section = "standard"
	SectionAdvanced Section = "advanced"
	SectionSOV      Section = "sov"
)

// Raw is one flattened property record as found in a document. Values may
// be raw scalars or {value, score} nodes.
type Raw map[string]any

// Record is the canonical property record consumed by the valuation model.
type Record struct {
	ID                  string    `json:"property_id"`
	LocationDocumentID  string    `json:"location_document_id,omitempty"`
	LocationID          string    `json:"location_id,omitempty"`
	Address             string    `json:"address"`
	City                string    `json:"city,omitempty"`
	PostalCode          string    `json:"postal_code,omitempty"`
	State               string    `json:"state"`
	BuildingValue       float64   `json:"building_value"`
	SquareFootage       float64   `json:"square_footage"`
	YearBuilt           int       `json:"year_built,omitempty"`
	ConstructionType    string    `json:"construction_type,omitempty"`
	Occupancy           string    `json:"occupancy,omitempty"`
	Sprinklered         *bool     `json:"sprinklered,omitempty"`
	ContentValue        float64   `json:"content_value"`
	BusinessIncomeValue float64   `json:"business_income_value"`
	RoofAge             int       `json:"roof_age,omitempty"`
	RoofYear            int       `json:"roof_year,omitempty"`
	RoofType            string    `json:"roof_type,omitempty"`
	Sections            []Section `json:"sections"`
}

// IsSprinklered reports a known sprinkler system.
func (r Record) IsSprinklered() bool {
	return r.Sprinklered != nil && *r.Sprinklered
}

// Aliases lists the raw keys tried, in order, for each canonical field.
var Aliases = map[string][]string{
	"id":                    {"property_id", "id"},
	"location_document_id":  {"location_document_id", "location_doc_id", "document_id"},
	"location_id":           {"location_id", "location_number", "loc_id"},
	"address":               {"location_address", "address", "property_address", "street_address", "addr"},
	"street":                {"street", "address_line_1", "address_1"},
	"street2":               {"address_line_2", "address_2"},
	"city":                  {"location_city", "city"},
	"state":                 {"location_state", "state", "state_code"},
	"postal_code":           {"location_postal_code", "postal_code", "zip", "zip_code"},
	"building_value":        {"building_value", "building_values", "value", "reported_value", "building", "building_limit"},
	"square_footage":        {"total_building_area_sqft", "square_footage", "square_feet", "sq_ft", "sqft", "area", "building_area", "total_area"},
	"content_value":         {"contents", "content_value", "content", "contents_value", "personal_property"},
	"business_income_value": {"business_income", "bi", "income", "business_interruption", "time_element"},
	"construction_type":     {"construction_type", "construction", "building_class", "class", "construction_class"},
	"year_built":            {"year_built", "year", "built", "construction_year", "year_of_construction"},
	"occupancy":             {"location_occupancy_description", "occupancy", "occupancy_type", "use", "building_use", "class_description"},
	"sprinklered":           {"location_have_sprinklers", "sprinklered", "sprinkler", "has_sprinklers", "fire_protection"},
	"roof_age":              {"roof_age", "roof"},
	"roof_year":             {"roof_year", "roof_install_year"},
	"roof_type":             {"roof_type", "roof"},
}

func (r Raw) lookup(key string) (any, bool) {
	v, ok := r[key]
	if !ok {
		return nil, false
	}
	return extract.ValueOf(v), true
}

// Float returns the first alias of field that parses as a number.
func (r Raw) Float(field string) float64 {
	for _, k := range Aliases[field] {
		if v, ok := r.lookup(k); ok {
			if f, ok := extract.ParseFloat(v); ok {
				return f
			}
		}
	}
	return 0
}

// String returns the first non-blank scalar alias of field.
func (r Raw) String(field string) string {
	for _, k := range Aliases[field] {
		if v, ok := r.lookup(k); ok {
			if s, ok := extract.ParseString(v); ok {
				return s
			}
		}
	}
	return ""
}

// Bool returns the first alias of field that parses as a boolean, or nil.
func (r Raw) Bool(field string) *bool {
	for _, k := range Aliases[field] {
		if v, ok := r.lookup(k); ok {
			if b, ok := extract.ParseBool(v); ok {
				return &b
			}
		}
	}
	return nil
}

// Normalize maps r onto a canonical record. State is left empty when
// neither the record nor its address names one.
func (r Raw) Normalize(section Section) Record {
	rec := Record{
		ID:                  r.String("id"),
		LocationDocumentID:  r.String("location_document_id"),
		LocationID:          r.String("location_id"),
		City:                r.String("city"),
		PostalCode:          r.String("postal_code"),
		BuildingValue:       r.Float("building_value"),
		SquareFootage:       r.Float("square_footage"),
		YearBuilt:           int(r.Float("year_built")),
		ConstructionType:    r.String("construction_type"),
		Occupancy:           r.String("occupancy"),
		Sprinklered:         r.Bool("sprinklered"),
		ContentValue:        r.Float("content_value"),
		BusinessIncomeValue: r.Float("business_income_value"),
		RoofAge:             int(r.Float("roof_age")),
		RoofYear:            int(r.Float("roof_year")),
		Sections:            []Section{section},
	}
	rec.RoofType = roofType(r)
	rec.Address = r.address()
	rec.State = ExtractState(r.String("state"), rec.Address, "")
	return rec
}

// roofType skips numeric "roof" values, which are ages.
func roofType(r Raw) string {
	s := r.String("roof_type")
	if _, ok := extract.ParseFloat(s); ok {
		return ""
	}
	return s
}

// address returns the first direct address alias, or one assembled from
// its components.
func (r Raw) address() string {
	if s := r.String("address"); s != "" {
		return s
	}
	var parts []string
	for _, f := range []string{"street", "street2", "city", "state", "postal_code"} {
		if s := r.String(f); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return UnknownAddress
	}
	return strings.Join(parts, ", ")
}

// HasAddress reports whether r resolved to a real address.
func (r Record) HasAddress() bool {
	return r.Address != "" && r.Address != UnknownAddress
}
