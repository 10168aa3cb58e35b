package submission

import (
	"github.com/sells-group/intake-cli/internal/completeness"
	"github.com/sells-group/intake-cli/internal/extract"
	"github.com/sells-group/intake-cli/internal/jsonpath"
)

// Default requirement lists of the submission analyzer.
var (
	DefaultTriageFields = []string{
		"company_name", "website", "address", "city", "state", "postal_code",
		"primary_naics_code", "primary_naics_description", "primary_sic_code",
		"legal_entity_type", "year_in_business", "policy_inception_date", "end_date",
		"broker_contact_points", "coverages", "product", "100_pct_limit",
		"broker_name", "broker_address", "broker_city", "broker_post_code",
		"broker_state", "broker_email", "quote_target_date",
	}
	DefaultAppetiteFields = []string{
		"company_name", "address", "city", "state", "postal_code",
		"year_in_business", "policy_inception_date", "end_date", "coverages", "product",
	}
	DefaultClearanceFields = []string{
		"company_name", "address", "primary_naics_code", "primary_naics_description",
		"primary_sic_code", "policy_inception_date", "document_date", "broker_name",
		"broker_address", "broker_city", "broker_post_code", "broker_state",
		"broker_email", "submission_received_date", "target_premium",
	}
)

// DefaultRequirements returns the analyzer's triage, appetite and clearance
// lists in that order.
func DefaultRequirements() completeness.RequirementSet {
	return completeness.NewRequirementSet(
		completeness.Requirement{Category: completeness.Triage, Fields: DefaultTriageFields},
		completeness.Requirement{Category: completeness.Appetite, Fields: DefaultAppetiteFields},
		completeness.Requirement{Category: completeness.Clearance, Fields: DefaultClearanceFields},
	)
}

// Sections of the analyzer document. Extracted documents spell some section
// names with spaces and others with underscores, so each path has a
// variant for the other spelling.
var sectionVariants = map[string][]string{
	"Firmographics":        {"Firmographics"},
	"Product Details":      {"Product Details", "Product_Details"},
	"Broker Details":       {"Broker Details", "Broker_Details"},
	"Limits and Coverages": {"Limits and Coverages", "Limits_and_Coverages"},
}

// commonPaths expands a section-relative path into its spelling variants,
// first under submission_data and then at the document root.
func commonPaths(section string, rest ...any) []jsonpath.Path {
	var out []jsonpath.Path
	for _, root := range [][]any{{"submission_data", "Common"}, {"Common"}} {
		for _, name := range sectionVariants[section] {
			parts := append(append(append([]any{}, root...), name), rest...)
			out = append(out, jsonpath.P(parts...))
		}
	}
	return out
}

func firmographic(field string, rest ...any) extract.FieldSpec {
	return extract.Spec(commonPaths("Firmographics", append([]any{field}, rest...)...)...)
}

func product(field string, rest ...any) extract.FieldSpec {
	return extract.Spec(commonPaths("Product Details", append([]any{field}, rest...)...)...)
}

func broker(field string) extract.FieldSpec {
	return extract.Spec(commonPaths("Broker Details", field, extract.ValueMarker)...)
}

// DefaultMapping returns the analyzer's field mapping.
func DefaultMapping() extract.Mapping {
	v := extract.ValueMarker
	return extract.Mapping{
		"company_name":              firmographic("company_name", v),
		"website":                   firmographic("website", v),
		"address":                   firmographic("address_1", v),
		"city":                      firmographic("city", v),
		"state":                     firmographic("state", v),
		"postal_code":               firmographic("postal_code", v),
		"primary_naics_code":        firmographic("primary_naics_2017", 0, "code"),
		"primary_naics_description": firmographic("primary_naics_2017", 0, "desc"),
		"primary_sic_code":          firmographic("primary_sic", 0, "code"),
		"legal_entity_type": extract.Spec(
			jsonpath.P("submission_data", "Common", "Legal_Entity_Type"),
			jsonpath.P("Common", "Legal_Entity_Type"),
		),
		"year_in_business":         firmographic("year_in_business", v),
		"policy_inception_date":    product("policy_inception_date", v),
		"end_date":                 product("end_date", v),
		"document_date":            product("document_date", v),
		"broker_contact_points":    broker("broker_contact_points"),
		"coverages":                product("normalized_product"),
		"product":                  product("lob", v),
		"100_pct_limit":            limitSpec(),
		"broker_name":              broker("broker_name"),
		"broker_address":           broker("broker_address"),
		"broker_city":              broker("broker_city"),
		"broker_post_code":         broker("broker_postal_code"),
		"broker_state":             broker("broker_state"),
		"broker_email":             broker("broker_email"),
		"quote_target_date":        firmographic("quote_target_date", v),
		"submission_received_date": product("submission_received_date", v),
		"target_premium":           product("target_premium", v),
	}
}

func limitSpec() extract.FieldSpec {
	return extract.FieldSpec{
		Paths:          commonPaths("Limits and Coverages", "100_pct_limit"),
		LimitStructure: true,
	}
}

// Checker field table: each field and the categories requiring it.
var checkerFieldOrder = []string{
	"company_name", "website", "address", "city", "state", "postal_code",
	"primary_naics_2017", "naics_desc", "primary_sic", "legal_entity_type", "year_in_business",
	"policy_inception_date", "end_date", "coverages", "product", "100_pct_limit",
	"broker_name", "broker_address", "broker_city", "broker_postal_code", "broker_state", "broker_email",
}

var (
	catsTAC = []completeness.Category{completeness.Triage, completeness.Appetite, completeness.Clearance}
	catsTA  = []completeness.Category{completeness.Triage, completeness.Appetite}
	catsTC  = []completeness.Category{completeness.Triage, completeness.Clearance}
	catsT   = []completeness.Category{completeness.Triage}
)

var checkerFieldCategories = map[string][]completeness.Category{
	"company_name":          catsTAC,
	"website":               {completeness.Required},
	"address":               catsTAC,
	"city":                  catsTA,
	"state":                 catsTA,
	"postal_code":           catsTA,
	"primary_naics_2017":    catsTC,
	"naics_desc":            catsTC,
	"primary_sic":           catsTC,
	"legal_entity_type":     catsT,
	"year_in_business":      catsTA,
	"policy_inception_date": catsTAC,
	"end_date":              catsTAC,
	"coverages":             catsTA,
	"product":               catsTA,
	"100_pct_limit":         catsT,
	"broker_name":           catsTC,
	"broker_address":        catsTC,
	"broker_city":           catsTC,
	"broker_postal_code":    catsTC,
	"broker_state":          catsTC,
	"broker_email":          catsTC,
}

// DefaultCheckerRequirements returns the completeness checker's
// requirement set built from its field → categories table.
func DefaultCheckerRequirements() completeness.RequirementSet {
	return completeness.FromFieldCategories(checkerFieldOrder, checkerFieldCategories, catsTAC)
}

// CheckerFieldCategories returns the categories requiring each checker field.
func CheckerFieldCategories() map[string][]completeness.Category {
	out := make(map[string][]completeness.Category, len(checkerFieldCategories))
	for k, v := range checkerFieldCategories {
		out[k] = append([]completeness.Category(nil), v...)
	}
	return out
}

// DefaultCheckerMapping returns the completeness checker's field mapping.
// Stored documents hold the submission body, rooted at "Common".
func DefaultCheckerMapping() extract.Mapping {
	v := extract.ValueMarker
	return extract.Mapping{
		"company_name":          firmographic("company_name", v),
		"website":               firmographic("website", v),
		"address":               firmographic("address_1", v),
		"city":                  firmographic("city", v),
		"state":                 firmographic("state", v),
		"postal_code":           firmographic("postal_code", v),
		"primary_naics_2017":    firmographic("primary_naics_2017", v),
		"naics_desc":            withSubKey(firmographic("primary_naics_2017", v), "naics_desc"),
		"primary_sic":           firmographic("primary_sic", v),
		"legal_entity_type":     extract.Spec(jsonpath.P("Common", "Legal_Entity_Type"), jsonpath.P("submission_data", "Common", "Legal_Entity_Type")),
		"year_in_business":      firmographic("year_in_business", v),
		"policy_inception_date": product("policy_inception_date", v),
		"end_date":              product("end_date", v),
		"coverages":             extract.Spec(commonPaths("Limits and Coverages", "normalized_coverage", v)...),
		"product":               product("normalized_product", v),
		"100_pct_limit":         limitSpec(),
		"broker_name":           broker("broker_name"),
		"broker_address":        broker("broker_address"),
		"broker_city":           broker("broker_city"),
		"broker_postal_code":    broker("broker_postal_code"),
		"broker_state":          broker("broker_state"),
		"broker_email":          broker("broker_email"),
	}
}

func withSubKey(spec extract.FieldSpec, key string) extract.FieldSpec {
	spec.SubKey = key
	return spec
}
