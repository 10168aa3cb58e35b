package valuation

import (
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/intake-cli/internal/property"
)

// Flag marks a valuation risk on a property.
type Flag string

const (
	FlagHighVariance            Flag = "HIGH_VARIANCE"
	FlagPotentialUnderinsurance Flag = "POTENTIAL_UNDERINSURANCE"
	FlagPotentialOverinsurance  Flag = "POTENTIAL_OVERINSURANCE"
	FlagMissingSquareFootage    Flag = "MISSING_SQUARE_FOOTAGE"
	FlagMissingBuildingValue    Flag = "MISSING_BUILDING_VALUE"
	FlagOlderConstruction       Flag = "OLDER_CONSTRUCTION"
	FlagAgingRoof               Flag = "AGING_ROOF"
	FlagHighContentRatio        Flag = "HIGH_CONTENT_RATIO"
	FlagLowContentRatio         Flag = "LOW_CONTENT_RATIO"
)

// Fallback chooses what an unmatched construction or occupancy maps to.
type Fallback string

const (
	// FallbackFirst maps unmatched text to the first taxonomy entry.
	FallbackFirst Fallback = "first"
	// FallbackUnknown maps unmatched text to Unknown with a neutral factor.
	FallbackUnknown Fallback = "unknown"
)

// Unknown is the taxonomy label used by FallbackUnknown.
const Unknown = "Unknown"

// Thresholds trigger the risk flags.
type Thresholds struct {
	VarianceHigh          float64 `yaml:"variance_high" mapstructure:"variance_high"`
	Underinsurance        float64 `yaml:"underinsurance" mapstructure:"underinsurance"`
	Overinsurance         float64 `yaml:"overinsurance" mapstructure:"overinsurance"`
	ContentRatioHigh      float64 `yaml:"content_ratio_high" mapstructure:"content_ratio_high"`
	ContentRatioLow       float64 `yaml:"content_ratio_low" mapstructure:"content_ratio_low"`
	LowContentMinBuilding float64 `yaml:"low_content_min_building" mapstructure:"low_content_min_building"`
	OlderConstructionAge  int     `yaml:"older_construction_age" mapstructure:"older_construction_age"`
	AgingRoofAge          int     `yaml:"aging_roof_age" mapstructure:"aging_roof_age"`
}

// DefaultThresholds returns the standard flag thresholds. Under- and
// overinsurance are percentages of the calculated value.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VarianceHigh:          25,
		Underinsurance:        70,
		Overinsurance:         130,
		ContentRatioHigh:      0.8,
		ContentRatioLow:       0.2,
		LowContentMinBuilding: 1_000_000,
		OlderConstructionAge:  50,
		AgingRoofAge:          20,
	}
}

// Weights are the risk score contributions.
type Weights struct {
	Underinsurance   float64
	HighVariance     float64
	Overinsurance    float64
	MissingData      float64
	ContentRatio     float64
	BuildingAgeMax   float64
	RoofMax          float64
	RoofServiceLife  float64
	UndervaluedMax   float64
	UndervaluedScale float64
}

// DefaultWeights returns the standard risk weights.
func DefaultWeights() Weights {
	return Weights{
		Underinsurance:   35,
		HighVariance:     20,
		Overinsurance:    15,
		MissingData:      10,
		ContentRatio:     5,
		BuildingAgeMax:   15,
		RoofMax:          10,
		RoofServiceLife:  25,
		UndervaluedMax:   10,
		UndervaluedScale: 10,
	}
}

// Config assembles a Model.
type Config struct {
	Tables     Tables
	Thresholds Thresholds
	Weights    Weights
	Fallback   Fallback
	// Now supplies the current time for building and roof ages.
	Now func() time.Time
}

// DefaultConfig returns the built-in tables, thresholds and weights.
func DefaultConfig() Config {
	return Config{
		Tables:     DefaultTables(),
		Thresholds: DefaultThresholds(),
		Weights:    DefaultWeights(),
		Fallback:   FallbackFirst,
		Now:        time.Now,
	}
}

// Model estimates replacement cost. It holds no mutable state and may be
// shared across goroutines.
type Model struct {
	tables Tables
	th     Thresholds
	w      Weights
	fb     Fallback
	now    func() time.Time
}

// NewModel validates cfg and builds a Model.
func NewModel(cfg Config) (*Model, error) {
	if err := cfg.Tables.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Fallback {
	case "":
		cfg.Fallback = FallbackFirst
	case FallbackFirst, FallbackUnknown:
	default:
		return nil, eris.Errorf("valuation: unknown taxonomy fallback %q", cfg.Fallback)
	}
	if cfg.Thresholds.Underinsurance <= 0 || cfg.Thresholds.Overinsurance <= cfg.Thresholds.Underinsurance {
		return nil, eris.New("valuation: overinsurance threshold must exceed underinsurance threshold")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Model{tables: cfg.Tables, th: cfg.Thresholds, w: cfg.Weights, fb: cfg.Fallback, now: cfg.Now}, nil
}

// Calculation records each factor of the cost formula.
type Calculation struct {
	SquareFootage      float64 `json:"square_footage"`
	ConstructionClass  string  `json:"construction_class"`
	BaseCostPerSqft    float64 `json:"base_cost_per_sqft"`
	State              string  `json:"state"`
	RegionalMultiplier float64 `json:"regional_multiplier"`
	OccupancyClass     string  `json:"occupancy_class"`
	OccupancyFactor    float64 `json:"occupancy_factor"`
	BuildingAge        int     `json:"building_age"`
	AgeBracket         string  `json:"age_bracket"`
	AgeFactor          float64 `json:"age_factor"`
	SprinklerFactor    float64 `json:"sprinkler_factor"`
}

// Details echoes the inputs the estimate was based on.
type Details struct {
	ConstructionType    string  `json:"construction_type"`
	Occupancy           string  `json:"occupancy"`
	State               string  `json:"state"`
	SquareFootage       float64 `json:"square_footage"`
	YearBuilt           int     `json:"year_built,omitempty"`
	BuildingAge         int     `json:"building_age"`
	Sprinklered         bool    `json:"sprinklered"`
	ContentValue        float64 `json:"content_value"`
	BusinessIncomeValue float64 `json:"business_income_value"`
	RoofAge             int     `json:"roof_age,omitempty"`
	RoofType            string  `json:"roof_type,omitempty"`
}

// Result is the valuation of one property.
type Result struct {
	PropertyID         string       `json:"property_id"`
	Address            string       `json:"address"`
	ReportedValue      float64      `json:"reported_value"`
	CalculatedValue    float64      `json:"calculated_value"`
	VariancePercentage float64      `json:"variance_percentage"`
	RiskFlags          []Flag       `json:"risk_flags"`
	RiskScore          float64      `json:"risk_score"`
	Recommendations    []string     `json:"recommendations"`
	Details            Details      `json:"property_details"`
	Calculation        *Calculation `json:"calculation,omitempty"`
	Citations          []Citation   `json:"citations,omitempty"`
}

// HasFlag reports whether f was raised.
func (r Result) HasFlag(f Flag) bool {
	for _, x := range r.RiskFlags {
		if x == f {
			return true
		}
	}
	return false
}

// Estimate values one property. Without a square footage the reported
// building value is carried through and the formula is skipped.
func (m *Model) Estimate(rec property.Record) Result {
	age := m.buildingAge(rec.YearBuilt)
	roofAge := m.roofAge(rec)
	res := Result{
		PropertyID:    rec.ID,
		Address:       rec.Address,
		ReportedValue: rec.BuildingValue,
		Details: Details{
			ConstructionType:    rec.ConstructionType,
			Occupancy:           rec.Occupancy,
			State:               rec.State,
			SquareFootage:       rec.SquareFootage,
			YearBuilt:           rec.YearBuilt,
			BuildingAge:         age,
			Sprinklered:         rec.IsSprinklered(),
			ContentValue:        rec.ContentValue,
			BusinessIncomeValue: rec.BusinessIncomeValue,
			RoofAge:             roofAge,
			RoofType:            rec.RoofType,
		},
	}

	if rec.SquareFootage <= 0 {
		res.CalculatedValue = rec.BuildingValue
		res.RiskFlags = []Flag{FlagMissingSquareFootage}
	} else {
		calc := m.calculate(rec, age)
		res.Calculation = &calc
		res.CalculatedValue = formula(calc)
		res.Citations = propertyCitations(calc)
		res.RiskFlags = m.flags(rec, res.CalculatedValue, age, roofAge)
	}

	if rec.BuildingValue > 0 {
		res.VariancePercentage = round2((res.CalculatedValue - rec.BuildingValue) / rec.BuildingValue * 100)
	}
	res.RiskScore = m.riskScore(res.RiskFlags, res.VariancePercentage, age, roofAge)
	res.Recommendations = m.recommendations(res, age, roofAge)
	return res
}

func formula(c Calculation) float64 {
	v := c.SquareFootage
	v *= c.BaseCostPerSqft
	v *= c.RegionalMultiplier
	v *= c.OccupancyFactor
	v *= c.AgeFactor
	v *= c.SprinklerFactor
	return v
}

func (m *Model) calculate(rec property.Record, age int) Calculation {
	class := m.match(rec.ConstructionType, m.tables.ConstructionOrder)
	base, ok := m.tables.ConstructionCosts[class]
	if !ok {
		base = DefaultBaseCost
	}
	occ := m.match(rec.Occupancy, m.tables.OccupancyOrder)
	occFactor, ok := m.tables.OccupancyFactors[occ]
	if !ok {
		occFactor = 1.0
	}
	regional, ok := m.tables.StateMultipliers[strings.ToUpper(rec.State)]
	if !ok {
		regional = 1.0
	}
	ageFactor, bracket := m.tables.AgeFactor(age)
	sprinkler := 1.0
	if rec.IsSprinklered() {
		sprinkler = m.tables.SprinklerFactor
	}
	return Calculation{
		SquareFootage:      rec.SquareFootage,
		ConstructionClass:  class,
		BaseCostPerSqft:    base,
		State:              strings.ToUpper(rec.State),
		RegionalMultiplier: regional,
		OccupancyClass:     occ,
		OccupancyFactor:    occFactor,
		BuildingAge:        age,
		AgeBracket:         bracket,
		AgeFactor:          ageFactor,
		SprinklerFactor:    sprinkler,
	}
}

// match maps free text to a taxonomy entry: exact case-insensitive, then
// the first entry in taxonomy order contained in either direction, then
// the fallback.
func (m *Model) match(text string, taxonomy []string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t != "" {
		for _, e := range taxonomy {
			if strings.ToLower(e) == t {
				return e
			}
		}
		for _, e := range taxonomy {
			le := strings.ToLower(e)
			if strings.Contains(t, le) || strings.Contains(le, t) {
				return e
			}
		}
	}
	if m.fb == FallbackUnknown || len(taxonomy) == 0 {
		return Unknown
	}
	return taxonomy[0]
}

func (m *Model) buildingAge(yearBuilt int) int {
	if yearBuilt <= 0 {
		return m.tables.UnknownAge
	}
	age := m.now().Year() - yearBuilt
	if age < 0 {
		return 0
	}
	return age
}

func (m *Model) roofAge(rec property.Record) int {
	if rec.RoofAge > 0 {
		return rec.RoofAge
	}
	if rec.RoofYear > 0 {
		if age := m.now().Year() - rec.RoofYear; age > 0 {
			return age
		}
	}
	return 0
}

func (m *Model) flags(rec property.Record, calculated float64, age, roofAge int) []Flag {
	var out []Flag
	b := rec.BuildingValue
	if b > 0 && calculated > 0 {
		variance := (calculated - b) / b * 100
		if math.Abs(variance) > m.th.VarianceHigh {
			out = append(out, FlagHighVariance)
		}
		if b < calculated*m.th.Underinsurance/100 {
			out = append(out, FlagPotentialUnderinsurance)
		}
		if b > calculated*m.th.Overinsurance/100 {
			out = append(out, FlagPotentialOverinsurance)
		}
	}
	if b <= 0 {
		out = append(out, FlagMissingBuildingValue)
	}
	if age > m.th.OlderConstructionAge {
		out = append(out, FlagOlderConstruction)
	}
	if roofAge > m.th.AgingRoofAge {
		out = append(out, FlagAgingRoof)
	}
	if b > 0 && rec.ContentValue > 0 {
		ratio := rec.ContentValue / b
		switch {
		case ratio > m.th.ContentRatioHigh:
			out = append(out, FlagHighContentRatio)
		case ratio < m.th.ContentRatioLow && b > m.th.LowContentMinBuilding:
			out = append(out, FlagLowContentRatio)
		}
	}
	return out
}

func (m *Model) riskScore(flags []Flag, variance float64, age, roofAge int) float64 {
	has := make(map[Flag]bool, len(flags))
	for _, f := range flags {
		has[f] = true
	}
	score := 0.0
	if has[FlagPotentialUnderinsurance] {
		score += m.w.Underinsurance
	}
	if has[FlagHighVariance] {
		score += m.w.HighVariance
	}
	if has[FlagPotentialOverinsurance] {
		score += m.w.Overinsurance
	}
	if has[FlagMissingSquareFootage] || has[FlagMissingBuildingValue] {
		score += m.w.MissingData
	}
	if has[FlagHighContentRatio] || has[FlagLowContentRatio] {
		score += m.w.ContentRatio
	}
	if age > 0 {
		score += math.Min(float64(age)/100*m.w.BuildingAgeMax, m.w.BuildingAgeMax)
	}
	if roofAge > 0 && m.w.RoofServiceLife > 0 {
		score += math.Min(float64(roofAge)/m.w.RoofServiceLife*m.w.RoofMax, m.w.RoofMax)
	}
	// Negative variance: the model values the building below its reported value.
	if variance < 0 && m.w.UndervaluedScale > 0 {
		score += math.Min(-variance/m.w.UndervaluedScale, m.w.UndervaluedMax)
	}
	return round2(math.Min(score, 100))
}

var printer = message.NewPrinter(language.English)

func money(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(math.Abs(v))))
}

func (m *Model) recommendations(r Result, age, roofAge int) []string {
	var out []string
	gap := r.CalculatedValue - r.ReportedValue
	for _, f := range r.RiskFlags {
		switch f {
		case FlagPotentialUnderinsurance:
			out = append(out,
				printer.Sprintf("Consider increasing building value by approximately $%s (%.1f%%) for adequate coverage", money(gap), math.Abs(r.VariancePercentage)),
				"Schedule a professional appraisal to validate replacement cost estimates")
		case FlagPotentialOverinsurance:
			out = append(out, printer.Sprintf("Property may be overinsured by approximately $%s (%.1f%%); verify reported value", money(gap), math.Abs(r.VariancePercentage)))
		case FlagMissingSquareFootage:
			out = append(out, "Verify square footage - current value is missing or zero")
		case FlagMissingBuildingValue:
			out = append(out, "Building value is missing or zero; estimated replacement cost is $"+money(r.CalculatedValue))
		case FlagOlderConstruction:
			out = append(out,
				printer.Sprintf("Consider requesting engineering inspection due to age of building (%d years old)", age),
				"Verify building code upgrades have been factored into valuation")
		case FlagAgingRoof:
			out = append(out, printer.Sprintf("Roof age (%d years) exceeds typical service life; request roof inspection", roofAge))
		case FlagHighContentRatio:
			out = append(out, "Content value is unusually high compared to building value; verify accuracy")
		case FlagLowContentRatio:
			out = append(out, "Content value may be underreported for a building of this value")
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
