package trend

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/valuation"
)

// Flags raised on a property's trend.
const (
	FlagSignificantIncrease = "SIGNIFICANT_INCREASE"
	FlagSignificantDecrease = "SIGNIFICANT_DECREASE"
	FlagHighVolatility      = "HIGH_VOLATILITY"
	FlagConsistentDecrease  = "CONSISTENT_DECREASE"
	FlagRapidAppreciation   = "RAPID_APPRECIATION"
)

// Failure kinds for a trend run.
var (
	ErrInputMissing      = eris.New("no historical data provided")
	ErrNoExtractableData = eris.New("no valid historical data")
)

// Messages used in failed reports.
const (
	MsgNoHistory      = "No historical data provided for analysis"
	MsgNoValidHistory = "Could not extract valid historical data"
)

// DefaultCostIndex is a building cost index by year, 2020 = 100.
var DefaultCostIndex = map[string]float64{
	"2020": 100.0,
	"2021": 106.8,
	"2022": 118.3,
	"2023": 123.7,
	"2024": 126.9,
	"2025": 129.5,
}

// Config tunes an Analyzer.
type Config struct {
	Threshold          float64            `yaml:"threshold" mapstructure:"threshold"`
	MaxPeriods         int                `yaml:"max_periods" mapstructure:"max_periods"`
	VolatilityLimit    float64            `yaml:"volatility_limit" mapstructure:"volatility_limit"`
	DecreaseLimit      float64            `yaml:"decrease_limit" mapstructure:"decrease_limit"`
	RapidAppreciation  float64            `yaml:"rapid_appreciation" mapstructure:"rapid_appreciation"`
	AlignmentTolerance float64            `yaml:"alignment_tolerance" mapstructure:"alignment_tolerance"`
	CostIndex          map[string]float64 `yaml:"cost_index" mapstructure:"cost_index"`
	Now                func() time.Time   `yaml:"-" mapstructure:"-"`
}

// DefaultConfig returns the standard trend settings.
func DefaultConfig() Config {
	idx := make(map[string]float64, len(DefaultCostIndex))
	for k, v := range DefaultCostIndex {
		idx[k] = v
	}
	return Config{
		Threshold:          15,
		MaxPeriods:         5,
		VolatilityLimit:    15,
		DecreaseLimit:      -5,
		RapidAppreciation:  20,
		AlignmentTolerance: 5,
		CostIndex:          idx,
		Now:                time.Now,
	}
}

// Analyzer computes valuation trends.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer validates cfg.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if cfg.Threshold <= 0 {
		return nil, eris.New("trend: threshold must be positive")
	}
	if cfg.MaxPeriods < 2 {
		return nil, eris.New("trend: max_periods must be at least 2")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Analyzer{cfg: cfg}, nil
}

// Extreme is a property with the largest change or volatility.
type Extreme struct {
	PropertyID string  `json:"property_id"`
	Value      float64 `json:"value"`
}

// Summary describes the trends across the portfolio.
type Summary struct {
	TotalProperties      int     `json:"total_properties"`
	PropertiesWithTrends int     `json:"properties_with_trends"`
	AvgAnnualChange      float64 `json:"avg_annual_change"`
	OverallTrend         string  `json:"overall_trend"`
	LargestIncrease      Extreme `json:"largest_increase"`
	LargestDecrease      Extreme `json:"largest_decrease"`
	MostVolatile         Extreme `json:"most_volatile"`
}

// PropertyTrend is the trend of one property.
type PropertyTrend struct {
	PropertyID       string             `json:"property_id"`
	Address          string             `json:"address"`
	CurrentValue     float64            `json:"current_value"`
	HistoricalValues map[string]float64 `json:"historical_values"`
	ValueChanges     map[string]float64 `json:"value_changes"`
	PercentChanges   map[string]float64 `json:"percent_changes"`
	Direction        string             `json:"trend_direction"`
	Magnitude        string             `json:"trend_magnitude"`
	AvgAnnualChange  float64            `json:"avg_annual_change"`
	Volatility       float64            `json:"volatility"`
	Flags            []string           `json:"flags"`
}

// GroupTrend totals a subset of the portfolio by period.
type GroupTrend struct {
	ValuesByPeriod map[string]float64 `json:"values_by_period"`
	LatestValue    float64            `json:"latest_value"`
}

// PortfolioTrends totals the portfolio by period.
type PortfolioTrends struct {
	TotalValueByPeriod    map[string]float64    `json:"total_value_by_period"`
	PercentChangeByPeriod map[string]float64    `json:"percent_change_by_period"`
	ConstructionTypes     map[string]GroupTrend `json:"construction_type_trends"`
	Locations             map[string]GroupTrend `json:"location_trends"`
}

// Comparison sets the portfolio's change against the market's.
type Comparison struct {
	PortfolioChange float64 `json:"portfolio_change"`
	MarketChange    float64 `json:"market_change"`
	Difference      float64 `json:"difference"`
	Alignment       string  `json:"alignment"`
}

// Benchmarks compares portfolio growth with the building cost index.
type Benchmarks struct {
	CostIndex        map[string]float64    `json:"construction_cost_index"`
	PortfolioChanges map[string]float64    `json:"portfolio_changes"`
	MarketChanges    map[string]float64    `json:"market_changes"`
	Comparison       map[string]Comparison `json:"market_vs_portfolio"`
}

// Report is the outcome of a trend run. A failed run carries zeroed
// metrics and Error.
type Report struct {
	Summary    Summary         `json:"trend_summary"`
	Properties []PropertyTrend `json:"property_trends"`
	Portfolio  PortfolioTrends `json:"portfolio_trends"`
	Benchmarks *Benchmarks     `json:"market_benchmarks,omitempty"`
	Error      string          `json:"error,omitempty"`
	Err        error           `json:"-"`
}

// OK reports whether the run succeeded.
func (r Report) OK() bool { return r.Err == nil }

// Options tune one run.
type Options struct {
	// Current valuation merged in as the latest period.
	Current *valuation.Report
	// CurrentPeriod labels Current; defaults to the current year.
	CurrentPeriod string
}

// Analyze computes trends over historical data.
func (a *Analyzer) Analyze(historical any, opts Options) Report {
	if isEmpty(historical) {
		return failure(ErrInputMissing, MsgNoHistory)
	}
	h := ParseHistory(historical, a.cfg.MaxPeriods)
	if h.Empty() {
		return failure(ErrNoExtractableData, MsgNoValidHistory)
	}
	if opts.Current != nil && opts.Current.OK() {
		a.mergeCurrent(&h, opts)
	}

	var (
		trends   []PropertyTrend
		sum      Summary
		flagged  int
		totalAvg float64
		increase = Extreme{}
		decrease = Extreme{}
		volatile = Extreme{}
	)
	for _, id := range h.IDs() {
		pt, ok := a.propertyTrend(h.Properties[id])
		if !ok {
			continue
		}
		if pt.AvgAnnualChange > increase.Value {
			increase = Extreme{id, pt.AvgAnnualChange}
		}
		if pt.AvgAnnualChange < decrease.Value {
			decrease = Extreme{id, pt.AvgAnnualChange}
		}
		if pt.Volatility > volatile.Value {
			volatile = Extreme{id, pt.Volatility}
		}
		if len(pt.Flags) > 0 {
			flagged++
		}
		totalAvg += pt.AvgAnnualChange
		trends = append(trends, pt)
	}
	sort.SliceStable(trends, func(i, j int) bool {
		return significance(trends[i]) > significance(trends[j])
	})

	var avg float64
	if len(trends) > 0 {
		avg = totalAvg / float64(len(trends))
	}
	sum = Summary{
		TotalProperties:      len(trends),
		PropertiesWithTrends: flagged,
		AvgAnnualChange:      round2(avg),
		OverallTrend:         OverallTrend(avg, flagged, len(trends)),
		LargestIncrease:      increase,
		LargestDecrease:      decrease,
		MostVolatile:         volatile,
	}
	if trends == nil {
		trends = []PropertyTrend{}
	}
	zap.L().Debug("trend: analyzed history",
		zap.Int("periods", len(h.Periods)),
		zap.Int("properties", len(trends)),
		zap.String("overall", sum.OverallTrend),
	)
	return Report{
		Summary:    sum,
		Properties: trends,
		Portfolio:  portfolio(h),
		Benchmarks: a.benchmarks(h),
	}
}

func (a *Analyzer) mergeCurrent(h *History, opts Options) {
	period := opts.CurrentPeriod
	if period == "" {
		period = strconv.Itoa(a.cfg.Now().Year())
	}
	if !contains(h.Periods, period) {
		h.Periods = append(h.Periods, period)
		sort.Strings(h.Periods)
	}
	for _, v := range opts.Current.Valuations {
		if v.PropertyID == "" {
			continue
		}
		ph, ok := h.Properties[v.PropertyID]
		if !ok {
			ph = &PropertyHistory{
				ID:               v.PropertyID,
				Address:          orUnknown(v.Address),
				ConstructionType: orUnknown(v.Details.ConstructionType),
				Location:         orUnknown(v.Details.State),
				Values:           map[string]float64{},
			}
			h.Properties[v.PropertyID] = ph
		}
		ph.CurrentRiskScore = v.RiskScore
		ph.Values[period] = v.ReportedValue
		ph.Calculated = map[string]float64{period: v.CalculatedValue}
	}
}

// propertyTrend needs at least two periods with a value.
func (a *Analyzer) propertyTrend(ph *PropertyHistory) (PropertyTrend, bool) {
	if len(ph.Values) < 2 {
		return PropertyTrend{}, false
	}
	periods := sortedKeys(ph.Values)
	pt := PropertyTrend{
		PropertyID:       ph.ID,
		Address:          ph.Address,
		CurrentValue:     ph.Values[periods[len(periods)-1]],
		HistoricalValues: make(map[string]float64, len(periods)),
		ValueChanges:     map[string]float64{},
		PercentChanges:   map[string]float64{},
		Flags:            []string{},
	}
	var changes []float64
	for i, p := range periods {
		pt.HistoricalValues[p] = ph.Values[p]
		if i == 0 {
			continue
		}
		prev, cur := ph.Values[periods[i-1]], ph.Values[p]
		if prev <= 0 {
			continue
		}
		key := periods[i-1] + "-" + p
		pct := (cur - prev) / prev * 100
		pt.ValueChanges[key] = round2(cur - prev)
		pt.PercentChanges[key] = round2(pct)
		changes = append(changes, pct)
	}

	avg := mean(changes)
	vol := 0.0
	if len(changes) > 1 {
		vol = stddev(changes, avg)
	}
	latest := 0.0
	if len(changes) > 0 {
		latest = changes[len(changes)-1]
	}
	pt.AvgAnnualChange = round2(avg)
	pt.Volatility = round2(vol)
	pt.Direction = Direction(avg)
	pt.Magnitude = Magnitude(avg)

	if math.Abs(latest) > a.cfg.Threshold {
		if latest > 0 {
			pt.Flags = append(pt.Flags, FlagSignificantIncrease)
		} else {
			pt.Flags = append(pt.Flags, FlagSignificantDecrease)
		}
	}
	if vol > a.cfg.VolatilityLimit {
		pt.Flags = append(pt.Flags, FlagHighVolatility)
	}
	if avg < a.cfg.DecreaseLimit && len(periods) >= 3 {
		pt.Flags = append(pt.Flags, FlagConsistentDecrease)
	}
	if avg > a.cfg.RapidAppreciation {
		pt.Flags = append(pt.Flags, FlagRapidAppreciation)
	}
	return pt, true
}

func significance(pt PropertyTrend) float64 {
	return math.Abs(pt.AvgAnnualChange) + pt.Volatility
}

// Direction labels the sign of an average change.
func Direction(avg float64) string {
	switch {
	case avg > 0:
		return "Increasing"
	case avg < 0:
		return "Decreasing"
	}
	return "Stable"
}

// Magnitude labels the size of an average change.
func Magnitude(avg float64) string {
	a := math.Abs(avg)
	switch {
	case a < 5:
		return "Minimal"
	case a < 10:
		return "Moderate"
	case a < 20:
		return "Significant"
	}
	return "Extreme"
}

// OverallTrend describes the portfolio from its average change and the
// share of properties carrying a trend flag.
func OverallTrend(avg float64, flagged, total int) string {
	if total == 0 {
		return "Insufficient Data"
	}
	ratio := float64(flagged) / float64(total)
	switch {
	case math.Abs(avg) < 2:
		return "Stable Values"
	case avg > 15 && ratio > 0.5:
		return "Rapid Appreciation Across Portfolio"
	case avg > 8:
		return "Moderate Appreciation"
	case avg > 3:
		return "Slight Appreciation"
	case avg < -15 && ratio > 0.5:
		return "Significant Depreciation Across Portfolio"
	case avg < -8:
		return "Moderate Depreciation"
	case avg < -3:
		return "Slight Depreciation"
	case ratio > 0.6:
		return "Mixed Trends with High Volatility"
	}
	return "Mixed Trends with Limited Pattern"
}

func portfolio(h History) PortfolioTrends {
	totals := totalsByPeriod(h, h.Periods, func(*PropertyHistory) bool { return true })
	pt := PortfolioTrends{
		TotalValueByPeriod:    totals,
		PercentChangeByPeriod: percentChanges(totals, h.Periods),
		ConstructionTypes:     map[string]GroupTrend{},
		Locations:             map[string]GroupTrend{},
	}
	latest := ""
	if len(h.Periods) > 0 {
		latest = h.Periods[len(h.Periods)-1]
	}
	group := func(key func(*PropertyHistory) string, into map[string]GroupTrend) {
		for _, ph := range h.Properties {
			k := key(ph)
			if k == "" {
				continue
			}
			if _, done := into[k]; done {
				continue
			}
			vals := totalsByPeriod(h, h.Periods, func(o *PropertyHistory) bool { return key(o) == k })
			into[k] = GroupTrend{ValuesByPeriod: vals, LatestValue: vals[latest]}
		}
	}
	group(func(p *PropertyHistory) string { return p.ConstructionType }, pt.ConstructionTypes)
	group(func(p *PropertyHistory) string { return p.Location }, pt.Locations)
	return pt
}

func (a *Analyzer) benchmarks(h History) *Benchmarks {
	var periods []string
	for _, p := range h.Periods {
		if _, ok := a.cfg.CostIndex[p]; ok {
			periods = append(periods, p)
		}
	}
	if len(periods) == 0 {
		return nil
	}
	sort.Strings(periods)
	b := &Benchmarks{
		CostIndex:     make(map[string]float64, len(periods)),
		MarketChanges: map[string]float64{},
		Comparison:    map[string]Comparison{},
	}
	for _, p := range periods {
		b.CostIndex[p] = a.cfg.CostIndex[p]
	}
	totals := totalsByPeriod(h, periods, func(*PropertyHistory) bool { return true })
	b.PortfolioChanges = percentChanges(totals, periods)
	for i := 1; i < len(periods); i++ {
		prev, cur := b.CostIndex[periods[i-1]], b.CostIndex[periods[i]]
		if prev > 0 {
			b.MarketChanges[periods[i-1]+"-"+periods[i]] = round2((cur - prev) / prev * 100)
		}
	}
	for k, pc := range b.PortfolioChanges {
		mc := b.MarketChanges[k]
		diff := pc - mc
		c := Comparison{PortfolioChange: pc, MarketChange: mc, Difference: round2(diff)}
		switch {
		case math.Abs(diff) < a.cfg.AlignmentTolerance:
			c.Alignment = "Aligned"
		case pc > mc:
			c.Alignment = "Above Market"
		default:
			c.Alignment = "Below Market"
		}
		b.Comparison[k] = c
	}
	return b
}

func totalsByPeriod(h History, periods []string, include func(*PropertyHistory) bool) map[string]float64 {
	out := make(map[string]float64, len(periods))
	for _, p := range periods {
		out[p] = 0
	}
	for _, ph := range h.Properties {
		if !include(ph) {
			continue
		}
		for _, p := range periods {
			out[p] += ph.Values[p]
		}
	}
	for p, v := range out {
		out[p] = round2(v)
	}
	return out
}

func percentChanges(totals map[string]float64, periods []string) map[string]float64 {
	sorted := append([]string(nil), periods...)
	sort.Strings(sorted)
	out := map[string]float64{}
	for i := 1; i < len(sorted); i++ {
		prev, cur := totals[sorted[i-1]], totals[sorted[i]]
		if prev > 0 {
			out[sorted[i-1]+"-"+sorted[i]] = round2((cur - prev) / prev * 100)
		}
	}
	return out
}

func failure(kind error, msg string) Report {
	return Report{
		Properties: []PropertyTrend{},
		Portfolio: PortfolioTrends{
			TotalValueByPeriod:    map[string]float64{},
			PercentChangeByPeriod: map[string]float64{},
			ConstructionTypes:     map[string]GroupTrend{},
			Locations:             map[string]GroupTrend{},
		},
		Error: msg,
		Err:   eris.Wrap(kind, msg),
	}
}

func isEmpty(v any) bool {
	switch d := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(d) == 0
	case []any:
		return len(d) == 0
	}
	return false
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownLabel
	}
	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// stddev is the population standard deviation.
func stddev(xs []float64, mu float64) float64 {
	var s float64
	for _, x := range xs {
		s += (x - mu) * (x - mu)
	}
	return math.Sqrt(s / float64(len(xs)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
