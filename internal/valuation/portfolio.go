package valuation

import (
	"math"
	"sort"
)

// AnomalyScore is the risk score at which a flag-free property still counts
// as an anomaly.
const AnomalyScore = 50

// Quality labels for a portfolio's valuations.
const (
	QualityExcellent = "Excellent"
	QualityGood      = "Good"
	QualityFair      = "Fair"
	QualityPoor      = "Poor"
	QualityUnknown   = "Unknown"
)

// Summary describes a portfolio of valuations.
type Summary struct {
	TotalProperties           int     `json:"total_properties"`
	PropertiesWithRiskFlags   int     `json:"properties_with_risk_flags"`
	OverallVariancePercentage float64 `json:"overall_variance_percentage"`
	AvgPropertyValue          float64 `json:"avg_property_value"`
	ValuationQuality          string  `json:"valuation_quality"`
	TotalBuildingValue        float64 `json:"total_building_value"`
	TotalContentValue         float64 `json:"total_content_value"`
	TotalBusinessIncomeValue  float64 `json:"total_business_income_value"`
	InsuranceToValueRatio     float64 `json:"insurance_to_value_ratio"`
}

// Totals compares reported and calculated values across the portfolio.
type Totals struct {
	ReportedTotal         float64 `json:"reported_total"`
	CalculatedTotal       float64 `json:"calculated_total"`
	VariancePercentage    float64 `json:"variance_percentage"`
	VarianceAmount        float64 `json:"variance_amount"`
	InsuranceToValueRatio float64 `json:"insurance_to_value_ratio"`
}

// PortfolioResult aggregates per-property results.
type PortfolioResult struct {
	Summary   Summary  `json:"analysis_summary"`
	Totals    Totals   `json:"total_valuation"`
	Anomalies []Result `json:"anomalies"`
}

// Portfolio totals results and picks out the anomalies, highest risk first.
func Portfolio(results []Result) PortfolioResult {
	var reported, calculated, content, income float64
	anomalies := []Result{}
	for _, r := range results {
		reported += r.ReportedValue
		calculated += r.CalculatedValue
		content += r.Details.ContentValue
		income += r.Details.BusinessIncomeValue
		if len(r.RiskFlags) > 0 || r.RiskScore >= AnomalyScore {
			anomalies = append(anomalies, r)
		}
	}
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].RiskScore > anomalies[j].RiskScore
	})

	var variance, itv float64
	if reported > 0 {
		variance = (calculated - reported) / reported * 100
		if calculated > 0 {
			itv = reported / calculated * 100
		}
	}
	var avg float64
	if len(results) > 0 {
		avg = reported / float64(len(results))
	}

	return PortfolioResult{
		Summary: Summary{
			TotalProperties:           len(results),
			PropertiesWithRiskFlags:   len(anomalies),
			OverallVariancePercentage: round2(variance),
			AvgPropertyValue:          round2(avg),
			ValuationQuality:          Quality(variance, len(anomalies), len(results)),
			TotalBuildingValue:        round2(reported),
			TotalContentValue:         round2(content),
			TotalBusinessIncomeValue:  round2(income),
			InsuranceToValueRatio:     round2(itv),
		},
		Totals: Totals{
			ReportedTotal:         round2(reported),
			CalculatedTotal:       round2(calculated),
			VariancePercentage:    round2(variance),
			VarianceAmount:        round2(calculated - reported),
			InsuranceToValueRatio: round2(itv),
		},
		Anomalies: anomalies,
	}
}

// Quality grades a portfolio by its overall variance and share of anomalies.
func Quality(variance float64, anomalies, total int) string {
	if total == 0 {
		return QualityUnknown
	}
	ratio := float64(anomalies) / float64(total)
	v := math.Abs(variance)
	switch {
	case v < 10 && ratio < 0.1:
		return QualityExcellent
	case v < 15 && ratio < 0.2:
		return QualityGood
	case v < 25 && ratio < 0.3:
		return QualityFair
	}
	return QualityPoor
}
