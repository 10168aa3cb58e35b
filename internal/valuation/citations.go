package valuation

import "fmt"

// Source is a published reference behind a cost factor.
type Source struct {
	Name        string `json:"source"`
	Publication string `json:"publication"`
	Edition     string `json:"edition"`
	Section     string `json:"section,omitempty"`
	Page        string `json:"page,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description"`
}

// Citation ties one factor of a property's estimate to its source.
type Citation struct {
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
	Source      Source  `json:"source"`
}

// Sources are the references for the built-in tables.
var (
	ConstructionCostSource = Source{
		Name:        "Marshall & Swift Valuation Service",
		Publication: "Commercial Building Cost Data",
		Edition:     "2024 Annual",
		Page:        "Section 15.2-15.8",
		URL:         "https://www.corelogic.com/products/marshall-swift-valuation-service/",
		Description: "Industry standard for replacement cost valuation in commercial insurance",
	}
	RegionalCostSource = Source{
		Name:        "RSMeans",
		Publication: "Building Construction Cost Data",
		Edition:     "2024",
		Page:        "State and City Cost Indexes",
		URL:         "https://www.rsmeans.com/products/books",
		Description: "Geographic adjustment factors for construction costs by state",
	}
	OccupancySource = Source{
		Name:        "The Appraisal Institute",
		Publication: "The Appraisal of Real Estate",
		Edition:     "15th Edition",
		Page:        "Chapter 12, pp. 305-320",
		URL:         "https://www.appraisalinstitute.org/",
		Description: "Occupancy-specific cost factors for commercial property types",
	}
	AgeFactorSource = Source{
		Name:        "Insurance Services Office (ISO)",
		Publication: "Commercial Lines Manual",
		Edition:     "2023",
		Section:     "Building Valuation Section",
		URL:         "https://www.verisk.com/insurance/products/property-claims/",
		Description: "Age-related adjustment factors for building replacement cost estimation",
	}
	RiskThresholdSource = Source{
		Name:        "Risk Management Society (RIMS)",
		Publication: "Commercial Property Insurance Guidelines",
		Edition:     "2022",
		Section:     "Insurance to Value Standards",
		URL:         "https://www.rims.org/resources/risk-knowledge",
		Description: "Industry benchmarks for insurance-to-value adequacy assessment",
	}
)

// SourceCitations lists every reference used by a valuation run.
type SourceCitations struct {
	ConstructionCosts Source `json:"construction_costs"`
	RegionalFactors   Source `json:"regional_factors"`
	OccupancyFactors  Source `json:"occupancy_factors"`
	AgeFactors        Source `json:"age_factors"`
	RiskThresholds    Source `json:"risk_thresholds"`
}

// AllSources returns the run-level citation block.
func AllSources() SourceCitations {
	return SourceCitations{
		ConstructionCosts: ConstructionCostSource,
		RegionalFactors:   RegionalCostSource,
		OccupancyFactors:  OccupancySource,
		AgeFactors:        AgeFactorSource,
		RiskThresholds:    RiskThresholdSource,
	}
}

func propertyCitations(c Calculation) []Citation {
	return []Citation{
		{
			Type:        "construction_cost",
			Value:       c.BaseCostPerSqft,
			Description: "Base construction cost per square foot for " + c.ConstructionClass,
			Source:      ConstructionCostSource,
		},
		{
			Type:        "regional_cost",
			Value:       c.RegionalMultiplier,
			Description: "Regional cost multiplier for " + c.State,
			Source:      RegionalCostSource,
		},
		{
			Type:        "occupancy_factor",
			Value:       c.OccupancyFactor,
			Description: "Occupancy factor for " + c.OccupancyClass,
			Source:      OccupancySource,
		},
		{
			Type:        "age_factor",
			Value:       c.AgeFactor,
			Description: fmt.Sprintf("Age factor for building %d years old (bracket: %s)", c.BuildingAge, c.AgeBracket),
			Source:      AgeFactorSource,
		},
	}
}
