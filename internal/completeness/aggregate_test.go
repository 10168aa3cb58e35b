package completeness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_CategoryResults(t *testing.T) {
	rs := NewRequirementSet(
		Requirement{Category: Triage, Fields: []string{"A", "B", "C"}},
		Requirement{Category: Appetite, Fields: []string{"B"}},
	)
	rep := Aggregate(PresenceSet{"A": true, "B": true}, rs)

	triage, ok := rep.Category(Triage)
	require.True(t, ok)
	assert.Equal(t, 66.67, triage.Percentage)
	assert.Equal(t, 2, triage.Present)
	assert.Equal(t, 3, triage.Total)
	assert.Equal(t, []string{"C"}, triage.Missing)

	appetite, ok := rep.Category(Appetite)
	require.True(t, ok)
	assert.Equal(t, 100.0, appetite.Percentage)
	assert.Equal(t, 1, appetite.Present)
	assert.Equal(t, 1, appetite.Total)
	assert.Empty(t, appetite.Missing)

	// Slots, not distinct fields: B counts once per category.
	assert.Equal(t, 3, rep.Aggregate.Present)
	assert.Equal(t, 4, rep.Aggregate.Total)
	assert.Equal(t, 75.0, rep.Aggregate.Percentage)
}

func TestAggregate_VacuousCompleteness(t *testing.T) {
	tests := []struct {
		name string
		rs   RequirementSet
	}{
		{"nil set", nil},
		{"empty category", NewRequirementSet(Requirement{Category: Clearance})},
		{"empty lists", NewRequirementSet(
			Requirement{Category: Triage, Fields: []string{}},
			Requirement{Category: Appetite},
		)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Aggregate(PresenceSet{}, tt.rs)
			for _, cr := range rep.Categories {
				assert.Equal(t, 100.0, cr.Percentage)
				assert.Equal(t, 0, cr.Total)
			}
			assert.Equal(t, 100.0, rep.Aggregate.Percentage)
			assert.NotNil(t, rep.Aggregate.Missing)
		})
	}
}

func TestAggregate_MissingOrderFollowsDeclaration(t *testing.T) {
	rs := NewRequirementSet(Requirement{Category: Triage, Fields: []string{"z", "a", "m"}})
	rep := Aggregate(PresenceSet{}, rs)

	res, _ := rep.Category(Triage)
	assert.Equal(t, []string{"z", "a", "m"}, res.Missing)
	assert.Equal(t, 0.0, res.Percentage)
}

func TestAggregate_NilPresence(t *testing.T) {
	rs := NewRequirementSet(Requirement{Category: Triage, Fields: []string{"a"}})
	rep := Aggregate(nil, rs)
	assert.Equal(t, 0.0, rep.Aggregate.Percentage)
	assert.Equal(t, []string{"a"}, rep.Aggregate.Missing)
}

func TestRequirementSet_RequiredExpandsEverywhere(t *testing.T) {
	rs := FromFieldCategories(
		[]string{"company_name", "website", "naics", "broker_name"},
		map[string][]Category{
			"company_name": {Triage, Appetite, Clearance},
			"website":      {Required},
			"naics":        {Triage, Clearance},
			"broker_name":  {Clearance},
		},
		[]Category{Triage, Appetite, Clearance},
	)

	assert.Equal(t, []Category{Triage, Appetite, Clearance}, rs.Categories())
	assert.Equal(t, []string{"company_name", "website", "naics"}, rs.Fields(Triage))
	assert.Equal(t, []string{"company_name", "website"}, rs.Fields(Appetite))
	assert.Equal(t, []string{"company_name", "website", "naics", "broker_name"}, rs.Fields(Clearance))
	assert.Equal(t, []string{"company_name", "website", "naics", "broker_name"}, rs.AllFields())
}

func TestNewRequirementSet_RequiredCategoryAndDuplicates(t *testing.T) {
	rs := NewRequirementSet(
		Requirement{Category: Triage, Fields: []string{"a", "a", "b"}},
		Requirement{Category: Appetite, Fields: []string{"c"}},
		Requirement{Category: Required, Fields: []string{"b", "r"}},
	)
	assert.Equal(t, []Category{Triage, Appetite}, rs.Categories())
	assert.Equal(t, []string{"a", "b", "r"}, rs.Fields(Triage))
	assert.Equal(t, []string{"c", "b", "r"}, rs.Fields(Appetite))
}

func TestNewRequirementSet_RequiredOnly(t *testing.T) {
	rs := NewRequirementSet(Requirement{Category: Required, Fields: []string{"a", "b", "a"}})
	assert.Equal(t, []Category{Required}, rs.Categories())
	assert.Equal(t, []string{"a", "b"}, rs.Fields(Required))

	rep := Aggregate(PresenceSet{"a": true}, rs)
	assert.Equal(t, 50.0, rep.Aggregate.Percentage)
	assert.Equal(t, []string{"b"}, rep.Aggregate.Missing)
}

func TestRequirementSet_Override(t *testing.T) {
	base := NewRequirementSet(
		Requirement{Category: Triage, Fields: []string{"a", "b"}},
		Requirement{Category: Appetite, Fields: []string{"c"}},
	)
	out := base.Override(RequirementSet{
		{Category: Appetite, Fields: []string{"x", "y"}},
		{Category: Triage},
		{Category: Clearance, Fields: []string{}},
	})

	assert.Equal(t, []string{"a", "b"}, out.Fields(Triage), "nil list keeps the default")
	assert.Equal(t, []string{"x", "y"}, out.Fields(Appetite))
	assert.Equal(t, []Category{Triage, Appetite, Clearance}, out.Categories())
	assert.Empty(t, out.Fields(Clearance))
	assert.Equal(t, []string{"c"}, base.Fields(Appetite), "base is not mutated")
}

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]Category{"T": Triage, "appetite": Appetite, "C": Clearance, "Required": Required} {
		got, err := ParseCategory(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCategory("X")
	assert.Error(t, err)
	assert.Equal(t, "clearance", Clearance.Label())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 66.67, Round2(200.0/3))
	assert.Equal(t, 33.33, Round2(100.0/3))
	assert.Equal(t, 12.35, Round2(12.345000001))
}
