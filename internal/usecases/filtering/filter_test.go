package filtering

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func pipeline() []domain.Opportunity {
	return []domain.Opportunity{
		{ID: "1", Account: "Acme", Product: "GTX Pro", SalesAgent: "Anna", Stage: domain.StageWon,
			CloseDate: date(2017, time.March, 1), CloseValue: decimal.NewNullDecimal(decimal.NewFromInt(100)), OfficeLocation: "United States"},
		{ID: "2", Account: "Betasoft", Product: "MG Special", SalesAgent: "Boris", Stage: domain.StageLost,
			CloseDate: date(2017, time.April, 2), OfficeLocation: "Kenya"},
		{ID: "3", Account: "Acme", Product: "GTX Pro", SalesAgent: "Boris", Stage: domain.StageProspecting,
			OfficeLocation: "United States"},
	}
}

func TestApply(t *testing.T) {
	rows := pipeline()
	executive := PageDimensions[domain.PageExecutive]
	open := Except(executive, DimensionMonth)

	tests := []struct {
		name string
		sel  Selection
		dims []Dimension
		want []string
	}{
		{name: "seleção vazia exclui linhas sem data", sel: Selection{}, dims: executive, want: []string{"1", "2"}},
		{name: "sem mês, linhas sem data entram", sel: Selection{}, dims: open, want: []string{"1", "2", "3"}},
		{name: "filtro por produto", sel: Selection{DimensionProduct: {"GTX Pro"}}, dims: open, want: []string{"1", "3"}},
		{name: "filtro por mês", sel: Selection{DimensionMonth: {"March"}}, dims: executive, want: []string{"1"}},
		{name: "dimensões combinadas", sel: Selection{DimensionAgent: {"Boris"}, DimensionRegion: {"Kenya"}}, dims: executive, want: []string{"2"}},
		{name: "valor inexistente", sel: Selection{DimensionAgent: {"Zed"}}, dims: executive, want: []string{}},
		{name: "dimensão fora da página é ignorada", sel: Selection{DimensionProduct: {"MG Special"}}, dims: []Dimension{DimensionAgent}, want: []string{"1", "2", "3"}},
		{name: "dimensão não suportada é ignorada", sel: Selection{DimensionAge: {"3"}}, dims: []Dimension{DimensionAge}, want: []string{"1", "2", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(rows, tt.sel, tt.dims, OpportunityAccessors)
			ids := make([]string, 0, len(got))
			for _, o := range got {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestApply_EmptySelectionEqualsSelectingAllValues(t *testing.T) {
	rows := append(pipeline(),
		domain.Opportunity{ID: "4", Product: "GTX Pro", CloseDate: date(2017, time.May, 3), OfficeLocation: "Kenya"},
		domain.Opportunity{ID: "5", Account: "Acme", SalesAgent: "Anna", CloseDate: date(2017, time.June, 4)},
	)
	dims := []Dimension{DimensionMonth, DimensionProduct, DimensionAgent, DimensionRegion, DimensionAccount}
	implicit := Apply(rows, Selection{}, dims, OpportunityAccessors)

	everything := Selection{}
	for _, d := range dims {
		all := Options(rows, d, OpportunityAccessors[d])
		everything[d] = all

		explicit := Apply(rows, Selection{d: all}, dims, OpportunityAccessors)
		assert.Equal(t, implicit, explicit, "dimensão %s", d)
	}

	assert.Equal(t, implicit, Apply(rows, everything, dims, OpportunityAccessors))
	assert.Len(t, implicit, 2)
}

func TestOptions(t *testing.T) {
	rows := pipeline()

	assert.Equal(t, []string{"March", "April"}, Options(rows, DimensionMonth, OpportunityAccessors[DimensionMonth]))
	assert.Equal(t, []string{"Anna", "Boris"}, Options(rows, DimensionAgent, OpportunityAccessors[DimensionAgent]))

	cohorts := []domain.CohortRecord{
		{CohortMonth: time.Date(2017, time.February, 1, 0, 0, 0, 0, time.UTC), MonthsSinceAcquisition: 10},
		{CohortMonth: time.Date(2016, time.December, 1, 0, 0, 0, 0, time.UTC), MonthsSinceAcquisition: 2},
		{CohortMonth: time.Date(2017, time.February, 1, 0, 0, 0, 0, time.UTC), MonthsSinceAcquisition: 0},
	}
	assert.Equal(t, []string{"Dec 2016", "Feb 2017"}, Options(cohorts, DimensionCohortMonth, CohortAccessors[DimensionCohortMonth]))
	assert.Equal(t, []string{"0", "2", "10"}, Options(cohorts, DimensionAge, CohortAccessors[DimensionAge]))
}

func TestFromQuery(t *testing.T) {
	query := url.Values{
		"month":   {"apr,January", "3"},
		"product": {"GTX Pro", " MG Special ,GTX Pro"},
		"agent":   {""},
		"ignored": {"x"},
	}

	sel, err := FromQuery(query, PageDimensions[domain.PageExecutive])
	require.NoError(t, err)

	assert.Equal(t, []string{"January", "March", "April"}, sel.Values(DimensionMonth))
	assert.Equal(t, []string{"GTX Pro", "MG Special"}, sel.Values(DimensionProduct))
	assert.True(t, sel.IsAll(DimensionAgent))
	assert.True(t, sel.IsAll(DimensionRegion))

	asMap := sel.ToMap(PageDimensions[domain.PageExecutive])
	assert.Equal(t, []string{}, asMap["agent"])
	assert.Len(t, asMap, 4)
}

func TestFromQuery_Invalid(t *testing.T) {
	_, err := FromQuery(url.Values{"month": {"Smarch"}}, []Dimension{DimensionMonth})
	assert.ErrorIs(t, err, ErrInvalidSelection)

	_, err = FromQuery(url.Values{"age": {"-1"}}, []Dimension{DimensionAge})
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestExcept(t *testing.T) {
	dims := PageDimensions[domain.PageExecutive]

	assert.Equal(t, []Dimension{DimensionProduct, DimensionRegion, DimensionAgent}, Except(dims, DimensionMonth))
	assert.Equal(t, dims, Except(dims))
	assert.Len(t, dims, 4)
}
