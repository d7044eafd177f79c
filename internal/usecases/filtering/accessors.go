package filtering

import (
	"strconv"

	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
)

func present(value string) (string, bool) {
	return value, value != ""
}

// OpportunityAccessors: o mês é o da data de fechamento
var OpportunityAccessors = Accessors[domain.Opportunity]{
	DimensionMonth: func(o domain.Opportunity) (string, bool) {
		month, ok := o.CloseMonth()
		if !ok {
			return "", false
		}
		return month.String(), true
	},
	DimensionProduct: func(o domain.Opportunity) (string, bool) { return present(o.Product) },
	DimensionSeries:  func(o domain.Opportunity) (string, bool) { return present(o.Series) },
	DimensionRegion:  func(o domain.Opportunity) (string, bool) { return present(o.OfficeLocation) },
	DimensionSector:  func(o domain.Opportunity) (string, bool) { return present(o.Sector) },
	DimensionAgent:   func(o domain.Opportunity) (string, bool) { return present(o.SalesAgent) },
	DimensionAccount: func(o domain.Opportunity) (string, bool) { return present(o.Account) },
}

func engageMonth(m domain.RollupMetrics) (string, bool) {
	month, ok := m.EngageMonth()
	if !ok {
		return "", false
	}
	return month.String(), true
}

// Nas tabelas 360 o mês é o da primeira data de engajamento
var Product360Accessors = Accessors[domain.Product360]{
	DimensionMonth:   func(p domain.Product360) (string, bool) { return engageMonth(p.RollupMetrics) },
	DimensionProduct: func(p domain.Product360) (string, bool) { return present(p.Product) },
	DimensionSeries:  func(p domain.Product360) (string, bool) { return present(p.Series) },
}

var Agent360Accessors = Accessors[domain.Agent360]{
	DimensionMonth:  func(a domain.Agent360) (string, bool) { return engageMonth(a.RollupMetrics) },
	DimensionAgent:  func(a domain.Agent360) (string, bool) { return present(a.SalesAgent) },
	DimensionRegion: func(a domain.Agent360) (string, bool) { return present(a.RegionalOffice) },
}

var Account360Accessors = Accessors[domain.Account360]{
	DimensionMonth:   func(a domain.Account360) (string, bool) { return engageMonth(a.RollupMetrics) },
	DimensionAccount: func(a domain.Account360) (string, bool) { return present(a.Account) },
	DimensionSector:  func(a domain.Account360) (string, bool) { return present(a.Sector) },
	DimensionRegion:  func(a domain.Account360) (string, bool) { return present(a.OfficeLocation) },
}

var CohortAccessors = Accessors[domain.CohortRecord]{
	DimensionCohortMonth: func(c domain.CohortRecord) (string, bool) {
		if c.CohortMonth.IsZero() {
			return "", false
		}
		return c.Label(), true
	},
	DimensionAge: func(c domain.CohortRecord) (string, bool) {
		return strconv.Itoa(c.MonthsSinceAcquisition), true
	},
}
