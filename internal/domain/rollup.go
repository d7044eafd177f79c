package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OpportunityCounts guarda as contagens pré-agregadas de uma linha 360
type OpportunityCounts struct {
	Total int `json:"total_opportunities"`
	Open  int `json:"open_opportunities"`
	Won   int `json:"won_opportunities"`
	Lost  int `json:"lost_opportunities"`
}

func (c OpportunityCounts) Add(o OpportunityCounts) OpportunityCounts {
	return OpportunityCounts{
		Total: c.Total + o.Total,
		Open:  c.Open + o.Open,
		Won:   c.Won + o.Won,
		Lost:  c.Lost + o.Lost,
	}
}

// RollupMetrics são as colunas comuns às tabelas 360 (produto, vendedor e conta).
// Os valores já vêm calculados do upstream; aqui são apenas reagregados.
type RollupMetrics struct {
	FirstEngageDate   *time.Time        `json:"first_engage_date"`
	LastCloseDate     *time.Time        `json:"last_close_date"`
	Opportunities     OpportunityCounts `json:"opportunities"`
	RevenueWon        decimal.Decimal   `json:"revenue_won"`
	AvgWinDealValue   *float64          `json:"avg_win_deal_value"`
	AvgSalesCycleDays *float64          `json:"avg_sales_cycle_days"`
}

// EngageMonth retorna o mês da primeira data de engajamento
func (m RollupMetrics) EngageMonth() (time.Month, bool) {
	if m.FirstEngageDate == nil {
		return 0, false
	}
	return m.FirstEngageDate.Month(), true
}

type Product360 struct {
	Product          string   `json:"product"`
	Series           string   `json:"series"`
	DistinctAccounts *float64 `json:"distinct_accounts"`
	RollupMetrics
}

type Agent360 struct {
	SalesAgent       string   `json:"sales_agent"`
	Manager          string   `json:"manager"`
	RegionalOffice   string   `json:"regional_office"`
	DistinctAccounts *float64 `json:"distinct_accounts"`
	RollupMetrics
}

type Account360 struct {
	Account              string   `json:"account"`
	Sector               string   `json:"sector"`
	OfficeLocation       string   `json:"office_location"`
	SubsidiaryOf         string   `json:"subsidiary_of"`
	DistinctProductsSold *float64 `json:"distinct_products_sold"`
	RollupMetrics
}
