// Package aggregating calcula os KPIs e as tabelas agrupadas de cada página.
// Todas as funções são puras: recebem o Dataset da sessão e a seleção de filtros.
package aggregating

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/filtering"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/utils"
)

type ExecutiveKPIs struct {
	TotalRevenue       decimal.Decimal
	TotalOpportunities int
	WonOpportunities   int
	LostOpportunities  int
	OpenOpportunities  int
	WinRate            float64
	AvgDealValue       float64
	AvgSalesCycleDays  float64
	ActiveCustomers    int
}

// ComputeExecutiveKPIs aplica as regras da visão executiva:
// receita total sobre a base completa, fechadas sobre filtered e abertas sobre open.
func ComputeExecutiveKPIs(all, filtered, open []domain.Opportunity, accounts []domain.Account) ExecutiveKPIs {
	var k ExecutiveKPIs

	for _, o := range all {
		k.TotalRevenue = k.TotalRevenue.Add(o.Revenue())
	}

	ids := make(map[string]struct{}, len(filtered)+len(open))
	won := make(map[string]struct{})
	lost := make(map[string]struct{})

	var dealSum decimal.Decimal
	var dealCount int
	var cycleSum float64
	var cycleCount int

	for _, o := range filtered {
		ids[o.ID] = struct{}{}

		switch o.Stage {
		case domain.StageWon:
			won[o.ID] = struct{}{}
			if o.CloseValue.Valid {
				dealSum = dealSum.Add(o.CloseValue.Decimal)
				dealCount++
			}
		case domain.StageLost:
			lost[o.ID] = struct{}{}
		}

		if days, ok := o.SalesCycleDays(); ok {
			cycleSum += days
			cycleCount++
		}
	}

	for _, o := range open {
		ids[o.ID] = struct{}{}
	}

	k.TotalOpportunities = len(ids)
	k.WonOpportunities = len(won)
	k.LostOpportunities = len(lost)
	k.OpenOpportunities = len(open)
	k.WinRate = WinRate(domain.OpportunityCounts{
		Won:  k.WonOpportunities,
		Lost: k.LostOpportunities,
		Open: k.OpenOpportunities,
	})

	if dealCount > 0 {
		k.AvgDealValue = dealSum.Div(decimal.NewFromInt(int64(dealCount))).InexactFloat64()
	}
	k.AvgSalesCycleDays = utils.SafeDivide(cycleSum, float64(cycleCount))
	k.ActiveCustomers = distinct(accounts, func(a domain.Account) string { return a.Account })

	return k
}

func (k ExecutiveKPIs) KPIs() []domain.KPI {
	revenue := k.TotalRevenue.InexactFloat64()
	return []domain.KPI{
		{Name: "total_revenue", Title: "Total Revenue", Value: revenue, Display: utils.FormatCurrency(revenue)},
		{Name: "total_opportunities", Title: "Total Opps", Value: float64(k.TotalOpportunities), Display: utils.FormatCount(k.TotalOpportunities)},
		{Name: "won_opportunities", Title: "Won Opps", Value: float64(k.WonOpportunities), Display: utils.FormatCount(k.WonOpportunities)},
		{Name: "open_opportunities", Title: "Open Opps", Value: float64(k.OpenOpportunities), Display: utils.FormatCount(k.OpenOpportunities)},
		{Name: "lost_opportunities", Title: "Lost Opps", Value: float64(k.LostOpportunities), Display: utils.FormatCount(k.LostOpportunities)},
		{Name: "win_rate", Title: "Win Rate %", Value: utils.RoundWithTwoDecimalPlace(k.WinRate), Display: utils.FormatPercent(k.WinRate)},
		{Name: "avg_deal_value", Title: "Avg Deal Value", Value: utils.RoundWithTwoDecimalPlace(k.AvgDealValue), Display: "$" + utils.FormatCount(int(k.AvgDealValue+0.5))},
		{Name: "active_customers", Title: "Active Customers", Value: float64(k.ActiveCustomers), Display: utils.FormatCount(k.ActiveCustomers)},
		{Name: "avg_sales_cycle", Title: "Avg Sales Cycle", Value: utils.RoundWithTwoDecimalPlace(k.AvgSalesCycleDays), Display: utils.FormatDays(k.AvgSalesCycleDays)},
	}
}

// SplitExecutive separa as duas visões do pipeline: filtered com todas as
// dimensões da página e open (Prospecting/Engaging) com todas menos o mês,
// já que oportunidades abertas não têm data de fechamento.
func SplitExecutive(all []domain.Opportunity, sel filtering.Selection) (filtered, open []domain.Opportunity) {
	dims := filtering.PageDimensions[domain.PageExecutive]
	filtered = filtering.Apply(all, sel, dims, filtering.OpportunityAccessors)

	openRows := make([]domain.Opportunity, 0)
	for _, o := range all {
		if o.Stage.IsOpen() {
			openRows = append(openRows, o)
		}
	}
	open = filtering.Apply(openRows, sel, filtering.Except(dims, filtering.DimensionMonth), filtering.OpportunityAccessors)

	return filtered, open
}

// Executive monta a visão executiva completa
func Executive(ds *domain.Dataset, sel filtering.Selection) domain.Dashboard {
	filtered, open := SplitExecutive(ds.Opportunities, sel)
	kpis := ComputeExecutiveKPIs(ds.Opportunities, filtered, open, ds.Accounts)

	revenue := func(o domain.Opportunity) decimal.Decimal { return o.Revenue() }

	return domain.Dashboard{
		Page: domain.PageExecutive,
		KPIs: kpis.KPIs(),
		Tables: []domain.GroupedTable{
			table("monthly_revenue", "Monthly Revenue Trend", "Month", "Revenue", domain.ChartLine, MonthlyRevenue(filtered)),
			table("stage_funnel", "Opportunity Funnel", "Stage", "Opportunity Count", domain.ChartFunnel, StageFunnel(ds.Opportunities)),
			table("revenue_by_product", "Revenue by Product", "Product", "Revenue", domain.ChartBar,
				sortByValue(sumBy(filtered, func(o domain.Opportunity) string { return keyOrUnknown(o.Product) }, revenue), false)),
			table("revenue_by_sector", "Revenue by Sector", "Sector", "Revenue", domain.ChartHBar,
				sortByValue(sumBy(filtered, func(o domain.Opportunity) string { return keyOrUnknown(o.Sector) }, revenue), false)),
			table("revenue_by_region", "Revenue by Region", "Region", "Revenue", domain.ChartBar,
				sumBy(filtered, func(o domain.Opportunity) string { return keyOrUnknown(o.OfficeLocation) }, revenue)),
			table("top_accounts", "Top 10 Accounts by Revenue", "Account", "Revenue", domain.ChartHBar,
				topAscending(sumBy(filtered, func(o domain.Opportunity) string { return keyOrUnknown(o.Account) }, revenue), topLimit)),
		},
		RowCount: len(filtered),
		Raw:      opportunityRaw(filtered),
	}
}

// MonthlyRevenue agrupa a receita pelo mês de fechamento em ordem de calendário.
// Linhas sem data de fechamento não têm lugar no eixo de tempo.
func MonthlyRevenue(rows []domain.Opportunity) []domain.TableRow {
	sums := make(map[time.Month]decimal.Decimal)
	for _, o := range rows {
		month, ok := o.CloseMonth()
		if !ok {
			continue
		}
		sums[month] = sums[month].Add(o.Revenue())
	}

	out := make([]domain.TableRow, 0, len(sums))
	for m := time.January; m <= time.December; m++ {
		if v, ok := sums[m]; ok {
			out = append(out, domain.TableRow{Key: m.String(), Value: v.InexactFloat64()})
		}
	}
	return out
}

// StageFunnel conta oportunidades por estágio na ordem fixa do funil
func StageFunnel(rows []domain.Opportunity) []domain.TableRow {
	counts := make(map[domain.DealStage]int)
	for _, o := range rows {
		counts[o.Stage]++
	}

	out := make([]domain.TableRow, 0, len(domain.FunnelOrder))
	for _, stage := range domain.FunnelOrder {
		out = append(out, domain.TableRow{Key: string(stage), Value: float64(counts[stage])})
	}
	return out
}

func opportunityRaw(rows []domain.Opportunity) domain.RawTable {
	raw := domain.RawTable{
		Columns: []string{
			"opportunity_id", "sales_agent", "product", "account", "deal_stage", "engage_date",
			"close_date", "close_value", "sector", "office_location", "subsidiary_of", "series",
			"manager", "regional_office",
		},
		Rows: make([][]any, 0, len(rows)),
	}

	for _, o := range rows {
		raw.Rows = append(raw.Rows, []any{
			o.ID, o.SalesAgent, o.Product, o.Account, string(o.Stage), dateCell(o.EngageDate),
			dateCell(o.CloseDate), nullDecimalCell(o.CloseValue), o.Sector, o.OfficeLocation, o.SubsidiaryOf, o.Series,
			o.Manager, o.RegionalOffice,
		})
	}
	return raw
}

func dateCell(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}

func nullDecimalCell(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func floatCell(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
