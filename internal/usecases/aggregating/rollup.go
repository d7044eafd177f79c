package aggregating

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/filtering"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/utils"
)

// RollupKPIs são os indicadores comuns às páginas 360
type RollupKPIs struct {
	TotalRevenue      decimal.Decimal
	Counts            domain.OpportunityCounts
	WinRate           float64
	AvgDealValue      float64
	AvgSalesCycleDays float64
}

// computeRollupKPIs: receita total sobre a tabela completa, o resto sobre as linhas filtradas
func computeRollupKPIs[T any](all, filtered []T, metrics func(T) domain.RollupMetrics) RollupKPIs {
	var k RollupKPIs

	for _, row := range all {
		k.TotalRevenue = k.TotalRevenue.Add(metrics(row).RevenueWon)
	}

	for _, row := range filtered {
		k.Counts = k.Counts.Add(metrics(row).Opportunities)
	}

	k.WinRate = WinRate(k.Counts)
	k.AvgDealValue = mean(filtered, func(row T) *float64 { return metrics(row).AvgWinDealValue })
	k.AvgSalesCycleDays = mean(filtered, func(row T) *float64 { return metrics(row).AvgSalesCycleDays })

	return k
}

func (k RollupKPIs) base() []domain.KPI {
	revenue := k.TotalRevenue.InexactFloat64()
	return []domain.KPI{
		{Name: "total_revenue", Title: "Total Revenue", Value: revenue, Display: utils.FormatCurrency(revenue)},
		{Name: "total_opportunities", Title: "Total Opportunities", Value: float64(k.Counts.Total), Display: utils.Millify(float64(k.Counts.Total), 2)},
		{Name: "open_opportunities", Title: "Open Opportunities", Value: float64(k.Counts.Open), Display: utils.Millify(float64(k.Counts.Open), 2)},
		{Name: "won_opportunities", Title: "Won Opportunities", Value: float64(k.Counts.Won), Display: utils.Millify(float64(k.Counts.Won), 2)},
		{Name: "lost_opportunities", Title: "Lost Opportunities", Value: float64(k.Counts.Lost), Display: utils.Millify(float64(k.Counts.Lost), 2)},
		{Name: "win_rate", Title: "Win Rate", Value: utils.RoundWithTwoDecimalPlace(k.WinRate), Display: utils.FormatPercent(k.WinRate)},
		{Name: "avg_deal_value", Title: "Avg Deal Value", Value: utils.RoundWithTwoDecimalPlace(k.AvgDealValue), Display: utils.FormatCurrency(k.AvgDealValue)},
	}
}

func numberKPI(name, title string, value float64) domain.KPI {
	return domain.KPI{Name: name, Title: title, Value: utils.RoundWithTwoDecimalPlace(value), Display: utils.Millify(value, 2)}
}

func revenueWon(m domain.RollupMetrics) decimal.Decimal { return m.RevenueWon }

func rollupRaw(columns []string, rows [][]any) domain.RawTable {
	return domain.RawTable{
		Columns: append(columns,
			"first_engage_date", "last_close_date", "total_opportunities", "open_opportunities",
			"won_opportunities", "lost_opportunities", "revenue_won", "avg_win_deal_value", "avg_sales_cycle_days",
		),
		Rows: rows,
	}
}

func rollupCells(m domain.RollupMetrics) []any {
	return []any{
		dateCell(m.FirstEngageDate), dateCell(m.LastCloseDate), m.Opportunities.Total, m.Opportunities.Open,
		m.Opportunities.Won, m.Opportunities.Lost, m.RevenueWon.InexactFloat64(), floatCell(m.AvgWinDealValue),
		floatCell(m.AvgSalesCycleDays),
	}
}

// Products monta a página Product 360
func Products(ds *domain.Dataset, sel filtering.Selection) domain.Dashboard {
	filtered := filtering.Apply(ds.Product360, sel, filtering.PageDimensions[domain.PageProducts], filtering.Product360Accessors)
	metrics := func(p domain.Product360) domain.RollupMetrics { return p.RollupMetrics }
	k := computeRollupKPIs(ds.Product360, filtered, metrics)

	product := func(p domain.Product360) string { return keyOrUnknown(p.Product) }
	keys, counts := countsBy(filtered, product, func(p domain.Product360) domain.OpportunityCounts { return p.Opportunities })

	kpis := append(k.base(),
		numberKPI("avg_sales_cycle", "Average Sales Cycle", k.AvgSalesCycleDays),
		numberKPI("customers_per_product", "Customer Per Product", mean(filtered, func(p domain.Product360) *float64 { return p.DistinctAccounts })),
		countKPI("product_count", "Total Product", distinct(filtered, func(p domain.Product360) string { return p.Product })),
	)

	raw := make([][]any, 0, len(filtered))
	for _, p := range filtered {
		raw = append(raw, append([]any{p.Product, p.Series, floatCell(p.DistinctAccounts)}, rollupCells(p.RollupMetrics)...))
	}

	return domain.Dashboard{
		Page: domain.PageProducts,
		KPIs: kpis,
		Tables: []domain.GroupedTable{
			table("revenue_by_product", "Revenue by Product", "Product", "Revenue", domain.ChartBar,
				sumBy(filtered, product, func(p domain.Product360) decimal.Decimal { return revenueWon(p.RollupMetrics) })),
			table("avg_deal_value_by_product", "Average Deal Value by Product", "Product", "Avg Deal Value", domain.ChartLine,
				sortByValue(meanBy(filtered, product, func(p domain.Product360) *float64 { return p.AvgWinDealValue }), true)),
			table("win_rate_by_product", "Win Rate by Product", "Product", "Win Rate %", domain.ChartBar,
				winRateTable(keys, counts)),
			table("product_adoption", "Product Adoption", "Product", "Distinct Customers", domain.ChartBar,
				sortByValue(round(sumBy(filtered, product, func(p domain.Product360) decimal.Decimal { return decimalOf(p.DistinctAccounts) })), true)),
			table("avg_sales_cycle_by_product", "Avg Sales Cycle (Days) by Product", "Product", "Days", domain.ChartLine,
				sortByValue(meanBy(filtered, product, func(p domain.Product360) *float64 { return p.AvgSalesCycleDays }), true)),
		},
		MultiTables: []domain.MultiSeriesTable{
			opportunityBreakdown("opportunities_by_product", "Number of Opportunities Per Product", "Product", keys, counts),
		},
		RowCount: len(filtered),
		Raw:      rollupRaw([]string{"product", "series", "distinct_accounts"}, raw),
	}
}

// Agents monta a página Sales Agent 360
func Agents(ds *domain.Dataset, sel filtering.Selection) domain.Dashboard {
	filtered := filtering.Apply(ds.Agent360, sel, filtering.PageDimensions[domain.PageAgents], filtering.Agent360Accessors)
	metrics := func(a domain.Agent360) domain.RollupMetrics { return a.RollupMetrics }
	k := computeRollupKPIs(ds.Agent360, filtered, metrics)

	agent := func(a domain.Agent360) string { return keyOrUnknown(a.SalesAgent) }
	keys, counts := countsBy(filtered, agent, func(a domain.Agent360) domain.OpportunityCounts { return a.Opportunities })

	kpis := append(k.base(),
		numberKPI("avg_sales_cycle", "Average Sales Cycle", k.AvgSalesCycleDays),
		numberKPI("customers_per_agent", "Customer Per Sales Agent", mean(filtered, func(a domain.Agent360) *float64 { return a.DistinctAccounts })),
		countKPI("agent_count", "Total Sales Agent", distinct(filtered, func(a domain.Agent360) string { return a.SalesAgent })),
	)

	raw := make([][]any, 0, len(filtered))
	for _, a := range filtered {
		raw = append(raw, append([]any{a.SalesAgent, a.Manager, a.RegionalOffice, floatCell(a.DistinctAccounts)}, rollupCells(a.RollupMetrics)...))
	}

	return domain.Dashboard{
		Page: domain.PageAgents,
		KPIs: kpis,
		Tables: []domain.GroupedTable{
			table("revenue_by_agent", "Revenue by Sales Agent", "Sales Agent", "Revenue", domain.ChartBar,
				sumBy(filtered, agent, func(a domain.Agent360) decimal.Decimal { return revenueWon(a.RollupMetrics) })),
			table("avg_deal_value_by_agent", "Average Deal Value by Sales Agent", "Sales Agent", "Avg Deal Value", domain.ChartLine,
				sortByValue(meanBy(filtered, agent, func(a domain.Agent360) *float64 { return a.AvgWinDealValue }), true)),
			table("win_rate_by_agent", "Win Rate by Agent", "Sales Agent", "Win Rate %", domain.ChartBar,
				sortByValue(winRateTable(keys, counts), true)),
			table("account_coverage", "Account Coverage by Sales Agent", "Sales Agent", "Distinct Accounts", domain.ChartBar,
				sortByValue(round(sumBy(filtered, agent, func(a domain.Agent360) decimal.Decimal { return decimalOf(a.DistinctAccounts) })), true)),
			table("avg_sales_cycle_by_agent", "Avg Sales Cycle (Days) by Sales Agent", "Sales Agent", "Days", domain.ChartLine,
				sortByValue(meanBy(filtered, agent, func(a domain.Agent360) *float64 { return a.AvgSalesCycleDays }), true)),
			table("revenue_by_regional_office", "Revenue Share by Regional Office", "Regional Office", "Revenue", domain.ChartPie,
				sumBy(filtered, func(a domain.Agent360) string { return keyOrUnknown(a.RegionalOffice) },
					func(a domain.Agent360) decimal.Decimal { return revenueWon(a.RollupMetrics) })),
		},
		MultiTables: []domain.MultiSeriesTable{
			opportunityBreakdown("opportunities_by_agent", "Number of Opportunities Per Sales Agent", "Sales Agent", keys, counts),
		},
		RowCount: len(filtered),
		Raw:      rollupRaw([]string{"sales_agent", "manager", "regional_office", "distinct_accounts"}, raw),
	}
}

// Accounts monta a página Account 360
func Accounts(ds *domain.Dataset, sel filtering.Selection) domain.Dashboard {
	filtered := filtering.Apply(ds.Account360, sel, filtering.PageDimensions[domain.PageAccounts], filtering.Account360Accessors)
	metrics := func(a domain.Account360) domain.RollupMetrics { return a.RollupMetrics }
	k := computeRollupKPIs(ds.Account360, filtered, metrics)

	account := func(a domain.Account360) string { return keyOrUnknown(a.Account) }
	sector := func(a domain.Account360) string { return keyOrUnknown(a.Sector) }
	accountKeys, accountCounts := countsBy(filtered, account, func(a domain.Account360) domain.OpportunityCounts { return a.Opportunities })
	sectorKeys, sectorCounts := countsBy(filtered, sector, func(a domain.Account360) domain.OpportunityCounts { return a.Opportunities })

	var productsSold float64
	for _, a := range filtered {
		if a.DistinctProductsSold != nil {
			productsSold += *a.DistinctProductsSold
		}
	}

	periods := PeriodsShown(ds.Account360, sel)
	kpis := append(k.base(),
		numberKPI("products_sold", "Total Products Sold", productsSold),
		numberKPI("active_customers", "Active Customers", float64(distinct(ds.Account360, func(a domain.Account360) string { return a.Account }))),
		domain.KPI{Name: "periods_shown", Title: "Periods Shown", Value: float64(len(periods)), Display: strings.Join(periods, ", ")},
	)

	raw := make([][]any, 0, len(filtered))
	for _, a := range filtered {
		raw = append(raw, append([]any{a.Account, a.Sector, a.OfficeLocation, a.SubsidiaryOf, floatCell(a.DistinctProductsSold)}, rollupCells(a.RollupMetrics)...))
	}

	// Contas sem controladora não formam grupo de controladora
	withParent := make([]domain.Account360, 0, len(filtered))
	for _, a := range filtered {
		if a.SubsidiaryOf != "" {
			withParent = append(withParent, a)
		}
	}

	revenue := func(a domain.Account360) decimal.Decimal { return revenueWon(a.RollupMetrics) }
	dominance, share := SectorDominance(filtered)

	return domain.Dashboard{
		Page: domain.PageAccounts,
		KPIs: kpis,
		Tables: []domain.GroupedTable{
			table("revenue_by_parent", "Revenue by Account", "Parent Account", "Revenue", domain.ChartHBar,
				topAscending(sumBy(withParent, func(a domain.Account360) string { return a.SubsidiaryOf }, revenue), topLimit)),
			table("win_rate_by_sector", "Win Rate by Sector %", "Sector", "Win Rate %", domain.ChartBar,
				winRateTable(sectorKeys, sectorCounts)),
			table("avg_sales_cycle_by_sector", "Avg Sales Cycle (Days) by Sector", "Sector", "Days", domain.ChartBar,
				sortByValue(meanBy(filtered, sector, func(a domain.Account360) *float64 { return a.AvgSalesCycleDays }), true)),
			table("avg_deal_value_by_sector", "Avg Deal Value by Sector", "Sector", "Avg Deal Value", domain.ChartBar,
				meanBy(filtered, sector, func(a domain.Account360) *float64 { return a.AvgWinDealValue })),
		},
		MultiTables: []domain.MultiSeriesTable{
			dominance,
			share,
			opportunityBreakdown("opportunities_by_account", "Total Opportunities per Account", "Account", accountKeys, accountCounts),
		},
		RowCount: len(filtered),
		Raw:      rollupRaw([]string{"account", "sector", "office_location", "subsidiary_of", "distinct_products_sold"}, raw),
	}
}

// SectorDominance devolve a receita por (localização, setor) em valor absoluto
// e normalizada para percentual de cada localização.
func SectorDominance(rows []domain.Account360) (revenue, percent domain.MultiSeriesTable) {
	location := func(a domain.Account360) string { return keyOrUnknown(a.OfficeLocation) }

	sums := make(map[string]map[string]decimal.Decimal)
	sectorSet := make(map[string]struct{})
	for _, a := range rows {
		loc := location(a)
		sec := keyOrUnknown(a.Sector)
		if sums[loc] == nil {
			sums[loc] = make(map[string]decimal.Decimal)
		}
		sums[loc][sec] = sums[loc][sec].Add(a.RevenueWon)
		sectorSet[sec] = struct{}{}
	}

	sectors := make([]string, 0, len(sectorSet))
	for s := range sectorSet {
		sectors = append(sectors, s)
	}
	filtering.SortValues(filtering.DimensionSector, sectors)

	locations := make([]string, 0, len(sums))
	for loc := range sums {
		locations = append(locations, loc)
	}
	filtering.SortValues(filtering.DimensionRegion, locations)

	revenue = domain.MultiSeriesTable{
		Name: "sector_dominance", Title: "Sector Dominance by Country", KeyLabel: "Office Location",
		ValueLabel: "Revenue", Chart: domain.ChartBar, Series: sectors, Rows: []domain.MultiSeriesRow{},
	}
	percent = domain.MultiSeriesTable{
		Name: "sector_dominance_percent", Title: "Sector Dominance by Country (%)", KeyLabel: "Office Location",
		ValueLabel: "% of Location Revenue", Chart: domain.ChartBar, Series: sectors, Rows: []domain.MultiSeriesRow{},
	}

	for _, loc := range locations {
		total := decimal.Zero
		for _, v := range sums[loc] {
			total = total.Add(v)
		}

		values := make([]float64, len(sectors))
		shares := make([]float64, len(sectors))
		for i, s := range sectors {
			v := sums[loc][s]
			values[i] = v.InexactFloat64()
			if !total.IsZero() {
				shares[i] = utils.RoundWithTwoDecimalPlace(v.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64())
			}
		}

		revenue.Rows = append(revenue.Rows, domain.MultiSeriesRow{Key: loc, Values: values})
		percent.Rows = append(percent.Rows, domain.MultiSeriesRow{Key: loc, Values: shares})
	}

	return revenue, percent
}

// PeriodsShown lista os meses da seleção; sem seleção, todos os meses disponíveis
func PeriodsShown(rows []domain.Account360, sel filtering.Selection) []string {
	if !sel.IsAll(filtering.DimensionMonth) {
		return sel.Values(filtering.DimensionMonth)
	}
	return filtering.Options(rows, filtering.DimensionMonth, filtering.Account360Accessors[filtering.DimensionMonth])
}

func countKPI(name, title string, value int) domain.KPI {
	return domain.KPI{Name: name, Title: title, Value: float64(value), Display: utils.FormatCount(value)}
}

func decimalOf(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*f)
}
