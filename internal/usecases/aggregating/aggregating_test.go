package aggregating

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/filtering"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func money(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func ptr(f float64) *float64 { return &f }

func kpi(t *testing.T, d domain.Dashboard, name string) domain.KPI {
	t.Helper()
	k, ok := d.KPI(name)
	require.True(t, ok, "kpi %s", name)
	return k
}

func tableOf(t *testing.T, d domain.Dashboard, name string) domain.GroupedTable {
	t.Helper()
	tbl, ok := d.Table(name)
	require.True(t, ok, "tabela %s", name)
	return tbl
}

func TestExecutive_ThreeOpportunityExample(t *testing.T) {
	ds := &domain.Dataset{
		Opportunities: []domain.Opportunity{
			{ID: "1", Account: "A", Product: "X", SalesAgent: "Ana", OfficeLocation: "US", Stage: domain.StageWon,
				CloseDate: date(2017, time.March, 1), CloseValue: money(100)},
			{ID: "2", Account: "A", Product: "Y", SalesAgent: "Ana", OfficeLocation: "US", Stage: domain.StageLost,
				CloseDate: date(2017, time.April, 1)},
			{ID: "3", Account: "B", Product: "X", SalesAgent: "Ana", OfficeLocation: "US", Stage: domain.StageProspecting},
		},
		Accounts: []domain.Account{{Account: "A"}, {Account: "B"}},
	}

	d := Executive(ds, filtering.Selection{})

	assert.Equal(t, 100.0, kpi(t, d, "total_revenue").Value)
	assert.Equal(t, "$100", kpi(t, d, "total_revenue").Display)
	assert.Equal(t, 3.0, kpi(t, d, "total_opportunities").Value)
	assert.Equal(t, 33.33, kpi(t, d, "win_rate").Value)
	assert.Equal(t, "33.33%", kpi(t, d, "win_rate").Display)
	assert.Equal(t, 100.0, kpi(t, d, "avg_deal_value").Value)
	assert.Equal(t, 0.0, kpi(t, d, "avg_sales_cycle").Value)
	assert.Equal(t, 2.0, kpi(t, d, "active_customers").Value)

	byProduct := tableOf(t, d, "revenue_by_product")
	assert.Equal(t, []domain.TableRow{{Key: "Y", Value: 0}, {Key: "X", Value: 100}}, byProduct.Rows)
}

func TestComputeExecutiveKPIs_EmptyInputs(t *testing.T) {
	k := ComputeExecutiveKPIs(nil, nil, nil, nil)

	assert.True(t, k.TotalRevenue.IsZero())
	assert.Equal(t, 0.0, k.WinRate)
	assert.Equal(t, 0.0, k.AvgDealValue)
	assert.Equal(t, 0.0, k.AvgSalesCycleDays)
}

func executiveDataset() *domain.Dataset {
	var rows []domain.Opportunity
	stages := []domain.DealStage{domain.StageWon, domain.StageLost, domain.StageEngaging, domain.StageWon, domain.StageProspecting}
	products := []string{"GTX Pro", "MG Special", "GTX Basic"}
	regions := []string{"United States", "Kenya", "Japan", ""}

	for i := 0; i < 40; i++ {
		o := domain.Opportunity{
			ID:             fmt.Sprintf("OPP%02d", i),
			Account:        fmt.Sprintf("Acc%d", i%13),
			Product:        products[i%len(products)],
			SalesAgent:     fmt.Sprintf("Agent%d", i%4),
			Stage:          stages[i%len(stages)],
			Sector:         []string{"retail", "medical", "software"}[i%3],
			OfficeLocation: regions[i%len(regions)],
		}
		if !o.Stage.IsOpen() {
			o.EngageDate = date(2017, time.Month(1+i%6), 1)
			o.CloseDate = date(2017, time.Month(1+i%6), 1+i%20)
		}
		if o.Stage == domain.StageWon {
			o.CloseValue = money(int64(100 + i*37))
		}
		rows = append(rows, o)
	}

	return &domain.Dataset{Opportunities: rows, Accounts: []domain.Account{{Account: "Acc1"}}}
}

func TestExecutive_GroupedRevenueMatchesFilteredTotal(t *testing.T) {
	ds := executiveDataset()

	selections := []filtering.Selection{
		{},
		{filtering.DimensionProduct: {"GTX Pro"}},
		{filtering.DimensionMonth: {"February", "March"}},
		{filtering.DimensionRegion: {"Kenya"}, filtering.DimensionAgent: {"Agent1", "Agent2"}},
	}

	for _, sel := range selections {
		filtered, _ := SplitExecutive(ds.Opportunities, sel)
		expected := decimal.Zero
		for _, o := range filtered {
			expected = expected.Add(o.Revenue())
		}

		d := Executive(ds, sel)
		for _, name := range []string{"revenue_by_product", "revenue_by_sector", "revenue_by_region"} {
			assert.InDelta(t, expected.InexactFloat64(), tableOf(t, d, name).Total(), 1e-9, "%s com seleção %v", name, sel)
		}
	}
}

func TestExecutive_WinRateBounded(t *testing.T) {
	ds := executiveDataset()

	for _, sel := range []filtering.Selection{
		{},
		{filtering.DimensionMonth: {"January"}},
		{filtering.DimensionProduct: {"nope"}},
	} {
		rate := kpi(t, Executive(ds, sel), "win_rate").Value
		assert.GreaterOrEqual(t, rate, 0.0)
		assert.LessOrEqual(t, rate, 100.0)
	}
}

func TestExecutive_OpenIgnoresMonthFilter(t *testing.T) {
	ds := executiveDataset()

	all := Executive(ds, filtering.Selection{})
	january := Executive(ds, filtering.Selection{filtering.DimensionMonth: {"January"}})

	assert.Equal(t, kpi(t, all, "open_opportunities").Value, kpi(t, january, "open_opportunities").Value)
	assert.Less(t, kpi(t, january, "won_opportunities").Value, kpi(t, all, "won_opportunities").Value)
	// Receita total é referência fixa
	assert.Equal(t, kpi(t, all, "total_revenue").Value, kpi(t, january, "total_revenue").Value)
}

func TestExecutive_TablesOrder(t *testing.T) {
	d := Executive(executiveDataset(), filtering.Selection{})

	monthly := tableOf(t, d, "monthly_revenue")
	assert.Equal(t, []string{"January", "February", "March", "April", "May", "June"}, monthly.Keys())

	funnel := tableOf(t, d, "stage_funnel")
	assert.Equal(t, []string{"Prospecting", "Engaging", "Lost", "Won"}, funnel.Keys())
	assert.Equal(t, 40.0, funnel.Total())

	top := tableOf(t, d, "top_accounts")
	assert.LessOrEqual(t, len(top.Rows), 10)
	for i := 1; i < len(top.Rows); i++ {
		assert.LessOrEqual(t, top.Rows[i-1].Value, top.Rows[i].Value)
	}

	// linhas sem região não entram, assim como numa seleção explícita de todas as regiões
	region := tableOf(t, d, "revenue_by_region")
	assert.Equal(t, []string{"Japan", "Kenya", "United States"}, region.Keys())

	assert.Len(t, d.Raw.Rows, d.RowCount)
}

func TestStageFunnel_KeepsMissingStages(t *testing.T) {
	rows := StageFunnel([]domain.Opportunity{{Stage: domain.StageWon}, {Stage: domain.StageWon}})
	assert.Equal(t, []domain.TableRow{
		{Key: "Prospecting", Value: 0},
		{Key: "Engaging", Value: 0},
		{Key: "Lost", Value: 0},
		{Key: "Won", Value: 2},
	}, rows)
}

func product360(product, series string, month time.Month, won, lost, open int, revenue int64, deal, cycle, accounts *float64) domain.Product360 {
	return domain.Product360{
		Product:          product,
		Series:           series,
		DistinctAccounts: accounts,
		RollupMetrics: domain.RollupMetrics{
			FirstEngageDate:   date(2017, month, 10),
			Opportunities:     domain.OpportunityCounts{Total: won + lost + open, Won: won, Lost: lost, Open: open},
			RevenueWon:        decimal.NewFromInt(revenue),
			AvgWinDealValue:   deal,
			AvgSalesCycleDays: cycle,
		},
	}
}

func TestProducts(t *testing.T) {
	ds := &domain.Dataset{Product360: []domain.Product360{
		product360("GTX Pro", "GTX", time.January, 6, 2, 2, 6000, ptr(1000), ptr(50), ptr(5)),
		product360("GTX Pro", "GTX", time.February, 4, 4, 2, 4000, nil, ptr(70), ptr(3)),
		product360("MG Special", "MG", time.January, 1, 1, 0, 50, ptr(50), nil, nil),
	}}

	d := Products(ds, filtering.Selection{filtering.DimensionSeries: {"GTX"}})

	assert.Equal(t, 10050.0, kpi(t, d, "total_revenue").Value)
	assert.Equal(t, 20.0, kpi(t, d, "total_opportunities").Value)
	assert.Equal(t, 50.0, kpi(t, d, "win_rate").Value)
	assert.Equal(t, 1000.0, kpi(t, d, "avg_deal_value").Value)
	assert.Equal(t, 60.0, kpi(t, d, "avg_sales_cycle").Value)
	assert.Equal(t, 4.0, kpi(t, d, "customers_per_product").Value)
	assert.Equal(t, 1.0, kpi(t, d, "product_count").Value)

	assert.Equal(t, []domain.TableRow{{Key: "GTX Pro", Value: 10000}}, tableOf(t, d, "revenue_by_product").Rows)
	assert.Equal(t, []domain.TableRow{{Key: "GTX Pro", Value: 8}}, tableOf(t, d, "product_adoption").Rows)

	require.Len(t, d.MultiTables, 1)
	assert.Equal(t, []float64{10, 6, 4}, d.MultiTables[0].Rows[0].Values)
}

func TestProducts_EmptySliceYieldsZeros(t *testing.T) {
	ds := &domain.Dataset{Product360: []domain.Product360{
		product360("GTX Pro", "GTX", time.January, 1, 0, 0, 10, ptr(10), ptr(5), ptr(1)),
	}}

	d := Products(ds, filtering.Selection{filtering.DimensionProduct: {"nope"}})

	assert.Equal(t, 10.0, kpi(t, d, "total_revenue").Value)
	assert.Equal(t, 0.0, kpi(t, d, "win_rate").Value)
	assert.Equal(t, 0.0, kpi(t, d, "avg_deal_value").Value)
	assert.Equal(t, 0.0, kpi(t, d, "customers_per_product").Value)
	assert.Empty(t, tableOf(t, d, "revenue_by_product").Rows)
}

func TestAgents(t *testing.T) {
	ds := &domain.Dataset{Agent360: []domain.Agent360{
		{SalesAgent: "Anna", RegionalOffice: "East", DistinctAccounts: ptr(4), RollupMetrics: domain.RollupMetrics{
			FirstEngageDate: date(2017, time.January, 3),
			Opportunities:   domain.OpportunityCounts{Won: 3, Lost: 1}, RevenueWon: decimal.NewFromInt(300)}},
		{SalesAgent: "Boris", RegionalOffice: "West", DistinctAccounts: ptr(2), RollupMetrics: domain.RollupMetrics{
			FirstEngageDate: date(2017, time.February, 3),
			Opportunities:   domain.OpportunityCounts{Won: 1, Lost: 1}, RevenueWon: decimal.NewFromInt(100)}},
	}}

	d := Agents(ds, filtering.Selection{})

	assert.Equal(t, []string{"Anna", "Boris"}, tableOf(t, d, "win_rate_by_agent").Keys())
	assert.Equal(t, []float64{75, 50}, []float64{tableOf(t, d, "win_rate_by_agent").Rows[0].Value, tableOf(t, d, "win_rate_by_agent").Rows[1].Value})
	assert.Equal(t, 400.0, tableOf(t, d, "revenue_by_regional_office").Total())
	assert.Equal(t, 3.0, kpi(t, d, "customers_per_agent").Value)
	assert.Equal(t, 2.0, kpi(t, d, "agent_count").Value)
}

func TestAccounts(t *testing.T) {
	account := func(name, sector, location, parent string, month time.Month, revenue int64) domain.Account360 {
		return domain.Account360{
			Account: name, Sector: sector, OfficeLocation: location, SubsidiaryOf: parent,
			DistinctProductsSold: ptr(2),
			RollupMetrics: domain.RollupMetrics{
				FirstEngageDate: date(2017, month, 1),
				Opportunities:   domain.OpportunityCounts{Won: 1},
				RevenueWon:      decimal.NewFromInt(revenue),
			},
		}
	}

	ds := &domain.Dataset{Account360: []domain.Account360{
		account("Acme", "retail", "US", "Globex", time.March, 300),
		account("Initech", "software", "US", "", time.March, 100),
		account("Umbrella", "retail", "Kenya", "Globex", time.January, 50),
	}}

	d := Accounts(ds, filtering.Selection{filtering.DimensionMonth: {"March"}})

	assert.Equal(t, 450.0, kpi(t, d, "total_revenue").Value)
	assert.Equal(t, 4.0, kpi(t, d, "products_sold").Value)
	assert.Equal(t, 3.0, kpi(t, d, "active_customers").Value)
	assert.Equal(t, "March", kpi(t, d, "periods_shown").Display)

	assert.Equal(t, []domain.TableRow{{Key: "Globex", Value: 300}}, tableOf(t, d, "revenue_by_parent").Rows)

	all := Accounts(ds, filtering.Selection{})
	assert.Equal(t, "January, March", kpi(t, all, "periods_shown").Display)
}

func TestSectorDominance(t *testing.T) {
	rows := []domain.Account360{
		{Sector: "retail", OfficeLocation: "US", RollupMetrics: domain.RollupMetrics{RevenueWon: decimal.NewFromInt(300)}},
		{Sector: "software", OfficeLocation: "US", RollupMetrics: domain.RollupMetrics{RevenueWon: decimal.NewFromInt(100)}},
		{Sector: "retail", OfficeLocation: "Kenya", RollupMetrics: domain.RollupMetrics{RevenueWon: decimal.Zero}},
	}

	revenue, percent := SectorDominance(rows)

	assert.Equal(t, []string{"retail", "software"}, revenue.Series)
	require.Len(t, revenue.Rows, 2)
	assert.Equal(t, "Kenya", revenue.Rows[0].Key)
	assert.Equal(t, []float64{300, 100}, revenue.Rows[1].Values)
	assert.Equal(t, []float64{75, 25}, percent.Rows[1].Values)
	// Localização sem receita não divide por zero
	assert.Equal(t, []float64{0, 0}, percent.Rows[0].Values)
}

func TestWinRate(t *testing.T) {
	assert.Equal(t, 0.0, WinRate(domain.OpportunityCounts{}))
	assert.Equal(t, 25.0, WinRate(domain.OpportunityCounts{Won: 1, Lost: 2, Open: 1}))
}
