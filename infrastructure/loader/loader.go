// Package loader lê os extratos CSV do CRM e monta o Dataset em memória.
package loader

import (
	"context"
	"time"

	"github.com/jinzhu/now"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/config"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
)

var (
	pipelineColumns = []string{"opportunity_id", "sales_agent", "product", "account", "deal_stage", "engage_date", "close_date", "close_value"}
	accountColumns  = []string{"account", "sector", "office_location"}
	productColumns  = []string{"product", "series"}
	agentColumns    = []string{"sales_agent", "regional_office"}
	rollupColumns   = []string{
		"first_engage_date", "total_opportunities", "open_opportunities", "won_opportunities",
		"lost_opportunities", "revenue_won", "avg_win_deal_value", "avg_sales_cycle_days",
	}
	cohortColumns = []string{
		"cohort_month", "month_since_acquisition", "cohort_customers", "repeat_customers",
		"retention_rate", "retention_by_month", "avg_months_to_repeat", "total_revenue_cohort_customers",
	}
)

// CSVLoader carrega os oito extratos a partir de um diretório
type CSVLoader struct {
	cfg config.Data
}

func NewCSVLoader(cfg config.Data) *CSVLoader {
	return &CSVLoader{cfg: cfg}
}

// Load lê todos os arquivos e devolve um Dataset novo a cada chamada.
// Arquivo ou coluna obrigatória ausente interrompe a carga; células inválidas viram nulo.
func (l *CSVLoader) Load(ctx context.Context) (*domain.Dataset, error) {
	logger := log.ForContext(ctx)
	start := time.Now()

	accounts, err := l.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}

	products, err := l.loadProducts(ctx)
	if err != nil {
		return nil, err
	}

	agents, err := l.loadAgents(ctx)
	if err != nil {
		return nil, err
	}

	opportunities, err := l.loadPipeline(ctx)
	if err != nil {
		return nil, err
	}

	product360, err := l.loadProduct360(ctx)
	if err != nil {
		return nil, err
	}

	agent360, err := l.loadAgent360(ctx)
	if err != nil {
		return nil, err
	}

	account360, err := l.loadAccount360(ctx)
	if err != nil {
		return nil, err
	}

	cohorts, err := l.loadCohorts(ctx)
	if err != nil {
		return nil, err
	}

	dataset := &domain.Dataset{
		Opportunities: Join(ctx, opportunities, accounts, products, agents),
		Accounts:      accounts,
		Products:      products,
		SalesAgents:   agents,
		Product360:    product360,
		Agent360:      agent360,
		Account360:    account360,
		Cohorts:       cohorts,
		LoadedAt:      time.Now(),
	}

	fields := log.Fields{"duration_ms": time.Since(start).Milliseconds()}
	for name, count := range dataset.Summary() {
		fields["rows_"+name] = count
	}
	logger.WithFields(fields).Info("Dataset carregado")

	return dataset, nil
}

func (l *CSVLoader) open(ctx context.Context, file, name string, required []string) (*table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return readTable(l.cfg.Path(file), name, required)
}

func warnFailures(ctx context.Context, file string, c *cells) {
	for col, n := range c.failures {
		log.ForContext(ctx).WithFields(log.Fields{
			"file":   file,
			"column": col,
			"cells":  n,
		}).Warnf("%d células inválidas em %s.%s foram tratadas como nulas", n, file, col)
	}
}

func (l *CSVLoader) loadAccounts(ctx context.Context) ([]domain.Account, error) {
	t, err := l.open(ctx, l.cfg.AccountsFile, "accounts", accountColumns)
	if err != nil {
		return nil, err
	}

	c := newCells("")
	accounts := make([]domain.Account, 0, len(t.rows))
	for _, row := range t.rows {
		accounts = append(accounts, domain.Account{
			Account:         t.get(row, "account"),
			Sector:          t.get(row, "sector"),
			YearEstablished: c.int(t.get(row, "year_established"), "year_established"),
			Revenue:         c.decimal(t.get(row, "revenue"), "revenue"),
			Employees:       c.int(t.get(row, "employees"), "employees"),
			OfficeLocation:  t.get(row, "office_location"),
			SubsidiaryOf:    t.get(row, "subsidiary_of"),
		})
	}
	warnFailures(ctx, t.name, c)

	return accounts, nil
}

func (l *CSVLoader) loadProducts(ctx context.Context) ([]domain.Product, error) {
	t, err := l.open(ctx, l.cfg.ProductsFile, "products", productColumns)
	if err != nil {
		return nil, err
	}

	c := newCells("")
	products := make([]domain.Product, 0, len(t.rows))
	for _, row := range t.rows {
		products = append(products, domain.Product{
			Product:    t.get(row, "product"),
			Series:     t.get(row, "series"),
			SalesPrice: c.decimal(t.get(row, "sales_price"), "sales_price"),
		})
	}
	warnFailures(ctx, t.name, c)

	return products, nil
}

func (l *CSVLoader) loadAgents(ctx context.Context) ([]domain.SalesAgent, error) {
	t, err := l.open(ctx, l.cfg.AgentsFile, "sales_agent", agentColumns)
	if err != nil {
		return nil, err
	}

	agents := make([]domain.SalesAgent, 0, len(t.rows))
	for _, row := range t.rows {
		agents = append(agents, domain.SalesAgent{
			SalesAgent:     t.get(row, "sales_agent"),
			Manager:        t.get(row, "manager"),
			RegionalOffice: t.get(row, "regional_office"),
		})
	}

	return agents, nil
}

func (l *CSVLoader) loadPipeline(ctx context.Context) ([]domain.Opportunity, error) {
	t, err := l.open(ctx, l.cfg.PipelineFile, "sales_pipeline", pipelineColumns)
	if err != nil {
		return nil, err
	}

	c := newCells(l.cfg.PipelineDateLayout)
	opportunities := make([]domain.Opportunity, 0, len(t.rows))
	unknownStages := 0
	inverted := 0

	for _, row := range t.rows {
		o := domain.Opportunity{
			ID:         t.get(row, "opportunity_id"),
			Account:    t.get(row, "account"),
			Product:    t.get(row, "product"),
			SalesAgent: t.get(row, "sales_agent"),
			Stage:      domain.DealStage(t.get(row, "deal_stage")),
			EngageDate: c.date(t.get(row, "engage_date"), "engage_date"),
			CloseDate:  c.date(t.get(row, "close_date"), "close_date"),
			CloseValue: c.decimal(t.get(row, "close_value"), "close_value"),
		}

		if !o.Stage.Valid() {
			unknownStages++
		}
		if o.EngageDate != nil && o.CloseDate != nil && o.CloseDate.Before(*o.EngageDate) {
			inverted++
		}

		opportunities = append(opportunities, o)
	}
	warnFailures(ctx, t.name, c)

	logger := log.ForContext(ctx)
	if unknownStages > 0 {
		logger.Warnf("%d oportunidades com deal_stage desconhecido", unknownStages)
	}
	if inverted > 0 {
		logger.Warnf("%d oportunidades com close_date anterior ao engage_date", inverted)
	}

	return opportunities, nil
}

func (l *CSVLoader) rollup(t *table, row []string, c *cells) domain.RollupMetrics {
	return domain.RollupMetrics{
		FirstEngageDate: c.date(t.get(row, "first_engage_date"), "first_engage_date"),
		LastCloseDate:   c.date(t.get(row, "last_close_date"), "last_close_date"),
		Opportunities: domain.OpportunityCounts{
			Total: c.count(t.get(row, "total_opportunities"), "total_opportunities"),
			Open:  c.count(t.get(row, "open_opportunities"), "open_opportunities"),
			Won:   c.count(t.get(row, "won_opportunities"), "won_opportunities"),
			Lost:  c.count(t.get(row, "lost_opportunities"), "lost_opportunities"),
		},
		RevenueWon:        c.money(t.get(row, "revenue_won"), "revenue_won"),
		AvgWinDealValue:   c.float(t.get(row, "avg_win_deal_value"), "avg_win_deal_value"),
		AvgSalesCycleDays: c.float(t.get(row, "avg_sales_cycle_days"), "avg_sales_cycle_days"),
	}
}

func (l *CSVLoader) loadProduct360(ctx context.Context) ([]domain.Product360, error) {
	required := append([]string{"product", "series", "distinct_accounts"}, rollupColumns...)
	t, err := l.open(ctx, l.cfg.Product360File, "product_360", required)
	if err != nil {
		return nil, err
	}

	c := newCells(l.cfg.RollupDateLayout)
	rows := make([]domain.Product360, 0, len(t.rows))
	for _, row := range t.rows {
		rows = append(rows, domain.Product360{
			Product:          t.get(row, "product"),
			Series:           t.get(row, "series"),
			DistinctAccounts: c.float(t.get(row, "distinct_accounts"), "distinct_accounts"),
			RollupMetrics:    l.rollup(t, row, c),
		})
	}
	warnFailures(ctx, t.name, c)

	return rows, nil
}

func (l *CSVLoader) loadAgent360(ctx context.Context) ([]domain.Agent360, error) {
	required := append([]string{"sales_agent", "regional_office", "distinct_accounts"}, rollupColumns...)
	t, err := l.open(ctx, l.cfg.Agent360File, "sales_agent_360", required)
	if err != nil {
		return nil, err
	}

	c := newCells(l.cfg.RollupDateLayout)
	rows := make([]domain.Agent360, 0, len(t.rows))
	for _, row := range t.rows {
		rows = append(rows, domain.Agent360{
			SalesAgent:       t.get(row, "sales_agent"),
			Manager:          t.get(row, "manager"),
			RegionalOffice:   t.get(row, "regional_office"),
			DistinctAccounts: c.float(t.get(row, "distinct_accounts"), "distinct_accounts"),
			RollupMetrics:    l.rollup(t, row, c),
		})
	}
	warnFailures(ctx, t.name, c)

	return rows, nil
}

func (l *CSVLoader) loadAccount360(ctx context.Context) ([]domain.Account360, error) {
	required := append([]string{"account", "sector", "office_location", "subsidiary_of", "distinct_products_sold"}, rollupColumns...)
	t, err := l.open(ctx, l.cfg.Account360File, "account_360", required)
	if err != nil {
		return nil, err
	}

	c := newCells(l.cfg.RollupDateLayout)
	rows := make([]domain.Account360, 0, len(t.rows))
	for _, row := range t.rows {
		rows = append(rows, domain.Account360{
			Account:              t.get(row, "account"),
			Sector:               t.get(row, "sector"),
			OfficeLocation:       t.get(row, "office_location"),
			SubsidiaryOf:         t.get(row, "subsidiary_of"),
			DistinctProductsSold: c.float(t.get(row, "distinct_products_sold"), "distinct_products_sold"),
			RollupMetrics:        l.rollup(t, row, c),
		})
	}
	warnFailures(ctx, t.name, c)

	return rows, nil
}

func (l *CSVLoader) loadCohorts(ctx context.Context) ([]domain.CohortRecord, error) {
	t, err := l.open(ctx, l.cfg.CohortFile, "cohort_raw", cohortColumns)
	if err != nil {
		return nil, err
	}

	c := newCells(l.cfg.CohortDateLayout)
	rows := make([]domain.CohortRecord, 0, len(t.rows))
	skipped := 0

	for _, row := range t.rows {
		month := c.date(t.get(row, "cohort_month"), "cohort_month")
		age := c.int(t.get(row, "month_since_acquisition"), "month_since_acquisition")

		// Sem mês ou idade a linha não tem posição na matriz
		if month == nil || age == nil || *age < 0 {
			skipped++
			continue
		}

		rows = append(rows, domain.CohortRecord{
			CohortMonth:            now.With(*month).BeginningOfMonth(),
			MonthsSinceAcquisition: *age,
			CohortCustomers:        floatOrZero(c.float(t.get(row, "cohort_customers"), "cohort_customers")),
			RepeatCustomers:        floatOrZero(c.float(t.get(row, "repeat_customers"), "repeat_customers")),
			RetentionRate:          c.float(t.get(row, "retention_rate"), "retention_rate"),
			RetentionByMonth:       c.float(t.get(row, "retention_by_month"), "retention_by_month"),
			AvgMonthsToRepeat:      c.float(t.get(row, "avg_months_to_repeat"), "avg_months_to_repeat"),
			TotalRevenue:           floatOrZero(c.float(t.get(row, "total_revenue_cohort_customers"), "total_revenue_cohort_customers")),
		})
	}
	warnFailures(ctx, t.name, c)

	if skipped > 0 {
		log.ForContext(ctx).Warnf("%d linhas de coorte sem mês ou idade foram descartadas", skipped)
	}

	return rows, nil
}

func floatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
