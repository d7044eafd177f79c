// Package cohorting monta a matriz de retenção por coorte e os indicadores da página de coortes.
package cohorting

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/filtering"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/utils"
)

type cell struct {
	month time.Time
	age   int
}

// maxRetention agrega retention_by_month por (coorte, idade) ficando com o maior valor.
// Linhas com retenção nula não criam célula.
func maxRetention(records []domain.CohortRecord) map[cell]float64 {
	cells := make(map[cell]float64)
	for _, r := range records {
		if r.RetentionByMonth == nil {
			continue
		}
		key := cell{month: r.CohortMonth, age: r.MonthsSinceAcquisition}
		if current, ok := cells[key]; !ok || *r.RetentionByMonth > current {
			cells[key] = *r.RetentionByMonth
		}
	}
	return cells
}

// BuildMatrix monta a matriz coorte x idade. Linhas em ordem cronológica,
// colunas de 0 até a maior idade observada; células não observadas ficam nil.
func BuildMatrix(records []domain.CohortRecord) domain.CohortMatrix {
	cells := maxRetention(records)

	monthSet := make(map[time.Time]struct{})
	maxAge := -1
	for _, r := range records {
		monthSet[r.CohortMonth] = struct{}{}
		if r.MonthsSinceAcquisition > maxAge {
			maxAge = r.MonthsSinceAcquisition
		}
	}

	months := make([]time.Time, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	matrix := domain.CohortMatrix{
		Ages: make([]int, 0, maxAge+1),
		Rows: make([]domain.CohortMatrixRow, 0, len(months)),
	}
	for age := 0; age <= maxAge; age++ {
		matrix.Ages = append(matrix.Ages, age)
	}

	for _, m := range months {
		row := domain.CohortMatrixRow{
			CohortMonth: m,
			Label:       m.Format(domain.CohortLabelLayout),
			Cells:       make([]*float64, len(matrix.Ages)),
		}
		for i, age := range matrix.Ages {
			if v, ok := cells[cell{month: m, age: age}]; ok {
				rounded := math.Round(v*100) / 100
				row.Cells[i] = &rounded
			}
		}
		matrix.Rows = append(matrix.Rows, row)
	}

	return matrix
}

// Curves devolve a curva de retenção de cada coorte em ordem cronológica
func Curves(records []domain.CohortRecord) []domain.RetentionCurve {
	cells := maxRetention(records)

	byMonth := make(map[time.Time][]domain.RetentionPoint)
	for key, v := range cells {
		byMonth[key.month] = append(byMonth[key.month], domain.RetentionPoint{Age: key.age, Rate: v})
	}

	months := make([]time.Time, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	curves := make([]domain.RetentionCurve, 0, len(months))
	for _, m := range months {
		points := byMonth[m]
		sort.Slice(points, func(i, j int) bool { return points[i].Age < points[j].Age })
		curves = append(curves, domain.NewRetentionCurve(m, points))
	}

	return curves
}

type CohortKPIs struct {
	CohortSize        float64
	RepeatCustomers   float64
	RetentionRate     float64
	AvgMonthsToRepeat float64
	CohortRevenue     float64
}

// ComputeKPIs usa o máximo de cada coluna no recorte; recorte vazio dá 0
func ComputeKPIs(records []domain.CohortRecord) CohortKPIs {
	var k CohortKPIs
	if len(records) == 0 {
		return k
	}

	k.CohortSize = math.Inf(-1)
	k.RepeatCustomers = math.Inf(-1)
	k.CohortRevenue = math.Inf(-1)
	var retention, repeat *float64

	for _, r := range records {
		k.CohortSize = math.Max(k.CohortSize, r.CohortCustomers)
		k.RepeatCustomers = math.Max(k.RepeatCustomers, r.RepeatCustomers)
		k.CohortRevenue = math.Max(k.CohortRevenue, r.TotalRevenue)
		retention = maxOf(retention, r.RetentionRate)
		repeat = maxOf(repeat, r.AvgMonthsToRepeat)
	}

	if retention != nil {
		k.RetentionRate = *retention * 100
	}
	if repeat != nil {
		k.AvgMonthsToRepeat = *repeat
	}

	return k
}

func maxOf(current, candidate *float64) *float64 {
	if candidate == nil {
		return current
	}
	if current == nil || *candidate > *current {
		return candidate
	}
	return current
}

func (k CohortKPIs) KPIs() []domain.KPI {
	return []domain.KPI{
		{Name: "cohort_size", Title: "Cohort Size", Value: k.CohortSize, Display: utils.Millify(k.CohortSize, 2)},
		{Name: "repeat_customers", Title: "Repeat Customers", Value: k.RepeatCustomers, Display: utils.Millify(k.RepeatCustomers, 2)},
		{Name: "retention_rate", Title: "Repeat Purchase Rate", Value: utils.RoundWithTwoDecimalPlace(k.RetentionRate), Display: utils.FormatPercent(k.RetentionRate)},
		{Name: "avg_months_to_repeat", Title: "Avg Months to Repeat", Value: utils.RoundWithTwoDecimalPlace(k.AvgMonthsToRepeat), Display: strconv.FormatFloat(utils.RoundWithTwoDecimalPlace(k.AvgMonthsToRepeat), 'f', -1, 64)},
		{Name: "cohort_revenue", Title: "Cumulative Cohort Revenue", Value: k.CohortRevenue, Display: utils.FormatCurrency(k.CohortRevenue)},
	}
}

// perCohort agrega uma coluna por coorte com máximo, em ordem cronológica
func perCohort(records []domain.CohortRecord, value func(domain.CohortRecord) *float64) []domain.TableRow {
	byMonth := make(map[time.Time]*float64)
	present := make(map[time.Time]bool)
	for _, r := range records {
		present[r.CohortMonth] = true
		byMonth[r.CohortMonth] = maxOf(byMonth[r.CohortMonth], value(r))
	}

	months := make([]time.Time, 0, len(present))
	for m := range present {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	rows := make([]domain.TableRow, 0, len(months))
	for _, m := range months {
		var v float64
		if p := byMonth[m]; p != nil {
			v = utils.RoundWithTwoDecimalPlace(*p)
		}
		rows = append(rows, domain.TableRow{Key: m.Format(domain.CohortLabelLayout), Value: v})
	}
	return rows
}

func value(f float64) *float64 { return &f }

// Cohorts monta a página de coortes. A matriz, as séries e as curvas usam a
// tabela completa; só os KPIs respeitam a seleção.
func Cohorts(ds *domain.Dataset, sel filtering.Selection) domain.Dashboard {
	filtered := filtering.Apply(ds.Cohorts, sel, filtering.PageDimensions[domain.PageCohorts], filtering.CohortAccessors)
	matrix := BuildMatrix(ds.Cohorts)

	tables := []domain.GroupedTable{
		{Name: "cohort_size", Title: "Cohort Size", KeyLabel: "Cohort Month", ValueLabel: "Customers Acquired", Chart: domain.ChartBar,
			Rows: perCohort(ds.Cohorts, func(r domain.CohortRecord) *float64 { return value(r.CohortCustomers) })},
		{Name: "cohort_revenue", Title: "Cohort Revenue Trend", KeyLabel: "Cohort Month", ValueLabel: "Revenue", Chart: domain.ChartLine,
			Rows: perCohort(ds.Cohorts, func(r domain.CohortRecord) *float64 { return value(r.TotalRevenue) })},
		{Name: "avg_months_to_repeat", Title: "Avg Months to Repeat by Cohort", KeyLabel: "Cohort Month", ValueLabel: "Months", Chart: domain.ChartPie,
			Rows: perCohort(ds.Cohorts, func(r domain.CohortRecord) *float64 { return r.AvgMonthsToRepeat })},
		{Name: "repeat_customers", Title: "Repeat Purchase Analysis by Cohort", KeyLabel: "Cohort Month", ValueLabel: "Repeat Customers", Chart: domain.ChartBar,
			Rows: perCohort(ds.Cohorts, func(r domain.CohortRecord) *float64 { return value(r.RepeatCustomers) })},
	}

	raw := domain.RawTable{
		Columns: []string{
			"cohort_month", "month_since_acquisition", "cohort_customers", "repeat_customers", "retention_rate",
			"retention_by_month", "avg_months_to_repeat", "total_revenue_cohort_customers",
		},
		Rows: make([][]any, 0, len(filtered)),
	}
	for _, r := range filtered {
		raw.Rows = append(raw.Rows, []any{
			r.CohortMonth.Format(time.DateOnly), r.MonthsSinceAcquisition, r.CohortCustomers, r.RepeatCustomers,
			cellValue(r.RetentionRate), cellValue(r.RetentionByMonth), cellValue(r.AvgMonthsToRepeat), r.TotalRevenue,
		})
	}

	return domain.Dashboard{
		Page:     domain.PageCohorts,
		KPIs:     ComputeKPIs(filtered).KPIs(),
		Tables:   tables,
		Matrix:   &matrix,
		Curves:   Curves(ds.Cohorts),
		RowCount: len(filtered),
		Raw:      raw,
	}
}

func cellValue(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
