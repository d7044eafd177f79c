package domain

import (
	"iter"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// CohortLabelLayout é o formato usado para rotular um mês de coorte (ex: Jan 2024)
const CohortLabelLayout = "Jan 2006"

// CohortRecord é uma linha da tabela de coortes: um par (mês de aquisição, idade)
type CohortRecord struct {
	CohortMonth            time.Time `json:"cohort_month"`
	MonthsSinceAcquisition int       `json:"month_since_acquisition"`
	CohortCustomers        float64   `json:"cohort_customers"`
	RepeatCustomers        float64   `json:"repeat_customers"`
	RetentionRate          *float64  `json:"retention_rate"`
	RetentionByMonth       *float64  `json:"retention_by_month"`
	AvgMonthsToRepeat      *float64  `json:"avg_months_to_repeat"`
	TotalRevenue           float64   `json:"total_revenue_cohort_customers"`
}

func (c CohortRecord) Label() string {
	return c.CohortMonth.Format(CohortLabelLayout)
}

// CohortMatrix é a matriz coorte x idade. Células ausentes ficam nil e são
// serializadas como null: coorte jovem demais não é o mesmo que retenção zero.
type CohortMatrix struct {
	Ages []int             `json:"ages"`
	Rows []CohortMatrixRow `json:"rows"`
}

type CohortMatrixRow struct {
	CohortMonth time.Time  `json:"cohort_month"`
	Label       string     `json:"label"`
	Cells       []*float64 `json:"cells"`
}

// Cell retorna o valor observado para (mês, idade)
func (m CohortMatrix) Cell(month time.Time, age int) (float64, bool) {
	col := -1
	for i, a := range m.Ages {
		if a == age {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, false
	}

	for _, row := range m.Rows {
		if !row.CohortMonth.Equal(month) {
			continue
		}
		if row.Cells[col] == nil {
			return 0, false
		}
		return *row.Cells[col], true
	}

	return 0, false
}

type RetentionPoint struct {
	Age  int     `json:"age"`
	Rate float64 `json:"rate"`
}

// RetentionCurve é a curva de retenção de uma coorte, ordenada por idade
type RetentionCurve struct {
	CohortMonth time.Time
	Label       string
	points      []RetentionPoint
}

func NewRetentionCurve(month time.Time, points []RetentionPoint) RetentionCurve {
	return RetentionCurve{
		CohortMonth: month,
		Label:       month.Format(CohortLabelLayout),
		points:      points,
	}
}

// Points percorre a curva em ordem crescente de idade. Pode ser chamado
// quantas vezes for preciso; cada chamada recomeça do início.
func (c RetentionCurve) Points() iter.Seq2[int, float64] {
	return func(yield func(int, float64) bool) {
		for _, p := range c.points {
			if !yield(p.Age, p.Rate) {
				return
			}
		}
	}
}

// MaxAge retorna a maior idade observada, ou -1 para curva vazia
func (c RetentionCurve) MaxAge() int {
	if len(c.points) == 0 {
		return -1
	}
	return c.points[len(c.points)-1].Age
}

func (c RetentionCurve) Len() int {
	return len(c.points)
}

func (c RetentionCurve) MarshalJSON() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(struct {
		CohortMonth time.Time        `json:"cohort_month"`
		Label       string           `json:"label"`
		Points      []RetentionPoint `json:"points"`
	}{
		CohortMonth: c.CohortMonth,
		Label:       c.Label,
		Points:      c.points,
	})
}
