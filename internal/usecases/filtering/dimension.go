// Package filtering implementa o motor de filtros dos dashboards: cada página
// seleciona valores por dimensão e as tabelas são reduzidas às linhas que batem.
package filtering

import (
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
)

type Dimension string

const (
	DimensionMonth       Dimension = "month"
	DimensionProduct     Dimension = "product"
	DimensionSeries      Dimension = "series"
	DimensionRegion      Dimension = "region"
	DimensionSector      Dimension = "sector"
	DimensionAgent       Dimension = "agent"
	DimensionAccount     Dimension = "account"
	DimensionCohortMonth Dimension = "cohort_month"
	DimensionAge         Dimension = "age"
)

// PageDimensions lista as dimensões filtráveis de cada página, na ordem do painel lateral
var PageDimensions = map[domain.Page][]Dimension{
	domain.PageExecutive: {DimensionMonth, DimensionProduct, DimensionRegion, DimensionAgent},
	domain.PageProducts:  {DimensionMonth, DimensionProduct, DimensionSeries},
	domain.PageAgents:    {DimensionMonth, DimensionAgent, DimensionRegion},
	domain.PageAccounts:  {DimensionMonth, DimensionAccount, DimensionSector},
	domain.PageCohorts:   {DimensionCohortMonth, DimensionAge},
}

// Except devolve dims sem as dimensões informadas, preservando a ordem
func Except(dims []Dimension, drop ...Dimension) []Dimension {
	out := make([]Dimension, 0, len(dims))
	for _, d := range dims {
		if !slices.Contains(drop, d) {
			out = append(out, d)
		}
	}
	return out
}

// MonthName normaliza nomes de mês ("jan", "January", "1") para o nome completo em inglês
func MonthName(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if n, err := strconv.Atoi(value); err == nil {
		if n < 1 || n > 12 {
			return "", false
		}
		return time.Month(n).String(), true
	}

	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if strings.EqualFold(value, name) || strings.EqualFold(value, name[:3]) {
			return name, true
		}
	}

	return "", false
}

func monthIndex(name string) int {
	for m := time.January; m <= time.December; m++ {
		if m.String() == name {
			return int(m)
		}
	}
	return 13
}

// SortValues ordena os valores de uma dimensão da forma como aparecem nos filtros:
// meses pelo calendário, coortes cronologicamente, idades numericamente e o resto alfabeticamente.
func SortValues(d Dimension, values []string) {
	switch d {
	case DimensionMonth:
		sort.SliceStable(values, func(i, j int) bool {
			return monthIndex(values[i]) < monthIndex(values[j])
		})
	case DimensionCohortMonth:
		sort.SliceStable(values, func(i, j int) bool {
			a, errA := time.Parse(domain.CohortLabelLayout, values[i])
			b, errB := time.Parse(domain.CohortLabelLayout, values[j])
			if errA != nil || errB != nil {
				return values[i] < values[j]
			}
			return a.Before(b)
		})
	case DimensionAge:
		sort.SliceStable(values, func(i, j int) bool {
			a, errA := strconv.Atoi(values[i])
			b, errB := strconv.Atoi(values[j])
			if errA != nil || errB != nil {
				return values[i] < values[j]
			}
			return a < b
		})
	default:
		sort.Strings(values)
	}
}
