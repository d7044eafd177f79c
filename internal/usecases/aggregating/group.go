package aggregating

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/utils"
)

// UnknownKey agrupa linhas sem valor para a dimensão, para que a soma dos grupos feche com o total
const UnknownKey = "Unknown"

const topLimit = 10

type keyFunc[T any] func(T) string

func keyOrUnknown(value string) string {
	if value == "" {
		return UnknownKey
	}
	return value
}

// sumBy soma os valores por chave preservando chaves com soma zero.
// A soma é feita em decimal e convertida só no final.
func sumBy[T any](rows []T, key keyFunc[T], value func(T) decimal.Decimal) []domain.TableRow {
	sums := make(map[string]decimal.Decimal)
	for _, row := range rows {
		k := key(row)
		sums[k] = sums[k].Add(value(row))
	}

	out := make([]domain.TableRow, 0, len(sums))
	for k, v := range sums {
		out = append(out, domain.TableRow{Key: k, Value: v.InexactFloat64()})
	}
	sortByKey(out)
	return out
}

func countBy[T any](rows []T, key keyFunc[T]) []domain.TableRow {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[key(row)]++
	}

	out := make([]domain.TableRow, 0, len(counts))
	for k, v := range counts {
		out = append(out, domain.TableRow{Key: k, Value: float64(v)})
	}
	sortByKey(out)
	return out
}

// meanBy calcula a média por chave ignorando células nulas. Grupo só com nulos fica com 0.
func meanBy[T any](rows []T, key keyFunc[T], value func(T) *float64) []domain.TableRow {
	type acc struct {
		sum float64
		n   int
	}

	groups := make(map[string]*acc)
	for _, row := range rows {
		k := key(row)
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		if v := value(row); v != nil {
			a.sum += *v
			a.n++
		}
	}

	out := make([]domain.TableRow, 0, len(groups))
	for k, a := range groups {
		out = append(out, domain.TableRow{
			Key:   k,
			Value: utils.RoundWithTwoDecimalPlace(utils.SafeDivide(a.sum, float64(a.n))),
		})
	}
	sortByKey(out)
	return out
}

// countsBy soma as contagens de oportunidades por chave, com as chaves em ordem alfabética
func countsBy[T any](rows []T, key keyFunc[T], counts func(T) domain.OpportunityCounts) ([]string, map[string]domain.OpportunityCounts) {
	out := make(map[string]domain.OpportunityCounts)
	for _, row := range rows {
		k := key(row)
		out[k] = out[k].Add(counts(row))
	}

	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, out
}

// mean ignora nulos; média de nada é 0
func mean[T any](rows []T, value func(T) *float64) float64 {
	var sum float64
	var n int
	for _, row := range rows {
		if v := value(row); v != nil {
			sum += *v
			n++
		}
	}
	return utils.SafeDivide(sum, float64(n))
}

func distinct[T any](rows []T, key func(T) string) int {
	seen := make(map[string]struct{})
	for _, row := range rows {
		k := key(row)
		if k == "" {
			continue
		}
		seen[k] = struct{}{}
	}
	return len(seen)
}

// WinRate = ganhas / (ganhas + perdidas + abertas) * 100, 0 quando não há oportunidades
func WinRate(c domain.OpportunityCounts) float64 {
	return utils.SafeDivide(float64(c.Won), float64(c.Won+c.Lost+c.Open)) * 100
}

func sortByKey(rows []domain.TableRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Key < rows[j].Key
	})
}

// sortByValue ordena pelo valor; empates mantêm a ordem alfabética da chave
func sortByValue(rows []domain.TableRow, descending bool) []domain.TableRow {
	sortByKey(rows)
	sort.SliceStable(rows, func(i, j int) bool {
		if descending {
			return rows[i].Value > rows[j].Value
		}
		return rows[i].Value < rows[j].Value
	})
	return rows
}

// topAscending seleciona as n maiores e devolve em ordem crescente, como nos gráficos horizontais
func topAscending(rows []domain.TableRow, n int) []domain.TableRow {
	sortByValue(rows, true)
	if len(rows) > n {
		rows = rows[:n]
	}
	return sortByValue(rows, false)
}

func round(rows []domain.TableRow) []domain.TableRow {
	for i := range rows {
		rows[i].Value = utils.RoundWithTwoDecimalPlace(rows[i].Value)
	}
	return rows
}

// opportunityBreakdown monta a tabela ganhas/perdidas/abertas das n chaves com mais ganhas
func opportunityBreakdown(name, title, keyLabel string, keys []string, counts map[string]domain.OpportunityCounts) domain.MultiSeriesTable {
	won := make([]domain.TableRow, 0, len(keys))
	for _, k := range keys {
		won = append(won, domain.TableRow{Key: k, Value: float64(counts[k].Won)})
	}
	top := topAscending(won, topLimit)

	rows := make([]domain.MultiSeriesRow, 0, len(top))
	for _, r := range top {
		c := counts[r.Key]
		rows = append(rows, domain.MultiSeriesRow{
			Key:    r.Key,
			Values: []float64{float64(c.Won), float64(c.Lost), float64(c.Open)},
		})
	}

	return domain.MultiSeriesTable{
		Name:       name,
		Title:      title,
		KeyLabel:   keyLabel,
		ValueLabel: "Opportunities",
		Chart:      domain.ChartHBar,
		Series:     []string{"won_opportunities", "lost_opportunities", "open_opportunities"},
		Rows:       rows,
	}
}

func winRateTable(keys []string, counts map[string]domain.OpportunityCounts) []domain.TableRow {
	rows := make([]domain.TableRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, domain.TableRow{Key: k, Value: utils.RoundWithTwoDecimalPlace(WinRate(counts[k]))})
	}
	return rows
}

func table(name, title, keyLabel, valueLabel string, chart domain.ChartKind, rows []domain.TableRow) domain.GroupedTable {
	if rows == nil {
		rows = []domain.TableRow{}
	}
	return domain.GroupedTable{
		Name:       name,
		Title:      title,
		KeyLabel:   keyLabel,
		ValueLabel: valueLabel,
		Chart:      chart,
		Rows:       rows,
	}
}
