package filtering

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var ErrInvalidSelection = errors.New("seleção de filtro inválida")

// Selection guarda os valores escolhidos por dimensão. Dimensão ausente ou
// com lista vazia significa "todos".
type Selection map[Dimension][]string

func (s Selection) Values(d Dimension) []string {
	return s[d]
}

// IsAll indica se a dimensão não restringe nenhuma linha
func (s Selection) IsAll(d Dimension) bool {
	return len(s[d]) == 0
}

// ToMap converte para a forma serializada na resposta, sempre com todas as dimensões pedidas
func (s Selection) ToMap(dims []Dimension) map[string][]string {
	out := make(map[string][]string, len(dims))
	for _, d := range dims {
		values := s[d]
		if values == nil {
			values = []string{}
		}
		out[string(d)] = values
	}
	return out
}

// FromQuery monta a seleção a partir da query string. Cada dimensão aceita
// parâmetros repetidos (?product=A&product=B) ou separados por vírgula.
func FromQuery(query url.Values, dims []Dimension) (Selection, error) {
	sel := make(Selection, len(dims))

	for _, d := range dims {
		seen := make(map[string]struct{})
		var values []string

		for _, raw := range query[string(d)] {
			for _, value := range strings.Split(raw, ",") {
				value = strings.TrimSpace(value)
				if value == "" {
					continue
				}

				normalized, err := normalize(d, value)
				if err != nil {
					return nil, err
				}

				if _, ok := seen[normalized]; ok {
					continue
				}
				seen[normalized] = struct{}{}
				values = append(values, normalized)
			}
		}

		if len(values) > 0 {
			SortValues(d, values)
			sel[d] = values
		}
	}

	return sel, nil
}

func normalize(d Dimension, value string) (string, error) {
	switch d {
	case DimensionMonth:
		name, ok := MonthName(value)
		if !ok {
			return "", fmt.Errorf("%w: mês desconhecido %q", ErrInvalidSelection, value)
		}
		return name, nil
	case DimensionAge:
		age, err := strconv.Atoi(value)
		if err != nil || age < 0 {
			return "", fmt.Errorf("%w: idade de coorte inválida %q", ErrInvalidSelection, value)
		}
		return strconv.Itoa(age), nil
	}
	return value, nil
}
