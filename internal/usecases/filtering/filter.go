package filtering

// Accessor extrai o valor de uma dimensão de uma linha. O segundo retorno é
// falso quando a linha não tem valor para a dimensão (ex: data nula).
type Accessor[T any] func(T) (string, bool)

// Accessors mapeia as dimensões suportadas por um tipo de linha
type Accessors[T any] map[Dimension]Accessor[T]

// Apply reduz as linhas às que batem com todas as dimensões da página.
// Dimensão sem seleção equivale a selecionar todas as opções, então linhas com
// valor ausente ficam de fora nos dois casos. Dimensões que o tipo de linha não
// suporta são ignoradas.
func Apply[T any](rows []T, sel Selection, dims []Dimension, accessors Accessors[T]) []T {
	type constraint struct {
		accessor Accessor[T]
		allowed  map[string]struct{} // nil: qualquer valor presente
	}

	constraints := make([]constraint, 0, len(dims))
	for _, d := range dims {
		accessor, ok := accessors[d]
		if !ok {
			continue
		}

		c := constraint{accessor: accessor}
		if values := sel.Values(d); len(values) > 0 {
			c.allowed = make(map[string]struct{}, len(values))
			for _, v := range values {
				c.allowed[v] = struct{}{}
			}
		}
		constraints = append(constraints, c)
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		matched := true
		for _, c := range constraints {
			value, ok := c.accessor(row)
			if !ok || value == "" {
				matched = false
				break
			}
			if c.allowed == nil {
				continue
			}
			if _, ok := c.allowed[value]; !ok {
				matched = false
				break
			}
		}

		if matched {
			out = append(out, row)
		}
	}

	return out
}

// Options lista os valores distintos (não ausentes) de uma dimensão, já ordenados
func Options[T any](rows []T, d Dimension, accessor Accessor[T]) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)

	for _, row := range rows {
		value, ok := accessor(row)
		if !ok || value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}

	SortValues(d, values)
	return values
}

// AllOptions calcula as opções de todas as dimensões suportadas
func AllOptions[T any](rows []T, dims []Dimension, accessors Accessors[T]) map[string][]string {
	out := make(map[string][]string, len(dims))
	for _, d := range dims {
		accessor, ok := accessors[d]
		if !ok {
			continue
		}
		out[string(d)] = Options(rows, d, accessor)
	}
	return out
}
