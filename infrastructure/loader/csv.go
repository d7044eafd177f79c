package loader

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/utils"
)

var (
	ErrMissingFile   = errors.New("arquivo de dados não encontrado")
	ErrMissingColumn = errors.New("coluna obrigatória ausente")
	ErrMalformedFile = errors.New("arquivo de dados malformado")
)

// table é um CSV lido em memória com o cabeçalho indexado por nome de coluna
type table struct {
	name   string
	header map[string]int
	rows   [][]string
}

func readTable(path, name string, required []string) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrMissingFile, "%s (%s)", name, path)
		}
		return nil, errors.Wrapf(err, "erro ao abrir %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headerRow, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.Wrapf(ErrMalformedFile, "%s está vazio", name)
		}
		return nil, errors.Wrapf(ErrMalformedFile, "%s: %v", name, err)
	}

	t := &table{name: name, header: make(map[string]int, len(headerRow))}
	for i, col := range headerRow {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		t.header[col] = i
	}

	for _, col := range required {
		if _, ok := t.header[col]; !ok {
			return nil, errors.Wrapf(ErrMissingColumn, "%s: %s", name, col)
		}
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedFile, "%s: %v", name, err)
		}
		t.rows = append(t.rows, record)
	}

	return t, nil
}

// get retorna o valor da coluna na linha, vazio quando a coluna ou a célula não existem
func (t *table) get(row []string, col string) string {
	i, ok := t.header[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// cells converte células em tipos do domínio. Falhas viram nulo e são
// contabilizadas por coluna para um único aviso ao final do arquivo.
type cells struct {
	layout   string
	failures map[string]int
}

func newCells(layout string) *cells {
	return &cells{layout: layout, failures: make(map[string]int)}
}

func (c *cells) fail(col string) {
	c.failures[col]++
}

func (c *cells) date(value, col string) *time.Time {
	parsed, err := utils.ParseDate(value, c.layout)
	if err != nil {
		c.fail(col)
		return nil
	}
	return parsed
}

func (c *cells) decimal(value, col string) decimal.NullDecimal {
	if value == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		c.fail(col)
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func (c *cells) float(value, col string) *float64 {
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.fail(col)
		return nil
	}
	return &f
}

// int aceita "12" e "12.0", que é como contagens costumam sair de exportações
func (c *cells) int(value, col string) *int {
	if value == "" {
		return nil
	}
	if n, err := strconv.Atoi(value); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.fail(col)
		return nil
	}
	n := int(f)
	return &n
}

func (c *cells) count(value, col string) int {
	n := c.int(value, col)
	if n == nil {
		return 0
	}
	return *n
}

func (c *cells) money(value, col string) decimal.Decimal {
	d := c.decimal(value, col)
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
