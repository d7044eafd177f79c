// Package export gera a planilha de um dashboard já calculado
package export

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	kpiSheet       = "KPIs"
	selectionSheet = "Filters"
	matrixSheet    = "cohort_matrix"
	rawSheet       = "raw_data"

	// limite do Excel para nome de aba
	maxSheetName = 31
)

type XLSXExporter struct{}

func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) FileName(page domain.Page) string {
	return fmt.Sprintf("%s_dashboard.xlsx", page)
}

// Export escreve a pasta de trabalho: KPIs, filtros aplicados, uma aba por
// tabela, a matriz de coortes (quando houver) e as linhas filtradas.
func (e *XLSXExporter) Export(dash domain.Dashboard, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	wb := &workbook{file: f, used: map[string]bool{}}

	if err := wb.renameFirst(kpiSheet); err != nil {
		return err
	}
	if err := wb.writeKPIs(dash.KPIs); err != nil {
		return err
	}
	if err := wb.writeSelection(dash.Selection); err != nil {
		return err
	}

	for _, t := range dash.Tables {
		if err := wb.writeTable(t); err != nil {
			return fmt.Errorf("aba %s: %w", t.Name, err)
		}
	}

	for _, t := range dash.MultiTables {
		if err := wb.writeMultiTable(t); err != nil {
			return fmt.Errorf("aba %s: %w", t.Name, err)
		}
	}

	if dash.Matrix != nil {
		if err := wb.writeMatrix(*dash.Matrix); err != nil {
			return fmt.Errorf("aba %s: %w", matrixSheet, err)
		}
	}

	if err := wb.writeRaw(dash.Raw); err != nil {
		return fmt.Errorf("aba %s: %w", rawSheet, err)
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

type workbook struct {
	file   *excelize.File
	used   map[string]bool
	header int
}

func (wb *workbook) renameFirst(name string) error {
	if err := wb.file.SetSheetName(wb.file.GetSheetName(0), name); err != nil {
		return err
	}
	wb.used[strings.ToLower(name)] = true

	style, err := wb.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	wb.header = style
	return nil
}

// sheet cria uma aba com nome único dentro do limite do Excel
func (wb *workbook) sheet(name string) (string, error) {
	name = sanitizeSheetName(name)
	candidate := name
	for i := 2; wb.used[strings.ToLower(candidate)]; i++ {
		suffix := "_" + strconv.Itoa(i)
		base := name
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = base + suffix
	}

	if _, err := wb.file.NewSheet(candidate); err != nil {
		return "", err
	}
	wb.used[strings.ToLower(candidate)] = true
	return candidate, nil
}

func sanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "sheet"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

func (wb *workbook) writeRows(sheet string, header []any, rows [][]any) error {
	if err := wb.file.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := wb.file.SetRowStyle(sheet, 1, 1, wb.header); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := wb.file.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return wb.file.SetColWidth(sheet, "A", "A", 28)
}

func (wb *workbook) writeKPIs(kpis []domain.KPI) error {
	rows := make([][]any, 0, len(kpis))
	for _, k := range kpis {
		rows = append(rows, []any{k.Name, k.Title, k.Value, k.Display})
	}
	return wb.writeRows(kpiSheet, []any{"Name", "KPI", "Value", "Display"}, rows)
}

func (wb *workbook) writeSelection(selection map[string][]string) error {
	sheet, err := wb.sheet(selectionSheet)
	if err != nil {
		return err
	}

	dims := make([]string, 0, len(selection))
	for d := range selection {
		dims = append(dims, d)
	}
	sort.Strings(dims)

	rows := make([][]any, 0, len(dims))
	for _, d := range dims {
		values := "All"
		if len(selection[d]) > 0 {
			values = strings.Join(selection[d], ", ")
		}
		rows = append(rows, []any{d, values})
	}
	return wb.writeRows(sheet, []any{"Filter", "Values"}, rows)
}

func (wb *workbook) writeTable(t domain.GroupedTable) error {
	sheet, err := wb.sheet(t.Name)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		rows = append(rows, []any{r.Key, r.Value})
	}
	return wb.writeRows(sheet, []any{t.KeyLabel, t.ValueLabel}, rows)
}

func (wb *workbook) writeMultiTable(t domain.MultiSeriesTable) error {
	sheet, err := wb.sheet(t.Name)
	if err != nil {
		return err
	}

	header := []any{t.KeyLabel}
	for _, s := range t.Series {
		header = append(header, s)
	}

	rows := make([][]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := []any{r.Key}
		for _, v := range r.Values {
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return wb.writeRows(sheet, header, rows)
}

// células ausentes da matriz ficam em branco, não zero
func (wb *workbook) writeMatrix(m domain.CohortMatrix) error {
	sheet, err := wb.sheet(matrixSheet)
	if err != nil {
		return err
	}

	header := []any{"Cohort Month"}
	for _, age := range m.Ages {
		header = append(header, age)
	}

	rows := make([][]any, 0, len(m.Rows))
	for _, r := range m.Rows {
		row := []any{r.Label}
		for _, c := range r.Cells {
			if c == nil {
				row = append(row, nil)
				continue
			}
			row = append(row, *c)
		}
		rows = append(rows, row)
	}
	return wb.writeRows(sheet, header, rows)
}

func (wb *workbook) writeRaw(raw domain.RawTable) error {
	sheet, err := wb.sheet(rawSheet)
	if err != nil {
		return err
	}

	header := make([]any, len(raw.Columns))
	for i, c := range raw.Columns {
		header[i] = c
	}
	return wb.writeRows(sheet, header, raw.Rows)
}
