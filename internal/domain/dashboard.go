package domain

type Page string

const (
	PageExecutive Page = "executive"
	PageProducts  Page = "products"
	PageAgents    Page = "agents"
	PageAccounts  Page = "accounts"
	PageCohorts   Page = "cohorts"
)

var Pages = []Page{PageExecutive, PageProducts, PageAgents, PageAccounts, PageCohorts}

func (p Page) Valid() bool {
	for _, page := range Pages {
		if p == page {
			return true
		}
	}
	return false
}

// KPI é um valor escalar pronto para exibição
type KPI struct {
	Name    string  `json:"name"`
	Title   string  `json:"title"`
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

type ChartKind string

const (
	ChartBar    ChartKind = "bar"
	ChartHBar   ChartKind = "horizontalBar"
	ChartLine   ChartKind = "line"
	ChartPie    ChartKind = "pie"
	ChartFunnel ChartKind = "funnel"
)

type TableRow struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// GroupedTable é o resultado de um agrupamento por uma dimensão, já na ordem de exibição
type GroupedTable struct {
	Name       string     `json:"name"`
	Title      string     `json:"title"`
	KeyLabel   string     `json:"key_label"`
	ValueLabel string     `json:"value_label"`
	Chart      ChartKind  `json:"chart"`
	Rows       []TableRow `json:"rows"`
}

func (t GroupedTable) Total() float64 {
	var total float64
	for _, r := range t.Rows {
		total += r.Value
	}
	return total
}

// Value retorna o valor de uma chave do agrupamento
func (t GroupedTable) Value(key string) (float64, bool) {
	for _, r := range t.Rows {
		if r.Key == key {
			return r.Value, true
		}
	}
	return 0, false
}

func (t GroupedTable) Keys() []string {
	keys := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		keys[i] = r.Key
	}
	return keys
}

type MultiSeriesRow struct {
	Key    string    `json:"key"`
	Values []float64 `json:"values"`
}

// MultiSeriesTable é um agrupamento com várias séries por chave (ex: ganhas/perdidas/abertas)
type MultiSeriesTable struct {
	Name       string           `json:"name"`
	Title      string           `json:"title"`
	KeyLabel   string           `json:"key_label"`
	ValueLabel string           `json:"value_label"`
	Chart      ChartKind        `json:"chart"`
	Series     []string         `json:"series"`
	Rows       []MultiSeriesRow `json:"rows"`
}

// RawTable são as linhas filtradas em formato tabular, usadas na exportação
type RawTable struct {
	Columns []string
	Rows    [][]any
}

// Dashboard é a saída completa de uma página para a camada de apresentação
type Dashboard struct {
	Page        Page                `json:"page"`
	KPIs        []KPI               `json:"kpis"`
	Tables      []GroupedTable      `json:"tables"`
	MultiTables []MultiSeriesTable  `json:"multi_series_tables,omitempty"`
	Matrix      *CohortMatrix       `json:"cohort_matrix,omitempty"`
	Curves      []RetentionCurve    `json:"retention_curves,omitempty"`
	Selection   map[string][]string `json:"selection"`
	RowCount    int                 `json:"row_count"`
	Raw         RawTable            `json:"-"`
}

func (d *Dashboard) Table(name string) (GroupedTable, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return GroupedTable{}, false
}

func (d *Dashboard) KPI(name string) (KPI, bool) {
	for _, k := range d.KPIs {
		if k.Name == name {
			return k, true
		}
	}
	return KPI{}, false
}

// Chart aponta para a imagem renderizada de uma tabela do dashboard
type Chart struct {
	Table string    `json:"table"`
	Title string    `json:"title"`
	Kind  ChartKind `json:"kind"`
	URL   string    `json:"url"`
}
