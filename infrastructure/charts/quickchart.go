// Package charts transforma as tabelas de um dashboard em URLs de imagem do QuickChart
package charts

import (
	"errors"
	"fmt"

	quickchartgo "github.com/henomis/quickchart-go"
	jsoniter "github.com/json-iterator/go"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/config"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrChartURL = errors.New("falha ao gerar url do gráfico")

const retentionCurvesName = "retention_curves"

type ChartConfig struct {
	Type    string        `json:"type"`
	Data    ChartData     `json:"data"`
	Options *ChartOptions `json:"options,omitempty"`
}

type ChartData struct {
	Labels   []interface{} `json:"labels"`
	DataSets []Dataset     `json:"datasets"`
}

type Dataset struct {
	Label       string        `json:"label"`
	Data        []interface{} `json:"data"`
	Fill        bool          `json:"fill"`
	LineTension float32       `json:"lineTension"`
}

type ChartOptions struct {
	Title TitleOptions `json:"title"`
}

type TitleOptions struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type QuickChartRenderer struct {
	cfg config.Charts
}

func NewQuickChartRenderer(cfg config.Charts) *QuickChartRenderer {
	return &QuickChartRenderer{cfg: cfg}
}

// Charts gera um gráfico por tabela, na ordem em que aparecem no dashboard
func (r *QuickChartRenderer) Charts(dash domain.Dashboard) ([]domain.Chart, error) {
	charts := make([]domain.Chart, 0, len(dash.Tables)+len(dash.MultiTables)+1)

	for _, t := range dash.Tables {
		chart, err := r.render(t.Name, t.Title, t.Chart, tableConfig(t))
		if err != nil {
			return nil, err
		}
		charts = append(charts, chart)
	}

	for _, t := range dash.MultiTables {
		chart, err := r.render(t.Name, t.Title, t.Chart, multiTableConfig(t))
		if err != nil {
			return nil, err
		}
		charts = append(charts, chart)
	}

	if len(dash.Curves) > 0 {
		chart, err := r.render(retentionCurvesName, "Retention Curves", domain.ChartLine, curvesConfig(dash.Curves))
		if err != nil {
			return nil, err
		}
		charts = append(charts, chart)
	}

	return charts, nil
}

func (r *QuickChartRenderer) render(name, title string, kind domain.ChartKind, cfg ChartConfig) (domain.Chart, error) {
	cfg.Options = &ChartOptions{Title: TitleOptions{Display: title != "", Text: title}}

	url, err := r.url(cfg)
	if err != nil {
		log.L.WithFields(log.Fields{
			"table": name,
			"error": err.Error(),
		}).Error("Falha ao gerar gráfico")
		return domain.Chart{}, fmt.Errorf("%w: %s", ErrChartURL, name)
	}

	return domain.Chart{Table: name, Title: title, Kind: kind, URL: url}, nil
}

func (r *QuickChartRenderer) url(cfg ChartConfig) (string, error) {
	bytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	qc := quickchartgo.New()
	qc.Config = string(bytes)
	if r.cfg.Width > 0 {
		qc.Width = r.cfg.Width
	}
	if r.cfg.Height > 0 {
		qc.Height = r.cfg.Height
	}
	if r.cfg.BackgroundColor != "" {
		qc.BackgroundColor = r.cfg.BackgroundColor
	}

	return qc.GetUrl()
}

// Chart.js não tem funil nativo; o funil vira barra horizontal na ordem das etapas
func chartType(kind domain.ChartKind) string {
	switch kind {
	case domain.ChartFunnel:
		return string(domain.ChartHBar)
	case "":
		return string(domain.ChartBar)
	default:
		return string(kind)
	}
}

func tableConfig(t domain.GroupedTable) ChartConfig {
	labels := make([]interface{}, len(t.Rows))
	data := make([]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		labels[i] = row.Key
		data[i] = row.Value
	}

	return ChartConfig{
		Type: chartType(t.Chart),
		Data: ChartData{
			Labels:   labels,
			DataSets: []Dataset{{Label: t.ValueLabel, Data: data}},
		},
	}
}

func multiTableConfig(t domain.MultiSeriesTable) ChartConfig {
	labels := make([]interface{}, len(t.Rows))
	datasets := make([]Dataset, len(t.Series))
	for s, name := range t.Series {
		datasets[s] = Dataset{Label: name, Data: make([]interface{}, len(t.Rows))}
	}

	for i, row := range t.Rows {
		labels[i] = row.Key
		for s := range datasets {
			if s < len(row.Values) {
				datasets[s].Data[i] = row.Values[s]
			}
		}
	}

	return ChartConfig{
		Type: chartType(t.Chart),
		Data: ChartData{Labels: labels, DataSets: datasets},
	}
}

// idades sem observação viram null para a linha não cair a zero
func curvesConfig(curves []domain.RetentionCurve) ChartConfig {
	maxAge := -1
	for _, c := range curves {
		maxAge = max(maxAge, c.MaxAge())
	}

	labels := make([]interface{}, maxAge+1)
	for age := range labels {
		labels[age] = age
	}

	datasets := make([]Dataset, 0, len(curves))
	for _, c := range curves {
		data := make([]interface{}, maxAge+1)
		for age, rate := range c.Points() {
			data[age] = rate
		}
		datasets = append(datasets, Dataset{Label: c.Label, Data: data, LineTension: 0.3})
	}

	return ChartConfig{
		Type: string(domain.ChartLine),
		Data: ChartData{Labels: labels, DataSets: datasets},
	}
}
