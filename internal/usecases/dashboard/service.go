package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/metrics"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/session"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/aggregating"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/cohorting"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/filtering"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrUnknownPage            = errors.New("página de dashboard desconhecida")
	ErrExport                 = errors.New("falha ao exportar dashboard")
)

type Exporter interface {
	Export(dash domain.Dashboard, w io.Writer) error
	ContentType() string
	FileName(page domain.Page) string
}

type ChartRenderer interface {
	Charts(dash domain.Dashboard) ([]domain.Chart, error)
}

// Dashboarder é o que a camada HTTP consome
type Dashboarder interface {
	Dashboard(ctx context.Context, sess *session.Session, page domain.Page, sel filtering.Selection) (*domain.Dashboard, error)
	Filters(sess *session.Session, page domain.Page) (map[string][]string, error)
	Export(ctx context.Context, sess *session.Session, page domain.Page, sel filtering.Selection, w io.Writer) error
	ExportFile(page domain.Page) (fileName, contentType string)
	Charts(ctx context.Context, sess *session.Session, page domain.Page, sel filtering.Selection) ([]domain.Chart, error)
}

var _ Dashboarder = (*Service)(nil)

type builder func(*domain.Dataset, filtering.Selection) domain.Dashboard

var builders = map[domain.Page]builder{
	domain.PageExecutive: aggregating.Executive,
	domain.PageProducts:  aggregating.Products,
	domain.PageAgents:    aggregating.Agents,
	domain.PageAccounts:  aggregating.Accounts,
	domain.PageCohorts:   cohorting.Cohorts,
}

type Service struct {
	exporter Exporter
	charts   ChartRenderer
}

func NewService(exporter Exporter, charts ChartRenderer) *Service {
	return &Service{
		exporter: exporter,
		charts:   charts,
	}
}

// authorize é o portão de todas as operações: sem sessão autenticada nada é calculado
func authorize(sess *session.Session, page domain.Page) (*domain.Dataset, error) {
	if !sess.Authenticated() {
		return nil, ErrAuthenticationRequired
	}
	if !page.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}
	return sess.Dataset(), nil
}

// Dashboard recalcula a página inteira a partir das tabelas da sessão
func (s *Service) Dashboard(ctx context.Context, sess *session.Session, page domain.Page, sel filtering.Selection) (*domain.Dashboard, error) {
	ds, err := authorize(sess, page)
	if err != nil {
		return nil, err
	}

	dims := filtering.PageDimensions[page]
	sel = restrict(sel, dims)

	start := time.Now()
	dash := builders[page](ds, sel)
	elapsed := time.Since(start)
	metrics.ObserveDashboard(string(page), elapsed)

	dash.Selection = sel.ToMap(dims)

	log.ForContext(ctx).WithFields(log.Fields{
		"page":        page,
		"session_id":  sess.ID,
		"rows":        dash.RowCount,
		"duration_ms": elapsed.Milliseconds(),
	}).Debug("Dashboard calculado")

	return &dash, nil
}

// restrict descarta dimensões que a página não filtra
func restrict(sel filtering.Selection, dims []filtering.Dimension) filtering.Selection {
	out := make(filtering.Selection, len(dims))
	for _, d := range dims {
		if values := sel.Values(d); len(values) > 0 {
			out[d] = values
		}
	}
	return out
}

// Filters devolve as opções de cada filtro da página, tiradas da tabela completa
func (s *Service) Filters(sess *session.Session, page domain.Page) (map[string][]string, error) {
	ds, err := authorize(sess, page)
	if err != nil {
		return nil, err
	}

	dims := filtering.PageDimensions[page]
	switch page {
	case domain.PageExecutive:
		return filtering.AllOptions(ds.Opportunities, dims, filtering.OpportunityAccessors), nil
	case domain.PageProducts:
		return filtering.AllOptions(ds.Product360, dims, filtering.Product360Accessors), nil
	case domain.PageAgents:
		return filtering.AllOptions(ds.Agent360, dims, filtering.Agent360Accessors), nil
	case domain.PageAccounts:
		return filtering.AllOptions(ds.Account360, dims, filtering.Account360Accessors), nil
	default:
		return filtering.AllOptions(ds.Cohorts, dims, filtering.CohortAccessors), nil
	}
}

// Export calcula a página e escreve a planilha em w
func (s *Service) Export(ctx context.Context, sess *session.Session, page domain.Page, sel filtering.Selection, w io.Writer) error {
	dash, err := s.Dashboard(ctx, sess, page, sel)
	if err != nil {
		return err
	}

	if err := s.exporter.Export(*dash, w); err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	return nil
}

// ExportFile devolve o nome do arquivo e o content type da planilha da página
func (s *Service) ExportFile(page domain.Page) (fileName, contentType string) {
	return s.exporter.FileName(page), s.exporter.ContentType()
}

func (s *Service) Charts(ctx context.Context, sess *session.Session, page domain.Page, sel filtering.Selection) ([]domain.Chart, error) {
	dash, err := s.Dashboard(ctx, sess, page, sel)
	if err != nil {
		return nil, err
	}

	charts, err := s.charts.Charts(*dash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExport, err)
	}
	return charts, nil
}
