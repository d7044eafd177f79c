package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/dashboard"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/filtering"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/apiErrors"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/middleware"
)

// pageRequest lê a página da rota e a seleção da query string
func pageRequest(r *http.Request) (domain.Page, filtering.Selection, error) {
	page := domain.Page(httprouter.ParamsFromContext(r.Context()).ByName("page"))
	if !page.Valid() {
		return page, nil, fmt.Errorf("%w: %s", dashboard.ErrUnknownPage, page)
	}

	sel, err := filtering.FromQuery(r.URL.Query(), filtering.PageDimensions[page])
	if err != nil {
		return page, nil, err
	}
	return page, sel, nil
}

func GetDashboard(service dashboard.Dashboarder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, sel, err := pageRequest(r)
		if err != nil {
			handleDashboardError(w, r, err)
			return
		}

		dash, err := service.Dashboard(r.Context(), middleware.SessionFromContext(r.Context()), page, sel)
		if err != nil {
			handleDashboardError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, dash)
	}
}

// GetDashboardFilters lista as opções de cada filtro da página
func GetDashboardFilters(service dashboard.Dashboarder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := domain.Page(httprouter.ParamsFromContext(r.Context()).ByName("page"))

		options, err := service.Filters(middleware.SessionFromContext(r.Context()), page)
		if err != nil {
			handleDashboardError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"page":    page,
			"filters": options,
		})
	}
}

// ExportDashboard gera a planilha em memória antes de responder, assim uma
// falha no meio da geração ainda vira um erro JSON.
func ExportDashboard(service dashboard.Dashboarder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, sel, err := pageRequest(r)
		if err != nil {
			handleDashboardError(w, r, err)
			return
		}

		var buf bytes.Buffer
		if err := service.Export(r.Context(), middleware.SessionFromContext(r.Context()), page, sel, &buf); err != nil {
			handleDashboardError(w, r, err)
			return
		}

		fileName, contentType := service.ExportFile(page)
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			log.ForContext(r.Context()).WithError(err).Error("Erro ao enviar planilha")
		}
	}
}

func GetDashboardCharts(service dashboard.Dashboarder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, sel, err := pageRequest(r)
		if err != nil {
			handleDashboardError(w, r, err)
			return
		}

		charts, err := service.Charts(r.Context(), middleware.SessionFromContext(r.Context()), page, sel)
		if err != nil {
			handleDashboardError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"page":   page,
			"charts": charts,
		})
	}
}

func handleDashboardError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, dashboard.ErrAuthenticationRequired):
		apiErrors.WriteError(w, apiErrors.ErrAuthenticationRequired, err.Error(), nil)

	case errors.Is(err, dashboard.ErrUnknownPage):
		apiErrors.WriteError(w, apiErrors.ErrResourceNotFound, err.Error(), map[string]any{
			"pages": domain.Pages,
		})

	case errors.Is(err, filtering.ErrInvalidSelection):
		apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, err.Error(), nil)

	case errors.Is(err, dashboard.ErrExport):
		log.ForContext(r.Context()).WithError(err).Error("Erro ao exportar dashboard")
		apiErrors.WriteError(w, apiErrors.ErrDataExport, "Não foi possível gerar a exportação", nil)

	default:
		log.ForContext(r.Context()).WithError(err).Error("Erro inesperado no dashboard")
		apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro interno ao calcular dashboard", nil)
	}
}
