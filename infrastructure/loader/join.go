package loader

import (
	"context"

	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
)

// Join enriquece o pipeline com os atributos de conta, produto e vendedor.
// Contas entram por inner join: oportunidades sem conta cadastrada ficam de fora.
// Produto e vendedor entram por left join e deixam os campos vazios quando não há par.
func Join(ctx context.Context, pipeline []domain.Opportunity, accounts []domain.Account, products []domain.Product, agents []domain.SalesAgent) []domain.Opportunity {
	accountByName := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		if _, dup := accountByName[a.Account]; !dup {
			accountByName[a.Account] = a
		}
	}

	productByName := make(map[string]domain.Product, len(products))
	for _, p := range products {
		if _, dup := productByName[p.Product]; !dup {
			productByName[p.Product] = p
		}
	}

	agentByName := make(map[string]domain.SalesAgent, len(agents))
	for _, a := range agents {
		if _, dup := agentByName[a.SalesAgent]; !dup {
			agentByName[a.SalesAgent] = a
		}
	}

	joined := make([]domain.Opportunity, 0, len(pipeline))
	dropped := 0

	for _, o := range pipeline {
		account, ok := accountByName[o.Account]
		if !ok || o.Account == "" {
			dropped++
			continue
		}

		o.Sector = account.Sector
		o.OfficeLocation = account.OfficeLocation
		o.SubsidiaryOf = account.SubsidiaryOf

		if p, ok := productByName[o.Product]; ok {
			o.Series = p.Series
		}

		if a, ok := agentByName[o.SalesAgent]; ok {
			o.Manager = a.Manager
			o.RegionalOffice = a.RegionalOffice
		}

		joined = append(joined, o)
	}

	if dropped > 0 {
		log.ForContext(ctx).Infof("%d oportunidades sem conta cadastrada ficaram fora do pipeline", dropped)
	}

	return joined
}
