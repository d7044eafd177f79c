package domain

import "time"

// Dataset agrupa todas as tabelas carregadas dos extratos. É tratado como
// imutável depois de carregado; cada sessão recebe o seu próprio Dataset.
type Dataset struct {
	Opportunities []Opportunity
	Accounts      []Account
	Products      []Product
	SalesAgents   []SalesAgent
	Product360    []Product360
	Agent360      []Agent360
	Account360    []Account360
	Cohorts       []CohortRecord
	LoadedAt      time.Time
}

// Summary retorna a quantidade de linhas por tabela, usado em logs
func (d *Dataset) Summary() map[string]int {
	return map[string]int{
		"sales_pipeline":  len(d.Opportunities),
		"accounts":        len(d.Accounts),
		"products":        len(d.Products),
		"sales_agents":    len(d.SalesAgents),
		"product_360":     len(d.Product360),
		"sales_agent_360": len(d.Agent360),
		"account_360":     len(d.Account360),
		"cohort_raw":      len(d.Cohorts),
	}
}
