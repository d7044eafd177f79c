// Package domain contém as estruturas de dados do domínio da aplicação
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DealStage string

const (
	StageProspecting DealStage = "Prospecting"
	StageEngaging    DealStage = "Engaging"
	StageWon         DealStage = "Won"
	StageLost        DealStage = "Lost"
)

// FunnelOrder é a ordem de negócio usada no funil de estágios
var FunnelOrder = []DealStage{StageProspecting, StageEngaging, StageLost, StageWon}

// IsOpen indica se a oportunidade ainda está no pipeline aberto
func (s DealStage) IsOpen() bool {
	return s == StageProspecting || s == StageEngaging
}

func (s DealStage) Valid() bool {
	switch s {
	case StageProspecting, StageEngaging, StageWon, StageLost:
		return true
	}
	return false
}

// Opportunity representa uma linha do pipeline de vendas, já enriquecida
// com os atributos da conta, do produto e do vendedor.
type Opportunity struct {
	ID         string              `json:"opportunity_id"`
	Account    string              `json:"account"`
	Product    string              `json:"product"`
	SalesAgent string              `json:"sales_agent"`
	Stage      DealStage           `json:"deal_stage"`
	EngageDate *time.Time          `json:"engage_date"`
	CloseDate  *time.Time          `json:"close_date"`
	CloseValue decimal.NullDecimal `json:"close_value"`

	Sector         string `json:"sector"`
	OfficeLocation string `json:"office_location"`
	SubsidiaryOf   string `json:"subsidiary_of"`
	Series         string `json:"series"`
	Manager        string `json:"manager"`
	RegionalOffice string `json:"regional_office"`
}

// Revenue retorna o valor de fechamento apenas para oportunidades ganhas
func (o Opportunity) Revenue() decimal.Decimal {
	if o.Stage != StageWon || !o.CloseValue.Valid {
		return decimal.Zero
	}
	return o.CloseValue.Decimal
}

// SalesCycleDays retorna a duração em dias entre engajamento e fechamento.
// O segundo retorno é falso quando alguma das datas está ausente.
func (o Opportunity) SalesCycleDays() (float64, bool) {
	if o.EngageDate == nil || o.CloseDate == nil {
		return 0, false
	}
	return float64(int(o.CloseDate.Sub(*o.EngageDate).Hours() / 24)), true
}

// CloseMonth retorna o mês de fechamento, se houver data de fechamento
func (o Opportunity) CloseMonth() (time.Month, bool) {
	if o.CloseDate == nil {
		return 0, false
	}
	return o.CloseDate.Month(), true
}
