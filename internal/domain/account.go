package domain

import "github.com/shopspring/decimal"

type Account struct {
	Account         string              `json:"account"`
	Sector          string              `json:"sector"`
	YearEstablished *int                `json:"year_established"`
	Revenue         decimal.NullDecimal `json:"revenue"`
	Employees       *int                `json:"employees"`
	OfficeLocation  string              `json:"office_location"`
	SubsidiaryOf    string              `json:"subsidiary_of"`
}

type Product struct {
	Product    string              `json:"product"`
	Series     string              `json:"series"`
	SalesPrice decimal.NullDecimal `json:"sales_price"`
}

type SalesAgent struct {
	SalesAgent     string `json:"sales_agent"`
	Manager        string `json:"manager"`
	RegionalOffice string `json:"regional_office"`
}
