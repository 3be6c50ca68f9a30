package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Region is an administrative region records are attributed to.
type Region struct {
	ID        string    `json:"id"`
	Name      string    `json:"regionName"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegionalDevelopment holds one year of development metrics for a province.
type RegionalDevelopment struct {
	ID                    string          `json:"id"`
	RegionName            string          `json:"regionName"`
	Year                  int             `json:"year"`
	AverageIncome         decimal.Decimal `json:"averageIncome"`
	UnemploymentRate      decimal.Decimal `json:"unemploymentRate"`
	PovertyRate           decimal.Decimal `json:"povertyRate"`
	AccessToServicesIndex decimal.Decimal `json:"accessToServicesIndex"`
	LastUpdated           time.Time       `json:"lastUpdated"`
	CreatedAt             time.Time       `json:"createdAt"`
}

// TaxContribution is a recorded tax payment.
type TaxContribution struct {
	ID            string          `json:"id"`
	PayerType     string          `json:"payerType"`
	IncomeBracket string          `json:"incomeBracket"`
	TaxType       string          `json:"taxType"`
	Amount        decimal.Decimal `json:"amount"`
	Year          int             `json:"year"`
	RegionID      string          `json:"region"`
	RegionName    string          `json:"regionName,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// BudgetAllocation is money allocated to a sector for a region and year.
type BudgetAllocation struct {
	ID                string          `json:"id"`
	Sector            string          `json:"sector"`
	AllocatedAmount   decimal.Decimal `json:"allocatedAmount"`
	TargetIncomeGroup string          `json:"targetIncomeGroup"`
	Year              int             `json:"year"`
	RegionID          string          `json:"region"`
	RegionName        string          `json:"regionName,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// SocialProgram is a welfare program and its reach.
type SocialProgram struct {
	ID                 string          `json:"id"`
	ProgramName        string          `json:"programName"`
	Sector             string          `json:"sector"`
	TargetGroup        string          `json:"targetGroup"`
	BeneficiariesCount int64           `json:"beneficiariesCount"`
	BudgetUsed         decimal.Decimal `json:"budgetUsed"`
	Year               int             `json:"year"`
	RegionID           string          `json:"region"`
	RegionName         string          `json:"regionName,omitempty"`
	CreatedBy          string          `json:"createdBy"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// User is an API account. PasswordHash is a bcrypt hash and never serialised.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TaxFilter narrows tax contribution listings. Zero values are ignored.
type TaxFilter struct {
	RegionID      string
	Year          int
	IncomeBracket string
}

// DevelopmentFilter narrows regional development listings. Zero values are ignored.
type DevelopmentFilter struct {
	Year       int
	RegionName string
}

// Page selects a window of a listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}
