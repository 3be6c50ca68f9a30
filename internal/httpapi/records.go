package httpapi

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"taxtrail/internal/auth"
	"taxtrail/internal/service"
	"taxtrail/internal/storage"
	"taxtrail/internal/validation"
)

type listBody[T any] struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    []T  `json:"data"`
}

type itemBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type messageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func list[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, listBody[T]{Success: true, Count: len(items), Data: items})
}

type regionRequest struct {
	RegionName string `json:"regionName"`
}

func (s *Server) listRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.deps.Records.ListRegions(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	list(w, regions)
}

func (s *Server) createRegion(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	region, err := s.deps.Records.CreateRegion(r.Context(), storage.Region{Name: req.RegionName})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemBody{Success: true, Data: region})
}

func (s *Server) getRegion(w http.ResponseWriter, r *http.Request) {
	region, err := s.deps.Records.GetRegion(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemBody{Success: true, Data: region})
}

func (s *Server) updateRegion(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	region, err := s.deps.Records.UpdateRegion(r.Context(), r.PathValue("id"), storage.Region{Name: req.RegionName})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemBody{Success: true, Data: region})
}

func (s *Server) deleteRegion(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Records.DeleteRegion(r.Context(), r.PathValue("id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: "Region deleted successfully"})
}

type developmentRequest struct {
	RegionName string `json:"regionName"`
	Year       int    `json:"year"`
	Metrics    struct {
		AverageIncome         decimal.Decimal `json:"averageIncome"`
		UnemploymentRate      decimal.Decimal `json:"unemploymentRate"`
		PovertyRate           decimal.Decimal `json:"povertyRate"`
		AccessToServicesIndex decimal.Decimal `json:"accessToServicesIndex"`
	} `json:"metrics"`
}

func (s *Server) listDevelopment(w http.ResponseWriter, r *http.Request) {
	var filter storage.DevelopmentFilter
	q := r.URL.Query()
	if raw := q.Get("year"); raw != "" {
		year, err := validation.ParseYear(raw)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		filter.Year = year
	}
	filter.RegionName = strings.TrimSpace(q.Get("regionName"))

	rows, err := s.deps.Records.ListDevelopment(r.Context(), filter)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	list(w, rows)
}

func (req developmentRequest) record() storage.RegionalDevelopment {
	return storage.RegionalDevelopment{
		RegionName:            req.RegionName,
		Year:                  req.Year,
		AverageIncome:         req.Metrics.AverageIncome,
		UnemploymentRate:      req.Metrics.UnemploymentRate,
		PovertyRate:           req.Metrics.PovertyRate,
		AccessToServicesIndex: req.Metrics.AccessToServicesIndex,
	}
}

func (s *Server) createDevelopment(w http.ResponseWriter, r *http.Request) {
	var req developmentRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	created, err := s.deps.Records.CreateDevelopment(r.Context(), req.record())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemBody{Success: true, Data: created})
}

func (s *Server) updateDevelopment(w http.ResponseWriter, r *http.Request) {
	var req developmentRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	updated, err := s.deps.Records.UpdateDevelopment(r.Context(), r.PathValue("id"), req.record())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemBody{Success: true, Data: updated})
}

type taxRequest struct {
	PayerType     string          `json:"payerType"`
	IncomeBracket string          `json:"incomeBracket"`
	TaxType       string          `json:"taxType"`
	Amount        decimal.Decimal `json:"amount"`
	Year          int             `json:"year"`
	Region        string          `json:"region"`
}

func (s *Server) createTax(w http.ResponseWriter, r *http.Request) {
	var req taxRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	created, err := s.deps.Records.CreateTax(r.Context(), storage.TaxContribution{
		PayerType:     req.PayerType,
		IncomeBracket: req.IncomeBracket,
		TaxType:       req.TaxType,
		Amount:        req.Amount,
		Year:          req.Year,
		RegionID:      req.Region,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemBody{Success: true, Data: created})
}

func (s *Server) getTax(w http.ResponseWriter, r *http.Request) {
	tax, err := s.deps.Records.GetTax(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemBody{Success: true, Data: tax})
}

// taxPatchRequest only carries the fields a PATCH may change; absent fields stay nil.
type taxPatchRequest struct {
	PayerType     *string          `json:"payerType"`
	IncomeBracket *string          `json:"incomeBracket"`
	TaxType       *string          `json:"taxType"`
	Amount        *decimal.Decimal `json:"amount"`
	Year          *int             `json:"year"`
	Region        *string          `json:"region"`
}

func (s *Server) updateTax(w http.ResponseWriter, r *http.Request) {
	var req taxPatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	updated, err := s.deps.Records.UpdateTax(r.Context(), r.PathValue("id"), service.TaxPatch{
		PayerType:     req.PayerType,
		IncomeBracket: req.IncomeBracket,
		TaxType:       req.TaxType,
		Amount:        req.Amount,
		Year:          req.Year,
		RegionID:      req.Region,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemBody{Success: true, Data: updated})
}

func (s *Server) deleteTax(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Records.DeleteTax(r.Context(), r.PathValue("id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: "Tax contribution removed"})
}

type budgetRequest struct {
	Sector            string          `json:"sector"`
	AllocatedAmount   decimal.Decimal `json:"allocatedAmount"`
	TargetIncomeGroup string          `json:"targetIncomeGroup"`
	Year              int             `json:"year"`
	Region            string          `json:"region"`
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.deps.Records.ListBudgets(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	list(w, budgets)
}

func (s *Server) createBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	created, err := s.deps.Records.CreateBudget(r.Context(), storage.BudgetAllocation{
		Sector:            req.Sector,
		AllocatedAmount:   req.AllocatedAmount,
		TargetIncomeGroup: req.TargetIncomeGroup,
		Year:              req.Year,
		RegionID:          req.Region,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemBody{Success: true, Data: created})
}

type programRequest struct {
	ProgramName        string          `json:"programName"`
	Sector             string          `json:"sector"`
	TargetGroup        string          `json:"targetGroup"`
	BeneficiariesCount int64           `json:"beneficiariesCount"`
	BudgetUsed         decimal.Decimal `json:"budgetUsed"`
	Year               int             `json:"year"`
	Region             string          `json:"region"`
}

func (s *Server) listPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := s.deps.Records.ListPrograms(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	list(w, programs)
}

func (s *Server) createProgram(w http.ResponseWriter, r *http.Request) {
	var req programRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	created, err := s.deps.Records.CreateProgram(r.Context(), storage.SocialProgram{
		ProgramName:        req.ProgramName,
		Sector:             req.Sector,
		TargetGroup:        req.TargetGroup,
		BeneficiariesCount: req.BeneficiariesCount,
		BudgetUsed:         req.BudgetUsed,
		Year:               req.Year,
		RegionID:           req.Region,
	}, auth.SubjectFromContext(r.Context()))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemBody{Success: true, Data: created})
}

func (s *Server) getProgram(w http.ResponseWriter, r *http.Request) {
	program, err := s.deps.Records.GetProgram(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemBody{Success: true, Data: program})
}

// programPatchRequest lists the program fields an update may touch. Anything
// else in the body, such as createdBy, is ignored.
type programPatchRequest struct {
	ProgramName        *string          `json:"programName"`
	Sector             *string          `json:"sector"`
	TargetGroup        *string          `json:"targetGroup"`
	BeneficiariesCount *int64           `json:"beneficiariesCount"`
	BudgetUsed         *decimal.Decimal `json:"budgetUsed"`
	Year               *int             `json:"year"`
	Region             *string          `json:"region"`
}

func (s *Server) updateProgram(w http.ResponseWriter, r *http.Request) {
	var req programPatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	updated, err := s.deps.Records.UpdateProgram(r.Context(), r.PathValue("id"), service.ProgramPatch{
		ProgramName:        req.ProgramName,
		Sector:             req.Sector,
		TargetGroup:        req.TargetGroup,
		BeneficiariesCount: req.BeneficiariesCount,
		BudgetUsed:         req.BudgetUsed,
		Year:               req.Year,
		RegionID:           req.Region,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemBody{Success: true, Data: updated})
}

func (s *Server) deleteProgram(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Records.DeleteProgram(r.Context(), r.PathValue("id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: "Social program removed"})
}
