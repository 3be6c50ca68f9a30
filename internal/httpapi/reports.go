package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"taxtrail/internal/analysis"
	"taxtrail/internal/apperr"
	"taxtrail/internal/fetcher"
	"taxtrail/internal/service"
	"taxtrail/internal/storage"
	"taxtrail/internal/validation"
)

type taxPageBody struct {
	Success bool `json:"success"`
	service.TaxPage
}

type adjustedBody struct {
	Success bool `json:"success"`
	service.AdjustedAllocations
}

type sdgBody struct {
	Success bool `json:"success"`
	analysis.RegionSDGAnalysis
}

type historyBody struct {
	Success bool `json:"success"`
	service.IndicatorHistory
}

type analysisBody struct {
	Success  bool                        `json:"success"`
	Analysis analysis.InequalityAnalysis `json:"analysis"`
}

func positiveInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, apperr.New(apperr.KindValidation, "%s must be a positive integer", name)
	}
	return n, nil
}

func (s *Server) listTaxes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.TaxQuery{
		Filter: storage.TaxFilter{
			RegionID:      strings.TrimSpace(q.Get("region")),
			IncomeBracket: strings.TrimSpace(q.Get("incomeBracket")),
		},
		Currency: strings.TrimSpace(q.Get("currency")),
	}

	var err error
	if raw := q.Get("year"); raw != "" {
		if query.Filter.Year, err = validation.ParseYear(raw); err != nil {
			s.writeErr(w, r, err)
			return
		}
	}
	if query.Page, err = positiveInt(q.Get("page"), "page"); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if query.Limit, err = positiveInt(q.Get("limit"), "limit"); err != nil {
		s.writeErr(w, r, err)
		return
	}

	page, err := s.deps.Reports.ListTaxes(r.Context(), query)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if page.Data == nil {
		page.Data = []service.TaxView{}
	}
	writeJSON(w, http.StatusOK, taxPageBody{Success: true, TaxPage: page})
}

func (s *Server) taxSummary(w http.ResponseWriter, r *http.Request) {
	totals, err := s.deps.Reports.TaxSummaryByRegion(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	list(w, totals)
}

func (s *Server) budgetSummary(w http.ResponseWriter, r *http.Request) {
	totals, err := s.deps.Reports.BudgetSummaryBySector(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	list(w, totals)
}

func (s *Server) adjustedBudgets(w http.ResponseWriter, r *http.Request) {
	year, err := validation.ParseYear(r.PathValue("year"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	adjusted, err := s.deps.Reports.AdjustedAllocations(r.Context(), year)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if adjusted.Data == nil {
		adjusted.Data = []service.AdjustedAllocation{}
	}
	writeJSON(w, http.StatusOK, adjustedBody{Success: true, AdjustedAllocations: adjusted})
}

func (s *Server) regionSDG(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Analysis.RegionSDG(r.Context(), r.PathValue("regionName"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sdgBody{Success: true, RegionSDGAnalysis: result})
}

func (s *Server) inequalityAnalysis(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Analysis.InequalityAnalysis(r.Context(), r.PathValue("country"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisBody{Success: true, Analysis: result})
}

func (s *Server) giniHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.deps.Analysis.GiniHistory(r.Context(), r.PathValue("country"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeHistory(w, history)
}

func (s *Server) povertyHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.deps.Analysis.PovertyHistory(r.Context(), r.PathValue("country"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeHistory(w, history)
}

func (s *Server) writeHistory(w http.ResponseWriter, history service.IndicatorHistory) {
	if history.Data == nil {
		history.Data = []fetcher.IndicatorReading{}
	}
	writeJSON(w, http.StatusOK, historyBody{Success: true, IndicatorHistory: history})
}
