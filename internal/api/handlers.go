package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/engine"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/pattern"
)

// defaultLintDistance is the Levenshtein distance used when the lint request
// does not give one.
const defaultLintDistance = 2

type categorizeRequest struct {
	UseAI          *bool    `json:"use_ai"`
	TransactionIDs []string `json:"transaction_ids" validate:"omitempty,dive,required"`
}

type correctionRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	Description   string `json:"description"`
	Category      string `json:"category" validate:"required"`
}

type ruleRequest struct {
	Pattern    string  `json:"pattern" validate:"required"`
	MatchType  string  `json:"match_type" validate:"omitempty,oneof=contains startsWith exact"`
	Category   string  `json:"category" validate:"required"`
	Name       string  `json:"name"`
	Priority   int     `json:"priority" validate:"gte=0"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) health(c echo.Context) error {
	if p, ok := s.deps.Storage.(pinger); ok {
		if err := p.Ping(c.Request().Context()); err != nil {
			s.logger.Warn("health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"time":   time.Now().UTC().Format(time.RFC3339),
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) categorize(c echo.Context) error {
	var req categorizeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	useAI := s.deps.UseAI
	if req.UseAI != nil {
		useAI = *req.UseAI
	}

	outcome, err := s.deps.Orchestrator.Categorize(c.Request().Context(), engine.Request{
		HouseholdID:    c.Param("household"),
		TransactionIDs: req.TransactionIDs,
		UseAI:          useAI,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, outcome)
}

func (s *Server) correct(c echo.Context) error {
	var req correctionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := s.deps.Corrector.Correct(c.Request().Context(), model.Correction{
		HouseholdID:   c.Param("household"),
		TransactionID: req.TransactionID,
		Description:   req.Description,
		NewCategory:   req.Category,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) seed(c echo.Context) error {
	report, err := s.deps.Seeder.Seed(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) listRules(c echo.Context) error {
	includeGlobal := c.QueryParam("include_global") == "true"

	rules, err := s.deps.Storage.ListRules(c.Request().Context(), c.Param("household"), includeGlobal)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rules)
}

func (s *Server) createRule(c echo.Context) error {
	var req ruleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	household := c.Param("household")

	category, err := engine.ResolveCategory(ctx, s.deps.Storage, household, req.Category)
	if err != nil {
		return err
	}

	rule := &model.Rule{
		HouseholdID: household,
		Name:        req.Name,
		Pattern:     req.Pattern,
		MatchType:   model.MatchType(req.MatchType),
		Category:    category,
		Scope:       model.ScopeHousehold,
		Priority:    req.Priority,
		Confidence:  req.Confidence,
		Active:      true,
	}
	if rule.MatchType == "" {
		rule.MatchType = model.MatchContains
	}
	if rule.Priority == 0 {
		rule.Priority = s.deps.HouseholdPriority
	}
	if rule.Confidence == 0 {
		rule.Confidence = engine.DefaultConfig().RuleConfidence
	}

	if err := s.deps.Storage.CreateRule(ctx, rule); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rule)
}

func (s *Server) deleteRule(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return common.NewValidationError("id", "must be an integer", err)
	}

	if err := s.deps.Storage.DeleteRule(c.Request().Context(), c.Param("household"), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) lintRules(c echo.Context) error {
	distance := defaultLintDistance
	if raw := c.QueryParam("max_distance"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			return common.NewValidationError("max_distance", "must be a non-negative integer", err)
		}
		distance = d
	}

	rules, err := s.deps.Storage.ListRules(c.Request().Context(), c.Param("household"), false)
	if err != nil {
		return err
	}

	findings := pattern.FindNearDuplicates(rules, distance)
	if findings == nil {
		findings = []pattern.NearDuplicate{}
	}
	return c.JSON(http.StatusOK, findings)
}

func (s *Server) listCache(c echo.Context) error {
	entries, err := s.deps.Storage.ListCached(c.Request().Context(), c.Param("household"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) clearCache(c echo.Context) error {
	n, err := s.deps.Storage.ClearCache(c.Request().Context(), c.Param("household"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": n})
}
