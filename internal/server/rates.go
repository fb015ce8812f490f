package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	ratedomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/rate/domain"
)

// @Summary      List Rate Rules
// @Description  List configured commission rate rules
// @Tags         rates
// @Produce      json
// @Success      200  {object}  []ratedomain.RateRule
// @Router       /rates [get]
func (s *Server) ListRateRules(c *gin.Context) {
	rules, err := s.rateSvc.ListRules(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rules})
}

type upsertRateRuleRequest struct {
	Title      string `json:"title"`
	Segment    string `json:"segment"`
	Status     string `json:"status"`
	Percentage string `json:"percentage"`
	Active     *bool  `json:"active"`
}

// @Summary      Upsert Rate Rule
// @Description  Create or update one (title, segment, status) rate rule
// @Tags         rates
// @Accept       json
// @Produce      json
// @Param        request body upsertRateRuleRequest true "Rate Rule"
// @Success      200  {object}  ratedomain.RateRule
// @Router       /rates [put]
func (s *Server) UpsertRateRule(c *gin.Context) {
	var req upsertRateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	pct, err := decimal.NewFromString(strings.TrimSpace(req.Percentage))
	if err != nil {
		AbortWithError(c, newValidationError("percentage", "invalid_percentage", "percentage must be a decimal"))
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	rule, err := s.rateSvc.UpsertRule(c.Request.Context(), ratedomain.UpsertRuleRequest{
		Title:      strings.TrimSpace(req.Title),
		Segment:    customerdomain.AccountType(strings.TrimSpace(req.Segment)),
		Status:     ratedomain.CustomerStatus(strings.TrimSpace(req.Status)),
		Percentage: pct,
		Active:     active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rule})
}
