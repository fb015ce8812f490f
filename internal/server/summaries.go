package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
)

type recalculateSummaryRequest struct {
	SalesPerson string `json:"sales_person"`
	Month       string `json:"month"`
}

// @Summary      Recalculate Summary
// @Description  Rebuild one (sales person, month) summary from its ledger entries
// @Tags         summaries
// @Accept       json
// @Produce      json
// @Param        request body recalculateSummaryRequest true "Recalculate Request"
// @Success      200  {object}  summarydomain.MonthlySummary
// @Router       /summaries/recalculate [post]
func (s *Server) RecalculateSummary(c *gin.Context) {
	var req recalculateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	m, err := month.Parse(strings.TrimSpace(req.Month))
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM"))
		return
	}

	summary, err := s.summarySvc.Recalculate(c.Request.Context(), strings.TrimSpace(req.SalesPerson), m)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// @Summary      List Summaries
// @Description  List per-rep summaries for one commission month
// @Tags         summaries
// @Produce      json
// @Param        month  query  string  true  "Commission month (YYYY-MM)"
// @Success      200  {object}  []summarydomain.MonthlySummary
// @Router       /summaries [get]
func (s *Server) ListSummaries(c *gin.Context) {
	m, err := month.Parse(strings.TrimSpace(c.Query("month")))
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM"))
		return
	}

	summaries, err := s.summarySvc.ListForMonth(c.Request.Context(), m)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summaries})
}
