package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
)

type lineItemMaintenanceRequest struct {
	Month  string `json:"month"`
	DryRun bool   `json:"dry_run"`
}

// @Summary      Dedup Line Items
// @Description  Remove comma-formatted duplicate line items within one month
// @Tags         line-items
// @Accept       json
// @Produce      json
// @Param        request body lineItemMaintenanceRequest true "Dedup Request"
// @Success      200  {object}  orderdomain.DedupStats
// @Router       /line-items/dedup [post]
func (s *Server) DedupLineItems(c *gin.Context) {
	var req lineItemMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	m, err := month.Parse(strings.TrimSpace(req.Month))
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM"))
		return
	}

	stats, err := s.orderSvc.DedupLineItems(c.Request.Context(), m, req.DryRun)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// @Summary      Backfill Line Item Totals
// @Description  Derive zero totals from quantity and unit price and repair missing salespersons
// @Tags         line-items
// @Accept       json
// @Produce      json
// @Param        request body lineItemMaintenanceRequest true "Backfill Request"
// @Success      200  {object}  orderdomain.BackfillStats
// @Router       /line-items/backfill-totals [post]
func (s *Server) BackfillLineItemTotals(c *gin.Context) {
	var req lineItemMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	m, err := month.Parse(strings.TrimSpace(req.Month))
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM"))
		return
	}

	stats, err := s.orderSvc.BackfillTotals(c.Request.Context(), m)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
