package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	ledgerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
)

type calculateCommissionsRequest struct {
	Month string `json:"month"`
}

// @Summary      Calculate Commissions
// @Description  Run a full calculation pass for one commission month
// @Tags         commissions
// @Accept       json
// @Produce      json
// @Param        request body calculateCommissionsRequest true "Calculate Request"
// @Success      200  {object}  ledgerdomain.CalculateStats
// @Router       /commissions/calculate [post]
func (s *Server) CalculateCommissions(c *gin.Context) {
	var req calculateCommissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	m, err := month.Parse(strings.TrimSpace(req.Month))
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM"))
		return
	}

	stats, err := s.ledgerSvc.Calculate(c.Request.Context(), m)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// @Summary      List Commissions
// @Description  List ledger entries, optionally narrowed by month and rep
// @Tags         commissions
// @Produce      json
// @Param        month         query  string  false  "Commission month (YYYY-MM)"
// @Param        sales_person  query  string  false  "Sales person"
// @Param        limit         query  int     false  "Limit"
// @Success      200  {object}  []ledgerdomain.LedgerEntry
// @Router       /commissions [get]
func (s *Server) ListCommissions(c *gin.Context) {
	var query struct {
		Month       string `form:"month"`
		SalesPerson string `form:"sales_person"`
		Limit       int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := ledgerdomain.ListRequest{
		SalesPerson: strings.TrimSpace(query.SalesPerson),
		Limit:       query.Limit,
	}
	if query.Month != "" {
		m, err := month.Parse(query.Month)
		if err != nil {
			AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM"))
			return
		}
		req.Month = m
	}

	entries, err := s.ledgerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (s *Server) GetCommission(c *gin.Context) {
	entry, err := s.ledgerSvc.Get(c.Request.Context(), c.Param("soNumber"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entry})
}

type setRateRequest struct {
	Rate    string `json:"rate"`
	Comment string `json:"comment"`
}

// @Summary      Override Commission Rate
// @Description  Set a manual rate on one ledger entry; a comment is mandatory
// @Tags         commissions
// @Accept       json
// @Produce      json
// @Param        soNumber path string true "SO Number"
// @Param        request body setRateRequest true "Rate Override"
// @Success      200  {object}  ledgerdomain.MutationResult
// @Router       /commissions/{soNumber}/rate [put]
func (s *Server) SetCommissionRate(c *gin.Context) {
	var req setRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(req.Rate))
	if err != nil {
		AbortWithError(c, newValidationError("rate", "invalid_rate", "rate must be a decimal percentage"))
		return
	}

	result, err := s.ledgerSvc.SetRate(c.Request.Context(), c.Param("soNumber"), rate, req.Comment, actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse(result))
}

type setExclusionRequest struct {
	Exclude *bool `json:"exclude"`
}

func (s *Server) SetCommissionExclusion(c *gin.Context) {
	var req setExclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Exclude == nil {
		AbortWithError(c, newValidationError("exclude", "required", "exclude is required"))
		return
	}

	result, err := s.ledgerSvc.SetExclusion(c.Request.Context(), c.Param("soNumber"), *req.Exclude, actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse(result))
}

type moveMonthRequest struct {
	FromMonth string `json:"from_month"`
	ToMonth   string `json:"to_month"`
	Reason    string `json:"reason"`
}

// @Summary      Move Commission Month
// @Description  Reassign an entry to another month; rejected with 409 when the entry is no longer in from_month
// @Tags         commissions
// @Accept       json
// @Produce      json
// @Param        soNumber path string true "SO Number"
// @Param        request body moveMonthRequest true "Move Request"
// @Success      200  {object}  ledgerdomain.MutationResult
// @Router       /commissions/{soNumber}/move [post]
func (s *Server) MoveCommissionMonth(c *gin.Context) {
	var req moveMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	from, err := month.Parse(strings.TrimSpace(req.FromMonth))
	if err != nil {
		AbortWithError(c, newValidationError("from_month", "invalid_month", "from_month must be YYYY-MM"))
		return
	}
	to, err := month.Parse(strings.TrimSpace(req.ToMonth))
	if err != nil {
		AbortWithError(c, newValidationError("to_month", "invalid_month", "to_month must be YYYY-MM"))
		return
	}

	result, err := s.ledgerSvc.MoveMonth(c.Request.Context(), c.Param("soNumber"), from, to, req.Reason, actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse(result))
}

// mutationResponse surfaces summary recalculation warnings alongside
// the committed entry instead of masking the success.
func mutationResponse(result *ledgerdomain.MutationResult) gin.H {
	resp := gin.H{"data": result.Entry}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	return resp
}

func actorFrom(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("X-Actor"))
}
