package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
	orderdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/order/domain"
)

// @Summary      List Orders
// @Description  List imported orders, optionally narrowed to unresolved ones
// @Tags         orders
// @Produce      json
// @Param        month            query  string  false  "Commission month (YYYY-MM)"
// @Param        sales_person     query  string  false  "Sales person"
// @Param        unresolved_only  query  bool    false  "Only orders awaiting customer correction"
// @Param        limit            query  int     false  "Limit"
// @Success      200  {object}  []orderdomain.SalesOrder
// @Router       /orders [get]
func (s *Server) ListOrders(c *gin.Context) {
	var query struct {
		Month          string `form:"month"`
		SalesPerson    string `form:"sales_person"`
		UnresolvedOnly bool   `form:"unresolved_only"`
		Limit          int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := orderdomain.ListRequest{
		SalesPerson:    strings.TrimSpace(query.SalesPerson),
		UnresolvedOnly: query.UnresolvedOnly,
		Limit:          query.Limit,
	}
	if query.Month != "" {
		m, err := month.Parse(query.Month)
		if err != nil {
			AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM"))
			return
		}
		req.Month = m
	}

	orders, err := s.orderSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (s *Server) GetOrder(c *gin.Context) {
	soNumber := strings.TrimSpace(c.Param("soNumber"))
	order, err := s.orderSvc.Get(c.Request.Context(), soNumber)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	items, err := s.orderSvc.LineItems(c.Request.Context(), soNumber)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"order": order, "line_items": items}})
}

type correctCustomerRequest struct {
	NewCustomerID      string `json:"new_customer_id"`
	NewAccountType     string `json:"new_account_type"`
	RememberCorrection bool   `json:"remember_correction"`
	Reason             string `json:"reason"`
}

// @Summary      Correct Order Customer
// @Description  Rewrite an order's customer linkage, optionally memorizing the old reference as an alias
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        soNumber path string true "SO Number"
// @Param        request body correctCustomerRequest true "Correction Request"
// @Success      200  {object}  orderdomain.CorrectCustomerResult
// @Router       /orders/{soNumber}/customer [put]
func (s *Server) CorrectOrderCustomer(c *gin.Context) {
	var req correctCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.NewCustomerID) == "" {
		AbortWithError(c, newValidationError("new_customer_id", "required", "new_customer_id is required"))
		return
	}

	accountType := customerdomain.AccountType(strings.TrimSpace(req.NewAccountType))
	if accountType != "" && !customerdomain.ValidAccountType(accountType) {
		AbortWithError(c, newValidationError("new_account_type", "invalid_account_type", "unknown account type"))
		return
	}

	result, err := s.orderSvc.CorrectCustomer(c.Request.Context(), orderdomain.CorrectCustomerRequest{
		SONumber:           strings.TrimSpace(c.Param("soNumber")),
		NewCustomerID:      strings.TrimSpace(req.NewCustomerID),
		NewAccountType:     accountType,
		RememberCorrection: req.RememberCorrection,
		Reason:             req.Reason,
		CorrectedBy:        actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}
