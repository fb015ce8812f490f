package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
)

// @Summary      List Customers
// @Description  List customers, optionally filtered by name or segment
// @Tags         customers
// @Produce      json
// @Param        name              query  string  false  "Name substring"
// @Param        account_type      query  string  false  "Account type"
// @Param        include_archived  query  bool    false  "Include archived customers"
// @Param        limit             query  int     false  "Limit"
// @Success      200  {object}  []customerdomain.Customer
// @Router       /customers [get]
func (s *Server) ListCustomers(c *gin.Context) {
	var query struct {
		Name            string `form:"name"`
		AccountType     string `form:"account_type"`
		IncludeArchived bool   `form:"include_archived"`
		Limit           int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customers, err := s.customerSvc.List(c.Request.Context(), customerdomain.ListRequest{
		Name:            strings.TrimSpace(query.Name),
		AccountType:     customerdomain.AccountType(strings.TrimSpace(query.AccountType)),
		IncludeArchived: query.IncludeArchived,
		Limit:           query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": customers})
}

func (s *Server) GetCustomer(c *gin.Context) {
	customer, err := s.customerSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": customer})
}

type addAliasRequest struct {
	Alias string `json:"alias"`
}

// @Summary      Add Customer Alias
// @Description  Permanently map an alternate reference onto a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        id path string true "Customer ID"
// @Param        request body addAliasRequest true "Alias Request"
// @Success      200  {object}  customerdomain.Customer
// @Router       /customers/{id}/aliases [post]
func (s *Server) AddCustomerAlias(c *gin.Context) {
	var req addAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Alias) == "" {
		AbortWithError(c, newValidationError("alias", "required", "alias is required"))
		return
	}

	customerID := strings.TrimSpace(c.Param("id"))
	if err := s.customerSvc.AddAlias(c.Request.Context(), customerID, req.Alias); err != nil {
		AbortWithError(c, err)
		return
	}

	customer, err := s.customerSvc.Get(c.Request.Context(), customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": customer})
}

type archiveCustomerRequest struct {
	Archived *bool `json:"archived"`
}

func (s *Server) ArchiveCustomer(c *gin.Context) {
	var req archiveCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Archived == nil {
		AbortWithError(c, newValidationError("archived", "required", "archived is required"))
		return
	}

	if err := s.customerSvc.Archive(c.Request.Context(), strings.TrimSpace(c.Param("id")), *req.Archived); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
