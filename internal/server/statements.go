package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/statement"
	summarydomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/summary/domain"
)

// @Summary      Render Commission Statement
// @Description  Render one rep's monthly commission statement as HTML
// @Tags         summaries
// @Produce      html
// @Param        sales_person  query  string  true  "Sales person"
// @Param        month         query  string  true  "Commission month (YYYY-MM)"
// @Success      200  {string}  string
// @Router       /summaries/statement [get]
func (s *Server) RenderStatement(c *gin.Context) {
	salesPerson := strings.TrimSpace(c.Query("sales_person"))
	if salesPerson == "" {
		AbortWithError(c, newValidationError("sales_person", "required", "sales_person is required"))
		return
	}
	m, err := month.Parse(strings.TrimSpace(c.Query("month")))
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM"))
		return
	}

	summary, err := s.summarySvc.Get(c.Request.Context(), salesPerson, m)
	if err != nil && !errors.Is(err, summarydomain.ErrSummaryNotFound) {
		AbortWithError(c, err)
		return
	}

	entries, err := s.ledgerSvc.List(c.Request.Context(), ledgerdomain.ListRequest{
		Month:       m,
		SalesPerson: salesPerson,
		Limit:       1000,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	html, err := s.statementRenderer.RenderHTML(statement.RenderInput{
		SalesPerson: salesPerson,
		Month:       m,
		Summary:     summary,
		Entries:     entries,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
