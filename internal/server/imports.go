package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	importerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/importer/domain"
)

// @Summary      Import Line Items
// @Description  Upload an ERP line item export (CSV or XLSX)
// @Tags         imports
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Export file"
// @Param        dry_run  query  bool  false  "Parse and validate without writing"
// @Success      200  {object}  importerdomain.ImportStats
// @Router       /imports/line-items [post]
func (s *Server) ImportLineItems(c *gin.Context) {
	if !s.importLimiter.Allow(c.ClientIP()) {
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "required", "file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer file.Close()

	stats, err := s.importerSvc.ImportLineItems(c.Request.Context(), importerdomain.ImportRequest{
		Filename: fileHeader.Filename,
		File:     file,
		Actor:    strings.TrimSpace(c.GetHeader("X-Actor")),
		DryRun:   c.Query("dry_run") == "true",
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
