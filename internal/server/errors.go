package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	customerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/customer/domain"
	ledgerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/ledger/domain"
	"github.com/OGcaptYETI/notanothercrm-sub003/internal/month"
	orderdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/order/domain"
	ratedomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/rate/domain"
	summarydomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/summary/domain"
	importerdomain "github.com/OGcaptYETI/notanothercrm-sub003/internal/importer/domain"
)

// apiError is the wire shape of every error response.
type apiError struct {
	status  int
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *apiError) Error() string { return e.Message }

var (
	ErrNotFound           = &apiError{status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrTooManyRequests    = &apiError{status: http.StatusTooManyRequests, Code: "too_many_requests", Message: "too many requests"}
	ErrServiceUnavailable = &apiError{status: http.StatusServiceUnavailable, Code: "service_unavailable", Message: "service unavailable"}
)

func invalidRequestError() *apiError {
	return &apiError{status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request body"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{status: http.StatusBadRequest, Code: code, Message: message, Field: field}
}

// AbortWithError maps domain errors onto HTTP responses. Unrecognized
// errors surface as opaque 500s; domain sentinels keep their codes so
// clients can branch on them.
func AbortWithError(c *gin.Context, err error) {
	var api *apiError
	if errors.As(err, &api) {
		c.AbortWithStatusJSON(api.status, gin.H{"error": api})
		return
	}

	var conflict *ledgerdomain.MonthConflictError
	if errors.As(err, &conflict) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": &apiError{
			Code:    "commission_month_conflict",
			Message: conflict.Error(),
			Details: map[string]any{
				"so_number":      conflict.SONumber,
				"expected_month": conflict.Expected.String(),
				"actual_month":   conflict.Actual.String(),
			},
		}})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal server error"

	switch {
	case errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrOrderNotFound),
		errors.Is(err, ledgerdomain.ErrEntryNotFound),
		errors.Is(err, summarydomain.ErrSummaryNotFound):
		status, code, message = http.StatusNotFound, err.Error(), err.Error()
	case errors.Is(err, customerdomain.ErrAliasTaken):
		status, code, message = http.StatusConflict, err.Error(), err.Error()
	case errors.Is(err, month.ErrInvalidMonth),
		errors.Is(err, customerdomain.ErrInvalidCustomerRef),
		errors.Is(err, customerdomain.ErrInvalidAccountType),
		errors.Is(err, orderdomain.ErrInvalidOrder),
		errors.Is(err, ledgerdomain.ErrCommentRequired),
		errors.Is(err, ledgerdomain.ErrInvalidRate),
		errors.Is(err, ledgerdomain.ErrSameMonthMove),
		errors.Is(err, ratedomain.ErrRateNotFound),
		errors.Is(err, ratedomain.ErrInvalidRate),
		errors.Is(err, ratedomain.ErrInvalidSegment),
		errors.Is(err, ratedomain.ErrInvalidStatus),
		errors.Is(err, summarydomain.ErrInvalidSalesPerson),
		errors.Is(err, importerdomain.ErrEmptyFile),
		errors.Is(err, importerdomain.ErrUnsupportedFormat),
		errors.Is(err, importerdomain.ErrMissingColumns):
		status, code, message = http.StatusBadRequest, rootCode(err), err.Error()
	}

	c.AbortWithStatusJSON(status, gin.H{"error": &apiError{Code: code, Message: message}})
}

// rootCode returns the sentinel's snake_case code even when wrapped
// with context.
func rootCode(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}
		err = unwrapped
	}
}
