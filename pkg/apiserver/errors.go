package apiserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/masking"
)

// redactor scrubs secrets (provider tokens, access tokens) that a wrapped
// provider SDK error might otherwise echo straight into a client-visible
// {"detail": ...} response body.
var redactor = masking.NewService()

// detail is the wire envelope every error response uses (spec.md §6 "Wire
// conventions": `{ "detail": "<message>" }`).
type detail struct {
	Detail string `json:"detail"`
}

// statusFor maps an apperr sentinel kind to its HTTP status (spec.md §7).
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, apperr.ErrDecryptionFailed):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrStateInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrProviderRetryable), errors.Is(err, apperr.ErrProviderFatal):
		return http.StatusBadGateway
	case errors.Is(err, apperr.ErrStorageFailed), errors.Is(err, apperr.ErrOCRFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the {"detail": "..."} envelope at the status apperr maps err
// to, then aborts the gin context (spec.md §7: "handlers catch and
// translate; validation and auth errors return early without side effects").
func fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), detail{Detail: redactor.Redact(err.Error())})
}
