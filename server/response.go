package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skillsenselab/livescribe/errors"
)

// DataResponse is the standard success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondWithError inspects err: an *apperrors.AppError supplies the
// status and structured body; anything else becomes a generic 500.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}
