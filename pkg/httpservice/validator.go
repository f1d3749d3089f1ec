package httpservice

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/csvkit/pkg/errors"
)

// BindJSON decodes the JSON body into req. On failure it writes a validation
// error response and returns false. Field rules are checked by the consumer
// of req, not here.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		HandleError(c, errors.NewValidationError("Invalid JSON: "+err.Error()))
		return false
	}
	return true
}

// HandleError writes err as a JSON error response and aborts the chain.
func HandleError(c *gin.Context, err error) {
	appErr := errors.FromError(err)
	body := gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, body)
}

// CreatedResponse sends a created response.
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"data": data,
	})
}
