package response

import (
	"errors"

	"github.com/gin-gonic/gin"

	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/pkg/logger"
)

// Success writes data as the JSON body
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Error writes err as a coded JSON error. Errors that are not AppErrors become 500s
// and only their generic message reaches the client. The cause is kept on the
// gin context for the request log.
func Error(c *gin.Context, err error) {
	var appErr *domainerrors.AppError
	if !errors.As(err, &appErr) {
		appErr = domainerrors.InternalError(err)
	}
	_ = c.Error(err)

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"error":   appErr.Message,
	}
	if reqID, ok := c.Request.Context().Value(logger.RequestIDKey).(string); ok && reqID != "" {
		body["requestId"] = reqID
	}
	c.JSON(appErr.Status, body)
}
