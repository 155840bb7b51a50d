package response

import "github.com/gin-gonic/gin"

const (
	CodeOK             = 0
	CodeBadRequest     = 40000
	CodeUnauthorized   = 40100
	CodeForbidden      = 40300
	CodeNotFound       = 40400
	CodeConflict       = 40900
	CodeInternalServer = 50000

	CodeInvalidCredentials = 40101
	CodeEmailNotConfirmed  = 40102
	CodeTokenExpired       = 40103
	CodeStaleToken         = 40104
	CodeEmailExists        = 40901
	CodeAlreadyConfirmed   = 40902
	CodeFileTooLarge       = 41300
	CodeUnsupportedType    = 41500
	CodeTagLimitReached    = 42900
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
