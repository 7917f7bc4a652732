package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the JSON envelope for every /api reply
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error codes carried in Response.Code
const (
	CodeOK         = 0
	CodeBadRequest = 40000
	CodeNotFound   = 40400
	CodeConflict   = 40900
	CodeInternal   = 50000
)

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeOK, Message: "success", Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: CodeOK, Message: "success", Data: data})
}

func fail(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, Response{Code: code, Message: message})
}
