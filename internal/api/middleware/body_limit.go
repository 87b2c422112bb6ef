package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shelfmate/backend/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// 上传的分配表以 multipart 提交，maxBytes 需容纳整个 xlsx 文件
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.IsAborted() {
			return
		}
		for _, err := range c.Errors {
			if err.Err != nil && err.Err.Error() == "http: request body too large" {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
