package http

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/ext"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// Tracing opens a server span per request and threads it through the request
// context so per-collection spans in repo attach to it.
func Tracing(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		span, ctx := tracer.StartSpanFromContext(c.Request.Context(),
			"http.request",
			tracer.ServiceName(service),
			tracer.ResourceName(c.Request.Method+" "+route),
			tracer.SpanType(ext.SpanTypeWeb),
			tracer.Tag(ext.HTTPMethod, c.Request.Method),
			tracer.Tag(ext.HTTPURL, c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetTag(ext.HTTPCode, strconv.Itoa(c.Writer.Status()))
		if c.Writer.Status() >= 500 {
			span.SetTag(ext.Error, true)
		}
		span.Finish()
	}
}
