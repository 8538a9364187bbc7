package webapp

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	indexRouteConstant         = "/"
	greetingRouteConstant      = "/api/greeting"
	indexTemplateNameConstant  = "index.html"
	templatesPatternConstant   = "templates/*.html"
	titleKeyConstant           = "title"
	messageKeyConstant         = "message"
	pageTitleConstant          = "cwrdd"
	pageMessageConstant        = "Hello from cwrdd!"
	greetingFragmentConstant   = "<p>👋 Hello from the server! This was fetched with htmx.</p>"
	htmlContentTypeConstant    = "text/html; charset=utf-8"
	requestLogMessageConstant  = "request served"
	methodFieldConstant        = "method"
	pathFieldConstant          = "path"
	statusFieldConstant        = "status"
	durationFieldConstant      = "duration"
	clientAddressFieldConstant = "client_address"
)

//go:embed templates/*.html
var templateFiles embed.FS

// NewRouter builds the gin engine serving the index page and the htmx greeting fragment.
func NewRouter(logger *zap.Logger) (*gin.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pageTemplates, parseError := template.ParseFS(templateFiles, templatesPatternConstant)
	if parseError != nil {
		return nil, parseError
	}

	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	router.SetHTMLTemplate(pageTemplates)

	router.GET(indexRouteConstant, func(context *gin.Context) {
		context.HTML(http.StatusOK, indexTemplateNameConstant, gin.H{
			titleKeyConstant:   pageTitleConstant,
			messageKeyConstant: pageMessageConstant,
		})
	})
	router.GET(greetingRouteConstant, func(context *gin.Context) {
		context.Data(http.StatusOK, htmlContentTypeConstant, []byte(greetingFragmentConstant))
	})

	return router, nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(context *gin.Context) {
		startedAt := time.Now()
		context.Next()
		logger.Info(
			requestLogMessageConstant,
			zap.String(methodFieldConstant, context.Request.Method),
			zap.String(pathFieldConstant, context.Request.URL.Path),
			zap.Int(statusFieldConstant, context.Writer.Status()),
			zap.Duration(durationFieldConstant, time.Since(startedAt)),
			zap.String(clientAddressFieldConstant, context.ClientIP()),
		)
	}
}
