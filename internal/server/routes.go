package server

import (
	"github.com/accredmap/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Corpus routes
	apiRoutes.POST("/corpus/reload", routes.ReloadCorpusHandler)

	// Evidence routes
	apiRoutes.POST("/evidence/analyze", routes.AnalyzeEvidenceHandler)
	apiRoutes.GET("/documents/:id/mappings", routes.GetDocumentMappingsHandler)
	apiRoutes.DELETE("/documents/:id/mappings", routes.DeleteDocumentMappingsHandler)

	// Graph and trust routes
	apiRoutes.GET("/graph", routes.GetGraphHandler)
	apiRoutes.GET("/trust", routes.GetTrustScoresHandler)
	apiRoutes.GET("/standards/:id/trust", routes.GetStandardTrustHandler)
}
