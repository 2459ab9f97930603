package router

import (
	"os"
	"path/filepath"

	"github.com/histochat/backend/pkg/validator"
)

// AddOpenAPIValidation adds OpenAPI validation middleware to the router.
// Call it before SetupRoutes: gin copies the middleware chain into each
// route at registration, so middleware added later never runs for
// already-registered routes.
func (r *Router) AddOpenAPIValidation(schemaPath string) {
	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		r.Logger.Warn("OpenAPI schema file not found, skipping validation", "path", schemaPath)
		return
	}

	v, err := validator.NewOpenAPIValidator(schemaPath)
	if err != nil {
		r.Logger.Error("Failed to initialize OpenAPI validator", "error", err)
		return
	}

	r.Engine.Use(v.Middleware())
	r.Logger.Info("OpenAPI validation enabled", "schema", schemaPath)

	// Serve the schema so clients can discover the contract
	schemaDir := filepath.Dir(schemaPath)
	schemaFile := filepath.Base(schemaPath)
	r.Engine.Static("/api/docs", schemaDir)
	r.Logger.Info("OpenAPI schema available", "url", "/api/docs/"+schemaFile)
}
