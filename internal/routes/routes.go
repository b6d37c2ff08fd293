package routes

import (
	"net/http"

	handler "category-import-backend/internal/handlers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, importHandler *handler.ImportHandler) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	categories := api.Group("/categories")
	categories.GET("", importHandler.ListCategories)
	categories.POST("/rebuild", importHandler.RebuildTree)

	// Import routes
	imports := categories.Group("/imports")
	{
		imports.POST("", importHandler.Upload)
		imports.GET("/:id", importHandler.GetImport)
		imports.GET("/:id/batches", importHandler.ListBatches)
		imports.GET("/:id/errors", importHandler.ListErrors)
		imports.POST("/:id/run", importHandler.Rerun)
	}
}
