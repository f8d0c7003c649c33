package api

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jharte/mobility-backend-go/internal/config"
	"github.com/jharte/mobility-backend-go/internal/handler"
	"github.com/jharte/mobility-backend-go/internal/middleware"
	"github.com/jharte/mobility-backend-go/internal/repository"
	"github.com/jharte/mobility-backend-go/internal/service"
)

// SetupRouter wires the repositories, services and handlers and returns the
// configured engine.
func SetupRouter(cfg *config.Config, db *sql.DB) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Mobility Backend API is running",
		})
	})

	pfRepo := repository.NewPositionfixRepository(db)
	spRepo := repository.NewStaypointRepository(db)
	tplRepo := repository.NewTriplegRepository(db)
	locRepo := repository.NewLocationRepository(db)
	tripRepo := repository.NewTripRepository(db)
	tourRepo := repository.NewTourRepository(db)
	taskRepo := repository.NewPipelineTaskRepository(db)

	pfHandler := handler.NewPositionfixHandler(service.NewPositionfixService(pfRepo))
	spHandler := handler.NewStaypointHandler(service.NewStaypointService(spRepo))
	tplHandler := handler.NewTriplegHandler(service.NewTriplegService(tplRepo))
	locHandler := handler.NewLocationHandler(service.NewLocationService(locRepo))
	tripHandler := handler.NewTripHandler(service.NewTripService(tripRepo, tourRepo))
	pipelineHandler := handler.NewPipelineHandler(service.NewPipelineTaskService(taskRepo, db, cfg.Pipeline))
	analyticsHandler := handler.NewAnalyticsHandler(service.NewAnalyticsService(pfRepo, spRepo, tplRepo))
	exportHandler := handler.NewExportHandler(service.NewExportService(cfg.Export, pfRepo, spRepo, tplRepo, locRepo))

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateWindow))
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		positionfixes := api.Group("/positionfixes")
		{
			positionfixes.GET("", pfHandler.GetPositionfixes)
			positionfixes.POST("/import", pfHandler.ImportCSV)
		}

		staypoints := api.Group("/staypoints")
		{
			staypoints.GET("", spHandler.GetStaypoints)
			staypoints.GET("/merged", spHandler.GetMergedStaypoints)
			staypoints.GET("/:id", spHandler.GetStaypointByID)
		}

		triplegs := api.Group("/triplegs")
		{
			triplegs.GET("", tplHandler.GetTriplegs)
			triplegs.GET("/:id", tplHandler.GetTriplegByID)
		}

		locations := api.Group("/locations")
		{
			locations.GET("", locHandler.GetLocations)
			locations.GET("/:id", locHandler.GetLocationByID)
		}

		trips := api.Group("/trips")
		{
			trips.GET("", tripHandler.GetTrips)
			trips.GET("/:id", tripHandler.GetTripByID)
		}

		tours := api.Group("/tours")
		{
			tours.GET("", tripHandler.GetTours)
			tours.GET("/:id", tripHandler.GetTourByID)
		}

		pipeline := api.Group("/pipeline")
		{
			pipeline.POST("/runs", pipelineHandler.CreateRun)
			pipeline.POST("/tasks", pipelineHandler.CreateTask)
			pipeline.GET("/tasks", pipelineHandler.GetTasks)
			pipeline.GET("/tasks/:id", pipelineHandler.GetTaskByID)
		}

		analytics := api.Group("/analytics")
		{
			analytics.GET("/tracking-quality", analyticsHandler.GetTrackingQuality)
			analytics.GET("/modal-split", analyticsHandler.GetModalSplit)
			analytics.GET("/user-mobility", analyticsHandler.GetUserMobility)
			analytics.GET("/mode-statistics", analyticsHandler.GetModeStatistics)
		}

		api.POST("/export/postgis", exportHandler.ExportToPostGIS)
	}

	return r
}
