package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/halftunes/api/handlers"
	"github.com/yourusername/halftunes/api/middleware"
	"github.com/yourusername/halftunes/internal/domain"
	"github.com/yourusername/halftunes/pkg/logger"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Dependencies holds everything the router wires into handlers.
// History and Recorder are nil when the download history is disabled.
type Dependencies struct {
	Manager     handlers.TransferController
	Active      handlers.ActiveCounter
	Searcher    handlers.TrackSearcher
	Store       domain.LocalStore
	History     domain.HistoryRepository
	Recorder    handlers.WorkerStatus
	Events      handlers.EventStream
	Logger      *zap.Logger
	MultiLogger *logger.MultiLogger
	LogsDir     string
	MetricsPath string
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log, deps.MultiLogger))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(Version, deps.Active, deps.Recorder)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	if deps.MetricsPath != "" {
		router.GET(deps.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		trackHandler := handlers.NewTrackHandler(deps.Searcher, log)
		v1.GET("/search", trackHandler.Search)
		v1.GET("/search/results", trackHandler.Results)

		downloadHandler := handlers.NewDownloadHandler(deps.Manager, deps.Searcher, deps.Store, log)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.StartDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/lookup", downloadHandler.LookupDownload)
			downloads.POST("/pause", downloadHandler.PauseDownload)
			downloads.POST("/resume", downloadHandler.ResumeDownload)
			downloads.POST("/cancel", downloadHandler.CancelDownload)
		}
		v1.GET("/library/path", downloadHandler.LibraryPath)

		if deps.History != nil {
			historyHandler := handlers.NewHistoryHandler(deps.History, log)
			v1.GET("/history", historyHandler.ListHistory)
			v1.GET("/history/stats", historyHandler.GetStats)
		}

		if deps.LogsDir != "" {
			logHandler := handlers.NewLogHandler(deps.LogsDir)
			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/search", logHandler.SearchLogs)
				logs.GET("/:category/export", logHandler.ExportLogs)
			}
		}

		if deps.Events != nil {
			eventHandler := handlers.NewEventHandler(deps.Events, log)
			v1.GET("/events/subscribers", eventHandler.Subscribers)
			router.GET("/ws/events", eventHandler.HandleWebSocket)
		}
	}

	if deps.LogsDir != "" {
		logWSHandler := handlers.NewLogWebSocketHandler(deps.LogsDir, log)
		router.GET("/ws/logs", logWSHandler.HandleWebSocket)
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.String(http.StatusNotFound, "404 page not found")
	})

	return router
}
