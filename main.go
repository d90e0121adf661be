package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"journal-index/config"
	"journal-index/harvester"
	"journal-index/models"
	"journal-index/parser"
	"journal-index/queue"
	"journal-index/services"
	"journal-index/storage"
)

var (
	harvestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_index_harvest_runs_total",
		Help: "Anzahl der Harvest-Läufe nach Ergebnis.",
	}, []string{"result"})

	importEntriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_index_import_entries_total",
		Help: "Anzahl der verarbeiteten Queue-Einträge nach Ergebnis.",
	}, []string{"result"})

	stagedEntriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_index_staged_entries_total",
		Help: "Anzahl der direkt angelieferten und gestageten Artikel-Nachrichten.",
	})
)

func init() {
	prometheus.MustRegister(harvestRunsTotal, importEntriesTotal, stagedEntriesTotal)
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&models.Journal{},
		&models.Volume{},
		&models.Article{},
		&models.Author{},
		&models.ImportQueueEntry{},
	); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	q := queue.New(db, logger)
	h := harvester.NewHarvester(cfg, logger, q)
	if cfg.ArchiveEnabled() {
		archive, err := storage.NewArchiveClient(context.Background(), cfg, logger)
		if err != nil {
			logger.Fatal("archive client init failed", zap.Error(err))
		}
		h.Archiver = archive
	}
	harvestSvc := services.NewHarvestService(db, logger, h)
	importer := services.NewImporter(cfg, logger, q)

	c := cron.New()
	if _, err := c.AddFunc(cfg.HarvestCronSchedule, func() {
		if _, err := harvestSvc.HarvestAll(context.Background()); err != nil {
			harvestRunsTotal.WithLabelValues("error").Inc()
			logger.Error("harvest cron failed", zap.Error(err))
			return
		}
		harvestRunsTotal.WithLabelValues("ok").Inc()
	}); err != nil {
		logger.Fatal("failed to register harvest cron", zap.Error(err))
	}
	if _, err := c.AddFunc(cfg.ImportCronSchedule, func() {
		stats, err := importer.ProcessPending(context.Background())
		if err != nil {
			logger.Error("import cron failed", zap.Error(err))
			return
		}
		importEntriesTotal.WithLabelValues("ok").Add(float64(stats.Succeeded))
		importEntriesTotal.WithLabelValues("error").Add(float64(stats.Failed))
	}); err != nil {
		logger.Fatal("failed to register import cron", zap.Error(err))
	}
	c.Start()
	defer c.Stop()

	router := gin.Default()
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/", apiKeyAuthMiddleware(cfg))
	setupHarvestRoutes(api, harvestSvc, logger)
	setupIngestRoutes(api, q, logger)
	setupImportRoutes(api, importer, q)
	setupJournalRoutes(api, db)

	logger.Info("server starting", zap.String("port", cfg.HTTPPort))
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// apiKeyAuthMiddleware prüft den X-API-KEY-Header. Ohne konfigurierten
// Schlüssel ist die API offen (lokale Entwicklung).
func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if cfg.APISecretKey != "" && ctx.GetHeader("X-API-KEY") != cfg.APISecretKey {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		ctx.Next()
	}
}

// setupHarvestRoutes registriert die Harvest-Endpunkte. Harvest-Läufe können
// lange dauern und laufen daher asynchron.
func setupHarvestRoutes(r *gin.RouterGroup, svc *services.HarvestService, logger *zap.Logger) {
	r.POST("/harvest", func(ctx *gin.Context) {
		var req struct {
			JournalKey string `json:"journal_key" binding:"required"`
			WebsiteURL string `json:"website_url"`
		}
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		go func() {
			if _, err := svc.HarvestOne(context.Background(), req.JournalKey, req.WebsiteURL); err != nil {
				harvestRunsTotal.WithLabelValues("error").Inc()
				logger.Error("harvest failed", zap.String("journalKey", req.JournalKey), zap.Error(err))
				return
			}
			harvestRunsTotal.WithLabelValues("ok").Inc()
		}()
		ctx.JSON(http.StatusAccepted, gin.H{"journal_key": req.JournalKey, "status": "harvest started"})
	})

	r.POST("/harvest/all", func(ctx *gin.Context) {
		go func() {
			if _, err := svc.HarvestAll(context.Background()); err != nil {
				harvestRunsTotal.WithLabelValues("error").Inc()
				logger.Error("harvest sweep failed", zap.Error(err))
				return
			}
			harvestRunsTotal.WithLabelValues("ok").Inc()
		}()
		ctx.JSON(http.StatusAccepted, gin.H{"status": "harvest started"})
	})
}

// setupIngestRoutes registriert die Push-Anlieferung von JSON-Artikeln.
// Die Nachricht wird validiert und unverändert gestaged; importiert wird
// asynchron über die Queue.
func setupIngestRoutes(r *gin.RouterGroup, q *queue.Queue, logger *zap.Logger) {
	r.POST("/articles", func(ctx *gin.Context) {
		body, err := ctx.GetRawData()
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		msg, err := parser.ParseArticleMessage(body)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if msg.JournalKey == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "journalKey is required"})
			return
		}
		if err := q.Stage(ctx.Request.Context(), msg.JournalKey, models.SystemTeckiz, models.FormatJSON, string(body)); err != nil {
			logger.Error("stage article message failed", zap.String("journalKey", msg.JournalKey), zap.Error(err))
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "staging failed"})
			return
		}
		stagedEntriesTotal.Inc()
		ctx.JSON(http.StatusAccepted, gin.H{
			"journal_key": msg.JournalKey,
			"articles":    len(msg.Records()),
			"status":      "queued",
		})
	})
}

// setupImportRoutes registriert Drain, Reset und Statistik der Queue.
func setupImportRoutes(r *gin.RouterGroup, importer *services.Importer, q *queue.Queue) {
	r.POST("/import/run", func(ctx *gin.Context) {
		stats, err := importer.ProcessPending(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		importEntriesTotal.WithLabelValues("ok").Add(float64(stats.Succeeded))
		importEntriesTotal.WithLabelValues("error").Add(float64(stats.Failed))
		ctx.JSON(http.StatusOK, stats)
	})

	r.POST("/import/reset-errors", func(ctx *gin.Context) {
		n, err := q.ResetErrors(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"reset": n})
	})

	r.GET("/queue/stats", func(ctx *gin.Context) {
		stats, err := q.Stats(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, stats)
	})
}

// setupJournalRoutes registriert Verwaltung und Freigabe der Journale.
func setupJournalRoutes(r *gin.RouterGroup, db *gorm.DB) {
	r.GET("/journals", func(ctx *gin.Context) {
		var journals []models.Journal
		query := db.WithContext(ctx.Request.Context()).Order("journal_key asc")
		if status := ctx.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if err := query.Find(&journals).Error; err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, journals)
	})

	r.PATCH("/journals/:key", func(ctx *gin.Context) {
		var req struct {
			Status       *string `json:"status"`
			ArticleIndex *bool   `json:"article_index"`
			Website      *string `json:"website"`
			Name         *string `json:"name"`
		}
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var journal models.Journal
		if err := db.WithContext(ctx.Request.Context()).
			Where("journal_key = ?", ctx.Param("key")).
			First(&journal).Error; err != nil {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "journal not found"})
			return
		}

		if req.Status != nil {
			switch *req.Status {
			case models.JournalStatusReceived, models.JournalStatusPending,
				models.JournalStatusApproved, models.JournalStatusSuspended:
				journal.Status = *req.Status
			default:
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
		}
		if req.ArticleIndex != nil {
			journal.ArticleIndex = *req.ArticleIndex
		}
		if req.Website != nil {
			journal.Website = *req.Website
		}
		if req.Name != nil {
			journal.Name = *req.Name
		}

		if err := db.WithContext(ctx.Request.Context()).Save(&journal).Error; err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, journal)
	})
}
