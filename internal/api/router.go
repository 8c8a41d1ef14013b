package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/facematch/internal/api/handlers"
	"github.com/your-org/facematch/internal/api/ws"
	"github.com/your-org/facematch/internal/auth"
	"github.com/your-org/facematch/internal/matcher"
	"github.com/your-org/facematch/internal/recognition"
	"github.com/your-org/facematch/pkg/dto"
)

// Store is the Postgres surface the API needs.
type Store interface {
	handlers.IdentityStore
	handlers.MatchStore
}

// Queue is the NATS surface the API needs.
type Queue interface {
	handlers.EmbeddingPublisher
	handlers.ReloadPublisher
}

type RouterConfig struct {
	APIKey           string
	Registry         *recognition.Registry
	MaxDistance      float64
	Dimension        int
	BatchConcurrency int
	// DB and Queue may be nil; their routes are then not registered
	// (Submit answers 503 without a queue).
	DB     Store
	Queue  Queue
	Hub    *ws.Hub
	Checks []handlers.Check
	// Reloader defaults to an immediate reload of Registry.
	Reloader handlers.Reloader
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Checks...)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.HandleWS)
	}

	var queue handlers.EmbeddingPublisher
	var reload handlers.ReloadPublisher
	if cfg.Queue != nil {
		queue, reload = cfg.Queue, cfg.Queue
	}

	// Classification
	classifyH := handlers.NewClassifyHandler(cfg.Registry, queue, cfg.MaxDistance, cfg.BatchConcurrency)
	v1.POST("/classify", classifyH.Classify)
	v1.POST("/classify/batch", classifyH.ClassifyBatch)
	v1.POST("/embeddings", classifyH.Submit)

	// Reference set
	reloader := cfg.Reloader
	if reloader == nil {
		reloader = matcher.NewReloader(cfg.Registry, 0)
	}
	refH := handlers.NewReferenceHandler(cfg.Registry, reloader, reload)
	if cfg.Hub != nil {
		refH.OnReload = func(*recognition.ReferenceSet) {
			cfg.Hub.Broadcast(&dto.WSEvent{Type: ws.EventReferencesReloaded})
		}
	}
	v1.GET("/references", refH.Get)
	v1.POST("/references/reload", refH.Reload)

	if cfg.DB != nil {
		// Identities & embeddings
		identH := handlers.NewIdentityHandler(cfg.DB, cfg.Dimension)
		v1.POST("/identities", identH.Create)
		v1.GET("/identities", identH.List)
		v1.GET("/identities/:id", identH.Get)
		v1.DELETE("/identities/:id", identH.Delete)
		v1.POST("/identities/:id/embeddings", identH.AddEmbedding)
		v1.GET("/identities/:id/embeddings", identH.ListEmbeddings)
		v1.DELETE("/identities/:id/embeddings/:embeddingId", identH.DeleteEmbedding)
		v1.POST("/search", identH.Search)

		// Match history
		matchH := handlers.NewMatchHandler(cfg.DB)
		v1.GET("/matches", matchH.List)
		v1.GET("/matches/:id", matchH.Get)
	}

	return r
}
