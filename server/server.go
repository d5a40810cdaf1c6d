package server

import (
	"log"

	"brewos-server/cache"
	"brewos-server/confs"
	"brewos-server/db"
	"brewos-server/dispatch"
	"brewos-server/handlers"
	httpHandler "brewos-server/handlers/http"
	"brewos-server/repositories"
	"brewos-server/services"
	"brewos-server/usecases"
	"brewos-server/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Server struct {
	app *gin.Engine
	db  db.Database
	cfg *confs.Config
}

func NewServer(database db.Database, cfg *confs.Config) *Server {
	return &Server{
		app: gin.Default(),
		db:  database,
		cfg: cfg,
	}
}

func (s *Server) Start() {
	// Setup CORS middleware
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true // Allow all origins for development
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	s.app.Use(cors.New(config))

	// Setup healthcheck route
	s.app.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "OK",
		})
	})

	// Initialize repositories
	nodeRepo := repositories.NewNodePgRepository(s.db)
	endpointRepo := repositories.NewEndpointPgRepository(s.db)
	tileRepo := repositories.NewTilePgRepository(s.db)
	interlockRepo := repositories.NewInterlockPgRepository(s.db)
	commandRepo := repositories.NewCommandPgRepository(s.db)
	telemetryRepo := repositories.NewTelemetryPgRepository(s.db)
	alarmRepo := repositories.NewAlarmPgRepository(s.db)

	// In-memory current-value read cache, warmed from the database
	currentCache := cache.NewCurrentCache()
	if snapshot, err := telemetryRepo.GetAllCurrent(); err != nil {
		log.Printf("warning: could not warm current-value cache: %v", err)
	} else {
		currentCache.Warm(snapshot)
	}

	// Websocket manager for controller nodes
	manager := ws.NewManager()

	// Dispatcher choice is made here, never inside the pipeline
	var dispatcher dispatch.Dispatcher
	switch s.cfg.DispatchMode {
	case confs.DispatchNode:
		dispatcher = dispatch.NewNode(manager, telemetryRepo)
		log.Println("Using websocket node dispatcher")
	default:
		dispatcher = dispatch.NewSimulated(telemetryRepo, s.cfg.SimulatedLatency)
		log.Println("Using simulated dispatcher")
	}

	// Core pipeline
	evaluator := usecases.NewEvaluator(interlockRepo, telemetryRepo)
	reconciler := usecases.NewReconciler(telemetryRepo, alarmRepo, currentCache)
	pipeline := usecases.NewCommandPipeline(
		endpointRepo, commandRepo, evaluator, reconciler, dispatcher,
		s.cfg.DispatchTimeout, s.cfg.DefaultPulseDuration,
	)
	pulses := services.NewPulseScheduler(pipeline)
	pipeline.SetReversionScheduler(pulses)

	// Initialize handlers
	commandHandler := httpHandler.NewCommandHandler(pipeline, pulses)
	endpointHandler := httpHandler.NewEndpointHandler(endpointRepo, telemetryRepo)
	telemetryHandler := httpHandler.NewTelemetryHandler(endpointRepo, telemetryRepo, currentCache, reconciler)
	alarmHandler := httpHandler.NewAlarmHandler(alarmRepo)
	nodeHandler := httpHandler.NewNodeHandler(nodeRepo, manager)
	tileHandler := httpHandler.NewTileHandler(tileRepo)
	interlockHandler := httpHandler.NewInterlockHandler(interlockRepo)
	wsHandler := handlers.NewWSHandler(manager, nodeRepo, endpointRepo, reconciler)

	// Setup API routes
	api := s.app.Group("/api/v1")
	{
		// Command pipeline
		api.POST("/command", commandHandler.Execute)
		api.GET("/command/:id", commandHandler.Get)
		api.DELETE("/command/:id/reversion", commandHandler.CancelReversion)
		api.GET("/commands", commandHandler.List)

		// Endpoint registry
		endpoints := api.Group("/endpoints")
		{
			endpoints.POST("", endpointHandler.Create)
			endpoints.GET("", endpointHandler.GetAll)
			endpoints.GET("/:id", endpointHandler.Get)
			endpoints.GET("/:id/history", endpointHandler.History)
		}

		// Telemetry
		telemetry := api.Group("/telemetry")
		{
			telemetry.POST("", telemetryHandler.Push)
			telemetry.GET("/latest", telemetryHandler.Latest)
			telemetry.GET("/latest/:endpointId", telemetryHandler.LatestForEndpoint)
			telemetry.GET("/cache/stats", telemetryHandler.CacheStats)
		}

		// Alarms
		alarms := api.Group("/alarms")
		{
			alarms.GET("", alarmHandler.GetAll)
			alarms.GET("/:id", alarmHandler.Get)
			alarms.POST("/:id/ack", alarmHandler.Acknowledge)
		}

		// Interlocks
		interlocks := api.Group("/interlocks")
		{
			interlocks.POST("", interlockHandler.Create)
			interlocks.GET("", interlockHandler.GetAll)
			interlocks.GET("/:id", interlockHandler.Get)
		}

		// Tiles
		tiles := api.Group("/tiles")
		{
			tiles.POST("", tileHandler.Create)
			tiles.GET("", tileHandler.GetAll)
			tiles.GET("/:id", tileHandler.Get)
		}

		// Nodes
		nodes := api.Group("/nodes")
		{
			nodes.POST("", nodeHandler.Create)
			nodes.GET("", nodeHandler.GetAll)
			nodes.GET("/connected", nodeHandler.GetConnected)
			nodes.GET("/:id", nodeHandler.Get)
		}
	}

	s.app.GET("/ws", wsHandler.HandleNodeWS)

	if err := s.app.Run(s.cfg.Addr); err != nil {
		panic(err)
	}
}
