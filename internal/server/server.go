// Package server assembles the dashboard backend: storage, engines, services and the gin router.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cryptodash/internal/config"
	chatDAO "cryptodash/internal/dao/chat"
	"cryptodash/internal/database"
	"cryptodash/internal/engines/balance"
	"cryptodash/internal/handlers"
	"cryptodash/internal/handlers/websocket"
	"cryptodash/internal/integrations/binance"
	"cryptodash/internal/models"
	"cryptodash/internal/services/chat"
	"cryptodash/internal/services/market"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Dependencies overrides the production collaborators; zero fields use the defaults
type Dependencies struct {
	MarketSource market.Source
	Scheduler    balance.Scheduler
	Random       balance.RandomSource
}

// Server owns every long-lived component of the backend
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	db      *gorm.DB
	hub     *websocket.Hub
	engine  *balance.Engine
	market  *market.MarketDataService
	chat    *chat.ChatService
	router  *gin.Engine
	hubDone chan struct{}
}

// New connects storage and builds all services; nothing runs until Run
func New(cfg *config.Config, logger *zap.Logger, deps Dependencies) (*Server, error) {
	db, err := database.Connect(cfg.Database.URL, logger)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db, logger); err != nil {
		database.Close(db)
		return nil, err
	}

	if deps.MarketSource == nil {
		deps.MarketSource = binance.NewBinanceService()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = balance.NewTickerScheduler()
	}
	if deps.Random == nil {
		deps.Random = balance.NewRandomSource()
	}

	hub := websocket.NewHub(logger.Named("hub"))

	frame, err := models.ParseTimeFrame(cfg.Balance.InitialFrame)
	if err != nil {
		database.Close(db)
		return nil, err
	}
	engine, err := balance.NewEngine(balance.Options{
		SeedBalance:   cfg.Balance.SeedBalance,
		InitialFrame:  frame,
		ReferenceMode: balance.ReferenceMode(cfg.Balance.ReferenceMode),
	}, deps.Scheduler, deps.Random, balance.NewPublisherRenderer(hub), logger.Named("balance"))
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("create balance engine: %w", err)
	}

	marketService := market.NewMarketDataService(deps.MarketSource, hub, market.Options{
		Coins:             cfg.Market.Coins,
		MaxRetries:        cfg.Market.MaxRetries,
		RetryDelay:        cfg.Market.RetryDelay,
		SparklineCoins:    cfg.Market.SparklineCoins,
		SparklinePoints:   cfg.Market.SparklinePoints,
		SparklineInterval: cfg.Market.SparklineInterval,
	}, logger.Named("market"))

	chatService := chat.NewChatService(chatDAO.NewChatDAO(db), hub, chat.Options{
		MaxBodyLength: cfg.Chat.MaxBodyLength,
		HistoryLimit:  cfg.Chat.HistoryLimit,
		MaxHistory:    cfg.Chat.MaxHistory,
	}, logger.Named("chat"))

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		hub:     hub,
		engine:  engine,
		market:  marketService,
		chat:    chatService,
		hubDone: make(chan struct{}),
	}
	s.router = s.setupRouter()
	return s, nil
}

func (s *Server) setupRouter() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), cors())

	healthHandler := handlers.NewHealthHandler(s.db)
	balanceHandler := handlers.NewBalanceHandler(s.engine)
	marketHandler := handlers.NewMarketHandler(s.market)
	chatHandler := handlers.NewChatHandler(s.chat)

	wsHandler := websocket.NewWebSocketHandler(s.hub, s.logger.Named("ws"))
	wsHandler.SetHandlers(
		websocket.NewBalanceEventHandler(s.engine),
		websocket.NewChatEventHandler(s.chat),
		websocket.NewMarketEventHandler(s.market),
	)

	r.GET("/health", healthHandler.Health)
	r.GET("/ws", wsHandler.HandleWebSocket)

	api := r.Group("/api/v1")
	{
		api.GET("/health", healthHandler.Health)
		handlers.RegisterBalanceRoutes(api, balanceHandler)
		handlers.RegisterMarketRoutes(api, marketHandler)
		handlers.RegisterChatRoutes(api, chatHandler)
	}
	return r
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Engine returns the balance engine
func (s *Server) Engine() *balance.Engine {
	return s.engine
}

// Run starts the hub, the balance engine, the market schedule and the HTTP
// listener, and blocks until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		defer close(s.hubDone)
		s.hub.Run()
	}()

	if err := s.engine.Start(); err != nil {
		s.Close()
		return err
	}

	var scheduler *market.Scheduler
	if s.cfg.Market.Enabled {
		scheduler = market.NewScheduler(ctx, s.market, s.logger.Named("market"))
		if err := scheduler.Register(s.cfg.Market.RefreshSchedule); err != nil {
			s.Close()
			return err
		}
		scheduler.Start()
		go scheduler.RunNow()
	}

	srv := &http.Server{
		Addr:    ":" + s.cfg.Server.Port,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("port", s.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	s.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP shutdown error", zap.Error(err))
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	s.Close()
	return runErr
}

// Close stops the engine and hub and releases the database
func (s *Server) Close() {
	s.engine.Stop()
	s.hub.Stop()
	if err := database.Close(s.db); err != nil {
		s.logger.Warn("Database close error", zap.Error(err))
	}
}
