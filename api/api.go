// Package api serves run control and results over REST.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quantview/backtester/config"
	"github.com/quantview/backtester/engine"
	"github.com/quantview/backtester/store"
	"github.com/quantview/backtester/strategies"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// New builds the server around an existing manager and store
func New(cfg config.APISetup, manager *engine.RunManager, st *store.Store, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		manager: manager,
		store:   st,
		log:     log,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	v1 := router.Group("/api/v1")
	v1.GET("/strategies", s.listStrategies)
	v1.POST("/runs", s.createRun)
	v1.GET("/runs", s.listRuns)
	v1.GET("/runs/:id", s.getRun)
	v1.POST("/runs/:id/pause", s.pauseRun)
	v1.POST("/runs/:id/resume", s.resumeRun)
	v1.POST("/runs/:id/stop", s.stopRun)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	s.srv = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown
func (s *Server) Start() error {
	s.log.WithField("address", s.srv.Addr).Info("api listening")
	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start),
		}).Debug("request")
	}
}

func (s *Server) listStrategies(c *gin.Context) {
	all := make([]strategyResponse, 0)
	for _, h := range strategies.All() {
		all = append(all, strategyResponse{
			Name:        h.Name(),
			Description: h.Description(),
			Parameters:  h.Parameters(),
		})
	}
	c.JSON(http.StatusOK, all)
}

// createRun validates the posted config, starts the run in the
// background and returns immediately with its ID
func (s *Server) createRun(c *gin.Context) {
	var cfg config.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	bt, err := engine.NewFromConfig(&cfg, s.log)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.manager.Add(bt)

	go func() {
		run, err := bt.Run(context.Background())
		if err != nil {
			s.log.WithError(err).WithField("run", bt.ID()).Error("run failed")
		}
		if run != nil && s.store != nil {
			if err := s.store.Save(context.Background(), run); err != nil {
				s.log.WithError(err).WithField("run", bt.ID()).Error("save failed")
			}
		}
	}()

	c.JSON(http.StatusAccepted, runResponse{ID: bt.ID(), Status: bt.Status()})
}

func (s *Server) listRuns(c *gin.Context) {
	out := make([]runResponse, 0)
	for _, bt := range s.manager.List() {
		out = append(out, runResponse{
			ID:         bt.ID(),
			Status:     bt.Status(),
			Checkpoint: bt.Checkpoint(),
		})
	}
	c.JSON(http.StatusOK, out)
}

// getRun prefers the sealed stored artifact and falls back to live state
func (s *Server) getRun(c *gin.Context) {
	id := c.Param("id")
	if s.store != nil {
		if run, err := s.store.Get(c.Request.Context(), id); err == nil {
			c.JSON(http.StatusOK, run)
			return
		}
	}
	bt, err := s.manager.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if run := bt.Result(); run != nil {
		c.JSON(http.StatusOK, run)
		return
	}
	c.JSON(http.StatusOK, runResponse{
		ID:         bt.ID(),
		Status:     bt.Status(),
		Checkpoint: bt.Checkpoint(),
	})
}

func (s *Server) pauseRun(c *gin.Context) {
	s.control(c, func(bt *engine.BackTest) error { return bt.Pause() })
}

func (s *Server) resumeRun(c *gin.Context) {
	s.control(c, func(bt *engine.BackTest) error { return bt.Resume() })
}

func (s *Server) stopRun(c *gin.Context) {
	s.control(c, func(bt *engine.BackTest) error { return bt.Stop() })
}

func (s *Server) control(c *gin.Context, action func(*engine.BackTest) error) {
	bt, err := s.manager.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err := action(bt); err != nil {
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, runResponse{ID: bt.ID(), Status: bt.Status()})
}
