// Package server exposes a running plant over HTTP: one JSON resource per
// tank attribute, actuator commands, and a WebSocket stream of per-tick
// snapshots.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/WilhelmWidlund/CS487-Project/sim"
)

const shutdownTimeout = 5 * time.Second

// Server binds a Simulator to a gin router.
type Server struct {
	sim    *sim.Simulator
	router *gin.Engine
	hub    *Hub
}

// Frame is the WebSocket message broadcast after every tick.
type Frame struct {
	Station string             `json:"station"`
	Clock   float64            `json:"clock"`
	Tanks   []sim.TankSnapshot `json:"tanks"`
}

// ValveRequest is the body of PUT /tanks/:name/valve.
type ValveRequest struct {
	Value *float64 `json:"value"`
}

// FillRequest is the optional body of POST /tanks/:name/fill.
type FillRequest struct {
	Level *float64 `json:"level"`
}

// FaultRequest is the body of POST /tanks/:name/faults.
type FaultRequest struct {
	Channel sim.FaultChannel `json:"channel"`
}

// New creates a server for s and subscribes it to s's ticks.
func New(s *sim.Simulator) *Server {
	srv := &Server{
		sim:    s,
		router: gin.New(),
		hub:    NewHub(),
	}
	srv.setupRoutes()
	s.OnTick(srv.broadcast)
	return srv
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger())

	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/station", s.getStation)
		v1.GET("/tanks/:name", s.getTank)
		v1.GET("/tanks/:name/:attr", s.getAttribute)
		v1.PUT("/tanks/:name/valve", s.setValve)
		v1.POST("/tanks/:name/fill", s.fill)
		v1.POST("/tanks/:name/flush", s.flush)
		v1.POST("/tanks/:name/faults", s.breakChannel)
		v1.GET("/ws", s.handleWebSocket)
	}
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the WebSocket client registry.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully and disconnects every WebSocket client.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Serving station %s on %s", s.sim.Config.Station, addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.Close()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Middleware

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		start := time.Now()
		c.Next()
		logrus.Debugf("%s %s %d %s [%s]", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start), requestID)
	}
}

// tank resolves the :name parameter, writing a 404 when it is unknown.
func (s *Server) tank(c *gin.Context) (*sim.Tank, bool) {
	name := c.Param("name")
	t, ok := s.sim.Tank(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tank " + name})
		return nil, false
	}
	return t, true
}

// Handlers

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) getStation(c *gin.Context) {
	m := s.sim.Metrics()
	c.JSON(http.StatusOK, gin.H{
		"station": s.sim.Config.Station,
		"run_id":  s.sim.RunID.String(),
		"clock":   s.sim.Clock(),
		"ticks":   m.Ticks,
		"tanks":   s.sim.Network.Names(),
	})
}

func (s *Server) getTank(c *gin.Context) {
	t, ok := s.tank(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, t.Snapshot())
}

// attributes maps each readable resource name to its sensor.
var attributes = map[string]func(t *sim.Tank) any{
	"level":         func(t *sim.Tank) any { return t.Level() },
	"flow":          func(t *sim.Tank) any { return t.Outflow() },
	"valve":         func(t *sim.Tank) any { return t.Valve() },
	"color":         func(t *sim.Tank) any { return t.Color() },
	"very_low":      func(t *sim.Tank) any { return t.VeryLow() },
	"low":           func(t *sim.Tank) any { return t.Low() },
	"high":          func(t *sim.Tank) any { return t.High() },
	"very_high":     func(t *sim.Tank) any { return t.VeryHigh() },
	"alarms":        func(t *sim.Tank) any { return t.Alarms() },
	"level_history": func(t *sim.Tank) any { return t.LevelHistory() },
	"valve_history": func(t *sim.Tank) any { return t.ValveHistory() },
}

func (s *Server) getAttribute(c *gin.Context) {
	t, ok := s.tank(c)
	if !ok {
		return
	}
	attr := c.Param("attr")
	read, ok := attributes[attr]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown attribute " + attr})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": t.Name(), "attribute": attr, "value": read(t)})
}

func (s *Server) setValve(c *gin.Context) {
	t, ok := s.tank(c)
	if !ok {
		return
	}
	var req ValveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"value\": <ratio>}"})
		return
	}
	t.SetValve(*req.Value)
	c.JSON(http.StatusOK, gin.H{"valve": t.Valve()})
}

func (s *Server) fill(c *gin.Context) {
	t, ok := s.tank(c)
	if !ok {
		return
	}
	level := 1.0
	var req FillRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be empty or {\"level\": <fraction>}"})
		return
	}
	if req.Level != nil {
		level = *req.Level
	}
	c.JSON(http.StatusOK, gin.H{"level": t.Fill(level)})
}

func (s *Server) flush(c *gin.Context) {
	t, ok := s.tank(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"level": t.Flush()})
}

// breakChannel fails one fault channel for a drill. Broken channels never heal.
func (s *Server) breakChannel(c *gin.Context) {
	t, ok := s.tank(c)
	if !ok {
		return
	}
	var req FaultRequest
	if err := c.ShouldBindJSON(&req); err != nil || !sim.IsValidFaultChannel(string(req.Channel)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"channel\": <fault channel>}"})
		return
	}
	t.Break(req.Channel)
	logrus.Warnf("%s: %s broken by drill", t.Name(), req.Channel)
	c.JSON(http.StatusOK, gin.H{"broken": t.Broken()})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Warnf("WebSocket upgrade failed: %v", err)
		return
	}
	client := s.hub.register(conn)
	logrus.Debugf("WebSocket client %s connected", client.ID)
	client.send(s.frame(s.sim.Clock()))
}

func (s *Server) frame(clock float64) Frame {
	tanks := s.sim.Network.Tanks()
	snaps := make([]sim.TankSnapshot, len(tanks))
	for i, t := range tanks {
		snaps[i] = t.Snapshot()
	}
	return Frame{Station: s.sim.Config.Station, Clock: clock, Tanks: snaps}
}

// broadcast runs on the ticking goroutine.
func (s *Server) broadcast(clock float64) {
	if s.hub.Len() == 0 {
		return
	}
	s.hub.Broadcast(s.frame(clock))
}
