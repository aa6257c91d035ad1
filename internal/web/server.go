// Package web serves the dashboard HTML, the JSON API and the live
// websocket feed.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/qmercier/livedash/internal/evolution"
	"github.com/qmercier/livedash/internal/pkg/config"
	"github.com/qmercier/livedash/internal/pkg/storage"
)

type Server struct {
	cfg     *config.ServerConfig
	store   storage.Catalogue
	tracker *evolution.Tracker
	hub     *Hub

	metricsHandler http.Handler
	httpServer     *http.Server
	upgrader       websocket.Upgrader
}

func NewServer(cfg *config.ServerConfig, store storage.Catalogue, tracker *evolution.Tracker, hub *Hub, metricsHandler http.Handler) *Server {
	return &Server{
		cfg:            cfg,
		store:          store,
		tracker:        tracker,
		hub:            hub,
		metricsHandler: metricsHandler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Router builds the full route table. Exposed for handler tests.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", s.handleIndex).Methods("GET")
	router.HandleFunc("/match/{id:[0-9]+}", s.handleMatchPage).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/matches", s.handleAPIMatches).Methods("GET")
	api.HandleFunc("/odds_evolution/{match_id:[0-9]+}", s.handleOddsEvolution).Methods("GET")

	router.HandleFunc("/ws", s.handleWebSocket)
	router.HandleFunc("/ping", s.handlePing).Methods("GET")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.metricsHandler != nil {
		router.Handle("/metrics", s.metricsHandler).Methods("GET")
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(router)
}

// Start blocks serving HTTP until Stop or a listener error.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	slog.Info("web: server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("web: server shutdown failed", "error", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("web: websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
