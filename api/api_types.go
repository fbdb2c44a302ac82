package api

import (
	"net/http"

	"github.com/quantview/backtester/engine"
	"github.com/quantview/backtester/store"
	"github.com/sirupsen/logrus"
)

// Server exposes run control over REST
type Server struct {
	manager *engine.RunManager
	store   *store.Store
	log     *logrus.Logger
	srv     *http.Server
}

// errorResponse is the uniform error body
type errorResponse struct {
	Error string `json:"error"`
}

// strategyResponse describes one registered strategy
type strategyResponse struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters"`
}

// runResponse is the live view of a run before it seals
type runResponse struct {
	ID         string            `json:"id"`
	Status     engine.Status     `json:"status"`
	Checkpoint engine.Checkpoint `json:"checkpoint"`
}
