/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api provides the HTTP API served by the fleet registry.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	srHttp "github.com/carverauto/fleetradar/pkg/http"
	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/registry"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// APIServer routes device and operator requests to the registry services.
type APIServer struct {
	router     *mux.Router
	corsConfig models.CORSConfig
	enroller   Enroller
	dispatcher CommandDispatcher
	devices    DeviceReader
	apiKey     string
	logger     logger.Logger
}

// NewAPIServer creates a new API server instance with the given configuration.
func NewAPIServer(config models.CORSConfig, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: config,
		logger:     logger.NewTestLogger(),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithEnroller sets the registration and authentication service.
func WithEnroller(e Enroller) func(server *APIServer) {
	return func(server *APIServer) {
		server.enroller = e
	}
}

// WithDispatcher sets the command dispatcher.
func WithDispatcher(d CommandDispatcher) func(server *APIServer) {
	return func(server *APIServer) {
		server.dispatcher = d
	}
}

// WithDeviceReader sets the source of operator device views.
func WithDeviceReader(r DeviceReader) func(server *APIServer) {
	return func(server *APIServer) {
		server.devices = r
	}
}

// WithAPIKey requires X-API-Key on operator routes. Device routes are unaffected.
func WithAPIKey(key string) func(server *APIServer) {
	return func(server *APIServer) {
		server.apiKey = key
	}
}

// WithLogger sets the API logger.
func WithLogger(log logger.Logger) func(server *APIServer) {
	return func(server *APIServer) {
		if log != nil {
			server.logger = log
		}
	}
}

// Handler returns the routed handler wrapped in the common middleware.
func (s *APIServer) Handler() http.Handler {
	return srHttp.CommonMiddleware(s.router, s.corsConfig, s.logger)
}

func (s *APIServer) setupRoutes() {
	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	devices := s.router.PathPrefix("/api/devices").Subrouter()

	devices.HandleFunc("/register", s.registerDevice).Methods(http.MethodPost)
	devices.HandleFunc("/heartbeat", s.heartbeat).Methods(http.MethodPost)
	devices.HandleFunc("/{device_id}/commands", s.pollCommands).Methods(http.MethodGet)
	devices.HandleFunc("/{device_id}/commands/{command_id}/ack", s.ackCommand).Methods(http.MethodPost)

	operator := srHttp.APIKeyMiddlewareWithOptions(srHttp.APIKeyOptions{
		APIKey:          s.apiKey,
		LogUnauthorized: true,
		Logger:          s.logger,
	})

	devices.Handle("", operator(http.HandlerFunc(s.listDevices))).Methods(http.MethodGet)
	devices.Handle("/{device_id}", operator(http.HandlerFunc(s.getDevice))).Methods(http.MethodGet)
	devices.Handle("/{device_id}/commands", operator(http.HandlerFunc(s.enqueueCommand))).Methods(http.MethodPost)
}

// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (s *APIServer) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeStatus writes a bare status with no body.
func writeStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(statusCode)

	errResponse := models.ErrorResponse{
		Message: message,
		Status:  statusCode,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}

// writeServiceError maps service errors onto HTTP statuses.
func (s *APIServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrAuthFailure):
		writeError(w, "invalid or missing device key", http.StatusUnauthorized)
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, "device not found", http.StatusNotFound)
	default:
		s.logger.Error().Err(err).Msg("Request failed")
		writeError(w, "internal server error", http.StatusInternalServerError)
	}
}
