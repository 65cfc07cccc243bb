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

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/carverauto/fleetradar/pkg/dispatch"
	srHttp "github.com/carverauto/fleetradar/pkg/http"
	"github.com/carverauto/fleetradar/pkg/models"
)

var errDeviceMismatch = errors.New("device key does not belong to this device")

// decodeBody decodes a JSON body into dst. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}

	return err
}

// @Summary Register a device
// @Description Issues a new device id and credential. Every call creates a new device.
// @Tags Devices
// @Accept json
// @Produce json
// @Param request body models.RegistrationRequest true "Device description"
// @Success 200 {object} models.RegistrationResponse
// @Failure 400 {object} models.ErrorResponse "Malformed request"
// @Router /api/devices/register [post]
func (s *APIServer) registerDevice(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest

	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, "invalid registration request", http.StatusBadRequest)
		return
	}

	resp, err := s.enroller.Register(r.Context(), &req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// @Summary Device heartbeat
// @Tags Devices
// @Accept json
// @Param X-Device-Key header string true "Device credential"
// @Param request body models.HeartbeatRequest true "Telemetry"
// @Success 200
// @Failure 401 {object} models.ErrorResponse "Missing or unknown credential"
// @Router /api/devices/heartbeat [post]
func (s *APIServer) heartbeat(w http.ResponseWriter, r *http.Request) {
	credential := r.Header.Get(srHttp.DeviceKeyHeader)
	if credential == "" {
		writeError(w, "missing device key", http.StatusUnauthorized)
		return
	}

	var req models.HeartbeatRequest

	if err := decodeBody(w, r, &req, true); err != nil {
		writeError(w, "invalid heartbeat request", http.StatusBadRequest)
		return
	}

	if _, err := s.enroller.Heartbeat(r.Context(), credential, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeStatus(w, http.StatusOK)
}

// authorizeDevice checks an optional X-Device-Key against the device in the path.
// Requests without the header are let through.
func (s *APIServer) authorizeDevice(r *http.Request, deviceID string) error {
	credential := r.Header.Get(srHttp.DeviceKeyHeader)
	if credential == "" {
		return nil
	}

	owner, err := s.enroller.Authenticate(r.Context(), credential)
	if err != nil {
		return err
	}

	if owner != deviceID {
		return errDeviceMismatch
	}

	return nil
}

// @Summary Poll pending commands
// @Description Removes and returns up to max pending commands in enqueue order.
// @Tags Commands
// @Produce json
// @Param device_id path string true "Device ID"
// @Param max query int false "Batch size (default 10)"
// @Success 200 {array} models.CommandView
// @Failure 401 {object} models.ErrorResponse "Device key rejected"
// @Router /api/devices/{device_id}/commands [get]
func (s *APIServer) pollCommands(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["device_id"]

	if err := s.authorizeDevice(r, deviceID); err != nil {
		writeError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	limit := dispatch.DefaultPollBatch

	if raw := r.URL.Query().Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, "max must be an integer", http.StatusBadRequest)
			return
		}

		limit = n
	}

	commands, err := s.dispatcher.Poll(r.Context(), deviceID, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if commands == nil {
		commands = []models.CommandView{}
	}

	s.writeJSON(w, http.StatusOK, commands)
}

// @Summary Acknowledge a command
// @Tags Commands
// @Accept json
// @Param device_id path string true "Device ID"
// @Param command_id path string true "Command ID"
// @Param request body models.AckCommandRequest true "Outcome"
// @Success 200
// @Failure 404 {object} models.ErrorResponse "Device not found"
// @Router /api/devices/{device_id}/commands/{command_id}/ack [post]
func (s *APIServer) ackCommand(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deviceID := vars["device_id"]
	commandID := vars["command_id"]

	if err := s.authorizeDevice(r, deviceID); err != nil {
		writeError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req models.AckCommandRequest

	if err := decodeBody(w, r, &req, true); err != nil {
		writeError(w, "invalid acknowledgment", http.StatusBadRequest)
		return
	}

	if err := s.dispatcher.Ack(r.Context(), deviceID, commandID, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeStatus(w, http.StatusOK)
}

// @Summary List devices
// @Tags Devices
// @Produce json
// @Success 200 {array} models.DeviceView
// @Router /api/devices [get]
// @Security ApiKeyAuth
func (s *APIServer) listDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListDevices(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, devices)
}

// @Summary Get device
// @Tags Devices
// @Produce json
// @Param device_id path string true "Device ID"
// @Success 200 {object} models.DeviceView
// @Failure 404 {object} models.ErrorResponse "Device not found"
// @Router /api/devices/{device_id} [get]
// @Security ApiKeyAuth
func (s *APIServer) getDevice(w http.ResponseWriter, r *http.Request) {
	device, err := s.devices.GetDevice(r.Context(), mux.Vars(r)["device_id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, device)
}

// @Summary Enqueue a command
// @Tags Commands
// @Accept json
// @Produce json
// @Param device_id path string true "Device ID"
// @Param request body models.EnqueueCommandRequest true "Command"
// @Success 200 {object} models.CommandView
// @Failure 400 {object} models.ErrorResponse "Malformed request"
// @Failure 404 {object} models.ErrorResponse "Device not found"
// @Router /api/devices/{device_id}/commands [post]
// @Security ApiKeyAuth
func (s *APIServer) enqueueCommand(w http.ResponseWriter, r *http.Request) {
	var req models.EnqueueCommandRequest

	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, "invalid command", http.StatusBadRequest)
		return
	}

	cmd, err := s.dispatcher.Enqueue(r.Context(), mux.Vars(r)["device_id"], &req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, cmd)
}
