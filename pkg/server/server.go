// Copyright 2024 The OutputWorker authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pulseworks/OutputWorker/pkg/devices"
)

// Config for the HTTP server.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	HTTPPort int
}

// Server runs the HTTP server for the service.
type Server struct {
	Config
	log     zerolog.Logger
	service devices.Service
}

// DeviceStatus is the JSON representation of a single device.
type DeviceStatus struct {
	Name  string    `json:"name"`
	Kind  string    `json:"kind"`
	Value []float64 `json:"value,omitempty"`
	Error string    `json:"error,omitempty"`
}

// New configures a new Server.
func New(cfg Config, log zerolog.Logger, service devices.Service) (*Server, error) {
	return &Server{
		Config:  cfg,
		log:     log.With().Str("component", "server").Logger(),
		service: service,
	}, nil
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	log := s.log
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.HTTPPort))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Fatal().Err(err).Msgf("failed to listen on address %s", httpAddr)
	}

	httpRouter := echo.New()
	httpRouter.HideBanner = true
	httpRouter.GET("/healthz", echo.WrapHandler(http.HandlerFunc(healthHandler)))
	httpRouter.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	httpRouter.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	httpRouter.GET("/devices", s.handleListDevices)
	httpRouter.GET("/devices/:name", s.handleGetDevice)
	httpSrv := http.Server{
		Handler: httpRouter,
	}

	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to serve HTTP server")
		}
		log.Debug().Str("address", httpAddr).Msg("Done Serving HTTP")
	}()

	// Wait until context closed
	<-ctx.Done()

	log.Info().Msg("Closing server")
	httpSrv.Shutdown(context.Background())

	return nil
}

// handleListDevices returns the status of all registered devices.
func (s *Server) handleListDevices(c echo.Context) error {
	names := s.service.DeviceNames()
	result := make([]DeviceStatus, 0, len(names))
	for _, name := range names {
		if dev, ok := s.service.DeviceByName(name); ok {
			result = append(result, deviceStatus(dev))
		}
	}
	return c.JSON(http.StatusOK, result)
}

// handleGetDevice returns the status of a single device.
func (s *Server) handleGetDevice(c echo.Context) error {
	name := c.Param("name")
	dev, ok := s.service.DeviceByName(name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "device not found")
	}
	return c.JSON(http.StatusOK, deviceStatus(dev))
}

func deviceStatus(dev devices.Device) DeviceStatus {
	status := DeviceStatus{
		Name: dev.Name(),
		Kind: dev.Kind(),
	}
	if value, err := dev.Value(); err != nil {
		status.Error = err.Error()
	} else {
		status.Value = value
	}
	return status
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK\n"))
}
