//    Copyright 2024 The OutputWorker authors
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/pulseworks/OutputWorker/pkg/channel"
	"github.com/pulseworks/OutputWorker/pkg/devices"
	"github.com/pulseworks/OutputWorker/pkg/environment"
	"github.com/pulseworks/OutputWorker/pkg/hal"
	"github.com/pulseworks/OutputWorker/pkg/logging"
	"github.com/pulseworks/OutputWorker/pkg/server"
)

const (
	projectName       = "OutputWorker"
	defaultServerPort = 7133
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack
)

func main() {
	var levelFlag string
	var serverHost string
	var serverPort int
	var boardType string
	var mqttBroker string
	var mqttPrefix string
	var statusLEDPin int
	var mqttLogs bool

	pflag.StringVarP(&levelFlag, "level", "l", "debug", "Set log level")
	pflag.StringVarP(&boardType, "board", "b", "auto", "Type of board to use (auto|virtual|rpi|mqtt)")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the HTTP server will listen on")
	pflag.IntVar(&serverPort, "port", defaultServerPort, "Port the HTTP server will listen on")
	pflag.StringVar(&mqttBroker, "mqtt-broker", "tcp://localhost:1883", "URL of the MQTT broker (board=mqtt, --mqtt-logs)")
	pflag.StringVar(&mqttPrefix, "mqtt-prefix", "/outputworker/", "MQTT topic prefix (board=mqtt)")
	pflag.IntVar(&statusLEDPin, "status-led-pin", 25, "GPIO pin of the status LED (<0 to disable)")
	pflag.BoolVar(&mqttLogs, "mqtt-logs", false, "Also publish logs to the MQTT broker")
	pflag.Parse()

	logOutput := logging.NewMultiWriter(zerolog.ConsoleWriter{Out: os.Stderr})
	logger := zerolog.New(logOutput).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(levelFlag); err != nil {
		Exitf("Unknown log level '%s'\n", levelFlag)
	} else {
		logger = logger.Level(level)
	}

	if boardType == "auto" {
		boardType = environment.AutoDetectBoardType(logger)
		logger.Info().Str("board", boardType).Msg("Detected board type")
	}
	newPin, err := pinFactory(logger, boardType, mqttBroker, mqttPrefix)
	if err != nil {
		Exitf("Failed to initialize %s board: %v\n", boardType, err)
	}

	registry := channel.NewRegistry()
	events := devices.NewEventBus(logger)
	svc := devices.NewService(logger)
	deps := devices.Dependencies{
		Log:      logger,
		Events:   events,
		Registry: registry,
	}

	// Log terminal pattern states so playback is visible in the
	// worker output.
	events.RegisterSequenceListener(func(evt devices.SequenceEvent) error {
		logger.Debug().
			Str("device", evt.Device).
			Str("state", evt.State.String()).
			Msg("Pattern finished")
		return nil
	})

	var statusLED *devices.DigitalOutput
	if statusLEDPin >= 0 {
		pin, err := newPin(statusLEDPin)
		if err != nil {
			Exitf("Failed to open status LED pin %d: %v\n", statusLEDPin, err)
		}
		statusLED, err = devices.NewDigitalOutput(devices.DigitalOutputConfig{
			Name: "status-led",
		}, pin, deps)
		if err != nil {
			Exitf("Failed to initialize status LED: %v\n", err)
		}
		if err := svc.Register(statusLED); err != nil {
			Exitf("Failed to register status LED: %v\n", err)
		}
	}

	httpServer, err := server.New(server.Config{
		Host:     serverHost,
		HTTPPort: serverPort,
	}, logger, svc)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	if mqttLogs {
		opts := paho.NewClientOptions().AddBroker(mqttBroker).SetClientID("outputworker-logs")
		client := paho.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			logger.Warn().Err(token.Error()).Msg("Failed to connect MQTT log output")
		} else {
			mw := logging.NewMQTTWriter(ctx)
			mw.SetDestination(ensureTrailingSlash(mqttPrefix)+"logs", client)
			mw.Enable(true)
			logOutput.Add(mw)
		}
	}

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	if statusLED != nil {
		if err := statusLED.Blink(ctx, devices.BlinkOptions{
			OnTime:  time.Second / 2,
			OffTime: time.Second / 2,
		}); err != nil {
			Exitf("Failed to start status LED: %v\n", err)
		}
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Run(ctx) })
	err = g.Wait()
	if closeErr := svc.Close(); closeErr != nil {
		logger.Warn().Err(closeErr).Msg("Failed to close devices")
	}
	if err != nil && err != context.Canceled {
		Exitf("Service run failed: %#v", err)
	}
}

// pinFactory returns a constructor for pins on the selected board
// type.
func pinFactory(logger zerolog.Logger, boardType, mqttBroker, mqttPrefix string) (func(pin int) (hal.Pin, error), error) {
	switch boardType {
	case "virtual":
		return func(pin int) (hal.Pin, error) {
			return hal.NewVirtualPin(), nil
		}, nil
	case "rpi":
		return func(pin int) (hal.Pin, error) {
			result, err := hal.NewLinuxPin(pin)
			if err != nil {
				return nil, maskAny(err)
			}
			return result, nil
		}, nil
	case "mqtt":
		return func(pin int) (hal.Pin, error) {
			result, err := hal.NewMQTTPin(logger, hal.MQTTPinConfig{
				BrokerAddress: mqttBroker,
				ClientID:      fmt.Sprintf("outputworker-pin%d", pin),
				TopicPrefix:   fmt.Sprintf("%spin%d/", ensureTrailingSlash(mqttPrefix), pin),
			})
			if err != nil {
				return nil, maskAny(err)
			}
			if c, ok := result.(hal.Configurable); ok {
				if err := c.Configure(); err != nil {
					return nil, maskAny(err)
				}
			}
			return result, nil
		}, nil
	default:
		return nil, maskAny(fmt.Errorf("unknown board type '%s' (virtual|rpi|mqtt)", boardType))
	}
}

func ensureTrailingSlash(s string) string {
	if !strings.HasSuffix(s, "/") {
		return s + "/"
	}
	return s
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
