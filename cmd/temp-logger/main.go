// Command temp-logger samples DS18B20 one-wire sensors, journals measurement
// sessions to disk and exports them as CSV, XLSX, JSON and a PDF plot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sweeney/temp-logger/internal/config"
	"github.com/sweeney/temp-logger/internal/export"
	"github.com/sweeney/temp-logger/internal/gpio"
	"github.com/sweeney/temp-logger/internal/mqtt"
	"github.com/sweeney/temp-logger/internal/onewire"
	"github.com/sweeney/temp-logger/internal/scheduler"
	"github.com/sweeney/temp-logger/internal/session"
	"github.com/sweeney/temp-logger/internal/status"
	"github.com/sweeney/temp-logger/internal/web"
)

func main() {
	results := flag.String("results", "results", "Folder measurement sessions are written to")
	counter := flag.String("counter", "", "Session counter file (default <results>/session_counter.json)")
	configPath := flag.String("config", "temp_log_config.json", "Settings and condition rules file")
	broker := flag.String("broker", "", "MQTT broker address (empty to disable MQTT)")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	ledPin := flag.Int("pin-led", gpio.DefaultPinLED, "BCM pin number for the measurement LED (-1 to disable)")
	printSensors := flag.Bool("print-sensors", false, "Print detected sensors and their temperatures, then exit")
	autoStart := flag.Bool("start", false, "Start a measurement immediately on boot")

	flag.Parse()

	counterPath := *counter
	if counterPath == "" {
		counterPath = filepath.Join(*results, "session_counter.json")
	}

	if err := run(*results, counterPath, *configPath, *broker, *httpAddr, *ledPin, *printSensors, *autoStart); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(results, counterPath, configPath, broker, httpAddr string, ledPin int, printSensors, autoStart bool) error {
	// Initialize the one-wire bus
	reader, err := onewire.NewRealReader()
	if err != nil {
		return fmt.Errorf("init one-wire: %w", err)
	}
	defer reader.Close()

	sampler := onewire.NewSampler(reader)
	n, err := sampler.Init()
	if err != nil {
		return fmt.Errorf("enumerate sensors: %w", err)
	}
	if n == 0 {
		log.Printf("no one-wire sensors found; check the w1-gpio overlay and wiring")
	} else {
		log.Printf("found %d sensor(s)", n)
	}

	// Print-sensors mode
	if printSensors {
		reading := sampler.ReadAll(time.Now())
		for _, ch := range sampler.Channels() {
			v := reading.Values[ch.ID]
			if v.Valid {
				fmt.Printf("%s (%s): %.3f °C\n", ch.ID, ch.Name, v.Temp)
			} else {
				fmt.Printf("%s (%s): ERROR\n", ch.ID, ch.Name)
			}
		}
		return nil
	}

	// Load settings and condition rules
	settings := loadSettings(configPath, sampler.IDs())

	// Initialize MQTT
	var publisher mqtt.Publisher
	var connStatus mqtt.ConnectionStatus
	if broker != "" {
		real, err := mqtt.NewRealPublisher(broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer real.Close()
		publisher = real
		connStatus = real
	}

	// Measurement LED
	var indicator gpio.Indicator = gpio.Nop{}
	if ledPin >= 0 {
		led, err := gpio.NewRealIndicator(ledPin)
		if err != nil {
			log.Printf("init led on pin %d: %v (continuing without)", ledPin, err)
		} else {
			defer led.Close()
			indicator = led
		}
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		LogIntervalSec:  settings.LogInterval,
		ViewIntervalSec: settings.ViewInterval,
		Broker:          broker,
		HTTPAddr:        httpAddr,
		ResultsFolder:   results,
	})
	tracker.SetSensors(n)
	tracker.SetState(string(scheduler.StateIdle))

	sessions := session.NewManager(results, counterPath)
	// Headless service: existing export artifacts are replaced, with a log
	// line instead of a prompt.
	exporter := export.NewExporter(func(f export.Format) bool {
		log.Printf("export: %s already written for this session, overwriting", f)
		return true
	})

	controller := scheduler.New(sampler, sessions, exporter, tracker, publisher, indicator)
	if err := controller.ApplySettings(settings); err != nil {
		return fmt.Errorf("apply settings: %w", err)
	}

	// Publish startup event
	if publisher != nil {
		event := mqtt.SystemEvent{
			Timestamp: time.Now(),
			Event:     "STARTUP",
			Retained:  true,
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		}
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, controller)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: results=%s broker=%s http=%s", results, broker, httpAddr)

	if autoStart {
		if err := controller.Start(); err != nil {
			log.Printf("auto-start: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	refresh := time.NewTicker(time.Second)
	defer refresh.Stop()

	for {
		select {
		case s := <-sigCh:
			log.Printf("received %v, shutting down", s)
			return shutdown(controller, publisher, s)
		case <-refresh.C:
			if connStatus != nil {
				tracker.SetMQTTConnected(connStatus.IsConnected())
			}
		}
	}
}

// loadSettings reads the rules file, performing the one-time migration from
// the old flat-threshold schema. A missing or broken file falls back to the
// defaults.
func loadSettings(path string, sensorIDs []string) config.Settings {
	settings := config.DefaultSettings()
	if path == "" {
		return settings
	}

	res, err := config.Load(path, settings)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("config: %v (using defaults)", err)
		}
		return settings
	}
	settings = res.Settings

	if res.Legacy {
		start, stop := config.ConvertLegacy(res.LegacyStart, res.LegacyStop, sensorIDs)
		settings.StartConditions = start
		settings.StopConditions = stop
		if err := config.Save(path, settings); err != nil {
			log.Printf("config: migrate legacy thresholds: %v", err)
		} else {
			log.Printf("config: migrated legacy thresholds to condition rules")
		}
	}
	return settings
}

// shutdown seals a running measurement so its data is exported before the
// process exits, then publishes the shutdown event.
func shutdown(controller *scheduler.Controller, publisher mqtt.Publisher, s os.Signal) error {
	if st := controller.State(); st == scheduler.StateRunning || st == scheduler.StateWaiting {
		if err := controller.Stop(); err != nil {
			log.Printf("stop measurement: %v", err)
		}
		deadline := time.Now().Add(30 * time.Second)
		for controller.State() != scheduler.StateIdle && time.Now().Before(deadline) {
			time.Sleep(100 * time.Millisecond)
		}
		if controller.State() != scheduler.StateIdle {
			log.Printf("export did not finish before shutdown deadline")
		}
	}

	if publisher != nil {
		signalName := "SIGTERM"
		if s == syscall.SIGINT {
			signalName = "SIGINT"
		}
		event := mqtt.SystemEvent{
			Timestamp: time.Now(),
			Event:     "SHUTDOWN",
			Reason:    signalName,
			Retained:  true,
		}
		if err := publisher.PublishSystem(event); err != nil {
			log.Printf("failed to publish shutdown event: %v", err)
		}
	}
	return nil
}
