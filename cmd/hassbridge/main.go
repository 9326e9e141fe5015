// Indigo → Home Assistant MQTT Discovery Bridge
//
// Mirrors an Indigo home-automation controller's devices and variables
// into Home Assistant: retained discovery configs, availability, state
// and attribute topics, command handling, and Insteon/Z-Wave event
// forwarding to the Home Assistant REST API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/indigo-hass-bridge/migrations"

	"github.com/nerrad567/indigo-hass-bridge/internal/api"
	"github.com/nerrad567/indigo-hass-bridge/internal/bridge"
	"github.com/nerrad567/indigo-hass-bridge/internal/entity"
	"github.com/nerrad567/indigo-hass-bridge/internal/hass"
	"github.com/nerrad567/indigo-hass-bridge/internal/history"
	"github.com/nerrad567/indigo-hass-bridge/internal/indigo"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/config"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/database"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/indigo-hass-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/indigo-hass-bridge/internal/insteon"
	"github.com/nerrad567/indigo-hass-bridge/internal/variable"
	"github.com/nerrad567/indigo-hass-bridge/internal/virtual"
	"github.com/nerrad567/indigo-hass-bridge/internal/zwave"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// prunePeriod is how often the state history retention sweep runs.
const prunePeriod = 24 * time.Hour

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting indigo-hass-bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// A broken access token is a copy/paste mistake, not a reason to
	// refuse to mirror devices. Event delivery will 401 until fixed.
	if tokenErr := cfg.CheckAccessToken(); tokenErr != nil {
		log.Warn("Home Assistant access token check failed", "error", tokenErr)
	}

	// Connect to the MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	transport := &mqttTransport{client: mqttClient}

	// State history (optional): sqlite log plus influx forwarding
	var recorder *history.Recorder
	var publisher entity.Publisher = transport
	if cfg.History.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.History.Path,
			WALMode:     true,
			BusyTimeout: 5,
		})
		if dbErr != nil {
			return fmt.Errorf("opening history database: %w", dbErr)
		}
		defer func() {
			log.Info("closing history database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing history database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running history migrations: %w", migrateErr)
		}
		log.Info("history database ready", "path", cfg.History.Path)

		var influxClient *influxdb.Client
		if cfg.History.Influx.Enabled {
			influxClient, err = influxdb.Connect(cfg.History.Influx)
			if err != nil {
				return fmt.Errorf("connecting to InfluxDB: %w", err)
			}
			defer func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			influxClient.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			log.Info("InfluxDB connected",
				"url", cfg.History.Influx.URL,
				"bucket", cfg.History.Influx.Bucket,
			)
		}

		recorder = history.New(db, influxClient, log)
		publisher = history.NewRecordingPublisher(transport, recorder)
		go runPruneLoop(ctx, recorder, cfg.History.RetentionDays, log)
	}

	// Home Assistant REST client
	hassClient := hass.New(cfg.Hass)
	log.Info("Home Assistant client ready", "url", cfg.Hass.URL)

	// Customization overrides
	customizations := entity.Customizations{}
	if cfg.Customize.Enabled {
		customizations, err = bridge.LoadCustomizations(cfg.Customize.Path)
		if err != nil {
			log.Error("customization file unavailable, continuing without overrides",
				"path", cfg.Customize.Path,
				"error", err,
			)
		}
		deviceKnown := func(name string) bool {
			return insteon.KnownBridgeType(name) ||
				zwave.KnownBridgeType(name) ||
				virtual.KnownBridgeType(name)
		}
		if validateErr := bridge.ValidateBridgeTypes(customizations, deviceKnown, variable.KnownBridgeType); validateErr != nil {
			return fmt.Errorf("validating customizations: %w", validateErr)
		}
		log.Info("customizations loaded",
			"devices", len(customizations.Devices),
			"variables", len(customizations.Variables),
		)
	}

	// Upstream command channel and entity environment
	commander := indigo.NewCommander(transport, cfg.Indigo.TopicPrefix, byte(cfg.MQTT.QoS))
	env := entity.Env{
		Publisher:       publisher,
		Commander:       commander,
		Logger:          log,
		DiscoveryPrefix: cfg.Discovery.Prefix,
	}
	settings := entity.GeneratorSettings{
		EventPrefix:          cfg.Discovery.EventPrefix,
		CreateBatterySensors: cfg.Features.CreateBatterySensors,
		CreateLEDBacklights:  cfg.Features.CreateLEDBacklightLights,
		InsteonNoCommMinutes: cfg.Features.InsteonNoCommMinutes,
		Customizations:       customizations,
	}

	// Bridge controller
	registry := indigo.NewRegistry()
	controller := bridge.New(bridge.Deps{
		Registry: registry,
		DeviceGenerators: []bridge.DeviceGenerator{
			&insteon.Generator{Env: env, Commander: commander, Settings: settings},
			&zwave.Generator{Env: env, Settings: settings},
			&virtual.Generator{Env: env, Settings: settings},
		},
		VariableGenerators: []bridge.VariableGenerator{
			&variable.Generator{Env: env, Settings: settings},
		},
		HA:       hassClient,
		Recorder: eventRecorder(recorder),
		Logger:   log,
	})
	defer func() {
		log.Info("stopping bridge controller")
		controller.Stop()
	}()

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT session established")
		controller.HandleConnect()
	})
	mqttClient.SetOnDisconnect(func(err error) {
		controller.HandleDisconnect(err)
	})

	// Upstream feed: retained snapshots replay as soon as we subscribe
	feed, err := indigo.NewFeed(indigo.FeedDeps{
		Uplink:      transport,
		Registry:    registry,
		Notifier:    controller,
		TopicPrefix: cfg.Indigo.TopicPrefix,
		QoS:         byte(cfg.MQTT.QoS),
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("creating upstream feed: %w", err)
	}
	if err := feed.Start(); err != nil {
		return fmt.Errorf("starting upstream feed: %w", err)
	}
	defer func() {
		log.Info("stopping upstream feed")
		feed.Stop()
	}()
	log.Info("upstream feed started", "prefix", cfg.Indigo.TopicPrefix)

	// The broker connection was up before the callbacks were wired, so
	// register the initial entity set explicitly.
	controller.HandleConnect()

	// Status server (optional)
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Bridge:  controller,
			History: historian(recorder),
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating status server: %w", apiErr)
		}
		server.Start()
		defer func() {
			log.Info("stopping status server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if closeErr := server.Close(shutdownCtx); closeErr != nil {
				log.Error("error stopping status server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, mirroring", "refresh_interval", cfg.GetRefreshInterval())

	controller.Run(ctx, cfg.GetRefreshInterval())

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HASSBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HASSBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// eventRecorder avoids handing the controller a typed-nil interface
// when history is disabled.
func eventRecorder(rec *history.Recorder) bridge.EventRecorder {
	if rec == nil {
		return nil
	}
	return rec
}

// historian avoids handing the status server a typed-nil interface
// when history is disabled.
func historian(rec *history.Recorder) api.Historian {
	if rec == nil {
		return nil
	}
	return rec
}

// runPruneLoop sweeps expired state history rows once at startup and
// then daily.
func runPruneLoop(ctx context.Context, rec *history.Recorder, retentionDays int, log *logging.Logger) {
	if retentionDays <= 0 {
		return
	}

	prune := func() {
		n, err := rec.Prune(ctx, retentionDays)
		if err != nil {
			log.Warn("state history prune failed", "error", err)
			return
		}
		if n > 0 {
			log.Info("state history pruned", "rows", n, "retention_days", retentionDays)
		}
	}

	prune()
	ticker := time.NewTicker(prunePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// mqttTransport adapts the infrastructure MQTT client to the entity
// Publisher and indigo Uplink interfaces. The only difference is the
// Subscribe handler signature: the infrastructure client's handlers
// return an error, entity handlers do not.
type mqttTransport struct {
	client *mqtt.Client
}

func (t *mqttTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return t.client.Publish(topic, payload, qos, retained)
}

func (t *mqttTransport) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return t.client.Subscribe(topic, qos, func(topic string, payload []byte) error {
		handler(topic, payload)
		return nil
	})
}

func (t *mqttTransport) Unsubscribe(topic string) error {
	return t.client.Unsubscribe(topic)
}

func (t *mqttTransport) IsConnected() bool {
	return t.client.IsConnected()
}
