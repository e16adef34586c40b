package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-traffic-sim/internal/ai"
	"github.com/ukydev/fleet-traffic-sim/internal/config"
	"github.com/ukydev/fleet-traffic-sim/internal/db"
	"github.com/ukydev/fleet-traffic-sim/internal/environment"
	"github.com/ukydev/fleet-traffic-sim/internal/incident"
	"github.com/ukydev/fleet-traffic-sim/internal/routing"
	"github.com/ukydev/fleet-traffic-sim/internal/sim"
	"github.com/ukydev/fleet-traffic-sim/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using process environment")
	}

	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}
	if os.Getenv("LOG_FORMAT") == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	cfg := config.FromEnv()

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.WithError(err).Warn("MongoDB disconnect failed")
		}
	}()
	database := client.Database(cfg.MongoDB)
	log.WithField("db", cfg.MongoDB).Info("Connected to MongoDB")

	vehicles := &db.MongoVehicleStore{Collection: database.Collection("vehicles")}
	zones := &db.MongoZoneStore{Collection: database.Collection("zones")}

	router := routing.NewClient(cfg.OSRMBaseURL, cfg.RouteTimeout)

	seed := time.Now().UnixNano()
	var weather environment.Provider
	if cfg.WeatherAPIURL != "" {
		weather = environment.NewHTTPProvider(cfg.WeatherAPIURL, 5*time.Second)
		log.WithField("url", cfg.WeatherAPIURL).Info("Live weather provider enabled")
	}
	env := environment.New(time.Now(), cfg.TimeScale, cfg.WeatherRefresh, weather, seed)
	feed := incident.NewFeed(seed)
	provider := ai.NewHeuristicProvider(cfg.DecisionCooldown)

	pub, err := telemetry.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		log.WithError(err).Warn("MQTT unavailable, telemetry publishing disabled")
	}
	defer pub.Close()

	engine := sim.New(cfg, vehicles, zones, router, env, feed, provider, pub)
	engine.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.WithField("signal", sig.String()).Info("Shutting down")
	engine.Stop()
}
