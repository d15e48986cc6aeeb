// Command icpw-node runs a single Sparkplug-B edge node backed by a
// NATS transport: a demonstration of wiring internal/config,
// internal/metrics, pkg/transport/natstransport, pkg/icpw/endpoint,
// and pkg/icpw/engine together into a runnable process, following the
// teacher's cmd/cc-backend main()/flag/graceful-shutdown shape.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icypaw-project/icypaw-core/internal/config"
	"github.com/icypaw-project/icypaw-core/internal/metrics"
	"github.com/icypaw-project/icypaw-core/internal/runtimeEnv"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/engine"
	"github.com/icypaw-project/icypaw-core/pkg/icpw/endpoint"
	"github.com/icypaw-project/icypaw-core/pkg/log"
	"github.com/icypaw-project/icypaw-core/pkg/transport/natstransport"
)

func main() {
	var flagConfigFile, flagLogLevel string
	var flagLogDateTime, flagGops bool
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Path to `config.json`")
	flag.StringVar(&flagLogLevel, "loglevel", "", "Overrides the configured log level: `[debug, info, warn, err, crit]`")
	flag.BoolVar(&flagLogDateTime, "logdate", false, "Add date and time to log messages")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.Parse()

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := runtimeEnv.LoadEnv("./.env"); err != nil && !os.IsNotExist(err) {
		log.Fatalf("parsing './.env' file failed: %s", err.Error())
	}

	if err := config.Init(flagConfigFile); err != nil {
		log.Fatalf("config: %s", err.Error())
	}

	log.SetLogDateTime(flagLogDateTime)
	if flagLogLevel != "" {
		log.SetLogLevel(flagLogLevel)
	} else if config.Keys.LogLevel != "" {
		log.SetLogLevel(config.Keys.LogLevel)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.New(reg)

	tr := natstransport.New()

	node := endpoint.NewNode(config.Keys.GroupID, config.Keys.EdgeNodeID,
		endpoint.WithDeviceClass("sensor", newSensorDeviceClass()),
		endpoint.WithOnConnect(func(n *endpoint.Node) {
			log.Infof("icpw-node: %s/%s is live", n.GroupID(), n.EdgeNodeID())
		}),
	)

	eng, err := engine.NewEngine(node, tr, engine.WithMetrics(collector))
	if err != nil {
		log.Fatalf("engine: %s", err.Error())
	}

	if _, err := node.RegisterDevice("sensor", "sensor-1"); err != nil {
		log.Fatalf("engine: registering demo device: %s", err.Error())
	}

	maintenance, err := startMaintenanceScheduler(node, config.Keys.RebirthInterval)
	if err != nil {
		log.Fatalf("maintenance scheduler: %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())

	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	err = eng.Connect(connectCtx, config.Keys.Transport.Host, config.Keys.Transport.Port)
	connectCancel()
	if err != nil {
		log.Fatalf("engine: connect: %s", err.Error())
	}

	metricsServer := &http.Server{
		Addr:    config.Keys.MetricsAddr,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	go func() {
		log.Infof("icpw-node: metrics listening at %s", config.Keys.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("icpw-node: metrics server: %s", err.Error())
		}
	}()

	adminServer := &http.Server{
		Addr:    config.Keys.AdminAddr,
		Handler: newAdminHandler(node),
	}
	go func() {
		log.Infof("icpw-node: admin surface listening at %s", config.Keys.AdminAddr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("icpw-node: admin server: %s", err.Error())
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("icpw-node: shutting down")
		runtimeEnv.SystemdNotifiy(false, "shutting down")
		cancel()
	}()

	runtimeEnv.SystemdNotifiy(true, "running")
	runErr := eng.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	metricsServer.Shutdown(shutdownCtx)
	adminServer.Shutdown(shutdownCtx)
	shutdownCancel()

	if maintenance != nil {
		if err := maintenance.Shutdown(); err != nil {
			log.Errorf("icpw-node: maintenance scheduler shutdown: %s", err.Error())
		}
	}

	if err := eng.Shutdown(); err != nil {
		log.Errorf("icpw-node: engine shutdown: %s", err.Error())
	}

	if runErr != nil && runErr != context.Canceled {
		log.Fatalf("icpw-node: engine run: %s", runErr.Error())
	}
	log.Print("icpw-node: graceful shutdown completed")
}
