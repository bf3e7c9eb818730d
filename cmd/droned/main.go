// droned is the autonomous drone control daemon: it wires together the
// simulated or hardware drone backend, the waypoint autopilot, the
// reactive obstacle-avoidance navigator, the flight recorder, the
// failsafe monitor and the HTTP/WebSocket façade, then serves until
// signaled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/asgard/aegis/internal/apiserver"
	"github.com/asgard/aegis/internal/autopilot"
	"github.com/asgard/aegis/internal/camera"
	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/internal/failsafe"
	"github.com/asgard/aegis/internal/navigator"
	"github.com/asgard/aegis/internal/recorder"
	"github.com/asgard/aegis/internal/simdrone"
	"github.com/asgard/aegis/internal/tello"
	"github.com/asgard/aegis/internal/tracing"
	"github.com/asgard/aegis/internal/world"
	"github.com/asgard/aegis/pkg/utils"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"

	real           = flag.Bool("real", false, "use the hardware (Tello-protocol) backend instead of the simulator")
	host           = flag.String("host", "0.0.0.0", "HTTP API bind address")
	port           = flag.Int("port", 5000, "HTTP API bind port")
	telloLocalAddr = flag.String("tello-local-addr", "", "local interface to bind the Tello UDP sockets to (empty = all interfaces)")
	logLevel       = flag.String("log-level", "info", "log level: debug, info, warn, error")
	logOutput      = flag.String("log-output", "stdout", "log output: stdout or a file path")
	recordDir      = flag.String("record-dir", "", "directory for flight recorder segments (empty disables recording)")
	tracePretty    = flag.Bool("trace-pretty", false, "pretty-print exported trace spans (debugging only)")
)

func main() {
	_ = godotenv.Load()
	// LOG_LEVEL (from the environment or .env) supplies the default;
	// an explicit --log-level still wins.
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		_ = flag.Set("log-level", v)
	}
	flag.Parse()

	utils.Logger = utils.NewLogger(*logLevel, *logOutput)
	printBanner()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &Daemon{ctx: ctx, cancel: cancel}
	if err := d.Initialize(); err != nil {
		utils.Logger.WithError(err).Fatal("droned: initialization failed")
	}
	if err := d.Start(); err != nil {
		utils.Logger.WithError(err).Fatal("droned: start failed")
	}

	utils.Logger.Info("droned: operational, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	utils.Logger.Info("droned: shutdown signal received")
	if err := d.Shutdown(); err != nil {
		utils.Logger.WithError(err).Error("droned: shutdown error")
	}
	utils.Logger.Info("droned: shutdown complete")
}

// Daemon owns every long-lived collaborator for one drone-control
// session, in place of the process-wide singletons the original
// surface kept.
type Daemon struct {
	mu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	drone     drone.Drone
	autopilot *autopilot.Autopilot
	navigator *navigator.Navigator
	env       *world.Environment
	cam       *camera.Camera
	failsafe  *failsafe.Monitor
	recorder  *recorder.Recorder

	server     *apiserver.Server
	httpServer *http.Server
	traceStop  func(context.Context) error
}

// Initialize builds every collaborator; it performs no I/O that could
// block indefinitely (UDP sockets are opened lazily on Connect).
func (d *Daemon) Initialize() error {
	utils.Logger.Info("droned: initializing")

	stop, err := tracing.Init(d.ctx, *tracePretty)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	d.traceStop = stop

	if *recordDir != "" {
		session := time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
		rec, err := recorder.New(*recordDir, session)
		if err != nil {
			utils.Logger.WithError(err).Warn("droned: flight recorder disabled, failed to initialize")
		} else {
			d.recorder = rec
			utils.Logger.WithField("path", filepath.Join(*recordDir, session+".rec")).Info("droned: recording flight to disk")
		}
	}

	if *real {
		utils.Logger.Info("droned: using hardware (Tello) backend")
		d.drone = tello.New(*telloLocalAddr)
	} else {
		utils.Logger.Info("droned: using simulated backend")
		d.drone = simdrone.New(d.recorder)
	}

	d.env = world.DefaultEnvironment()
	d.cam = camera.New()
	d.autopilot = autopilot.New(d.drone)
	d.navigator = navigator.New(d.drone, d.cam, d.env)
	d.failsafe = failsafe.New(d.drone, failsafe.Config{})
	d.server = apiserver.New(d.drone, d.autopilot, d.navigator, d.env, d.cam)

	return nil
}

// Start launches the background workers (failsafe monitor, telemetry
// broadcaster) and the HTTP listener.
func (d *Daemon) Start() error {
	go func() {
		if err := d.failsafe.Run(d.ctx); err != nil && err != context.Canceled {
			utils.Logger.WithError(err).Warn("droned: failsafe monitor exited")
		}
	}()

	go d.server.RunTelemetryBroadcaster(d.ctx)

	addr := fmt.Sprintf("%s:%d", *host, *port)
	d.httpServer = &http.Server{
		Addr:    addr,
		Handler: d.server.Routes(),
	}

	ln := make(chan error, 1)
	go func() {
		utils.Logger.WithField("addr", addr).Info("droned: HTTP API listening")
		if err := d.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ln <- err
			return
		}
		ln <- nil
	}()

	select {
	case err := <-ln:
		if err != nil {
			return fmt.Errorf("http listen: %w", err)
		}
	case <-time.After(200 * time.Millisecond):
		// No immediate bind failure; server is up and running in the
		// background goroutine above.
	}
	return nil
}

// Shutdown stops every background worker and closes the HTTP server,
// the drone connection, and the flight recorder, in that order.
func (d *Daemon) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if d.httpServer != nil {
		if err := d.httpServer.Shutdown(shutdownCtx); err != nil {
			utils.Logger.WithError(err).Warn("droned: HTTP shutdown error")
		}
	}

	d.autopilot.Abort()
	d.navigator.Stop()
	d.drone.Disconnect()

	if d.recorder != nil {
		d.recorder.Close()
	}
	if d.traceStop != nil {
		if err := d.traceStop(shutdownCtx); err != nil {
			utils.Logger.WithError(err).Warn("droned: trace shutdown error")
		}
	}
	return nil
}

func printBanner() {
	fmt.Println("==============================================")
	fmt.Printf("  drone control daemon v%s (%s)\n", version, buildTime)
	fmt.Println("==============================================")
}
