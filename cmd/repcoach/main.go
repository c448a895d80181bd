package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/korefront/repcoach/internal/app"
	"github.com/korefront/repcoach/internal/capture"
	"github.com/korefront/repcoach/internal/catalog"
	"github.com/korefront/repcoach/internal/config"
	"github.com/korefront/repcoach/internal/evaluate"
	"github.com/korefront/repcoach/internal/overlay"
	"github.com/korefront/repcoach/internal/plugin"
	"github.com/korefront/repcoach/internal/pose"
	"github.com/korefront/repcoach/internal/server"
	"github.com/korefront/repcoach/internal/session"
	"github.com/korefront/repcoach/internal/store"
	"github.com/korefront/repcoach/internal/telemetry"
	"github.com/korefront/repcoach/internal/tray"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides REPCOACH_ADDR)")
	catalogPath := flag.String("catalog", "", "exercise catalog YAML (overrides REPCOACH_CATALOG)")
	envFile := flag.String("env", "", "dotenv file to load instead of ./.env")
	flag.Parse()

	fmt.Println("RepCoach - Exercise Repetition Coach")

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg := config.Load(envFiles...)
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *catalogPath != "" {
		cfg.CatalogPath = *catalogPath
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	if err := seedCatalog(st, cfg); err != nil {
		log.Fatalf("Failed to load exercise catalog: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event sinks and the frame writer outlive the HTTP server so the
	// events of sessions stopped during shutdown are still delivered.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	var bg sync.WaitGroup

	recorder := store.NewRecorder(st)
	sinks, closeSinks := buildSinks(ctx, cfg, recorder)
	defer closeSinks()

	dispatcher := session.NewDispatcher(session.DefaultBufferSize, sinks...)
	frames := st.NewFrameWriter(store.DefaultFrameWriterConfig())
	bg.Add(2)
	go func() {
		defer bg.Done()
		dispatcher.Run(bgCtx)
	}()
	go func() {
		defer bg.Done()
		frames.Run(bgCtx)
	}()

	manager := session.NewManager(session.ManagerConfig{
		Publisher: dispatcher,
		OnStart:   recorder.Begin,
	})

	live := server.NewLiveHandler()
	srvCfg := server.Config{
		StaticDir: findWebDir(cfg.StaticDir),
		Store:     st,
		Manager:   manager,
		Live:      live,
		Frames:    frames,
		Counter:   evaluate.Config{Interval: cfg.EvalInterval},
		Viewport:  overlay.Viewport{Width: capture.DefaultWidth, Height: capture.DefaultHeight},
		Facing:    overlay.ParseFacing(cfg.Facing),
	}
	if srvCfg.StaticDir != "" {
		fmt.Printf("Serving static files from: %s\n", srvCfg.StaticDir)
	}

	var pipeline *app.App
	if cfg.CaptureEnabled {
		pipeline = startPipeline(cfg)
		if pipeline != nil {
			pipeline.OnUpdate(live.Broadcast)
			srvCfg.Camera = pipeline
		}
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(srvCfg),
	}
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
			stop()
		}
	}()

	if cfg.Tray {
		runTray(ctx, stop, cfg, st, pipeline)
	} else {
		<-ctx.Done()
	}
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	if pipeline != nil {
		pipeline.Stop()
	}
	manager.StopAll()

	bgCancel()
	bg.Wait()
}

// seedCatalog inserts the configured catalog, or the built-in one, into st.
func seedCatalog(st *store.Store, cfg *config.Config) error {
	var entries []catalog.Entry
	var err error
	if cfg.CatalogPath != "" {
		entries, err = catalog.Load(cfg.CatalogPath)
	} else {
		entries, err = catalog.Builtin()
	}
	if err != nil {
		return err
	}
	_, err = catalog.Seed(st, entries, cfg.RepTarget)
	return err
}

// buildSinks returns the event sinks enabled by cfg. Optional sinks that
// fail to connect are logged and skipped.
func buildSinks(ctx context.Context, cfg *config.Config, recorder *store.Recorder) ([]session.Sink, func()) {
	sinks := []session.Sink{recorder}
	var closers []func()

	if cfg.MQTTBroker != "" {
		mqttCfg := telemetry.DefaultMQTTConfig()
		mqttCfg.Broker = cfg.MQTTBroker
		mqttCfg.ClientID = cfg.MQTTClientID
		mqttCfg.Username = cfg.MQTTUsername
		mqttCfg.Password = cfg.MQTTPassword
		mqttCfg.Topic = cfg.MQTTTopic

		if sink, err := telemetry.DialMQTT(mqttCfg); err != nil {
			log.Printf("MQTT disabled: %v", err)
		} else {
			sinks = append(sinks, sink)
			closers = append(closers, sink.Close)
		}
	}

	if cfg.ClickHouseAddr != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		sink, err := telemetry.DialClickHouse(dialCtx, telemetry.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePass,
		})
		cancel()
		if err != nil {
			log.Printf("ClickHouse disabled: %v", err)
		} else {
			sinks = append(sinks, sink)
			closers = append(closers, func() { sink.Close() })
		}
	}

	plugins := plugin.NewManager(cfg.PluginDir)
	if err := plugins.Discover(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	} else if n := len(plugins.List()); n > 0 {
		log.Printf("Loaded %d plugins from %s", n, plugins.PluginDir())
		sinks = append(sinks, plugin.NewHookSink(plugins, plugin.NewExecutor(plugin.DefaultTimeout)))
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}

// startPipeline opens the local camera. It returns nil when the camera is
// unavailable.
func startPipeline(cfg *config.Config) *app.App {
	camCfg := capture.DefaultConfig()
	camCfg.DeviceID = cfg.CameraID
	motion := capture.DefaultMotionConfig()
	motion.Threshold = cfg.MotionThreshold

	a := app.New(app.Config{
		Camera:   camCfg,
		Motion:   motion,
		Detector: pose.DefaultConfig(),
	})
	a.SetEnabled(true)
	if err := a.Start(); err != nil {
		log.Printf("Camera capture disabled: %v", err)
		return nil
	}
	return a
}

// runTray blocks in the system tray loop until the user quits or ctx ends.
func runTray(ctx context.Context, stop context.CancelFunc, cfg *config.Config, st *store.Store, pipeline *app.App) {
	t := tray.New()
	t.OnQuit(stop)
	t.OnSettings(func() { openBrowser("http://localhost" + cfg.Addr) })

	if pipeline != nil {
		t.OnToggle(pipeline.SetEnabled)

		var mu sync.Mutex
		names := make(map[string]string)
		pipeline.OnUpdate(func(s *session.Session, u session.Update) {
			mu.Lock()
			name, ok := names[s.ExerciseID()]
			if !ok {
				name = s.ExerciseID()
				if e, err := st.Exercises().GetByID(s.ExerciseID()); err == nil {
					name = e.Name
				}
				names[s.ExerciseID()] = name
			}
			mu.Unlock()
			t.SetProgress(name, u.Snapshot.RepCount, s.RepTarget(), u.Completed)
		})
	}

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}

// findWebDir returns dir when set, otherwise the first of "web",
// "../web", "../../web" and ~/.repcoach/web that exists.
func findWebDir(dir string) string {
	if dir != "" {
		return dir
	}

	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".repcoach", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
