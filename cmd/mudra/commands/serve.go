package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/texture"
	"github.com/ayusman/mudra/internal/tray"
)

var (
	flagAddr       string
	flagModel      string
	flagMode       string
	flagDecimation int
	flagGestures   bool
	flagCamera     int
	flagStatic     string
	flagTray       bool
	flagAutoStart  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline and serve cutouts over HTTP",
	Long: `Run the camera pipeline and the HTTP server.

The server exposes session control under /api/session, the latest
cutouts under /api/textures, MJPEG streams under /api/stream and a
WebSocket of publish markers and gesture slots at /api/updates.

Example:
  mudra serve --model deeplabv3.onnx --mode dual --decimation 2`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address")
	serveCmd.Flags().StringVar(&flagModel, "model", "", "Segmentation model file")
	serveCmd.Flags().StringVar(&flagMode, "mode", "", "Cutout mode (single, dual)")
	serveCmd.Flags().IntVar(&flagDecimation, "decimation", 0, "Run inference on every k-th tick")
	serveCmd.Flags().BoolVar(&flagGestures, "gestures", true, "Recognise hand gestures")
	serveCmd.Flags().IntVar(&flagCamera, "camera", 0, "Camera device index")
	serveCmd.Flags().StringVar(&flagStatic, "static", "", "Directory of viewer files to serve at /")
	serveCmd.Flags().BoolVar(&flagTray, "tray", false, "Show a system tray control")
	serveCmd.Flags().BoolVar(&flagAutoStart, "autostart", true, "Start processing immediately")
}

// applyServeFlags overrides env settings with flags the user passed.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr = flagAddr
	}
	if f.Changed("model") {
		cfg.ModelPath = flagModel
	}
	if f.Changed("mode") {
		cfg.Mode = flagMode
	}
	if f.Changed("decimation") {
		cfg.Decimation = flagDecimation
	}
	if f.Changed("gestures") {
		cfg.Gestures = flagGestures
	}
	if f.Changed("camera") {
		cfg.CameraID = flagCamera
	}
	if f.Changed("static") {
		cfg.StaticDir = flagStatic
	}
	if f.Changed("tray") {
		cfg.Tray = flagTray
	}
	if f.Changed("autostart") {
		cfg.AutoStart = flagAutoStart
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyServeFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	log := logrus.NewEntry(logger)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	seeded, err := app.SeedTemplates(st.Templates())
	if err != nil {
		return fmt.Errorf("seed templates: %w", err)
	}
	if seeded > 0 {
		log.WithField("count", seeded).Info("Seeded built-in gesture templates")
	}

	bridge := texture.NewBridge()
	ctrl := app.NewController(bridge, func() (*app.Session, error) {
		return app.New(app.Config{
			Options:       cfg.Options(),
			Source:        capture.NewCamera(cfg.CameraID, cfg.CameraWidth, cfg.CameraHeight, cfg.CameraFPS),
			OpenSegmenter: app.DNNSegmenter(cfg.Segment()),
			OpenGestures:  app.LandmarkGestures(cfg.Detector(), st, log),
			Bridge:        bridge,
			Store:         st,
			Logger:        log,
		})
	})
	defer func() {
		if err := ctrl.Stop(); err != nil {
			log.WithError(err).Warn("Session stop reported errors")
		}
	}()

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	if staticDir != "" {
		log.WithField("dir", staticDir).Info("Serving viewer files")
	}

	srv := server.New(server.Config{
		StaticDir:  staticDir,
		Store:      st,
		Controller: ctrl,
		Bridge:     bridge,
		Logger:     log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(cfg.Addr)
		cancel()
	}()

	if cfg.AutoStart {
		go func() {
			if err := ctrl.Start(ctx); err != nil {
				log.WithError(err).Error("Failed to start processing")
			}
		}()
	}

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if cfg.Tray {
		t := tray.New(ctrl, log)
		t.OnOpen(func() { openBrowser(log, "http://"+cfg.Addr) })
		t.OnQuit(cancel)
		go func() {
			select {
			case <-sigCh:
			case <-ctx.Done():
			}
			t.Quit()
		}()
		// systray needs the main goroutine.
		t.Run()
		cancel()
	} else {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
	}

	log.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown did not complete")
	}

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-shutdownCtx.Done():
	}
	return nil
}

// findWebDir searches for the viewer directory in common locations: "web",
// "../web", "../../web", then web inside the data directory. Returns the
// first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	dataWeb := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWeb); err == nil && info.IsDir() {
		return dataWeb
	}
	return ""
}

func openBrowser(log *logrus.Entry, url string) {
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
		log.WithError(err).Warn("Failed to open browser")
	}
}
