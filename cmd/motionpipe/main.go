// Command motionpipe is a headless demo harness: it reads frames from
// a video source, runs them through the motion pipeline and logs the
// consolidated regions it finds. Its runtime configuration, signal
// handling and shutdown sequencing are grounded on the teacher's
// cmd/otsu-obliterator/main.go, stripped of its GUI event loop.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"motionpipe/internal/config"
	"motionpipe/internal/logger"
	"motionpipe/internal/pipeline"
	"motionpipe/internal/safemat"
)

func main() {
	configureRuntime()

	var (
		source     = flag.String("source", "0", "video source: camera index or file path")
		configPath = flag.String("config", "", "path to a YAML config file (defaults used if empty)")
		logLevel   = flag.String("log-level", "info", "debug, info, warn, or error")
	)
	flag.Parse()

	appLogger := logger.NewConsole(parseLevel(*logLevel))

	opts, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("motionpipe: config: %v", err)
	}

	pl := pipeline.New(opts, appLogger)
	defer pl.Close()

	capture, err := openSource(*source)
	if err != nil {
		log.Fatalf("motionpipe: open source %q: %v", *source, err)
	}
	defer capture.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	stop := make(chan struct{})
	go func() {
		<-sigCh
		appLogger.Info("motionpipe", "shutdown signal received", nil)
		close(stop)
	}()

	go logDiagnosticsPeriodically(pl, appLogger, stop)

	appLogger.Info("motionpipe", "pipeline started", map[string]interface{}{"source": *source})
	runCaptureLoop(capture, pl, appLogger, stop)
	appLogger.Info("motionpipe", "pipeline stopped", nil)
}

func configureRuntime() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	runtime.SetGCPercent(200)
	if os.Getenv("GOMEMLIMIT") == "" {
		os.Setenv("GOMEMLIMIT", "2GiB")
	}
}

func loadConfig(path string) (config.Options, error) {
	if path == "" {
		return config.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return config.Options{}, err
	}
	defer f.Close()
	return config.FromYAML(f)
}

func openSource(source string) (*gocv.VideoCapture, error) {
	if index, err := strconv.Atoi(source); err == nil {
		return gocv.OpenVideoCapture(index)
	}
	return gocv.VideoCaptureFile(source)
}

func runCaptureLoop(capture *gocv.VideoCapture, pl *pipeline.Pipeline, appLog logger.Logger, stop <-chan struct{}) {
	frame := gocv.NewMat()
	defer frame.Close()

	for {
		select {
		case <-stop:
			return
		default:
		}

		if ok := capture.Read(&frame); !ok || frame.Empty() {
			return
		}

		sm, err := safemat.FromMat(frame, "capture")
		if err != nil {
			appLog.Error("motionpipe", err, map[string]interface{}{"stage": "capture"})
			continue
		}

		result, err := pl.ProcessFrame(sm)
		sm.Close()
		if err != nil {
			appLog.Error("motionpipe", err, map[string]interface{}{"stage": "process"})
			continue
		}

		if result.HasMotion {
			appLog.Info("motionpipe", "motion detected", map[string]interface{}{
				"rectangles": len(result.Rectangles),
				"regions":    len(result.Regions),
			})
		}

		for _, m := range []*safemat.Mat{result.Processed, result.Diff, result.Mask, result.Cleaned} {
			if m != nil {
				m.Close()
			}
		}
	}
}

func logDiagnosticsPeriodically(pl *pipeline.Pipeline, log logger.Logger, stop <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := pl.Diagnostics()
			log.Debug("motionpipe", "diagnostics snapshot", map[string]interface{}{
				"rejected_by_area":     snap.RejectedByArea,
				"rejected_by_solidity": snap.RejectedBySolidity,
				"rejected_by_aspect":   snap.RejectedByAspect,
				"adaptive_refreshes":   snap.AdaptiveRefreshes,
				"stale_evictions":      snap.StaleEvictions,
				"background_fallback":  snap.BackgroundFallback,
			})
		case <-stop:
			return
		}
	}
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
