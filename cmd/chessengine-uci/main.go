package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/TheChii/chessgo/internal/config"
	"github.com/TheChii/chessgo/internal/engine"
	"github.com/TheChii/chessgo/internal/uci"
)

// defaultNet is the filename autoLoadNNUE looks for in the standard search
// locations, matching the single-network internal/nnue evaluator.
const defaultNet = "chessgo.nnue"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")

func main() {
	flag.Parse()

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	cfg, err := config.Open()
	if err != nil {
		log.Printf("Warning: config store unavailable, running without persistence: %v", err)
		cfg = nil
	}

	settings := cfg.LoadEngineSettings()

	eng := engine.NewEngine(settings.HashMB)

	if settings.EvalFile != "" {
		if err := eng.LoadNNUE(settings.EvalFile); err != nil {
			log.Printf("Warning: failed to load NNUE from %s: %v", settings.EvalFile, err)
		} else {
			eng.SetUseNNUE(settings.UseNNUE)
		}
	} else if err := autoLoadNNUE(eng); err != nil {
		log.Printf("Warning: NNUE not loaded: %v (using classical evaluation)", err)
	}

	if settings.OwnBook && settings.BookPath != "" {
		if err := eng.LoadBook(settings.BookPath); err != nil {
			log.Printf("Warning: failed to load book from %s: %v", settings.BookPath, err)
		}
	}

	protocol := uci.New(eng, cfg)
	protocol.Run()
}

// autoLoadNNUE attempts to load NNUE weights from standard locations.
func autoLoadNNUE(eng *engine.Engine) error {
	searchPaths := []string{
		getAppSupportDir(),
		filepath.Join(getHomeDir(), ".chessgo", "nnue"),
		"./nnue",
		".",
	}

	for _, dir := range searchPaths {
		path := filepath.Join(dir, defaultNet)
		if fileExists(path) {
			if err := eng.LoadNNUE(path); err != nil {
				log.Printf("Failed to load NNUE from %s: %v", path, err)
				continue
			}
			eng.SetUseNNUE(true)
			log.Printf("NNUE loaded from %s", path)
			return nil
		}
	}

	return os.ErrNotExist
}

// getAppSupportDir returns the application support directory for chessgo.
func getAppSupportDir() string {
	home := getHomeDir()
	return filepath.Join(home, "Library", "Application Support", "chessgo", "nnue")
}

func getHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
