package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"time"

	"github.com/phantomx-ai/phantomx/internal/config"
	"github.com/phantomx-ai/phantomx/internal/deepfake"
)

func main() {
	cfgPath := flag.String("config", "", "path to config yaml (bundle dir taken from deepfake.bundle_dir)")
	bundleDir := flag.String("bundle", "", "model bundle dir (overrides config)")
	featuresPath := flag.String("features", "", "JSON file with a 32-element feature vector (default: synthetic)")
	n := flag.Int("n", 200, "number of iterations")
	flag.Parse()

	dir := *bundleDir
	if dir == "" {
		if *cfgPath == "" {
			log.Fatalf("either -bundle or -config is required")
		}
		cfg, err := config.Load(config.Options{ConfigFile: *cfgPath})
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		dir = cfg.Deepfake.BundleDir
	}

	features, err := loadFeatures(*featuresPath)
	if err != nil {
		log.Fatalf("features: %v", err)
	}

	model, err := deepfake.LoadModel(dir)
	if err != nil {
		log.Fatalf("load deepfake model: %v", err)
	}
	defer model.Close()

	// Warmup
	var p float64
	for i := 0; i < 5; i++ {
		if p, err = model.Predict(features); err != nil {
			log.Fatalf("warmup predict failed: %v", err)
		}
	}

	if *n <= 0 {
		*n = 1
	}

	durations := make([]time.Duration, 0, *n)
	for i := 0; i < *n; i++ {
		start := time.Now()
		if _, err := model.Predict(features); err != nil {
			log.Fatalf("predict failed: %v", err)
		}
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var total time.Duration
	for _, d := range durations {
		total += d
	}

	avg := float64(total.Microseconds()) / 1000.0 / float64(len(durations))
	p50 := float64(durations[len(durations)/2].Microseconds()) / 1000.0
	p95 := float64(durations[int(float64(len(durations))*0.95)].Microseconds()) / 1000.0

	fmt.Printf("bench: n=%d avg_ms=%.3f p50_ms=%.3f p95_ms=%.3f probability=%.4f bundle_version=%s model=%s\n",
		len(durations),
		avg,
		p50,
		p95,
		p,
		model.Version(),
		model.ModelFile(),
	)
}

// loadFeatures reads a feature vector from path, or builds a deterministic
// synthetic one shaped like real MFCC and spectral statistics.
func loadFeatures(path string) (deepfake.Features, error) {
	if path == "" {
		var raw [deepfake.FeatureCount]float64
		for i := range raw {
			raw[i] = math.Sin(float64(i+1)) * 10
		}
		raw[deepfake.SpectralCentroidMean] = 1800
		raw[deepfake.SpectralRolloffMean] = 3500
		raw[deepfake.ZeroCrossingRateMean] = 0.08
		return deepfake.FeaturesFromSlice(raw[:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return deepfake.Features{}, err
	}
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return deepfake.Features{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return deepfake.FeaturesFromSlice(v)
}
