package deepfake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/phantomx-ai/phantomx/internal/audio"
)

// FeatureCount is the fixed length of the acoustic feature vector.
const FeatureCount = 32

// Feature vector layout: 13 MFCC means, 13 MFCC standard deviations, then
// the spectral and zero-crossing statistics.
const (
	MFCCMeanOffset       = 0
	MFCCStdOffset        = 13
	SpectralCentroidMean = 26
	SpectralCentroidStd  = 27
	SpectralRolloffMean  = 28
	SpectralContrastMean = 29
	ZeroCrossingRateMean = 30
	ZeroCrossingRateStd  = 31

	mfccCoefficients = 13
)

// Features is the engineered feature vector consumed by the model.
type Features [FeatureCount]float32

// FeaturesFromSlice copies v into a Features, checking length and values.
func FeaturesFromSlice(v []float64) (Features, error) {
	var f Features
	if len(v) != FeatureCount {
		return f, fmt.Errorf("expected %d features, got %d", FeatureCount, len(v))
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return f, fmt.Errorf("feature %d is not finite", i)
		}
		f[i] = float32(x)
	}
	return f, nil
}

// MFCCMeans returns the 13 MFCC mean coefficients.
func (f Features) MFCCMeans() []float32 {
	return f[MFCCMeanOffset : MFCCMeanOffset+mfccCoefficients]
}

// MFCCStds returns the 13 MFCC standard deviations.
func (f Features) MFCCStds() []float32 {
	return f[MFCCStdOffset : MFCCStdOffset+mfccCoefficients]
}

// FeatureExtractor computes the feature vector for a clip.
type FeatureExtractor interface {
	Extract(ctx context.Context, clip audio.Clip) (Features, error)
}

const defaultExtractorTimeout = 30 * time.Second

// HTTPExtractorConfig configures the feature extraction sidecar client.
type HTTPExtractorConfig struct {
	URL     string
	Timeout time.Duration
}

// HTTPExtractor posts audio to a signal-processing sidecar that returns the
// 32-element feature vector as {"features": [...]}.
type HTTPExtractor struct {
	cfg    HTTPExtractorConfig
	client *http.Client
}

// NewHTTPExtractor creates a sidecar client.
func NewHTTPExtractor(cfg HTTPExtractorConfig) (*HTTPExtractor, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("feature extractor url is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultExtractorTimeout
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &HTTPExtractor{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

type extractResponse struct {
	Features []float64 `json:"features"`
}

// Extract uploads the clip to /features.
func (e *HTTPExtractor) Extract(ctx context.Context, clip audio.Clip) (Features, error) {
	if clip.Empty() {
		return Features{}, audio.ErrEmpty
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	name := clip.Filename
	if name == "" {
		name = "audio.webm"
	}
	part, err := mw.CreateFormFile("audio", name)
	if err != nil {
		return Features{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return Features{}, fmt.Errorf("write audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Features{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL+"/features", &body)
	if err != nil {
		return Features{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return Features{}, fmt.Errorf("feature extractor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return Features{}, fmt.Errorf("feature extractor status %d: %s", resp.StatusCode, string(msg))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Features{}, fmt.Errorf("decode features: %w", err)
	}
	return FeaturesFromSlice(out.Features)
}
