package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/phantomx-ai/phantomx/internal/apperr"
	"github.com/phantomx-ai/phantomx/internal/classification"
	"github.com/phantomx-ai/phantomx/internal/deepfake"
	"github.com/phantomx-ai/phantomx/internal/events"
	"github.com/phantomx-ai/phantomx/internal/intent"
	"github.com/phantomx-ai/phantomx/internal/pipeline"
	"github.com/phantomx-ai/phantomx/internal/redact"
	"github.com/phantomx-ai/phantomx/internal/signal"
	"github.com/phantomx-ai/phantomx/internal/speech"
	"github.com/phantomx-ai/phantomx/internal/store"
	"github.com/phantomx-ai/phantomx/internal/version"
)

// defaultConfidence fills confidences a client left out of classify-call.
const defaultConfidence = 50.0

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "PhantomX API",
		"version": version.Version,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok\n")
}

func (s *Server) handleReady(c *gin.Context) {
	if err := s.pipeline.Store().Ping(c.Request.Context()); err != nil {
		s.log.WithError(err).Warn("readiness check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) handleSpeechToText(c *gin.Context) {
	clip, err := s.readClip(c)
	if err != nil {
		s.abort(c, err)
		return
	}

	t, err := s.pipeline.Transcribe(c.Request.Context(), clip)
	if err != nil {
		if errors.Is(err, speech.ErrNoTranscriber) {
			s.abort(c, apperr.ServiceUnavailable("speech-to-text"))
			return
		}
		e := apperr.ExternalService(err)
		e.Message = redact.String(e.Message)
		s.abort(c, e)
		return
	}

	text := t.Text
	if t.Empty() {
		text = speech.NoSpeech
	}
	lang := t.Language
	if lang == "" {
		lang = s.cfg.Speech.Language
	}
	c.JSON(http.StatusOK, gin.H{
		"transcript":        text,
		"status":            "success",
		"language_detected": lang,
	})
}

type detectIntentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleDetectIntent(c *gin.Context) {
	var req detectIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		s.abort(c, apperr.MissingField("No text provided"))
		return
	}
	c.JSON(http.StatusOK, s.pipeline.DetectIntent(c.Request.Context(), req.Text))
}

func (s *Server) handleDetectDeepfake(c *gin.Context) {
	clip, err := s.readClip(c)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, s.pipeline.DetectDeepfake(c.Request.Context(), clip))
}

type intentPayload struct {
	Intent             signal.Label `json:"intent"`
	Confidence         *float64     `json:"confidence"`
	Keywords           []string     `json:"keywords"`
	SpamIndicators     int          `json:"spam_indicators"`
	BusinessIndicators int          `json:"business_indicators"`
}

type deepfakePayload struct {
	IsDeepfake bool            `json:"is_deepfake"`
	Confidence *float64        `json:"confidence"`
	RiskLevel  signal.RiskTier `json:"risk_level"`
}

type classifyRequest struct {
	Transcript          string           `json:"transcript"`
	Intent              *intentPayload   `json:"intent"`
	Deepfake            *deepfakePayload `json:"deepfake"`
	DeepfakeProbability *float64         `json:"deepfake_probability"`
	Sentiment           *intent.Hints    `json:"sentiment"`
}

func (s *Server) handleClassifyCall(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, apperr.InvalidInput("No data provided"))
		return
	}
	ctx := c.Request.Context()

	var in signal.Intent
	switch {
	case req.Intent != nil:
		in = req.Intent.signal()
	case req.Sentiment != nil:
		in = intent.Aggregate(req.Transcript, *req.Sentiment)
	default:
		in = s.pipeline.DetectIntent(ctx, req.Transcript)
	}

	var df signal.Deepfake
	switch {
	case req.Deepfake != nil:
		df = req.Deepfake.signal()
	case req.DeepfakeProbability != nil:
		df = deepfake.Scored(*req.DeepfakeProbability).Signal()
	default:
		df = signal.Deepfake{IsDeepfake: false, Confidence: defaultConfidence, RiskTier: signal.TierLow}
	}

	res, err := s.pipeline.Classify(ctx, pipeline.Submission{
		Transcript: req.Transcript,
		Intent:     &in,
		Deepfake:   &df,
		Source:     events.SourceClassifyCall,
		RequestID:  c.GetString(ctxRequestID),
	})
	if err != nil {
		s.abort(c, apperr.Storage(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (p *intentPayload) signal() signal.Intent {
	out := signal.Intent{
		Label:              p.Intent,
		Confidence:         defaultConfidence,
		Keywords:           p.Keywords,
		SpamIndicators:     p.SpamIndicators,
		BusinessIndicators: p.BusinessIndicators,
	}
	if out.Label == "" {
		out.Label = signal.LabelUnknown
	}
	if p.Confidence != nil {
		out.Confidence = *p.Confidence
	}
	if out.Keywords == nil {
		out.Keywords = []string{}
	}
	return out
}

func (p *deepfakePayload) signal() signal.Deepfake {
	out := signal.Deepfake{
		IsDeepfake: p.IsDeepfake,
		Confidence: defaultConfidence,
	}
	if p.Confidence != nil {
		out.Confidence = *p.Confidence
	}
	tier, ok := signal.ParseRiskTier(string(p.RiskLevel))
	if !ok {
		tier = signal.TierLow
		if p.IsDeepfake {
			tier = signal.TierHigh
		}
	}
	out.RiskTier = tier
	return out
}

func (s *Server) handleAnalyzeCall(c *gin.Context) {
	clip, err := s.readClip(c)
	if err != nil {
		s.abort(c, err)
		return
	}

	res, err := s.pipeline.AnalyzeCall(c.Request.Context(), clip, c.GetString(ctxRequestID))
	if err != nil {
		s.abort(c, apperr.Storage(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := s.cfg.Storage.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.abort(c, apperr.InvalidInput("limit must be an integer"))
			return
		}
		if n > 0 {
			limit = n
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	history, err := s.pipeline.History(c.Request.Context(), limit)
	if err != nil {
		s.abort(c, apperr.Storage(err))
		return
	}
	if history == nil {
		history = []classification.Result{}
	}
	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"count":   len(history),
	})
}

func (s *Server) handleResult(c *gin.Context) {
	res, err := s.pipeline.Result(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.abort(c, apperr.NotFound("Result not found"))
		return
	case err != nil:
		s.abort(c, apperr.Storage(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

type feedbackRequest struct {
	ResultID  *string `json:"result_id" binding:"required"`
	IsCorrect *bool   `json:"is_correct" binding:"required"`
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, apperr.MissingField("Missing required fields"))
		return
	}

	err := s.pipeline.SubmitFeedback(c.Request.Context(), *req.ResultID, *req.IsCorrect)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.abort(c, apperr.NotFound("Result not found"))
		return
	case err != nil:
		s.abort(c, apperr.Storage(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Feedback saved successfully",
	})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.pipeline.Stats(c.Request.Context())
	if err != nil {
		s.abort(c, apperr.Storage(err))
		return
	}
	c.JSON(http.StatusOK, stats)
}
