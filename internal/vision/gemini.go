package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/observability/metrics"
	"github.com/labddb/resistorlens/internal/reading"
)

// DefaultModel is used when GeminiConfig.Model is empty.
const DefaultModel = "gemini-2.5-flash"

const analysisPrompt = `You are an expert in electronics and computer vision.
Identify the 4-band resistor in this image.
Read the first three color bands from left to right: two significant digits and the multiplier.
Use the standard E12 and E24 value series as context to resolve ambiguous colors, for example brown against red or red against orange under warm lighting.
Ignore the tolerance band (usually gold or silver, set apart from the others).
Respond with JSON only.`

// GeminiConfig configures a GeminiAnalyzer.
type GeminiConfig struct {
	APIKey         string
	Model          string
	ThinkingBudget int32         // -1 lets the model decide
	Timeout        time.Duration // per request, 0 means no extra deadline
	HTTPClient     *http.Client  // optional, tests inject a mock transport
	BaseURL        string        // optional API endpoint override
	Metrics        *metrics.VisionMetrics
}

// GeminiAnalyzer reads bands with the Gemini API.
type GeminiAnalyzer struct {
	client  *genai.Client
	model   string
	config  *genai.GenerateContentConfig
	timeout time.Duration
	metrics *metrics.VisionMetrics
	log     logger.Logger
}

// NewGeminiAnalyzer creates the client. A missing API key is reported as
// ErrNotConfigured.
func NewGeminiAnalyzer(ctx context.Context, cfg GeminiConfig, log logger.Logger) (*GeminiAnalyzer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, newError(ErrNotConfigured, errors.NewStd("API key is not set"), errors.CategoryConfiguration, "new_client")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if log == nil {
		log = logger.Global().Module(componentName)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, newError(ErrNotConfigured, err, errors.CategoryConfiguration, "new_client")
	}

	return &GeminiAnalyzer{
		client:  client,
		model:   cfg.Model,
		config:  generateConfig(cfg.ThinkingBudget),
		timeout: cfg.Timeout,
		metrics: cfg.Metrics,
		log:     log,
	}, nil
}

// Model returns the model name requests are sent to.
func (g *GeminiAnalyzer) Model() string {
	return g.model
}

// Analyze sends the image to the model and converts its answer.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, img Image) (reading.Result, error) {
	if len(img.Data) == 0 || img.MIMEType == "" {
		return reading.Result{}, invalidImage("image has no data or type", img.MIMEType)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	g.metrics.ObserveImageSize(len(img.Data))
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(img.Data, img.MIMEType),
			genai.NewPartFromText(analysisPrompt),
		}, genai.RoleUser),
	}

	start := time.Now()
	result, err := g.generate(ctx, contents)
	elapsed := time.Since(start)
	g.metrics.RecordAnalysis(Outcome(err), elapsed)

	if err != nil {
		g.log.Warn("vision analysis failed",
			logger.String("model", g.model),
			logger.String("outcome", Outcome(err)),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return reading.Result{}, err
	}

	g.metrics.ObserveConfidence(result.Confidence)
	g.log.Info("vision analysis complete",
		logger.String("model", g.model),
		logger.Strings("bands", result.Bands),
		logger.String("value", result.FormattedValue),
		logger.Int("confidence", result.Confidence),
		logger.Duration("elapsed", elapsed))
	return result, nil
}

func (g *GeminiAnalyzer) generate(ctx context.Context, contents []*genai.Content) (reading.Result, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.config)
	if err != nil {
		return reading.Result{}, classifyError(ctx, err)
	}

	parsed, err := parseResponse(resp.Text())
	if err != nil {
		return reading.Result{}, err
	}
	return reading.FromVision(parsed), nil
}

func generateConfig(thinkingBudget int32) *genai.GenerateContentConfig {
	budget := thinkingBudget
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
		ThinkingConfig:   &genai.ThinkingConfig{ThinkingBudget: &budget},
	}
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"bands": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "The list of the first three color band names",
			},
			"resistance_ohms": {
				Type:        genai.TypeNumber,
				Description: "Resistance in ohms",
			},
			"formatted_value": {
				Type:        genai.TypeString,
				Description: "Human-readable value (e.g., 4.7kΩ)",
			},
			"confidence": {
				Type:        genai.TypeNumber,
				Description: "Confidence from 0 to 100",
			},
		},
		Required: []string{"bands", "resistance_ohms", "formatted_value", "confidence"},
	}
}

// wireResponse mirrors the schema with pointers so missing fields are detectable.
type wireResponse struct {
	Bands          []string `json:"bands"`
	ResistanceOhms *float64 `json:"resistance_ohms"`
	FormattedValue *string  `json:"formatted_value"`
	Confidence     *float64 `json:"confidence"`
}

// parseResponse decodes the model's JSON. Anything unusable is ErrNoResult.
// An empty bands array is accepted; only an absent key is rejected.
func parseResponse(text string) (reading.VisionResponse, error) {
	text = stripCodeFence(text)
	if text == "" {
		return reading.VisionResponse{}, newError(ErrNoResult, errors.NewStd("empty response"), errors.CategoryVision, "parse_response")
	}

	var wire wireResponse
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return reading.VisionResponse{}, newError(ErrNoResult, err, errors.CategoryVision, "parse_response")
	}

	var missing []string
	if wire.Bands == nil {
		missing = append(missing, "bands")
	}
	if wire.ResistanceOhms == nil {
		missing = append(missing, "resistance_ohms")
	}
	if wire.FormattedValue == nil {
		missing = append(missing, "formatted_value")
	}
	if wire.Confidence == nil {
		missing = append(missing, "confidence")
	}
	if len(missing) > 0 {
		return reading.VisionResponse{}, newError(ErrNoResult,
			fmt.Errorf("response lacks %s", strings.Join(missing, ", ")),
			errors.CategoryVision, "parse_response")
	}

	return reading.VisionResponse{
		Bands:          wire.Bands,
		ResistanceOhms: *wire.ResistanceOhms,
		FormattedValue: *wire.FormattedValue,
		Confidence:     *wire.Confidence,
	}, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// classifyError maps a client error to one of the outcome sentinels.
func classifyError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		category := errors.CategoryTimeout
		if errors.Is(ctxErr, context.Canceled) {
			category = errors.CategoryCancellation
		}
		return newError(ErrAnalysisFailed, errors.Join(err, ctxErr), category, "generate_content")
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
			return newError(ErrQuotaExceeded, err, errors.CategoryQuota, "generate_content")
		case apiErr.Code == http.StatusNotFound,
			apiErr.Code == http.StatusUnauthorized,
			apiErr.Code == http.StatusForbidden,
			apiErr.Status == "PERMISSION_DENIED",
			apiErr.Status == "UNAUTHENTICATED":
			return newError(ErrNotConfigured, err, errors.CategoryConfiguration, "generate_content")
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "Requested entity was not found"),
		strings.Contains(msg, "API key not valid"):
		return newError(ErrNotConfigured, err, errors.CategoryConfiguration, "generate_content")
	case strings.Contains(msg, "RESOURCE_EXHAUSTED"),
		strings.Contains(strings.ToLower(msg), "quota"):
		return newError(ErrQuotaExceeded, err, errors.CategoryQuota, "generate_content")
	}
	return newError(ErrAnalysisFailed, err, errors.CategoryVision, "generate_content")
}
