package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"scenestudio/internal/infra"
)

var (
	// ErrMissingAPIKey is returned on the first call attempt when no
	// credential was configured. Startup never checks the key.
	ErrMissingAPIKey = errors.New("gemini api key is not configured")
	// ErrNoImage is returned when a generation response carries no part
	// with inline image data.
	ErrNoImage = errors.New("no image produced")
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	TextModel  string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin REST facade over the Gemini generateContent endpoint.
// Every call is a single attempt: no retry, no fallback output.
type Client struct {
	apiKey     string
	baseURL    string
	imageModel string
	textModel  string
	httpClient *http.Client
	logger     *infra.Logger
}

// Reference is one auxiliary input image, already base64 encoded.
type Reference struct {
	MIMEType string
	Data     string
}

// ImageRequest carries one composite-image generation call.
type ImageRequest struct {
	Instruction string
	References  []Reference
	AspectRatio string
	RequestID   string
}

// Image is the decoded result of an image generation call.
type Image struct {
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

// TextRequest carries one text generation call.
type TextRequest struct {
	Instruction string
	RequestID   string
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultImageModel = "gemini-2.5-flash-image-preview"
	defaultTextModel  = "gemini-2.5-flash"
	defaultAspect     = "16:9"
)

// NewClient constructs a Gemini client with sane defaults. Callers may
// provide a nil HTTP client; a reusable one with a timeout is created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	imageModel := opts.ImageModel
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	textModel := opts.TextModel
	if textModel == "" {
		textModel = defaultTextModel
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		imageModel: imageModel,
		textModel:  textModel,
		httpClient: client,
		logger:     logger,
	}, nil
}

// ImageModel returns the configured image model identifier.
func (c *Client) ImageModel() string { return c.imageModel }

// TextModel returns the configured text model identifier.
func (c *Client) TextModel() string { return c.textModel }

// GenerateImage sends one generateContent request with the instruction text
// followed by every reference image in order, and returns the first inline
// image found in the response's ordered parts.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aspect := strings.TrimSpace(req.AspectRatio)
	if aspect == "" {
		aspect = defaultAspect
	}

	parts := make([]geminiPart, 0, len(req.References)+1)
	parts = append(parts, geminiPart{Text: req.Instruction})
	for _, ref := range req.References {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: ref.MIMEType,
			Data:     ref.Data,
		}})
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
			ImageConfig:        &geminiImageConfig{AspectRatio: aspect},
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, c.imageModel, payload, &response); err != nil {
		return nil, err
	}

	img, text := firstInlineImage(response)
	if img == nil {
		if text != "" {
			return nil, fmt.Errorf("%w (model said: %s)", ErrNoImage, truncate(text, 160))
		}
		return nil, ErrNoImage
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.imageModel).
		Int("references", len(req.References)).
		Int("width", img.Width).
		Int("height", img.Height).
		Msg("genai: image generated")

	return img, nil
}

// GenerateText sends one generateContent request carrying only the
// instruction and returns the concatenated text parts of the first
// candidate. Empty text is not an error at this layer.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Instruction}},
		}},
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, c.textModel, payload, &response); err != nil {
		return "", err
	}

	text := extractText(response)

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.textModel).
		Int("chars", len(text)).
		Msg("genai: text generated")

	return text, nil
}

func (c *Client) invokeGemini(ctx context.Context, model string, payload any, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read gemini response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

// firstInlineImage scans the candidates' parts in order and decodes the
// first inline image. Text parts seen along the way are collected so a
// miss can report what the model said instead.
func firstInlineImage(resp geminiGenerateContentResponse) (*Image, string) {
	var text strings.Builder
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil || len(data) == 0 {
					continue
				}
				mime := part.InlineData.MimeType
				if mime == "" {
					mime = "image/png"
				}
				w, h := decodeImageDimensions(data)
				return &Image{MIMEType: mime, Data: data, Width: w, Height: h}, text.String()
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}
	return nil, strings.TrimSpace(text.String())
}

func extractText(resp geminiGenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

func decodeImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
