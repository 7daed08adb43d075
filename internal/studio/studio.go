// Package studio holds the per-session controller: all selections, uploads
// and generation results live in one state object, mutated only through the
// named transition methods below.
package studio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"scenestudio/internal/domain"
	"scenestudio/internal/infra"
	"scenestudio/internal/preset"
	"scenestudio/internal/providers/image"
	"scenestudio/internal/providers/script"
	"scenestudio/internal/upload"
)

// aspectRatio is fixed for every generation. The page renders a wide
// result panel and the instruction assumes the same framing.
const aspectRatio = "16:9"

// Result is the generated composite image in transport-ready form. It is
// replaced wholesale on each generation, never merged.
type Result struct {
	MIMEType  string
	Data      string
	Width     int
	Height    int
	CreatedAt time.Time
}

// DataURL renders the result as a displayable image-data reference.
func (r *Result) DataURL() string {
	return "data:" + r.MIMEType + ";base64," + r.Data
}

// Script is the five-second clip script derived from the current Result.
type Script struct {
	Text      string
	CreatedAt time.Time
}

type Options struct {
	Images       image.Generator
	Scripts      script.Generator
	Limiter      *rate.Limiter
	Logger       *infra.Logger
	MaxFileBytes int64
}

type Studio struct {
	mu      sync.Mutex
	images  image.Generator
	scripts script.Generator
	limiter *rate.Limiter
	logger  infra.Logger
	uploads *upload.Store

	description string
	sceneID     string
	styleID     string

	// generation context recorded with the last successful result; the
	// script call and the bundle read these, never the live selections.
	genDescription string
	genScene       preset.Preset
	genStyle       preset.Preset

	result   *Result
	script   *Script
	imageOp  operation
	scriptOp operation

	// resultSeq advances whenever the result slot is cleared or replaced.
	// An apply step whose captured seq no longer matches discards its
	// output instead of attaching it to a newer state.
	resultSeq uint64
}

func New(opts Options) *Studio {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	s := &Studio{
		images:   opts.Images,
		scripts:  opts.Scripts,
		limiter:  opts.Limiter,
		logger:   logger,
		uploads:  upload.NewStore(opts.MaxFileBytes),
		imageOp:  newOperation(),
		scriptOp: newOperation(),
	}
	s.selectDefaultsLocked()
	return s
}

func (s *Studio) selectDefaultsLocked() {
	if scenes := preset.Scenes(); len(scenes) > 0 {
		s.sceneID = scenes[0].ID
	}
	if styles := preset.Styles(); len(styles) > 0 {
		s.styleID = styles[0].ID
	}
}

// SetDescription stores the free-text description.
func (s *Studio) SetDescription(text string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.description = text
	return s.snapshotLocked()
}

// SelectScene switches the current scene preset.
func (s *Studio) SelectScene(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := preset.SceneByID(id); !ok {
		return s.snapshotLocked(), fmt.Errorf("scene %q: %w", id, domain.ErrUnknownPreset)
	}
	s.sceneID = id
	return s.snapshotLocked(), nil
}

// SelectStyle switches the current style preset.
func (s *Studio) SelectStyle(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := preset.StyleByID(id); !ok {
		return s.snapshotLocked(), fmt.Errorf("style %q: %w", id, domain.ErrUnknownPreset)
	}
	s.styleID = id
	return s.snapshotLocked(), nil
}

// AddUploads admits a batch of reference images, whole or not at all.
func (s *Studio) AddUploads(ctx context.Context, in []upload.Incoming) ([]upload.File, error) {
	return s.uploads.Add(ctx, in)
}

// RemoveUpload drops one reference image and its preview resource.
func (s *Studio) RemoveUpload(id string) bool {
	return s.uploads.Remove(id)
}

// UploadPreview resolves the stored bytes behind a preview reference.
func (s *Studio) UploadPreview(id string) ([]byte, string, bool) {
	return s.uploads.Preview(id)
}

// GenerateImage runs one image generation attempt. Empty arguments fall back
// to the stored session state. The previous result and script are cleared
// before the upstream call: a failed regeneration leaves the result panel
// empty rather than showing a stale image.
func (s *Studio) GenerateImage(ctx context.Context, description, sceneID, styleID string) error {
	s.mu.Lock()
	if err := s.imageOp.begin(); err != nil {
		s.mu.Unlock()
		return err
	}

	if strings.TrimSpace(description) != "" {
		s.description = description
	}
	desc := strings.TrimSpace(s.description)
	scene, style, err := s.resolveSelectionLocked(sceneID, styleID)
	if err != nil {
		s.imageOp.fail(err.Error())
		s.mu.Unlock()
		return err
	}
	files := s.uploads.Files()
	if desc == "" && len(files) == 0 {
		err := domain.ErrNothingToGenerate
		s.imageOp.fail(err.Error())
		s.mu.Unlock()
		return err
	}

	s.sceneID, s.styleID = scene.ID, style.ID
	s.result = nil
	s.script = nil
	s.scriptOp = newOperation()
	s.resultSeq++
	seq := s.resultSeq

	instruction := buildImageInstruction(desc, scene, style, len(files))
	refs := make([]image.Reference, len(files))
	for i, f := range files {
		refs[i] = image.Reference{MIMEType: f.MIME, Data: f.Payload}
	}
	requestID := uuid.NewString()
	s.mu.Unlock()

	start := time.Now()
	asset, err := s.callImages(ctx, image.GenerateRequest{
		Instruction: instruction,
		References:  refs,
		AspectRatio: aspectRatio,
		RequestID:   requestID,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resultSeq != seq {
		// A newer action owns the state now; this output is stale.
		s.logger.Debug().Str("request_id", requestID).Msg("studio: discarding superseded image result")
		return nil
	}
	if err != nil {
		wrapped := serviceError(err)
		s.imageOp.fail(wrapped.Error())
		s.logger.Warn().Err(err).Str("request_id", requestID).Msg("studio: image generation failed")
		return wrapped
	}

	s.result = &Result{
		MIMEType:  asset.MIMEType,
		Data:      base64.StdEncoding.EncodeToString(asset.Data),
		Width:     asset.Width,
		Height:    asset.Height,
		CreatedAt: time.Now(),
	}
	s.genDescription = desc
	s.genScene = scene
	s.genStyle = style
	s.imageOp.succeed()
	s.logger.Info().
		Str("request_id", requestID).
		Str("scene", scene.ID).
		Str("style", style.ID).
		Int("references", len(refs)).
		Dur("took", time.Since(start)).
		Msg("studio: image generated")
	return nil
}

// GenerateScript writes the five-second clip script for the current result,
// from the description and scene label recorded when it was generated. The
// generated image itself is not re-sent. Without a result it is a no-op.
func (s *Studio) GenerateScript(ctx context.Context, locale string) (bool, error) {
	s.mu.Lock()
	if s.result == nil {
		s.mu.Unlock()
		return false, nil
	}
	if err := s.scriptOp.begin(); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.script = nil
	seq := s.resultSeq
	instruction := buildScriptInstruction(s.genDescription, s.genScene.DisplayLabel(locale), locale)
	requestID := uuid.NewString()
	s.mu.Unlock()

	start := time.Now()
	text, err := s.callScripts(ctx, script.GenerateRequest{
		Instruction: instruction,
		RequestID:   requestID,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resultSeq != seq {
		s.logger.Debug().Str("request_id", requestID).Msg("studio: discarding superseded script")
		return false, nil
	}
	if err != nil {
		wrapped := serviceError(err)
		s.scriptOp.fail(wrapped.Error())
		s.logger.Warn().Err(err).Str("request_id", requestID).Msg("studio: script generation failed")
		return false, wrapped
	}
	if strings.TrimSpace(text) == "" {
		text = fallbackScript
	}
	s.script = &Script{Text: text, CreatedAt: time.Now()}
	s.scriptOp.succeed()
	s.logger.Info().
		Str("request_id", requestID).
		Dur("took", time.Since(start)).
		Msg("studio: script generated")
	return true, nil
}

func (s *Studio) callImages(ctx context.Context, req image.GenerateRequest) (*image.Asset, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return s.images.Generate(ctx, req)
}

func (s *Studio) callScripts(ctx context.Context, req script.GenerateRequest) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	return s.scripts.Generate(ctx, req)
}

func (s *Studio) resolveSelectionLocked(sceneID, styleID string) (preset.Preset, preset.Preset, error) {
	if sceneID == "" {
		sceneID = s.sceneID
	}
	if styleID == "" {
		styleID = s.styleID
	}
	scene, ok := preset.SceneByID(sceneID)
	if !ok {
		return preset.Preset{}, preset.Preset{}, fmt.Errorf("scene %q: %w", sceneID, domain.ErrUnknownPreset)
	}
	style, ok := preset.StyleByID(styleID)
	if !ok {
		return preset.Preset{}, preset.Preset{}, fmt.Errorf("style %q: %w", styleID, domain.ErrUnknownPreset)
	}
	return scene, style, nil
}

func serviceError(err error) error {
	if errors.Is(err, domain.ErrProviderFailure) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
}

// ResultAsset returns the decoded image bytes for the download endpoint.
func (s *Studio) ResultAsset() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil, "", domain.ErrNoResult
	}
	data, err := base64.StdEncoding.DecodeString(s.result.Data)
	if err != nil {
		return nil, "", fmt.Errorf("decode stored result: %w", err)
	}
	return data, s.result.MIMEType, nil
}

// Provenance reports the inputs recorded with the current result.
func (s *Studio) Provenance() (description string, scene, style preset.Preset, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return "", preset.Preset{}, preset.Preset{}, false
	}
	return s.genDescription, s.genScene, s.genStyle, true
}

// ScriptText returns the stored script, if any.
func (s *Studio) ScriptText() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.script == nil {
		return "", false
	}
	return s.script.Text, true
}

// Reset returns the session to its initial state and releases all preview
// resources.
func (s *Studio) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads.Reset()
	s.description = ""
	s.genDescription = ""
	s.genScene = preset.Preset{}
	s.genStyle = preset.Preset{}
	s.result = nil
	s.script = nil
	s.imageOp = newOperation()
	s.scriptOp = newOperation()
	s.resultSeq++
	s.selectDefaultsLocked()
	return s.snapshotLocked()
}

// Close releases held resources when the owning session is dropped.
func (s *Studio) Close() {
	s.Reset()
}

// ResultSnapshot is the displayable face of a Result.
type ResultSnapshot struct {
	MIMEType  string    `json:"mime_type"`
	DataURL   string    `json:"data_url"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ScriptSnapshot struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is an immutable view of the whole session state.
type Snapshot struct {
	Description string          `json:"description"`
	SceneID     string          `json:"scene_id"`
	StyleID     string          `json:"style_id"`
	Files       []upload.File   `json:"files"`
	Result      *ResultSnapshot `json:"result,omitempty"`
	Script      *ScriptSnapshot `json:"script,omitempty"`
	ImageOp     OpSnapshot      `json:"image_op"`
	ScriptOp    OpSnapshot      `json:"script_op"`
}

func (s *Studio) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Studio) snapshotLocked() Snapshot {
	snap := Snapshot{
		Description: s.description,
		SceneID:     s.sceneID,
		StyleID:     s.styleID,
		Files:       s.uploads.Files(),
		ImageOp:     s.imageOp.snapshot(),
		ScriptOp:    s.scriptOp.snapshot(),
	}
	if s.result != nil {
		snap.Result = &ResultSnapshot{
			MIMEType:  s.result.MIMEType,
			DataURL:   s.result.DataURL(),
			Width:     s.result.Width,
			Height:    s.result.Height,
			CreatedAt: s.result.CreatedAt,
		}
	}
	if s.script != nil {
		snap.Script = &ScriptSnapshot{Text: s.script.Text, CreatedAt: s.script.CreatedAt}
	}
	return snap
}
