package handlers_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"scenestudio/internal/http/handlers"
	"scenestudio/internal/http/httpapi"
	"scenestudio/internal/infra"
	"scenestudio/internal/providers/image"
	"scenestudio/internal/providers/script"
	"scenestudio/internal/session"
	"scenestudio/internal/studio"

	"github.com/rs/zerolog"
)

const testMaxUploadBytes = 1 << 20

type stubImages struct {
	mu      sync.Mutex
	calls   int
	lastReq image.GenerateRequest
	asset   *image.Asset
	err     error
}

func (s *stubImages) Generate(ctx context.Context, req image.GenerateRequest) (*image.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	if s.asset != nil {
		return s.asset, nil
	}
	return &image.Asset{MIMEType: "image/png", Data: pngBytes(0xAB), Width: 1920, Height: 1080}, nil
}

func (s *stubImages) last() (int, image.GenerateRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, s.lastReq
}

type stubScripts struct {
	mu      sync.Mutex
	lastReq script.GenerateRequest
	text    string
	err     error
}

func (s *stubScripts) Generate(ctx context.Context, req script.GenerateRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *stubScripts) last() script.GenerateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq
}

func pngBytes(filler byte) []byte {
	return append([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, bytes.Repeat([]byte{filler}, 24)...)
}

func newTestRouter(ig image.Generator, sg script.Generator) http.Handler {
	cfg := &infra.Config{
		AppEnv:          "test",
		RateLimitPerMin: 1000,
		DefaultLocale:   "zh",
	}
	logger := zerolog.Nop()
	sessions := session.NewManager(time.Minute, func() *studio.Studio {
		return studio.New(studio.Options{
			Images:       ig,
			Scripts:      sg,
			MaxFileBytes: testMaxUploadBytes,
		})
	})
	app := handlers.NewApp(sessions, logger, testMaxUploadBytes)
	return httpapi.NewRouter(httpapi.Options{App: app, Logger: logger, Config: cfg})
}

// browser keeps the session cookie across calls, like a real client would.
type browser struct {
	router http.Handler
	cookie *http.Cookie
}

func (b *browser) do(t *testing.T, method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := httptest.NewRecorder()
	b.router.ServeHTTP(rec, req)
	if b.cookie == nil {
		for _, c := range rec.Result().Cookies() {
			if c.Name == "scenestudio_session" {
				b.cookie = c
			}
		}
	}
	return rec
}

func (b *browser) doJSON(t *testing.T, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return b.do(t, method, target, "application/json", bytes.NewReader(body))
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) studio.Snapshot {
	t.Helper()
	var snap studio.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v (body=%s)", err, rec.Body.String())
	}
	return snap
}

type filePart struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, parts []filePart) (string, io.Reader) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for _, part := range parts {
		fw, err := mw.CreateFormFile("files", part.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(part.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return mw.FormDataContentType(), buf
}

func TestStudioEndToEnd(t *testing.T) {
	ig := &stubImages{asset: &image.Asset{MIMEType: "image/png", Data: pngBytes(0xEE), Width: 1920, Height: 1080}}
	sg := &stubScripts{text: "画面描述：机器人坐在长椅上读书。\n镜头运动：缓慢推近。\n光线氛围：暖色黄昏。\n动作节拍：翻页抬头。"}
	b := &browser{router: newTestRouter(ig, sg)}

	// Two reference images arrive as one batch.
	ctype, body := multipartBody(t, []filePart{
		{name: "ref-a.png", data: pngBytes(0x01)},
		{name: "ref-b.png", data: pngBytes(0x02)},
	})
	rec := b.do(t, http.MethodPost, "/api/uploads", ctype, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body=%s", rec.Code, rec.Body.String())
	}
	snap := decodeSnapshot(t, rec)
	if len(snap.Files) != 2 {
		t.Fatalf("files = %d, want 2", len(snap.Files))
	}

	// Selections stick to the session.
	rec = b.doJSON(t, http.MethodPost, "/api/state", map[string]string{
		"description": "a robot reading a book",
		"scene_id":    "city",
		"style_id":    "anime",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("state update status = %d, body=%s", rec.Code, rec.Body.String())
	}

	// Generate from the stored state.
	rec = b.doJSON(t, http.MethodPost, "/api/generate", map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body=%s", rec.Code, rec.Body.String())
	}
	snap = decodeSnapshot(t, rec)
	if snap.Result == nil {
		t.Fatal("no result in snapshot")
	}
	if snap.ImageOp.Phase != studio.PhaseSucceeded {
		t.Fatalf("image op = %+v", snap.ImageOp)
	}

	calls, genReq := ig.last()
	if calls != 1 {
		t.Fatalf("generator calls = %d, want 1", calls)
	}
	if !strings.Contains(genReq.Instruction, "a robot reading a book") {
		t.Fatalf("instruction missing description: %s", genReq.Instruction)
	}
	if len(genReq.References) != 2 {
		t.Fatalf("references = %d, want 2", len(genReq.References))
	}
	if genReq.AspectRatio != "16:9" {
		t.Fatalf("aspect ratio = %s", genReq.AspectRatio)
	}

	// Script generation reads the recorded scene label.
	rec = b.do(t, http.MethodPost, "/api/script", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("script status = %d, body=%s", rec.Code, rec.Body.String())
	}
	snap = decodeSnapshot(t, rec)
	if snap.Script == nil || snap.Script.Text != sg.text {
		t.Fatalf("script snapshot = %+v", snap.Script)
	}
	if sreq := sg.last(); !strings.Contains(sreq.Instruction, "🏙️ 城市街道") {
		t.Fatalf("script instruction missing scene label: %s", sreq.Instruction)
	}

	// Image download is named with a millisecond timestamp.
	rec = b.do(t, http.MethodGet, "/api/result/image", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !regexp.MustCompile(`^attachment; filename="scene-\d{13,}\.png"$`).MatchString(cd) {
		t.Fatalf("content disposition = %q", cd)
	}
	if !bytes.Equal(rec.Body.Bytes(), pngBytes(0xEE)) {
		t.Fatalf("downloaded bytes differ from the generated asset")
	}

	// Bundle carries the image, the script and the prompt provenance.
	rec = b.do(t, http.MethodGet, "/api/result/bundle", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("bundle status = %d", rec.Code)
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	found := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		found[f.Name] = string(content)
	}
	if len(found) != 3 {
		t.Fatalf("bundle holds %d files, want 3: %v", len(found), found)
	}
	var sawImage bool
	for name, content := range found {
		switch {
		case strings.HasPrefix(name, "scene-") && strings.HasSuffix(name, ".png"):
			sawImage = true
			if content != string(pngBytes(0xEE)) {
				t.Fatalf("bundled image differs from the generated asset")
			}
		case name == "script.txt":
			if content != sg.text {
				t.Fatalf("script.txt = %q", content)
			}
		case name == "prompt.txt":
			if !strings.Contains(content, "a robot reading a book") || !strings.Contains(content, "🏙️ 城市街道") {
				t.Fatalf("prompt.txt = %q", content)
			}
		default:
			t.Fatalf("unexpected bundle entry %s", name)
		}
	}
	if !sawImage {
		t.Fatal("bundle misses the image entry")
	}

	// Reset clears everything.
	rec = b.do(t, http.MethodPost, "/api/reset", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	snap = decodeSnapshot(t, rec)
	if len(snap.Files) != 0 || snap.Result != nil || snap.Script != nil || snap.Description != "" {
		t.Fatalf("snapshot not reset: %+v", snap)
	}
	if rec := b.do(t, http.MethodGet, "/api/result/image", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("download after reset = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestUploadBatchRejectedWholesale(t *testing.T) {
	b := &browser{router: newTestRouter(&stubImages{}, &stubScripts{})}

	ctype, body := multipartBody(t, []filePart{
		{name: "ok.png", data: pngBytes(0x01)},
		{name: "notes.txt", data: []byte("plain text, not an image")},
	})
	rec := b.do(t, http.MethodPost, "/api/uploads", ctype, body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("upload status = %d, want %d (body=%s)", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	}

	rec = b.do(t, http.MethodGet, "/api/state", "", nil)
	snap := decodeSnapshot(t, rec)
	if len(snap.Files) != 0 {
		t.Fatalf("files = %d after rejected batch, want 0", len(snap.Files))
	}
}

func TestUploadPreviewRoundTrip(t *testing.T) {
	b := &browser{router: newTestRouter(&stubImages{}, &stubScripts{})}

	ctype, body := multipartBody(t, []filePart{{name: "ref.png", data: pngBytes(0x42)}})
	rec := b.do(t, http.MethodPost, "/api/uploads", ctype, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body=%s", rec.Code, rec.Body.String())
	}
	snap := decodeSnapshot(t, rec)
	if len(snap.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(snap.Files))
	}
	id := snap.Files[0].ID

	rec = b.do(t, http.MethodGet, "/api/uploads/"+id+"/preview", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("preview content type = %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), pngBytes(0x42)) {
		t.Fatal("preview bytes differ from the upload")
	}

	// Removal answers 204, and again for an id that is already gone.
	if rec := b.do(t, http.MethodDelete, "/api/uploads/"+id, "", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d", rec.Code)
	}
	if rec := b.do(t, http.MethodDelete, "/api/uploads/"+id, "", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("second remove status = %d", rec.Code)
	}
	if rec := b.do(t, http.MethodGet, "/api/uploads/"+id+"/preview", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("preview after remove = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGenerateWithoutInput(t *testing.T) {
	ig := &stubImages{}
	b := &browser{router: newTestRouter(ig, &stubScripts{})}

	rec := b.doJSON(t, http.MethodPost, "/api/generate", map[string]string{})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("generate status = %d, want %d (body=%s)", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Error.Code != "validation_failed" {
		t.Fatalf("error code = %q", envelope.Error.Code)
	}
	if calls, _ := ig.last(); calls != 0 {
		t.Fatalf("generator calls = %d, want 0", calls)
	}
}

func TestGenerateUpstreamFailure(t *testing.T) {
	ig := &stubImages{err: errors.New("upstream exploded")}
	b := &browser{router: newTestRouter(ig, &stubScripts{})}

	rec := b.doJSON(t, http.MethodPost, "/api/generate", map[string]string{
		"description": "a fox in the rain",
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("generate status = %d, want %d (body=%s)", rec.Code, http.StatusBadGateway, rec.Body.String())
	}

	rec = b.do(t, http.MethodGet, "/api/state", "", nil)
	snap := decodeSnapshot(t, rec)
	if snap.ImageOp.Phase != studio.PhaseFailed || snap.ImageOp.Reason == "" {
		t.Fatalf("image op = %+v, want failed with reason", snap.ImageOp)
	}
	if snap.Result != nil {
		t.Fatal("result present after failure")
	}
}

func TestScriptWithoutResultNoContent(t *testing.T) {
	b := &browser{router: newTestRouter(&stubImages{}, &stubScripts{})}

	rec := b.do(t, http.MethodPost, "/api/script", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("script status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestPresetsLocalized(t *testing.T) {
	b := &browser{router: newTestRouter(&stubImages{}, &stubScripts{})}

	decode := func(rec *httptest.ResponseRecorder) map[string][]struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} {
		t.Helper()
		out := map[string][]struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		}{}
		if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
			t.Fatalf("decode presets: %v", err)
		}
		return out
	}

	rec := b.do(t, http.MethodGet, "/api/presets", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("presets status = %d", rec.Code)
	}
	catalog := decode(rec)
	if len(catalog["scenes"]) != 6 || len(catalog["styles"]) != 6 {
		t.Fatalf("catalog sizes = %d/%d, want 6/6", len(catalog["scenes"]), len(catalog["styles"]))
	}
	if catalog["scenes"][0].ID != "city" || catalog["scenes"][0].Label != "🏙️ 城市街道" {
		t.Fatalf("default locale scene = %+v", catalog["scenes"][0])
	}

	req := httptest.NewRequest(http.MethodGet, "/api/presets", nil)
	req.Header.Set("X-Locale", "en")
	rec = httptest.NewRecorder()
	b.router.ServeHTTP(rec, req)
	catalog = decode(rec)
	if catalog["scenes"][0].Label != "🏙️ City street" {
		t.Fatalf("english locale scene label = %q", catalog["scenes"][0].Label)
	}
}

func TestHealthz(t *testing.T) {
	b := &browser{router: newTestRouter(&stubImages{}, &stubScripts{})}

	rec := b.do(t, http.MethodGet, "/api/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("healthz body = %v", body)
	}
}
