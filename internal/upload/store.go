// Package upload owns the reference images for one session: at most six
// entries, each carried as raw bytes for the preview endpoint and as a
// base64 payload ready for the generation request.
package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"scenestudio/internal/domain"
)

// MaxFiles is the hard capacity of the store. A batch that would push the
// count past it is rejected whole; there is no partial admission.
const MaxFiles = 6

// Incoming is one file as it arrives from the picker: the client-declared
// media type may be empty or generic and is sniffed server-side.
type Incoming struct {
	Name string
	MIME string
	Data []byte
}

// File is the stored entry as exposed to callers. The preview bytes stay
// inside the store; Payload is the transport-ready base64 form.
type File struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	MIME    string `json:"mime"`
	Size    int64  `json:"size"`
	Payload string `json:"-"`
}

type entry struct {
	File
	raw []byte
}

// release drops the preview resource. Idempotent.
func (e *entry) release() { e.raw = nil }

type Store struct {
	mu       sync.Mutex
	maxBytes int64
	entries  []*entry
}

// NewStore builds an empty store. maxBytes caps a single file's size; zero
// or negative means no cap.
func NewStore(maxBytes int64) *Store {
	return &Store{maxBytes: maxBytes}
}

// Add admits a whole batch or none of it. Each file is sniffed, validated
// and encoded concurrently; the first failure rejects the batch and leaves
// the store unchanged. Accepted entries get fresh ids and keep arrival order.
func (s *Store) Add(ctx context.Context, in []Incoming) ([]File, error) {
	if len(in) == 0 {
		return nil, nil
	}
	if err := s.checkCapacity(len(in)); err != nil {
		return nil, err
	}

	prepared := make([]*entry, len(in))
	eg, _ := errgroup.WithContext(ctx)
	for i, f := range in {
		eg.Go(func() error {
			e, err := s.prepare(f)
			if err != nil {
				return err
			}
			prepared[i] = e
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries)+len(prepared) > MaxFiles {
		return nil, capacityError(len(s.entries), len(prepared))
	}
	added := make([]File, 0, len(prepared))
	for _, e := range prepared {
		s.entries = append(s.entries, e)
		added = append(added, e.File)
	}
	return added, nil
}

func (s *Store) prepare(in Incoming) (*entry, error) {
	if s.maxBytes > 0 && int64(len(in.Data)) > s.maxBytes {
		return nil, fmt.Errorf("%q exceeds %d bytes: %w", in.Name, s.maxBytes, domain.ErrUnsupportedFile)
	}
	mime := strings.TrimSpace(in.MIME)
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(in.Data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%q is %s, not an image: %w", in.Name, mime, domain.ErrUnsupportedFile)
	}
	return &entry{
		File: File{
			ID:      uuid.NewString(),
			Name:    in.Name,
			MIME:    mime,
			Size:    int64(len(in.Data)),
			Payload: base64.StdEncoding.EncodeToString(in.Data),
		},
		raw: in.Data,
	}, nil
}

func (s *Store) checkCapacity(incoming int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries)+incoming > MaxFiles {
		return capacityError(len(s.entries), incoming)
	}
	return nil
}

func capacityError(have, incoming int) error {
	return fmt.Errorf("%w: %d stored, %d incoming, capacity %d", domain.ErrUploadLimit, have, incoming, MaxFiles)
}

// Remove deletes the entry with the given id and releases its preview
// bytes. Removing an unknown id is a no-op and reports false.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id {
			e.release()
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Files returns the stored entries in arrival order.
func (s *Store) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]File, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.File)
	}
	return out
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Preview returns the raw bytes and media type for a stored entry.
func (s *Store) Preview(id string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id && e.raw != nil {
			return e.raw, e.MIME, true
		}
	}
	return nil, "", false
}

// Reset drops every entry and releases all preview resources.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.release()
	}
	s.entries = nil
}
