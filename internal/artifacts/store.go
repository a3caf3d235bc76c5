package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"minuet/internal/config"
	"minuet/internal/services"
)

// Category names the stored payload kinds. Each maps to a subdirectory of the
// data dir holding one JSON document per entry.
type Category string

const (
	CategoryAffect     Category = "vad"
	CategoryTranscript Category = "transcripts"
	CategorySummary    Category = "summary"
	CategoryResponse   Category = "response"
	CategoryMusic      Category = "music"
	categoryAudio      Category = "audio"
)

// Store persists stage payloads and raw audio under the configured data dir.
// All entries and stages write disjoint paths keyed by entry id and category,
// so no locking happens here.
type Store struct {
	root string
}

// NewStore constructs a Store rooted at the configured data directory.
func NewStore(cfg *config.Config) *Store {
	return &Store{root: cfg.Paths.DataDir}
}

// Path returns the canonical location for a payload without touching disk.
func (s *Store) Path(category Category, entryID int64) string {
	return filepath.Join(s.root, string(category), strconv.FormatInt(entryID, 10)+".json")
}

// Put marshals payload to JSON and writes it durably. The write goes through
// a temp file and rename so readers never observe a partial document. Parent
// directories are created on demand. Returns the final path.
func (s *Store) Put(category Category, entryID int64, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", category, err)
	}
	return s.PutRaw(category, entryID, data)
}

// PutRaw writes a pre-encoded JSON document for the category/entry pair.
func (s *Store) PutRaw(category Category, entryID int64, data []byte) (string, error) {
	final := s.Path(category, entryID)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return "", fmt.Errorf("ensure %s directory: %w", category, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(final), ".put-*")
	if err != nil {
		return "", fmt.Errorf("create temp payload: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close payload: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("place payload: %w", err)
	}
	return final, nil
}

// Get returns the stored JSON document for the category/entry pair. Fails
// with services.ErrNotFound when nothing has been written.
func (s *Store) Get(category Category, entryID int64) ([]byte, error) {
	data, err := os.ReadFile(s.Path(category, entryID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, string(category), "get",
				fmt.Sprintf("no payload for entry %d", entryID), nil)
		}
		return nil, fmt.Errorf("read %s payload: %w", category, err)
	}
	return data, nil
}

// GetInto unmarshals the stored document into out.
func (s *Store) GetInto(category Category, entryID int64, out any) error {
	data, err := s.Get(category, entryID)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", category, err)
	}
	return nil
}

// Exists reports whether a payload has been written for the pair.
func (s *Store) Exists(category Category, entryID int64) bool {
	info, err := os.Stat(s.Path(category, entryID))
	return err == nil && !info.IsDir()
}

// AudioPath returns the deterministic raw-audio location for an entry, so
// re-derivation can locate the recording from the entry id alone.
func (s *Store) AudioPath(entryID int64, filename string) string {
	name := strconv.FormatInt(entryID, 10) + "_" + sanitizeFilename(filename)
	return filepath.Join(s.root, string(categoryAudio), name)
}

// PutRawAudio durably relocates an uploaded recording from the staging area
// to permanent storage. The move is atomic from the caller's point of view:
// the destination appears complete or not at all.
func (s *Store) PutRawAudio(tmpPath string, entryID int64, filename string) (string, error) {
	final := s.AudioPath(entryID, filename)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return "", fmt.Errorf("ensure audio directory: %w", err)
	}

	if err := os.Rename(tmpPath, final); err == nil {
		return final, nil
	}
	// Rename fails across filesystems; fall back to copy + rename within
	// the destination directory.
	tmp := final + ".part"
	if err := copyFile(tmpPath, tmp); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("stage audio copy: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("place audio: %w", err)
	}
	_ = os.Remove(tmpPath)
	return final, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "recording.wav"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		default:
			return r
		}
	}, base)
}
