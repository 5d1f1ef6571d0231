package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/IshaanNene/wikiscraper/internal/config"
	"github.com/IshaanNene/wikiscraper/internal/types"
)

const (
	maxFilenameLength = 255
	defaultFileStem   = "wikipedia_content"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// FileSaver writes each saved page to its own text file.
type FileSaver struct {
	dir             string
	encoding        string
	timestampFormat string
	now             func() time.Time
	logger          *slog.Logger
}

// NewFileSaver creates the output directory and returns a saver writing into it.
func NewFileSaver(cfg config.StorageConfig, logger *slog.Logger) (*FileSaver, error) {
	enc := strings.ToLower(cfg.Encoding)
	if enc == "" {
		enc = "utf-8"
	}
	if !config.IsValidEncoding(enc) {
		return nil, types.NewError(types.KindConfig, "new_file_saver", cfg.Encoding,
			fmt.Errorf("unsupported encoding, use one of: %s", strings.Join(config.ValidEncodings, ", ")))
	}

	dir := cfg.OutputDir
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.NewError(types.KindStorage, "new_file_saver", dir, fmt.Errorf("create output dir: %w", err))
	}

	layout := cfg.TimestampFormat
	if layout == "" {
		layout = "20060102_150405"
	}

	s := &FileSaver{
		dir:             dir,
		encoding:        enc,
		timestampFormat: layout,
		now:             time.Now,
		logger:          logger.With("component", "file_saver"),
	}
	s.logger.Info("storage directory ready", "dir", dir, "encoding", enc)
	return s, nil
}

func (s *FileSaver) Name() string { return "file" }

// Dir returns the output directory.
func (s *FileSaver) Dir() string { return s.dir }

// Save writes content to <dir>/<timestamp>_<title>.txt. Characters the
// encoding cannot represent are replaced. The file is read back afterwards
// and a mismatch is logged as a warning without failing the save.
func (s *FileSaver) Save(ctx context.Context, content, title string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, s.Filename(title))

	data, err := s.encode(content)
	if err != nil {
		return "", types.NewError(types.KindStorage, "save", path, fmt.Errorf("encode content: %w", err))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("write failed", "path", path, "error", err)
		return "", types.NewError(types.KindStorage, "save", path, err)
	}

	s.logger.Info("file saved", "path", path, "bytes", len(data))
	s.verify(path, content)
	return path, nil
}

// Close is a no-op; every Save writes and closes its own file.
func (s *FileSaver) Close() error { return nil }

// Filename builds a timestamped, filesystem-safe file name for title.
// The whole name, timestamp and extension included, fits in maxFilenameLength bytes.
func (s *FileSaver) Filename(title string) string {
	ts := s.now().Format(s.timestampFormat)
	prefix, ext := ts+"_", ".txt"
	if stem := SanitizeFilename(url.QueryEscape(strings.TrimSpace(title))); stem != "" {
		if room := maxFilenameLength - len(prefix) - len(ext); len(stem) > room && room > 0 {
			stem = stem[:room]
		}
		return prefix + stem + ext
	}
	if title != "" {
		s.logger.Warn("title unusable as file name, using default", "title", title)
	}
	return ts + "_" + defaultFileStem + ".txt"
}

// SanitizeFilename replaces characters outside [A-Za-z0-9_.-] with "_" and
// truncates the result. It returns "" when nothing usable is left.
func SanitizeFilename(name string) string {
	clean := unsafeFilenameChars.ReplaceAllString(name, "_")
	if len(clean) > maxFilenameLength {
		clean = clean[:maxFilenameLength]
	}
	if strings.Trim(clean, "_.") == "" {
		return ""
	}
	return clean
}

func (s *FileSaver) encode(content string) ([]byte, error) {
	switch s.encoding {
	case "latin-1", "iso-8859-1":
		replaced := strings.Map(func(r rune) rune {
			if r > 0xFF {
				return '?'
			}
			return r
		}, strings.ToValidUTF8(content, "?"))
		return charmap.ISO8859_1.NewEncoder().Bytes([]byte(replaced))
	default:
		return []byte(strings.ToValidUTF8(content, "\uFFFD")), nil
	}
}

func (s *FileSaver) decode(data []byte) (string, error) {
	switch s.encoding {
	case "latin-1", "iso-8859-1":
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		return string(out), err
	default:
		return string(data), nil
	}
}

// verify re-reads path and warns if it does not hold content.
func (s *FileSaver) verify(path, content string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("post-save validation failed", "path", path, "error", err)
		return
	}
	saved, err := s.decode(data)
	if err != nil {
		s.logger.Error("post-save validation failed", "path", path, "error", err)
		return
	}
	if saved != content {
		s.logger.Warn("content discrepancy detected after save",
			"path", path,
			"encoding", s.encoding,
			"expected_len", len(content),
			"saved_len", len(saved),
		)
	}
}
