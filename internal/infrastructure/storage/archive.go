package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// LocalArchive implements port.ArchiveStore on the local filesystem.
// Every file lives in a folder directly under baseDir.
type LocalArchive struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalArchive creates a new LocalArchive
func NewLocalArchive(baseDir string, logger *zap.Logger) *LocalArchive {
	return &LocalArchive{
		baseDir: baseDir,
		logger:  logger,
	}
}

var _ port.ArchiveStore = (*LocalArchive)(nil)

// Save writes content to folder/name, replacing any earlier file, and
// returns the full path written
func (s *LocalArchive) Save(ctx context.Context, folder, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fullPath, err := s.resolve(folder, name)
	if err != nil {
		return "", err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create archive folder",
			zap.String("path", parentDir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	// Write to a temp file first so readers never see a partial workbook
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		s.logger.Error("Failed to write archive file",
			zap.String("path", tmp),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	s.logger.Debug("Archive file saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return fullPath, nil
}

// Exists checks whether folder/name has been archived
func (s *LocalArchive) Exists(ctx context.Context, folder, name string) bool {
	fullPath, err := s.resolve(folder, name)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

// resolve sanitizes both segments and checks the result stays inside baseDir
func (s *LocalArchive) resolve(folder, name string) (string, error) {
	folder, name = SanitizeName(folder), SanitizeName(name)
	if folder == "" || name == "" || folder == "." || name == "." {
		return "", fmt.Errorf("archive folder and name must not be empty")
	}

	fullPath := filepath.Join(s.baseDir, folder, name)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}
	return fullPath, nil
}

// validatePath checks that the path is safe and within baseDir
func (s *LocalArchive) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}

// SanitizeName returns a filesystem-safe version of a single path segment
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	return unsafeName.ReplaceAllString(name, "")
}
