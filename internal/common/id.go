package common

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NewTaskID generates a unique task ID with the "task_" prefix
// Format: task_<uuid>
func NewTaskID() string {
	return "task_" + uuid.New().String()
}

// NewImageID generates a unique image ID with the "img_" prefix
// Format: img_<uuid>
func NewImageID() string {
	return "img_" + uuid.New().String()
}

// UniqueFilename derives a collision-free stored filename from an original
// upload name. Format: <sanitized-base>_<uuid8>.<ext>
func UniqueFilename(original string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(original), "."))
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	base = sanitizeFilenameBase(base)
	if base == "" {
		base = "image"
	}
	suffix := uuid.New().String()[:8]
	if ext == "" {
		return fmt.Sprintf("%s_%s", base, suffix)
	}
	return fmt.Sprintf("%s_%s.%s", base, suffix, ext)
}

func sanitizeFilenameBase(base string) string {
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
