package processor

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"turntable/internal/orbit"
	"turntable/internal/pkg/errors"
)

// FramesDir is the local directory a job renders into.
func FramesDir(storageRoot, jobID string) string {
	return filepath.Join(storageRoot, "renders", jobID)
}

// InputsDir holds the job's materialized inputs.
func InputsDir(storageRoot, jobID string) string {
	return filepath.Join(storageRoot, "jobs", jobID, "inputs")
}

// ObjectKey converts a local path under storageRoot into a slash-separated
// object key.
func ObjectKey(storageRoot, path string) (string, error) {
	rel, err := filepath.Rel(storageRoot, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", errors.Newf(errors.CodeRenderIO, "%s is outside storage root %s", path, storageRoot)
	}
	return filepath.ToSlash(rel), nil
}

// MimeForFormat maps a frame format to its content type.
func MimeForFormat(format string) string {
	switch strings.ToUpper(format) {
	case orbit.FormatPNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// NullIfEmpty returns nil for an empty string, for nullable columns.
func NullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// SanitizeFilename strips path separators and traversal from s.
func SanitizeFilename(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "..", "")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return "input"
	}
	return s
}

// ExtFromMime returns the file extension for a mesh content type.
func ExtFromMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch mime {
	case "model/gltf-binary":
		return ".glb"
	case "model/gltf+json":
		return ".gltf"
	case "model/obj", "text/plain+obj":
		return ".obj"
	case "model/stl", "application/sla":
		return ".stl"
	case "model/ply":
		return ".ply"
	case "model/vnd.usdz+zip":
		return ".usdz"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}

// maxErrorText caps jobs.error_text in bytes.
const maxErrorText = 2000

// truncateText cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
