package renderer

import (
	"strings"

	"turntable/internal/pkg/errors"
	"turntable/internal/scene"
)

// Backend kinds accepted in RENDER_BACKEND.
const (
	KindHTTP = "http"
	KindF3D  = "f3d"
)

type Options struct {
	Kind string
	// BaseURL of the render service, for KindHTTP.
	BaseURL string
	// Bin is the f3d executable, for KindF3D.
	Bin string
	// Root is the storage root frame paths and mesh keys are relative to.
	Root string
}

// New picks the backend named by opt.Kind.
func New(opt Options) (scene.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(opt.Kind)) {
	case KindHTTP, "":
		if strings.TrimSpace(opt.BaseURL) == "" {
			return nil, errors.Configuration("RENDERER_HTTP_BASEURL", "the http backend needs a base url")
		}
		return NewHTTPClient(opt.BaseURL, opt.Root), nil
	case KindF3D:
		return NewF3D(opt.Bin, opt.Root), nil
	default:
		return nil, errors.Configuration("RENDER_BACKEND", "unknown render backend %q", opt.Kind)
	}
}
