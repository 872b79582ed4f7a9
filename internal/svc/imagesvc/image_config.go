package imagesvc

import (
	"errors"
	"fmt"
	"time"

	"github.com/mkrupp/studyhub/internal/domain"
)

// ErrInvalidPipelineConfig is returned by PipelineConfig.Validate.
var ErrInvalidPipelineConfig = errors.New("invalid pipeline config")

// PipelineConfig holds the tuning tables and limits of the image pipeline.
type PipelineConfig struct {
	// SizeLimit is the longest inline payload (in characters) a record may hold
	SizeLimit int `env:"SIZE_LIMIT" default:"1048487"`

	// Widths and Qualities span the compression attempts, tried widths-outer and
	// qualities-inner in the listed order
	Widths    []int     `env:"WIDTHS" default:"1600,1200,800,600,400"`
	Qualities []float64 `env:"QUALITIES" default:"0.8,0.7,0.6,0.5"`

	// Interpolator specifies the image scaling algorithm to use.
	// Valid values are: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear"
	Interpolator string `env:"INTERPOLATOR" default:"catmullrom"`

	// UploadTimeout bounds the whole remote upload stage; zero disables the bound
	UploadTimeout time.Duration `env:"UPLOAD_TIMEOUT" default:"30s"`

	// MaxPixels caps width*height of images the pipeline decodes
	MaxPixels int `env:"MAX_PIXELS" default:"50000000"`

	// Readers lists the byte access strategies in the order they are tried. The
	// filesystem reader only opens files below FileRoot
	Readers []string `env:"READERS" default:"http"`
	// FileRoot is the directory the filesystem reader is confined to; empty refuses every file
	FileRoot string `env:"FILE_ROOT"`

	// AllowPrivateHosts lets the http reader dial loopback, private and link-local addresses
	AllowPrivateHosts bool `env:"ALLOW_PRIVATE_HOSTS" default:"false"`
	// MaxReadBytes caps how much a reader loads for a single image
	MaxReadBytes int64 `env:"MAX_READ_BYTES" default:"33554432"`
	// ReadTimeout bounds a single http read
	ReadTimeout time.Duration `env:"READ_TIMEOUT" default:"15s"`
}

// DefaultPipelineConfig returns the configuration used when nothing is overridden.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SizeLimit:     domain.DefaultSizeLimit,
		Widths:        []int{1600, 1200, 800, 600, 400},
		Qualities:     []float64{0.8, 0.7, 0.6, 0.5},
		Interpolator:  "catmullrom",
		UploadTimeout: 30 * time.Second,
		MaxPixels:     50_000_000,
		Readers:       []string{ReaderHTTP},
		MaxReadBytes:  32 << 20,
		ReadTimeout:   15 * time.Second,
	}
}

// Validate checks the tuning tables. An empty attempt table is allowed and makes every
// oversized image fall through to the last resort.
func (cfg PipelineConfig) Validate() error {
	var errs []error

	if cfg.SizeLimit <= 0 {
		errs = append(errs, fmt.Errorf("size limit %d must be positive", cfg.SizeLimit))
	}

	for _, width := range cfg.Widths {
		if width <= 0 {
			errs = append(errs, fmt.Errorf("width %d must be positive", width))
		}
	}

	for _, quality := range cfg.Qualities {
		if quality <= 0 || quality > 1 {
			errs = append(errs, fmt.Errorf("quality %v must be in (0, 1]", quality))
		}
	}

	if cfg.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("max pixels %d must be positive", cfg.MaxPixels))
	}

	if _, err := getInterpolatorByName(cfg.Interpolator); err != nil {
		errs = append(errs, fmt.Errorf("interpolator %q: %w", cfg.Interpolator, err))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidPipelineConfig}, errs...)...)
	}

	return nil
}
