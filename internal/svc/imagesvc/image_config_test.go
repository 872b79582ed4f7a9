package imagesvc_test

import (
	"errors"
	"testing"

	"github.com/mkrupp/studyhub/internal/svc/imagesvc"
)

func TestPipelineConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*imagesvc.PipelineConfig)
		wantErr bool
	}{
		{name: "defaults", modify: func(*imagesvc.PipelineConfig) {}},
		{name: "empty tables", modify: func(cfg *imagesvc.PipelineConfig) { cfg.Widths, cfg.Qualities = nil, nil }},
		{name: "zero size limit", modify: func(cfg *imagesvc.PipelineConfig) { cfg.SizeLimit = 0 }, wantErr: true},
		{name: "negative width", modify: func(cfg *imagesvc.PipelineConfig) { cfg.Widths = []int{800, -1} }, wantErr: true},
		{name: "quality above one", modify: func(cfg *imagesvc.PipelineConfig) { cfg.Qualities = []float64{1.5} }, wantErr: true},
		{name: "zero quality", modify: func(cfg *imagesvc.PipelineConfig) { cfg.Qualities = []float64{0} }, wantErr: true},
		{name: "zero max pixels", modify: func(cfg *imagesvc.PipelineConfig) { cfg.MaxPixels = 0 }, wantErr: true},
		{name: "unknown interpolator", modify: func(cfg *imagesvc.PipelineConfig) { cfg.Interpolator = "lanczos" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := imagesvc.DefaultPipelineConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr && !errors.Is(err, imagesvc.ErrInvalidPipelineConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidPipelineConfig", err)
			}
		})
	}
}
