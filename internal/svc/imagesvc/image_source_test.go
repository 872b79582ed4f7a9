package imagesvc_test

import (
	"testing"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/svc/imagesvc"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source *string
		want   domain.ImageSource
	}{
		{name: "absent", source: nil, want: domain.NoImage()},
		{name: "empty", source: ptr(""), want: domain.NoImage()},
		{name: "inline data", source: ptr("data:image/jpeg;base64,AAAA"), want: domain.InlineData("data:image/jpeg;base64,AAAA")},
		{name: "file uri", source: ptr("file:///tmp/photo.jpg"), want: domain.ResourceLocator("file:///tmp/photo.jpg")},
		{name: "content uri", source: ptr("content://media/42"), want: domain.ResourceLocator("content://media/42")},
		{name: "marker not at start", source: ptr("/tmp/data:x"), want: domain.ResourceLocator("/tmp/data:x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := imagesvc.Normalize(tt.source); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
