package imagesvc

import (
	"strings"

	"github.com/mkrupp/studyhub/internal/domain"
)

// Normalize classifies the caller's image reference. A nil or empty source means no
// image; a string with the inline marker is inline data; anything else is a locator.
// It never fails.
func Normalize(source *string) domain.ImageSource {
	if source == nil || *source == "" {
		return domain.NoImage()
	}

	if strings.HasPrefix(*source, domain.InlineMarker) {
		return domain.InlineData(*source)
	}

	return domain.ResourceLocator(*source)
}
