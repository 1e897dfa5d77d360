package capture

import (
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/nvr-ai/cam-detector/images"
)

// DefaultJPEGQuality is the quality captures are written at.
const DefaultJPEGQuality = 95

// SaveJPEG writes frame to path as a JPEG.
//
// Arguments:
//   - path: The destination. Its extension must be .jpg or .jpeg.
//   - frame: The frame to write.
//   - quality: JPEG quality, 1..100.
//
// Returns:
//   - error: Invalid frame or write failure.
func SaveJPEG(path string, frame images.Frame, quality int) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	if err := imaging.Save(frame.RGBA(), path, imaging.JPEGQuality(quality)); err != nil {
		return errors.Wrapf(err, "save capture %s", path)
	}
	return nil
}
