package service

import (
	"fmt"

	"github.com/h2non/bimg"
)

// supportedTypes maps the formats bimg detects to the media types the model
// APIs accept.
var supportedTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"gif":  "image/gif",
}

// PreparedImage is an image ready to send: its bytes and media type.
type PreparedImage struct {
	Data      []byte
	MediaType string
}

// ImageProcessor validates uploads and optionally shrinks them before they are
// sent to the model. It uses bimg (libvips bindings).
type ImageProcessor struct {
	maxDimension int
	maxBytes     int64
}

// NewImageProcessor creates a processor. maxDimension 0 sends images as
// uploaded; maxBytes 0 disables the size check.
func NewImageProcessor(maxDimension int, maxBytes int64) *ImageProcessor {
	return &ImageProcessor{maxDimension: maxDimension, maxBytes: maxBytes}
}

// Prepare detects the image format and, if a max dimension is configured,
// downsizes larger images keeping their aspect ratio and format.
func (p *ImageProcessor) Prepare(data []byte) (*PreparedImage, error) {
	typeName := bimg.DetermineImageTypeName(data)
	mediaType, ok := supportedTypes[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, typeName)
	}

	if p.maxDimension > 0 {
		resized, err := fitWithin(data, p.maxDimension)
		if err != nil {
			return nil, err
		}
		data = resized
	}

	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrImageTooLarge, len(data), p.maxBytes)
	}

	return &PreparedImage{Data: data, MediaType: mediaType}, nil
}

// fitWithin scales the image so its longest side is at most maxSide pixels.
// Images already within bounds are returned untouched.
func fitWithin(data []byte, maxSide int) ([]byte, error) {
	img := bimg.NewImage(data)
	size, err := img.Size()
	if err != nil {
		return nil, fmt.Errorf("reading image size: %w", err)
	}
	if size.Width <= maxSide && size.Height <= maxSide {
		return data, nil
	}

	// Setting only one side lets bimg keep the aspect ratio.
	opts := bimg.Options{
		Type:           bimg.DetermineImageType(data),
		Interpretation: bimg.InterpretationSRGB,
	}
	if size.Width >= size.Height {
		opts.Width = maxSide
	} else {
		opts.Height = maxSide
	}

	resized, err := img.Process(opts)
	if err != nil {
		return nil, fmt.Errorf("resizing to %dpx: %w", maxSide, err)
	}
	return resized, nil
}
