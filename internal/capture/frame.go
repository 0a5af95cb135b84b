package capture

import (
	"fmt"
	"image"
	"sync"

	"snapvault/internal/services"
)

// RawFrame is a raster buffer as handed over by a capture source. Stride is
// the byte width of one row and may exceed Width*PixelStride when the source
// pads rows.
type RawFrame struct {
	Pix         []byte
	Width       int
	Height      int
	Stride      int
	PixelStride int
}

// ToRGBA copies the raw buffer into a standard image, dropping any row
// padding the source added.
func (r RawFrame) ToRGBA() (*image.RGBA, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("%w: frame has no pixels (%dx%d)", services.ErrValidation, r.Width, r.Height)
	}
	if r.PixelStride != 4 {
		return nil, fmt.Errorf("%w: unsupported pixel stride %d", services.ErrValidation, r.PixelStride)
	}
	if r.Stride < r.Width*r.PixelStride {
		return nil, fmt.Errorf("%w: row stride %d shorter than row width", services.ErrValidation, r.Stride)
	}
	if len(r.Pix) < r.Stride*(r.Height-1)+r.Width*r.PixelStride {
		return nil, fmt.Errorf("%w: pixel buffer truncated", services.ErrValidation)
	}

	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	rowBytes := r.Width * r.PixelStride
	for y := 0; y < r.Height; y++ {
		src := r.Pix[y*r.Stride : y*r.Stride+rowBytes]
		dst := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		copy(dst, src)
	}
	return img, nil
}

// Frame couples a raw buffer with the release hook of whatever source-side
// resource backs it. Release is safe to call more than once.
type Frame struct {
	Raw RawFrame

	once    sync.Once
	release func()
}

// NewFrame wraps a raw buffer. release may be nil for sources without
// per-frame resources.
func NewFrame(raw RawFrame, release func()) *Frame {
	return &Frame{Raw: raw, release: release}
}

// Release returns the frame's backing resource to its source.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}
