package main

import (
	"image"
	"image/png"
	"os"

	"github.com/wippyai/xatlas-go/errors"
)

// atlasImage converts an RGBA page (red in the low byte) to an image.
func atlasImage(page []uint32, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 || len(page) != width*height {
		return nil, errors.InvalidData(errors.PhaseReconstruct, []string{"image"}, "atlas page size does not match atlas dimensions")
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, px := range page {
		img.Pix[i*4] = byte(px)
		img.Pix[i*4+1] = byte(px >> 8)
		img.Pix[i*4+2] = byte(px >> 16)
		img.Pix[i*4+3] = byte(px >> 24)
	}
	return img, nil
}

func writePNG(path string, page []uint32, width, height int) error {
	img, err := atlasImage(page, width, height)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
