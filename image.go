package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// loadImage loads an image file and returns an image.Image
func loadImage(filename string) (image.Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	// Determine file type by extension
	ext := strings.ToLower(filepath.Ext(filename))

	var img image.Image
	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	case ".png":
		img, err = png.Decode(file)
	default:
		// Let imaging try the remaining formats it supports
		img, err = imaging.Decode(file)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return img, nil
}

// fitSkin crops img to a centred square and scales it to diameter pixels.
func fitSkin(img image.Image, diameter int) *image.NRGBA {
	if diameter < 1 {
		diameter = 1
	}
	return imaging.Fill(img, diameter, diameter, imaging.Center, imaging.Lanczos)
}
