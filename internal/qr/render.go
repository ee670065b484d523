// Package qr generates QR code images for authenticated users and tracks
// public scans. Rendering and image storage sit behind small interfaces so
// the service stays plain plumbing over the document store.
package qr

import (
	"fmt"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"
)

// Renderer turns a target URL into an encoded image.
type Renderer interface {
	// Render encodes content into a PNG. colorHex selects the dark module
	// color ("#RGB" or "#RRGGBB"); empty means black.
	Render(content, colorHex string) ([]byte, error)
}

// PNGRenderer renders fixed-size PNGs with medium error correction and a
// transparent background.
type PNGRenderer struct {
	// Size is the image edge in pixels. Defaults to 150.
	Size int
}

func (r *PNGRenderer) Render(content, colorHex string) ([]byte, error) {
	dark, err := parseHexColor(colorHex)
	if err != nil {
		return nil, err
	}

	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encoding qr content: %w", err)
	}
	code.ForegroundColor = dark
	code.BackgroundColor = color.Transparent

	size := r.Size
	if size <= 0 {
		size = 150
	}
	png, err := code.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("rendering qr png: %w", err)
	}
	return png, nil
}

// parseHexColor accepts "#RGB" and "#RRGGBB"; empty means black.
func parseHexColor(s string) (color.Color, error) {
	if s == "" {
		return color.Black, nil
	}
	if len(s) == 0 || s[0] != '#' {
		return nil, ErrColorInvalid
	}

	hexVal := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		}
		return 0, false
	}

	var r, g, b uint8
	switch len(s) {
	case 4: // #RGB
		for i, dst := range []*uint8{&r, &g, &b} {
			v, ok := hexVal(s[i+1])
			if !ok {
				return nil, ErrColorInvalid
			}
			*dst = v<<4 | v
		}
	case 7: // #RRGGBB
		for i, dst := range []*uint8{&r, &g, &b} {
			hi, ok1 := hexVal(s[i*2+1])
			lo, ok2 := hexVal(s[i*2+2])
			if !ok1 || !ok2 {
				return nil, ErrColorInvalid
			}
			*dst = hi<<4 | lo
		}
	default:
		return nil, ErrColorInvalid
	}

	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
