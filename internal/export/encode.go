// Package export encodes rendered pixels to image files.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrUnsupportedFormat is returned for unknown output formats.
var ErrUnsupportedFormat = errors.New("export: unsupported image format")

// Format is an output file format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// Encoder serializes an image.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(w io.Writer, img image.Image) error

// Encode calls f.
func (f EncoderFunc) Encode(w io.Writer, img image.Image) error { return f(w, img) }

var encoders = map[Format]Encoder{
	FormatPNG:  EncoderFunc(png.Encode),
	FormatBMP:  EncoderFunc(bmp.Encode),
	FormatTIFF: EncoderFunc(func(w io.Writer, img image.Image) error {
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}),
}

// ParseFormat parses a format name. "tif" is accepted for TIFF.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(name, "."))); f {
	case FormatPNG, FormatBMP, FormatTIFF:
		return f, nil
	case "tif":
		return FormatTIFF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// FormatFromPath returns the format implied by the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// EncoderFor returns the encoder of format.
func EncoderFor(format Format) (Encoder, error) {
	enc, ok := encoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return enc, nil
}

// Encode writes img to w in format. Float images are converted to 8-bit
// NRGBA first so that every encoder takes its fast path.
func Encode(w io.Writer, img image.Image, format Format) error {
	enc, err := EncoderFor(format)
	if err != nil {
		return err
	}
	if f, ok := img.(*FloatImage); ok {
		img = f.NRGBA()
	}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("export: encode %s: %w", format, err)
	}
	return nil
}

// WriteFile encodes img to path. An empty format is derived from the
// extension. The file appears only once encoding succeeded; a failed
// encode leaves no partial output.
func WriteFile(path string, img image.Image, format Format) error {
	if format == "" {
		f, err := FormatFromPath(path)
		if err != nil {
			return err
		}
		format = f
	}
	if _, err := EncoderFor(format); err != nil {
		return err
	}

	path = filepath.Clean(path)
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("export: create file: %w", err)
	}
	tmpName := tmp.Name()

	if err := Encode(tmp, img, format); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("export: close file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("export: rename file: %w", err)
	}
	return nil
}
