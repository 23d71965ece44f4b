package storage

import (
	"io"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// PhotoMetadata is the capture metadata extracted from an evidence photo.
// Fields are best-effort: field cameras frequently strip or omit EXIF.
type PhotoMetadata struct {
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
}

// ExtractPhotoMetadata reads EXIF capture time and GPS position from a JPEG
// stream. A photo without usable EXIF yields an empty metadata struct, not an
// error: missing metadata must never block an evidence upload.
func ExtractPhotoMetadata(r io.Reader) PhotoMetadata {
	var meta PhotoMetadata

	decoded, err := exif.Decode(r)
	if err != nil {
		return meta
	}

	if capturedAt, err := decoded.DateTime(); err == nil {
		meta.CapturedAt = &capturedAt
	}
	if lat, long, err := decoded.LatLong(); err == nil {
		meta.Latitude = &lat
		meta.Longitude = &long
	}
	return meta
}
