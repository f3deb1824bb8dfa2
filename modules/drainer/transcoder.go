package drainer

import (
	"context"
	"fmt"
)

// Tags are the values written into a stored track.
type Tags struct {
	Artist string
	Title  string
	Album  string

	// Artwork is JPEG data for the front cover. Transcoders that cannot embed
	// pictures ignore it.
	Artwork []byte
}

// Transcoder writes a tagged copy of src to dst. It must not remove src.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string, tags Tags) error
}

// NewTranscoder returns the transcoder selected by cfg.
func NewTranscoder(cfg Config) (Transcoder, error) {
	switch cfg.Transcoder {
	case TranscoderFFmpeg, "":
		return NewFFmpeg(cfg.FFmpegPath), nil
	case TranscoderID3:
		return NewID3(), nil
	default:
		return nil, fmt.Errorf("unknown transcoder %q", cfg.Transcoder)
	}
}
