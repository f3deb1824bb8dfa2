package drainer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// maxArtworkBytes bounds how much of a cover response is read.
const maxArtworkBytes = 10 << 20

// fetchArtwork downloads a cover image and returns it as JPEG no larger than
// maxSize pixels on its longest edge.
func fetchArtwork(ctx context.Context, client *http.Client, url string, maxSize int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create artwork request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "artwork request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got response code %d for artwork", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtworkBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read artwork")
	}
	return resizeArtwork(data, maxSize)
}

func resizeArtwork(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode artwork")
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxSize > 0 && (width > maxSize || height > maxSize) {
		if width >= height {
			height = height * maxSize / width
			width = maxSize
		} else {
			width = width * maxSize / height
			height = maxSize
		}
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, errors.Wrap(err, "encode artwork")
	}
	return buf.Bytes(), nil
}
