package drainer

import (
	"context"
	"io"
	"os"

	"github.com/bogem/id3v2"
	"github.com/pkg/errors"
)

// ID3 tags tracks in-process with an ID3v2 header. It needs no external
// binary, at the cost of only suiting players that read ID3 from any file.
type ID3 struct{}

func NewID3() *ID3 {
	return &ID3{}
}

func (i *ID3) Transcode(ctx context.Context, src, dst string, tags Tags) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp := dst + ".tmp"
	if err := copyFile(src, tmp); err != nil {
		return errors.Wrap(err, "failed to stage track")
	}

	if err := writeTags(tmp, tags); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "failed to move tagged track into place")
	}
	return nil
}

func writeTags(path string, tags Tags) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return errors.Wrap(err, "failed to open tag")
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetArtist(tags.Artist)
	tag.SetTitle(tags.Title)
	tag.SetAlbum(tags.Album)

	if len(tags.Artwork) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     tags.Artwork,
		})
	}

	return errors.Wrap(tag.Save(), "failed to save tag")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
