package fileformat

import (
	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/channel"
)

// CompositeImage is the final, flattened preview raster at the end of the
// file: a 2-byte compression tag followed by one interleaved-by-channel
// raster with no enclosing length (it runs to EOF).
type CompositeImage struct {
	Compression channel.Compression
	Channels    [][]byte // one raw raster per channel, in document channel order
}

func ReadCompositeImage(r *bio.Reader, depth uint8, width, height, channelCount int, version bio.Version) (CompositeImage, error) {
	compTag, err := r.ReadU16()
	if err != nil {
		return CompositeImage{}, errors.Wrap(err, "fileformat: composite compression tag")
	}
	comp := channel.Compression(compTag)
	ci := CompositeImage{Compression: comp, Channels: make([][]byte, channelCount)}
	for i := 0; i < channelCount; i++ {
		raw, err := channel.Decompress(channelReader{r}, comp, depth, width, height, version, -1)
		if err != nil {
			return CompositeImage{}, errors.Wrapf(err, "fileformat: composite channel %d", i)
		}
		ci.Channels[i] = raw
	}
	return ci, nil
}

func WriteCompositeImage(w *bio.Writer, ci CompositeImage, depth uint8, width, height int, version bio.Version) error {
	if err := w.WriteU16(uint16(ci.Compression)); err != nil {
		return err
	}
	for i, raw := range ci.Channels {
		if _, err := channel.Compress(compositeWriter{w}, raw, ci.Compression, depth, width, height, version); err != nil {
			return errors.Wrapf(err, "fileformat: composite channel %d", i)
		}
	}
	return nil
}

type compositeWriter struct {
	w *bio.Writer
}

func (c compositeWriter) Write(p []byte) (int, error) {
	if err := c.w.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
