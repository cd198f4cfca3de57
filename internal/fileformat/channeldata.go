package fileformat

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/channel"
)

// ChannelData is one decoded channel raster plus the compression it was
// stored with, so a read-then-write round trip can reuse the original
// encoding unless the caller explicitly changes it.
type ChannelData struct {
	ID          int16
	Compression channel.Compression
	Raw         []byte // big-endian sample bytes, width*height*bytesPerSample
}

// ReadChannels reads the raw channel bytes that follow a layer record's
// declared channel headers, in the same order, each prefixed by its own
// 2-byte compression tag (spec.md §3 "Compression tag").
func ReadChannels(r *bio.Reader, refs []ChannelRef, depth uint8, width, height int, version bio.Version) ([]ChannelData, error) {
	out := make([]ChannelData, len(refs))
	for i, ref := range refs {
		compTag, err := r.ReadU16()
		if err != nil {
			return nil, errors.Wrapf(err, "fileformat: channel %d compression tag", i)
		}
		comp := channel.Compression(compTag)
		compressedLen := int64(ref.Length) - 2
		raw, err := channel.Decompress(channelReader{r}, comp, depth, width, height, version, compressedLen)
		if err != nil {
			return nil, errors.Wrapf(err, "fileformat: channel %d (id %d)", i, ref.ID)
		}
		out[i] = ChannelData{ID: ref.ID, Compression: comp, Raw: raw}
	}
	return out, nil
}

// channelReader adapts *bio.Reader to io.Reader for the channel package,
// which only needs sequential byte access.
type channelReader struct {
	r *bio.Reader
}

func (c channelReader) Read(p []byte) (int, error) {
	if err := c.r.ReadExact(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteChannels compresses and writes each channel's raster, returning the
// ChannelRef headers (with their final on-disk lengths) to embed in the
// layer record that precedes them.
func WriteChannels(w *bio.Writer, channels []ChannelData, depth uint8, width, height int, version bio.Version) ([]ChannelRef, error) {
	refs := make([]ChannelRef, len(channels))
	for i, ch := range channels {
		var buf bytes.Buffer
		buf.Write([]byte{byte(ch.Compression >> 8), byte(ch.Compression)})

		n, err := channel.Compress(&buf, ch.Raw, ch.Compression, depth, width, height, version)
		if err != nil {
			return nil, errors.Wrapf(err, "fileformat: channel %d (id %d)", i, ch.ID)
		}
		if err := w.Write(buf.Bytes()); err != nil {
			return nil, err
		}
		refs[i] = ChannelRef{ID: ch.ID, Length: uint64(n) + 2}
	}
	return refs, nil
}
