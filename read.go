package psd

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/blocks"
	"github.com/go-psd/psd/internal/fileformat"
	"github.com/go-psd/psd/internal/linked"
)

var linkedLayerBlockKeys = map[string]bool{"lnk2": true, "lnk3": true, "lnkD": true}

// Read parses a full .psd/.psb document from rs (spec.md §6 "read(path,
// options) -> Document"). Unlike fileformat.ReadLayerAndMaskSection, which
// assumes no per-layer channel bytes sit between the layer records and the
// global blocks, Read interleaves fileformat.ReadChannels per layer the
// way real documents are actually laid out on disk.
func Read(rs io.ReadSeeker, opts *ReadOptions) (*Document, error) {
	r := bio.NewReader(rs)

	h, err := fileformat.ReadHeader(r)
	if err != nil {
		return nil, errors.Wrap(err, "psd: reading header")
	}
	opts.logger().Debug().
		Str("version", h.Version.String()).
		Uint16("channels", h.ChannelCount).
		Uint32("width", h.Width).
		Uint32("height", h.Height).
		Msg("parsed header")

	cmd, err := fileformat.ReadColorModeData(r, h.Version)
	if err != nil {
		return nil, errors.Wrap(err, "psd: reading color mode data")
	}

	resources, err := fileformat.ReadImageResources(r, h.Version)
	if err != nil {
		return nil, errors.Wrap(err, "psd: reading image resources")
	}

	records, linkedStore, globalBlocks, mergedAlpha, err := readLayerAndMaskSection(r, h.Version, uint8(h.Depth), opts)
	if err != nil {
		return nil, errors.Wrap(err, "psd: reading layer and mask section")
	}

	composite, err := fileformat.ReadCompositeImage(r, uint8(h.Depth), int(h.Width), int(h.Height), int(h.ChannelCount), h.Version)
	if err != nil {
		return nil, errors.Wrap(err, "psd: reading composite image")
	}

	root, err := buildTree(records, linkedStore, h.Version)
	if err != nil {
		return nil, errors.Wrap(err, "psd: rebuilding layer tree")
	}

	return &Document{
		Header:         h,
		ColorModeData:  cmd,
		ImageResources: resources,
		Composite:      composite,
		MergedAlpha:    mergedAlpha,
		Root:           root,
		LinkedLayers:   linkedStore,
		GlobalBlocks:   globalBlocks,
		compression:    nil,
	}, nil
}

func readLayerAndMaskSection(r *bio.Reader, version bio.Version, depth uint8, opts *ReadOptions) ([]flatRecord, *linked.Store, []blocks.Block, bool, error) {
	total, err := r.ReadVariadicLength(version)
	if err != nil {
		return nil, nil, nil, false, errors.Wrap(err, "layer-and-mask length")
	}
	start, err := r.Offset()
	if err != nil {
		return nil, nil, nil, false, err
	}

	innerLen, err := r.ReadU32()
	if err != nil {
		return nil, nil, nil, false, err
	}
	innerStart, err := r.Offset()
	if err != nil {
		return nil, nil, nil, false, err
	}

	info, err := fileformat.ReadLayerInfo(r, version)
	if err != nil {
		return nil, nil, nil, false, errors.Wrap(err, "layer info")
	}

	opts.progress().SetTask("reading layer channels")
	opts.progress().SetMax(len(info.Layers))

	records := make([]flatRecord, len(info.Layers))
	for i, lr := range info.Layers {
		if err := opts.checkCancelled(); err != nil {
			return nil, nil, nil, false, err
		}
		width := int(lr.Rect.Right - lr.Rect.Left)
		height := int(lr.Rect.Bottom - lr.Rect.Top)
		channels, err := fileformat.ReadChannels(r, lr.Channels, depth, width, height, version)
		if err != nil {
			return nil, nil, nil, false, errors.Wrapf(err, "layer %d channels", i)
		}
		records[i] = flatRecord{record: lr, channels: channels}
		opts.progress().Increment()
	}

	consumed, err := r.Offset()
	if err != nil {
		return nil, nil, nil, false, err
	}
	if pad := int64(innerLen) - (consumed - innerStart); pad > 0 {
		if err := r.ReadPadding(pad); err != nil {
			return nil, nil, nil, false, err
		}
	}

	consumed, err = r.Offset()
	if err != nil {
		return nil, nil, nil, false, err
	}
	remaining := int64(total) - (consumed - start)
	var globalBlocks []blocks.Block
	if remaining >= 8 {
		globalBlocks, err = blocks.ReadAll(r, remaining, version, 4)
		if err != nil {
			return nil, nil, nil, false, errors.Wrap(err, "global blocks")
		}
	}

	consumed, err = r.Offset()
	if err != nil {
		return nil, nil, nil, false, err
	}
	if pad := int64(total) - (consumed - start); pad > 0 {
		if err := r.ReadPadding(pad); err != nil {
			return nil, nil, nil, false, err
		}
	}

	linkedStore := linked.NewStore()
	var kept []blocks.Block
	for _, b := range globalBlocks {
		if !linkedLayerBlockKeys[b.Key] {
			kept = append(kept, b)
			continue
		}
		sub, err := linked.ReadAll(bio.NewReader(bytes.NewReader(b.Payload)), int64(len(b.Payload)), version)
		if err != nil {
			return nil, nil, nil, false, errors.Wrapf(err, "linked layers in %s block", b.Key)
		}
		for _, rec := range sub.Records() {
			linkedStore.Add(rec)
		}
	}

	return records, linkedStore, kept, info.MergedAlpha, nil
}
