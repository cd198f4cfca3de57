package psd

import (
	"io"

	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/blocks"
	"github.com/go-psd/psd/internal/fileformat"
	"github.com/go-psd/psd/internal/linked"
)

// Write serializes doc to ws (spec.md §6 "write(document, path,
// options)"), mirroring Read's section framing: layer records, then every
// layer's compressed channel bytes in the same order, then the global
// tagged blocks (including a regenerated linked-layer block), then the
// composite image.
func Write(ws io.WriteSeeker, doc *Document, opts *WriteOptions) error {
	w := bio.NewWriter(ws)

	if err := fileformat.WriteHeader(w, doc.Header); err != nil {
		return errors.Wrap(err, "psd: writing header")
	}
	if err := fileformat.WriteColorModeData(w, doc.Header.Version, doc.ColorModeData); err != nil {
		return errors.Wrap(err, "psd: writing color mode data")
	}
	if err := fileformat.WriteImageResources(w, doc.Header.Version, doc.ImageResources); err != nil {
		return errors.Wrap(err, "psd: writing image resources")
	}

	compressionFor := doc.compressionFor
	if opts != nil && opts.Compression != nil {
		compressionFor = opts.Compression
	}
	depth := uint8(doc.Header.Depth)

	records, err := flattenTree(doc.Root, compressionFor, depth, doc.Header.Version)
	if err != nil {
		return errors.Wrap(err, "psd: flattening layer tree")
	}

	if err := writeLayerAndMaskSection(w, doc, records, depth, opts); err != nil {
		return errors.Wrap(err, "psd: writing layer and mask section")
	}

	return fileformat.WriteCompositeImage(w, doc.Composite, depth, int(doc.Header.Width), int(doc.Header.Height), doc.Header.Version)
}

func writeLayerAndMaskSection(w *bio.Writer, doc *Document, records []flatRecord, depth uint8, opts *WriteOptions) error {
	version := doc.Header.Version

	opts.progress().SetTask("compressing layer channels")
	opts.progress().SetMax(len(records))

	staged := make([][]byte, len(records))
	info := fileformat.LayerInfo{MergedAlpha: doc.MergedAlpha, Layers: make([]fileformat.LayerRecord, len(records))}
	for i, fr := range records {
		if err := opts.checkCancelled(); err != nil {
			return err
		}
		lr := fr.record
		width := int(lr.Rect.Right - lr.Rect.Left)
		height := int(lr.Rect.Bottom - lr.Rect.Top)

		seeker := &memSeeker{}
		cw := bio.NewWriter(seeker)
		refs, err := fileformat.WriteChannels(cw, fr.channels, depth, width, height, version)
		if err != nil {
			return errors.Wrapf(err, "layer %d channels", i)
		}
		lr.Channels = refs
		info.Layers[i] = lr
		staged[i] = seeker.b
		opts.progress().Increment()
	}

	outer, err := bio.BeginVariadicLength(w, version)
	if err != nil {
		return err
	}
	inner, err := bio.BeginLength(w, 4)
	if err != nil {
		return err
	}
	if err := fileformat.WriteLayerInfo(w, version, info); err != nil {
		return err
	}
	for i, chunk := range staged {
		if err := w.Write(chunk); err != nil {
			return errors.Wrapf(err, "layer %d channel bytes", i)
		}
	}
	if err := bio.EndLength(w, inner, 2, true); err != nil {
		return err
	}

	globalBlocks := append([]blocks.Block(nil), doc.GlobalBlocks...)
	if len(doc.LinkedLayers.Records()) > 0 {
		seeker := &memSeeker{}
		lw := bio.NewWriter(seeker)
		if err := linked.WriteAll(lw, doc.LinkedLayers, version); err != nil {
			return errors.Wrap(err, "writing linked layers")
		}
		globalBlocks = append(globalBlocks, blocks.Block{Key: "lnk3", Payload: seeker.b})
	}
	if err := blocks.WriteAll(w, globalBlocks, version, 4); err != nil {
		return err
	}

	return bio.EndLength(w, outer, 2, true)
}
