package psd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/errkind"
	"github.com/go-psd/psd/internal/linked"
	"github.com/go-psd/psd/internal/warp"
)

// Replace swaps the linked-layer payload this smart object references for
// the contents of path, matching spec.md §6's
// "SmartObjectLayer::replace(path)" and testable property #10: the new
// bytes appear in the store under the same UUID and the old bytes are
// gone.
func (so *SmartObjectLayer) Replace(store *linked.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "psd: reading replacement file")
	}
	fileType := fileTypeFromExt(filepath.Ext(path))
	if err := store.Replace(so.UUID, data, fileType); err != nil {
		return errors.Wrapf(err, "psd: replacing linked layer %s", so.UUID)
	}
	so.Degraded = false
	return nil
}

func fileTypeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "png "
	case ".jpg", ".jpeg":
		return "JPEG"
	case ".psd":
		return "8BPS"
	case ".psb":
		return "8BPB"
	case ".tif", ".tiff":
		return "TIFF"
	default:
		return "    "
	}
}

// Transform applies a 3x3 homography to both the affine and non-affine
// corner quads, matching spec.md §6's
// "SmartObjectLayer::transform(matrix3x3)".
func (so *SmartObjectLayer) Transform(h warp.Homography) {
	so.Affine = applyHomographyToQuad(h, so.Affine)
	so.NonAffine = applyHomographyToQuad(h, so.NonAffine)
}

func applyHomographyToQuad(h warp.Homography, q warp.Quad) warp.Quad {
	var out warp.Quad
	for i, p := range q {
		out[i] = h.Apply(p)
	}
	return out
}

// ResolveLinked resolves the smart object's weak UUID reference against
// store, returning errkind.ErrMissingLinkedLayer if the record is absent
// (spec.md §7 "MissingLinkedLayer").
func (so *SmartObjectLayer) ResolveLinked(store *linked.Store) (*linked.Record, error) {
	rec, ok := store.Get(so.UUID)
	if !ok {
		return nil, errors.Wrapf(errkind.ErrMissingLinkedLayer, "uuid %s", so.UUID)
	}
	return rec, nil
}
