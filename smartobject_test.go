package psd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-psd/psd/internal/linked"
	"github.com/go-psd/psd/internal/warp"
)

// TestS10SmartObjectReplace exercises spec.md testable property #10:
// replacing a linked layer's payload keeps its UUID but swaps the bytes.
func TestS10SmartObjectReplace(t *testing.T) {
	id := uuid.New()
	store := linked.NewStore()
	store.Add(&linked.Record{Kind: linked.Data, UUID: id, Data: []byte("old bytes"), FileType: "png "})

	so := &SmartObjectLayer{Base: Base{Name: "Smart"}, UUID: id, Degraded: false}

	dir := t.TempDir()
	path := filepath.Join(dir, "new.png")
	require.NoError(t, os.WriteFile(path, []byte("new bytes"), 0o644))

	require.NoError(t, so.Replace(store, path))

	rec, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, []byte("new bytes"), rec.Data)
	assert.Equal(t, "png ", rec.FileType)
	assert.False(t, so.Degraded)
}

func TestSmartObjectReplaceMissingRecord(t *testing.T) {
	store := linked.NewStore()
	so := &SmartObjectLayer{UUID: uuid.New()}

	dir := t.TempDir()
	path := filepath.Join(dir, "new.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	err := so.Replace(store, path)
	assert.Error(t, err)
}

func TestSmartObjectResolveLinkedMissing(t *testing.T) {
	so := &SmartObjectLayer{UUID: uuid.New()}
	_, err := so.ResolveLinked(linked.NewStore())
	assert.Error(t, err)
}

func TestSmartObjectTransformAppliesToBothQuads(t *testing.T) {
	so := &SmartObjectLayer{
		Affine:    warp.Quad{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}},
		NonAffine: warp.Quad{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}},
	}
	translate := warp.Homography{1, 0, 5, 0, 1, 5, 0, 0, 1}

	so.Transform(translate)

	assert.Equal(t, warp.Point2D{X: 5, Y: 5}, so.Affine[0])
	assert.Equal(t, warp.Point2D{X: 15, Y: 5}, so.Affine[1])
	assert.Equal(t, warp.Point2D{X: 5, Y: 5}, so.NonAffine[0])
}

func TestFileTypeFromExt(t *testing.T) {
	cases := map[string]string{
		".png":  "png ",
		".PNG":  "png ",
		".jpg":  "JPEG",
		".jpeg": "JPEG",
		".psd":  "8BPS",
		".psb":  "8BPB",
		".tiff": "TIFF",
		".xyz":  "    ",
	}
	for ext, want := range cases {
		assert.Equal(t, want, fileTypeFromExt(ext), ext)
	}
}

func TestWarpAccessor(t *testing.T) {
	w := &warp.Warp{Kind: warp.Normal}
	so := &SmartObjectLayer{WarpData: w}
	assert.Same(t, w, so.Warp())

	empty := &SmartObjectLayer{}
	assert.Nil(t, empty.Warp())
}
