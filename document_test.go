package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-psd/psd/internal/fileformat"
)

func newDoc() *Document {
	return NewDocument(fileformat.Header{
		Version:      1,
		ChannelCount: 3,
		Width:        100,
		Height:       100,
		Depth:        8,
		ColorMode:    fileformat.RGB,
	})
}

func img(name string) *ImageLayer {
	return &ImageLayer{Base: Base{Name: name}}
}

func group(name string, children ...Layer) *GroupLayer {
	return &GroupLayer{Base: Base{Name: name}, Children: children}
}

// TestS4GroupRemovePrunesEmptyGroups exercises spec.md scenario S4: removing
// a group's only child leaves no dangling empty group behind.
func TestS4GroupRemovePrunesEmptyGroups(t *testing.T) {
	d := newDoc()
	d.Root = []Layer{
		group("Folder", img("Leaf")),
	}

	require.NoError(t, d.RemoveLayer("Folder/Leaf"))

	assert.Empty(t, d.Root, "empty Folder should have been pruned")
	_, ok := d.FindLayer("Folder")
	assert.False(t, ok)
}

func TestMoveLayerPrunesSourceGroup(t *testing.T) {
	d := newDoc()
	d.Root = []Layer{
		group("A", img("Leaf")),
		group("B"),
	}

	require.NoError(t, d.MoveLayer("A/Leaf", "B"))

	_, ok := d.FindLayer("A")
	assert.False(t, ok, "A should be pruned once its only child moves out")

	moved, ok := d.FindLayer("B/Leaf")
	require.True(t, ok)
	assert.Equal(t, "Leaf", Name(moved))
}

func TestMoveLayerToRoot(t *testing.T) {
	d := newDoc()
	d.Root = []Layer{group("A", img("Leaf"))}

	require.NoError(t, d.MoveLayer("A/Leaf", ""))

	require.Len(t, d.Root, 1)
	assert.Equal(t, "Leaf", Name(d.Root[0]))
}

func TestAddLayerNoSuchGroup(t *testing.T) {
	d := newDoc()
	err := d.AddLayer("Missing", img("X"))
	assert.Error(t, err)
}

func TestFindLayerDuplicateNamesResolveToFirst(t *testing.T) {
	d := newDoc()
	first := img("Layer")
	first.Opacity = 1
	second := img("Layer")
	second.Opacity = 2
	d.Root = []Layer{first, second}

	found, ok := d.FindLayer("Layer")
	require.True(t, ok)
	assert.Equal(t, uint8(1), found.(*ImageLayer).Opacity)
}

func TestFlatLayersForwardAndReverse(t *testing.T) {
	d := newDoc()
	d.Root = []Layer{
		group("Folder", img("A"), img("B")),
		img("C"),
	}

	forward := d.FlatLayers(Forward)
	var names []string
	for _, l := range forward {
		names = append(names, Name(l))
	}
	assert.Equal(t, []string{"Folder", "A", "B", "C"}, names)

	reverse := d.FlatLayers(Reverse)
	names = names[:0]
	for _, l := range reverse {
		names = append(names, Name(l))
	}
	assert.Equal(t, []string{"C", "B", "A", "Folder"}, names)
}

func TestFindLayerAsTypeMismatch(t *testing.T) {
	d := newDoc()
	d.Root = []Layer{img("Pixels")}

	_, ok := FindLayerAs[*GroupLayer](d, "Pixels")
	assert.False(t, ok)

	found, ok := FindLayerAs[*ImageLayer](d, "Pixels")
	require.True(t, ok)
	assert.Equal(t, "Pixels", found.Name)
}

func TestDegradedLayers(t *testing.T) {
	d := newDoc()
	so := &SmartObjectLayer{Base: Base{Name: "Linked"}, Degraded: true}
	d.Root = []Layer{so, img("Plain")}

	degraded := d.DegradedLayers()
	require.Len(t, degraded, 1)
	assert.Same(t, so, degraded[0])
}
