// Package descriptor implements the editor's recursive, self-describing
// key/value tree (spec.md §3 "Descriptor value variants", §4.4). A
// descriptor item is read as an optional key followed by a 4-byte OS-type
// tag that selects one of a closed set of value variants; each variant
// owns its own reader and writer.
package descriptor

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/errkind"
)

// DefaultScanWindow is the number of bytes §4.4 scans forward looking for
// the next recognizable OS-type tag after an unknown one is encountered.
const DefaultScanWindow = 1024

// Unit is the unit enum carried by UnitFloat/UnitFloats.
type Unit uint8

const (
	UnitAngle Unit = iota
	UnitDensity
	UnitDistance
	UnitNone
	UnitPercent
	UnitPixel
	UnitPoints
	UnitMillimeters
)

var unitTags = map[Unit]string{
	UnitAngle:       "#Ang",
	UnitDensity:     "#Rsl",
	UnitDistance:    "#Rlt",
	UnitNone:        "#Nne",
	UnitPercent:     "#Prc",
	UnitPixel:       "#Pxl",
	UnitPoints:      "#Pnt",
	UnitMillimeters: "#Mlm",
}

var tagToUnit = func() map[string]Unit {
	m := make(map[string]Unit, len(unitTags))
	for u, tag := range unitTags {
		m[tag] = u
	}
	return m
}()

// Value is any of the closed set of descriptor value variants. Each
// concrete type knows its own 4CC OS-type tag and how to serialize its
// body; OSType is also what the reader's dispatch table keys on.
type Value interface {
	OSType() string
	writeBody(w *bio.Writer, version bio.Version) error
}

// Item is one key/value pair inside a Descriptor, or a bare Value when
// appearing as a List/Reference element (Key == "").
type Item struct {
	Key   string
	Value Value
}

// Descriptor is the recursive map the on-disk format calls "Objc"/"GlbO":
// a class ID plus an ordered list of key/value items (ordered because
// round-tripping byte-for-byte requires preserving authoring order).
type Descriptor struct {
	ClassID string
	Items   []Item
}

func (Descriptor) OSType() string { return "Objc" }

// Get returns the first item's value with the given key, or nil.
func (d Descriptor) Get(key string) Value {
	for _, it := range d.Items {
		if it.Key == key {
			return it.Value
		}
	}
	return nil
}

// ObjectArray is the "tOar"-shaped variant: an item count, a class ID, and
// a recursive map of items (spec.md §3).
type ObjectArray struct {
	ItemsCount uint32
	ClassID    string
	Items      []Item
}

func (ObjectArray) OSType() string { return "ObAr" }

// List is an ordered, unkeyed sequence of values.
type List struct {
	Items []Value
}

func (List) OSType() string { return "VlLs" }

type Double float64

func (Double) OSType() string { return "doub" }

type Integer32 int32

func (Integer32) OSType() string { return "long" }

type Integer64 int64

func (Integer64) OSType() string { return "comp" }

type Boolean bool

func (Boolean) OSType() string { return "bool" }

type UnicodeString string

func (UnicodeString) OSType() string { return "TEXT" }

// EnumeratedString is a (type, value) pair of 4CC-or-longer identifiers,
// e.g. an enumerated blend mode or unit kind.
type EnumeratedString struct {
	TypeID string
	EnumID string
}

func (EnumeratedString) OSType() string { return "enum" }

// Class names a class ID, optionally with a human-readable name.
type Class struct {
	Name    string
	ClassID string
}

func (Class) OSType() string { return "Clss" }

// UnitFloat pairs a unit kind with a double.
type UnitFloat struct {
	Unit  Unit
	Value float64
}

func (UnitFloat) OSType() string { return "UntF" }

// UnitFloats pairs a unit kind with a vector of doubles (used by warp mesh
// points: one UnitFloats named "Hrzn", one named "Vrtc").
type UnitFloats struct {
	Unit   Unit
	Values []float64
}

func (UnitFloats) OSType() string { return "UnFl" }

// Alias is an opaque, platform-specific file-alias payload.
type Alias []byte

func (Alias) OSType() string { return "alis" }

// RawData is an opaque byte payload whose interpretation depends on
// context (e.g. embedded ICC profiles round-tripped verbatim).
type RawData []byte

func (RawData) OSType() string { return "tdta" }

// Property references a single property of a class.
type Property struct {
	ClassID string
	KeyID   string
}

func (Property) OSType() string { return "Prop" }

// EnumeratedReference references one enumerated value of a class.
type EnumeratedReference struct {
	ClassID string
	TypeID  string
	EnumID  string
}

func (EnumeratedReference) OSType() string { return "Enmr" }

// Offset references an element by its index into a class's storage.
type Offset struct {
	ClassID string
	Value   uint32
}

func (Offset) OSType() string { return "rele" }

// Identifier references an element by a small integer ID.
type Identifier int32

func (Identifier) OSType() string { return "idnt" }

// Index references an element by its position.
type Index int32

func (Index) OSType() string { return "indx" }

// Name references an element by a human-readable name within a class.
type Name struct {
	ClassID string
	Value   string
}

func (Name) OSType() string { return "name" }

// Reference is an ordered chain of the six reference-component types
// above (Property, EnumeratedReference, Offset, Identifier, Index, Name).
type Reference struct {
	Items []Value
}

func (Reference) OSType() string { return "obj " }

// Unknown is the bounded-scan recovery placeholder: the 4CC tag that
// wasn't recognized, plus the raw bytes scanned until the next known tag.
// When no known tag appears within the scan window, reading fails instead
// and no Unknown is produced.
type Unknown struct {
	Tag  string
	Body []byte
}

func (u Unknown) OSType() string { return u.Tag }
