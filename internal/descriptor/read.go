package descriptor

import (
	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/errkind"
)

type readerFn func(r *bio.Reader, version bio.Version, scanWindow int) (Value, error)

var readers map[string]readerFn

func init() {
	readers = map[string]readerFn{
		"Objc": readDescriptorBody,
		"GlbO": readDescriptorBody,
		"ObAr": readObjectArrayBody,
		"VlLs": readListBody,
		"doub": readDoubleBody,
		"long": readInteger32Body,
		"comp": readInteger64Body,
		"bool": readBooleanBody,
		"TEXT": readUnicodeStringBody,
		"enum": readEnumeratedStringBody,
		"Clss": readClassBody,
		"UntF": readUnitFloatBody,
		"UnFl": readUnitFloatsBody,
		"alis": readAliasBody,
		"tdta": readRawDataBody,
		"Prop": readPropertyBody,
		"Enmr": readEnumeratedReferenceBody,
		"rele": readOffsetBody,
		"idnt": readIdentifierBody,
		"indx": readIndexBody,
		"name": readNameBody,
		"obj ": readReferenceBody,
	}
}

// ReadItem reads one descriptor item: an optional key (when readKey is
// true) followed by a 4CC OS-type tag and that variant's body.
func ReadItem(r *bio.Reader, version bio.Version, readKey bool, scanWindow int) (Item, error) {
	var key string
	if readKey {
		k, err := readID(r)
		if err != nil {
			return Item{}, errors.Wrap(err, "descriptor: reading item key")
		}
		key = k
	}
	val, err := ReadValue(r, version, scanWindow)
	if err != nil {
		return Item{}, err
	}
	return Item{Key: key, Value: val}, nil
}

// ReadValue reads a bare (unkeyed) value: its 4CC OS-type tag followed by
// the variant-specific body. Unknown tags trigger the bounded forward scan
// described in spec.md §4.4.
func ReadValue(r *bio.Reader, version bio.Version, scanWindow int) (Value, error) {
	if scanWindow <= 0 {
		scanWindow = DefaultScanWindow
	}
	tagBytes, err := r.ReadSignature()
	if err != nil {
		return nil, errors.Wrap(err, "descriptor: reading OS-type tag")
	}
	tag := string(tagBytes[:])
	if fn, ok := readers[tag]; ok {
		v, err := fn(r, version, scanWindow)
		if err != nil {
			return nil, errors.Wrapf(err, "descriptor: reading %q body", tag)
		}
		return v, nil
	}
	return recoverUnknown(r, tag, scanWindow)
}

// recoverUnknown implements the bounded scan: starting right after the
// unrecognized tag, it scans forward up to scanWindow bytes for the next
// 4 bytes that match a known OS-type, and returns everything scanned as an
// opaque Unknown value, leaving the stream positioned right before the
// recognized tag so the caller's next ReadValue picks it up cleanly. If no
// known tag appears in the window, the descriptor is corrupt.
func recoverUnknown(r *bio.Reader, tag string, scanWindow int) (Value, error) {
	start, err := r.Offset()
	if err != nil {
		return nil, err
	}
	window, err := r.ReadBytes(int64(scanWindow))
	if err != nil {
		// Not enough bytes left to fill the window; scan what remains.
		size, sizeErr := r.Size()
		if sizeErr != nil {
			return nil, err
		}
		remaining := size - start
		if remaining <= 0 {
			return nil, errors.Wrapf(errkind.ErrCorruptDescriptor, "unknown tag %q at eof", tag)
		}
		if err := r.SetOffset(start); err != nil {
			return nil, err
		}
		window, err = r.ReadBytes(remaining)
		if err != nil {
			return nil, err
		}
	}
	for i := 0; i+4 <= len(window); i++ {
		candidate := string(window[i : i+4])
		if _, ok := readers[candidate]; ok {
			if err := r.SetOffset(start + int64(i)); err != nil {
				return nil, err
			}
			return Unknown{Tag: tag, Body: window[:i]}, nil
		}
	}
	return nil, errors.Wrapf(errkind.ErrCorruptDescriptor, "unknown tag %q: no known tag within %d bytes", tag, scanWindow)
}

func readItems(r *bio.Reader, version bio.Version, scanWindow int) ([]Item, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	items := make([]Item, n)
	for i := range items {
		it, err := ReadItem(r, version, true, scanWindow)
		if err != nil {
			return nil, err
		}
		items[i] = it
	}
	return items, nil
}

func readDescriptorBody(r *bio.Reader, version bio.Version, scanWindow int) (Value, error) {
	classID, err := readID(r)
	if err != nil {
		return nil, err
	}
	items, err := readItems(r, version, scanWindow)
	if err != nil {
		return nil, err
	}
	return Descriptor{ClassID: classID, Items: items}, nil
}

func readObjectArrayBody(r *bio.Reader, version bio.Version, scanWindow int) (Value, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	classID, err := readID(r)
	if err != nil {
		return nil, err
	}
	items, err := readItems(r, version, scanWindow)
	if err != nil {
		return nil, err
	}
	return ObjectArray{ItemsCount: count, ClassID: classID, Items: items}, nil
}

func readListBody(r *bio.Reader, version bio.Version, scanWindow int) (Value, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	items := make([]Value, n)
	for i := range items {
		v, err := ReadValue(r, version, scanWindow)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return List{Items: items}, nil
}

func readReferenceBody(r *bio.Reader, version bio.Version, scanWindow int) (Value, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	items := make([]Value, n)
	for i := range items {
		v, err := ReadValue(r, version, scanWindow)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return Reference{Items: items}, nil
}

func readDoubleBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	v, err := r.ReadF64()
	return Double(v), err
}

func readInteger32Body(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	v, err := r.ReadI32()
	return Integer32(v), err
}

func readInteger64Body(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	v, err := r.ReadI64()
	return Integer64(v), err
}

func readBooleanBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	v, err := r.ReadU8()
	return Boolean(v != 0), err
}

func readUnicodeStringBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	units := make([]byte, 0, n*2)
	for i := uint32(0); i < n; i++ {
		u, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		units = append(units, byte(u>>8), byte(u))
	}
	return UnicodeString(decodeUTF16BE(units)), nil
}

func readEnumeratedStringBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	typeID, err := readID(r)
	if err != nil {
		return nil, err
	}
	enumID, err := readID(r)
	if err != nil {
		return nil, err
	}
	return EnumeratedString{TypeID: typeID, EnumID: enumID}, nil
}

func readClassBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	name, err := readUnicodeStringRaw(r)
	if err != nil {
		return nil, err
	}
	classID, err := readID(r)
	if err != nil {
		return nil, err
	}
	return Class{Name: name, ClassID: classID}, nil
}

func readUnitFloatBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	unitTag, err := r.ReadSignature()
	if err != nil {
		return nil, err
	}
	v, err := r.ReadF64()
	if err != nil {
		return nil, err
	}
	return UnitFloat{Unit: tagToUnit[string(unitTag[:])], Value: v}, nil
}

func readUnitFloatsBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	unitTag, err := r.ReadSignature()
	if err != nil {
		return nil, err
	}
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	values := make([]float64, n)
	for i := range values {
		v, err := r.ReadF64()
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return UnitFloats{Unit: tagToUnit[string(unitTag[:])], Values: values}, nil
}

func readAliasBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	b, err := r.ReadBytes(int64(n))
	return Alias(b), err
}

func readRawDataBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	b, err := r.ReadBytes(int64(n))
	return RawData(b), err
}

func readPropertyBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	classID, err := readID(r)
	if err != nil {
		return nil, err
	}
	keyID, err := readID(r)
	if err != nil {
		return nil, err
	}
	return Property{ClassID: classID, KeyID: keyID}, nil
}

func readEnumeratedReferenceBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	classID, err := readID(r)
	if err != nil {
		return nil, err
	}
	typeID, err := readID(r)
	if err != nil {
		return nil, err
	}
	enumID, err := readID(r)
	if err != nil {
		return nil, err
	}
	return EnumeratedReference{ClassID: classID, TypeID: typeID, EnumID: enumID}, nil
}

func readOffsetBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	classID, err := readID(r)
	if err != nil {
		return nil, err
	}
	v, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return Offset{ClassID: classID, Value: v}, nil
}

func readIdentifierBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	v, err := r.ReadI32()
	return Identifier(v), err
}

func readIndexBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	v, err := r.ReadI32()
	return Index(v), err
}

func readNameBody(r *bio.Reader, _ bio.Version, _ int) (Value, error) {
	classID, err := readID(r)
	if err != nil {
		return nil, err
	}
	name, err := readUnicodeStringRaw(r)
	if err != nil {
		return nil, err
	}
	return Name{ClassID: classID, Value: name}, nil
}

// readUnicodeStringRaw reads a bare (un-padded) unicode string: u32
// code-unit count then that many UTF-16BE code units. Several descriptor
// sub-fields (Class.Name, Name.Value) use this un-padded form rather than
// the padded ustring.Read form used at the tagged-block level.
func readUnicodeStringRaw(r *bio.Reader) (string, error) {
	v, err := readUnicodeStringBody(r, 0, 0)
	if err != nil {
		return "", err
	}
	return string(v.(UnicodeString)), nil
}
