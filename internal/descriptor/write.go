package descriptor

import "github.com/go-psd/psd/internal/bio"

// WriteItem writes one descriptor item: a length-prefixed-key-or-empty (or
// nothing at all when writeKey is false, for List/Reference elements)
// followed by the value's own 4CC tag and body.
func WriteItem(w *bio.Writer, version bio.Version, it Item, writeKey bool) error {
	if writeKey {
		if err := writeID(w, it.Key); err != nil {
			return err
		}
	}
	return WriteValue(w, version, it.Value)
}

// WriteValue writes a bare value: its OS-type tag then its body.
func WriteValue(w *bio.Writer, version bio.Version, v Value) error {
	if err := w.WriteSignature(v.OSType()); err != nil {
		return err
	}
	return v.writeBody(w, version)
}

func writeItems(w *bio.Writer, version bio.Version, items []Item) error {
	if err := w.WriteU32(uint32(len(items))); err != nil {
		return err
	}
	for _, it := range items {
		if err := WriteItem(w, version, it, true); err != nil {
			return err
		}
	}
	return nil
}

func (d Descriptor) writeBody(w *bio.Writer, version bio.Version) error {
	if err := writeID(w, d.ClassID); err != nil {
		return err
	}
	return writeItems(w, version, d.Items)
}

func (a ObjectArray) writeBody(w *bio.Writer, version bio.Version) error {
	if err := w.WriteU32(a.ItemsCount); err != nil {
		return err
	}
	if err := writeID(w, a.ClassID); err != nil {
		return err
	}
	return writeItems(w, version, a.Items)
}

func (l List) writeBody(w *bio.Writer, version bio.Version) error {
	if err := w.WriteU32(uint32(len(l.Items))); err != nil {
		return err
	}
	for _, v := range l.Items {
		if err := WriteValue(w, version, v); err != nil {
			return err
		}
	}
	return nil
}

func (r Reference) writeBody(w *bio.Writer, version bio.Version) error {
	if err := w.WriteU32(uint32(len(r.Items))); err != nil {
		return err
	}
	for _, v := range r.Items {
		if err := WriteValue(w, version, v); err != nil {
			return err
		}
	}
	return nil
}

func (d Double) writeBody(w *bio.Writer, _ bio.Version) error { return w.WriteF64(float64(d)) }

func (i Integer32) writeBody(w *bio.Writer, _ bio.Version) error { return w.WriteI32(int32(i)) }

func (i Integer64) writeBody(w *bio.Writer, _ bio.Version) error { return w.WriteI64(int64(i)) }

func (b Boolean) writeBody(w *bio.Writer, _ bio.Version) error { return w.WriteBool(bool(b)) }

func (s UnicodeString) writeBody(w *bio.Writer, _ bio.Version) error {
	return writeUnicodeStringRaw(w, string(s))
}

func (e EnumeratedString) writeBody(w *bio.Writer, _ bio.Version) error {
	if err := writeID(w, e.TypeID); err != nil {
		return err
	}
	return writeID(w, e.EnumID)
}

func (c Class) writeBody(w *bio.Writer, _ bio.Version) error {
	if err := writeUnicodeStringRaw(w, c.Name); err != nil {
		return err
	}
	return writeID(w, c.ClassID)
}

func (u UnitFloat) writeBody(w *bio.Writer, _ bio.Version) error {
	if err := w.WriteSignature(unitTags[u.Unit]); err != nil {
		return err
	}
	return w.WriteF64(u.Value)
}

func (u UnitFloats) writeBody(w *bio.Writer, _ bio.Version) error {
	if err := w.WriteSignature(unitTags[u.Unit]); err != nil {
		return err
	}
	if err := w.WriteU32(uint32(len(u.Values))); err != nil {
		return err
	}
	for _, v := range u.Values {
		if err := w.WriteF64(v); err != nil {
			return err
		}
	}
	return nil
}

func (a Alias) writeBody(w *bio.Writer, _ bio.Version) error {
	if err := w.WriteU32(uint32(len(a))); err != nil {
		return err
	}
	return w.Write(a)
}

func (r RawData) writeBody(w *bio.Writer, _ bio.Version) error {
	if err := w.WriteU32(uint32(len(r))); err != nil {
		return err
	}
	return w.Write(r)
}

func (p Property) writeBody(w *bio.Writer, _ bio.Version) error {
	if err := writeID(w, p.ClassID); err != nil {
		return err
	}
	return writeID(w, p.KeyID)
}

func (e EnumeratedReference) writeBody(w *bio.Writer, _ bio.Version) error {
	if err := writeID(w, e.ClassID); err != nil {
		return err
	}
	if err := writeID(w, e.TypeID); err != nil {
		return err
	}
	return writeID(w, e.EnumID)
}

func (o Offset) writeBody(w *bio.Writer, _ bio.Version) error {
	if err := writeID(w, o.ClassID); err != nil {
		return err
	}
	return w.WriteU32(o.Value)
}

func (i Identifier) writeBody(w *bio.Writer, _ bio.Version) error { return w.WriteI32(int32(i)) }

func (i Index) writeBody(w *bio.Writer, _ bio.Version) error { return w.WriteI32(int32(i)) }

func (n Name) writeBody(w *bio.Writer, _ bio.Version) error {
	if err := writeID(w, n.ClassID); err != nil {
		return err
	}
	return writeUnicodeStringRaw(w, n.Value)
}

// Unknown values round-trip their scanned bytes verbatim with no
// additional framing; recoverUnknown already consumed exactly what it
// captured, so writing it back reproduces the same bytes.
func (u Unknown) writeBody(w *bio.Writer, _ bio.Version) error { return w.Write(u.Body) }

func writeUnicodeStringRaw(w *bio.Writer, s string) error {
	b := encodeUTF16BE(s)
	if err := w.WriteU32(uint32(len(b) / 2)); err != nil {
		return err
	}
	return w.Write(b)
}
