// Package linked implements the global linked-layer registry (spec.md
// §3 "LinkedLayerStore", §4.10): a UUID-keyed store of the embedded,
// external, or alias payloads smart-object layers reference by weak
// reference.
package linked

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/go-psd/psd/internal/bio"
	"github.com/go-psd/psd/internal/descriptor"
	"github.com/go-psd/psd/internal/errkind"
	"github.com/go-psd/psd/internal/ustring"
)

// Kind is the linked-layer record type 4CC.
type Kind uint8

const (
	Data Kind = iota
	External
	Alias
)

var kindTags = map[Kind]string{
	Data:     "liFD",
	External: "liFE",
	Alias:    "liFA",
}

var tagToKind = map[string]Kind{
	"liFD": Data,
	"liFE": External,
	"liFA": Alias,
}

// Record is one linked-layer payload, in whichever of versions 1-7 it was
// authored with.
type Record struct {
	Kind        Kind
	Version     uint8
	UUID        uuid.UUID
	Filename    string
	FileType    string // 4CC, four spaces means "unknown"
	FileCreator uint32
	DataSize    uint64

	// Data holds the raw embedded bytes for Kind == Data. For Kind ==
	// External it holds the bytes that trailed the descriptor/date/size
	// fields (or, for on-disk version 2, the bytes that preceded them --
	// see ReadRecord).
	Data []byte

	FileOpenDescriptor *descriptor.Descriptor // optional, all kinds
	ExternalDescriptor *descriptor.Descriptor // External only
	ExternalDate       float64                // External only
	ExternalFileSize   uint64                 // External only

	ChildDocumentID string  // version >= 5
	AssetModTime    float64 // version >= 6
	AssetLocked     bool    // version >= 7
}

// Store is the per-document UUID -> Record registry. Smart-object layers
// hold only a UUID; resolving it against a Store is how a reader/writer
// turns that weak reference into real bytes.
type Store struct {
	records map[uuid.UUID]*Record
	order   []uuid.UUID // authoring order, preserved for byte round-trip
}

func NewStore() *Store {
	return &Store{records: make(map[uuid.UUID]*Record)}
}

func (s *Store) Add(r *Record) {
	if _, exists := s.records[r.UUID]; !exists {
		s.order = append(s.order, r.UUID)
	}
	s.records[r.UUID] = r
}

func (s *Store) Get(id uuid.UUID) (*Record, bool) {
	r, ok := s.records[id]
	return r, ok
}

func (s *Store) Remove(id uuid.UUID) {
	if _, ok := s.records[id]; !ok {
		return
	}
	delete(s.records, id)
	for i, u := range s.order {
		if u == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Replace overwrites the payload bytes for an existing UUID (used by
// SmartObjectLayer.Replace, spec.md §6).
func (s *Store) Replace(id uuid.UUID, data []byte, fileType string) error {
	r, ok := s.records[id]
	if !ok {
		return errors.Wrapf(errkind.ErrMissingLinkedLayer, "uuid %s", id)
	}
	r.Data = data
	r.DataSize = uint64(len(data))
	r.FileType = fileType
	return nil
}

// Records returns all records in authoring order.
func (s *Store) Records() []*Record {
	out := make([]*Record, 0, len(s.order))
	for _, u := range s.order {
		out = append(out, s.records[u])
	}
	return out
}

// ReadAll parses a flat concatenation of linked-layer records occupying
// exactly totalLen bytes (the lnk2/lnk3/lnkD tagged-block payload). Per
// spec.md §4.10 there is no record count; parsing stops once fewer than 8
// bytes remain, since every record's own length prefix needs at least that
// much room.
func ReadAll(r *bio.Reader, totalLen int64, version bio.Version) (*Store, error) {
	store := NewStore()
	start, err := r.Offset()
	if err != nil {
		return nil, err
	}
	for {
		pos, err := r.Offset()
		if err != nil {
			return nil, err
		}
		remaining := totalLen - (pos - start)
		if remaining < 8 {
			break
		}
		rec, err := readRecord(r, version)
		if err != nil {
			return nil, errors.Wrap(err, "linked: reading record")
		}
		store.Add(rec)
	}
	return store, nil
}

// WriteAll writes every record in authoring order as a flat concatenation
// (the caller wraps this in its own scoped length marker as part of the
// enclosing tagged block).
func WriteAll(w *bio.Writer, store *Store, version bio.Version) error {
	for _, rec := range store.Records() {
		if err := writeRecord(w, rec, version); err != nil {
			return errors.Wrapf(err, "linked: writing record %s", rec.UUID)
		}
	}
	return nil
}

func readRecord(r *bio.Reader, fileVersion bio.Version) (*Record, error) {
	length, err := r.ReadU64()
	if err != nil {
		return nil, err
	}
	start, err := r.Offset()
	if err != nil {
		return nil, err
	}

	tagBytes, err := r.ReadSignature()
	if err != nil {
		return nil, err
	}
	tag := string(tagBytes[:])
	kind, ok := tagToKind[tag]
	if !ok {
		return nil, errors.Wrapf(errkind.ErrInvalidSignature, "linked: unknown record type %q", tag)
	}

	versionU32, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	rec := &Record{Kind: kind, Version: uint8(versionU32)}

	idStr, err := ustring.ReadPascal(r, 1)
	if err != nil {
		return nil, err
	}
	if idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, errors.Wrapf(errkind.ErrInvalidEncoding, "linked: bad uuid %q", idStr)
		}
		rec.UUID = id
	}

	filename, err := ustring.Read(r, 1)
	if err != nil {
		return nil, err
	}
	rec.Filename = filename

	fileTypeBytes, err := r.ReadSignature()
	if err != nil {
		return nil, err
	}
	rec.FileType = string(fileTypeBytes[:])

	rec.FileCreator, err = r.ReadU32()
	if err != nil {
		return nil, err
	}
	rec.DataSize, err = r.ReadU64()
	if err != nil {
		return nil, err
	}

	hasFileOpener, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	if hasFileOpener {
		d, err := descriptor.ReadValue(r, fileVersion, descriptor.DefaultScanWindow)
		if err != nil {
			return nil, err
		}
		if desc, ok := d.(descriptor.Descriptor); ok {
			rec.FileOpenDescriptor = &desc
		}
	}

	switch kind {
	case Data:
		rec.Data, err = r.ReadBytes(int64(rec.DataSize))
		if err != nil {
			return nil, err
		}
	case Alias:
		if err := r.Skip(8); err != nil {
			return nil, err
		}
	case External:
		if rec.Version == 2 {
			rec.Data, err = r.ReadBytes(int64(rec.DataSize))
			if err != nil {
				return nil, err
			}
		}
		d, err := descriptor.ReadValue(r, fileVersion, descriptor.DefaultScanWindow)
		if err != nil {
			return nil, err
		}
		if desc, ok := d.(descriptor.Descriptor); ok {
			rec.ExternalDescriptor = &desc
		}
		rec.ExternalDate, err = r.ReadF64()
		if err != nil {
			return nil, err
		}
		rec.ExternalFileSize, err = r.ReadU64()
		if err != nil {
			return nil, err
		}
		if rec.Version != 2 {
			rec.Data, err = r.ReadBytes(int64(rec.DataSize))
			if err != nil {
				return nil, err
			}
		}
	}

	if rec.Version >= 5 {
		rec.ChildDocumentID, err = ustring.Read(r, 1)
		if err != nil {
			return nil, err
		}
	}
	if rec.Version >= 6 {
		rec.AssetModTime, err = r.ReadF64()
		if err != nil {
			return nil, err
		}
	}
	if rec.Version >= 7 {
		rec.AssetLocked, err = r.ReadBool()
		if err != nil {
			return nil, err
		}
	}

	consumed, err := r.Offset()
	if err != nil {
		return nil, err
	}
	pad := length - (consumed - start)
	if pad > 0 {
		if err := r.ReadPadding(pad); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// defaultWriteVersion implements spec.md §4.10's authoring rule: version 7
// unless the record is an External link, which prefers version 2 to match
// observed authoring-tool behavior.
func defaultWriteVersion(rec *Record) uint8 {
	if rec.Version != 0 {
		return rec.Version
	}
	if rec.Kind == External {
		return 2
	}
	return 7
}

func writeRecord(w *bio.Writer, rec *Record, fileVersion bio.Version) error {
	version := defaultWriteVersion(rec)

	m, err := bio.BeginLength(w, 8)
	if err != nil {
		return err
	}

	if err := w.WriteSignature(kindTags[rec.Kind]); err != nil {
		return err
	}
	if err := w.WriteU32(uint32(version)); err != nil {
		return err
	}
	if err := ustring.WritePascal(w, rec.UUID.String(), 1); err != nil {
		return err
	}
	if err := ustring.Write(w, rec.Filename, 1); err != nil {
		return err
	}
	if err := w.WriteSignature(padFileType(rec.FileType)); err != nil {
		return err
	}
	if err := w.WriteU32(rec.FileCreator); err != nil {
		return err
	}
	if err := w.WriteU64(uint64(len(rec.Data))); err != nil {
		return err
	}

	if rec.FileOpenDescriptor != nil {
		if err := w.WriteBool(true); err != nil {
			return err
		}
		if err := descriptor.WriteValue(w, fileVersion, *rec.FileOpenDescriptor); err != nil {
			return err
		}
	} else {
		if err := w.WriteBool(false); err != nil {
			return err
		}
	}

	switch rec.Kind {
	case Data:
		if err := w.Write(rec.Data); err != nil {
			return err
		}
	case Alias:
		if err := w.WritePadding(8); err != nil {
			return err
		}
	case External:
		if version == 2 {
			if err := w.Write(rec.Data); err != nil {
				return err
			}
		}
		ext := descriptor.Descriptor{}
		if rec.ExternalDescriptor != nil {
			ext = *rec.ExternalDescriptor
		}
		if err := descriptor.WriteValue(w, fileVersion, ext); err != nil {
			return err
		}
		if err := w.WriteF64(rec.ExternalDate); err != nil {
			return err
		}
		if err := w.WriteU64(rec.ExternalFileSize); err != nil {
			return err
		}
		if version != 2 {
			if err := w.Write(rec.Data); err != nil {
				return err
			}
		}
	}

	if version >= 5 {
		if err := ustring.Write(w, rec.ChildDocumentID, 1); err != nil {
			return err
		}
	}
	if version >= 6 {
		if err := w.WriteF64(rec.AssetModTime); err != nil {
			return err
		}
	}
	if version >= 7 {
		if err := w.WriteBool(rec.AssetLocked); err != nil {
			return err
		}
	}

	return bio.EndLength(w, m, 1, true)
}

func padFileType(ft string) string {
	for len(ft) < 4 {
		ft += " "
	}
	if len(ft) > 4 {
		ft = ft[:4]
	}
	return ft
}
