// Package layout declares binary record layouts and derives an encoder and
// a decoder from each declaration.
//
// A Definition is an ordered list of typed fields. Each field carries
// constraints ranked by priority: offset, prefix, type, length, max_length
// and bounds. The same constraints are enforced in both directions.
//
// # Declaring
//
//	var Packet = layout.MustDefine("Packet",
//	    layout.UIntField("tlen"),
//	    layout.StringField("text", layout.Ref("tlen")),
//	    layout.UByteField("flag", layout.Prefix([]byte{1}).OrOmit()),
//	)
//
// A FieldRef names an earlier integer field. Assigning text writes its
// length into tlen; decoding reads tlen first and uses it as the length of
// text.
//
// # Encoding
//
// Encode runs two passes. The dry run walks the fields with a cursor and
// lets constraints derive values, for instance writing a field's position
// into the field its offset option references. The emit pass then writes
// the bytes from the same base; a field that emits a different width than
// it measured fails with ErrUnstableLayout.
//
// # Decoding
//
// Decode walks the fields once. Constraint prechecks run in ascending
// priority. A failing precheck declared with OrOmit makes the field absent
// (a nil Value) and consumes no bytes; any other failure aborts with a
// *DecodeError. Decoded values are then assigned through New, so bounds
// and type checks apply to them as well.
//
// # Errors
//
// *DecodeError, *ValueError, *PackError, *UnresolvedFieldsError and
// *DefinitionError carry the field and constraint involved and wrap the
// package sentinels for errors.Is.
//
// # Thread Safety
//
// Definitions are immutable after Define and may be shared. Records are
// mutated by Set and by Encode and must not be used from several
// goroutines at once.
package layout
