package layout

import (
	"fmt"
)

// Encode serialises the record as if it started at base in the output
// buffer. A dry run first lets fields settle derived values (offsets
// written into referenced fields, lengths); the bytes are then emitted
// from base again and each field must produce the width it measured.
func (r *Record) Encode(base int) ([]byte, error) {
	widths, err := r.dryRun(base)
	if err != nil {
		return nil, err
	}
	return r.emit(base, widths)
}

// Size runs the dry run and returns the encoded size.
func (r *Record) Size(base int) (int, error) {
	widths, err := r.dryRun(base)
	if err != nil {
		return 0, err
	}
	return sum(widths), nil
}

func (r *Record) dryRun(base int) ([]int, error) {
	widths := make([]int, len(r.def.fields))
	off := base
	for i, f := range r.def.fields {
		n, err := f.measure(r, r.values[i], off)
		if err != nil {
			return nil, err
		}
		widths[i] = n
		off += n
	}
	return widths, nil
}

// emit produces the bytes. When widths is non-nil every field must match
// its measured width.
func (r *Record) emit(base int, widths []int) ([]byte, error) {
	var out []byte
	if widths != nil {
		out = make([]byte, 0, sum(widths))
	}
	for i, f := range r.def.fields {
		b, err := f.emit(r, r.values[i], base+len(out))
		if err != nil {
			return nil, err
		}
		if widths != nil && len(b) != widths[i] {
			return nil, fmt.Errorf("%w: field %q measured %d bytes, wrote %d",
				ErrUnstableLayout, f.name, widths[i], len(b))
		}
		out = append(out, b...)
	}
	return out, nil
}

// Decode reads a record starting at base and returns it with the offset
// just past its last byte. Earlier fields are visible by name to later
// ones while decoding. The decoded values are then assigned through New so
// they pass the same validation as caller-built records.
func (d *Definition) Decode(buf []byte, base int) (*Record, int, error) {
	view := make(partial, len(d.fields))
	off := base
	for _, f := range d.fields {
		v, n, err := f.decode(view, buf, off)
		if err != nil {
			return nil, base, err
		}
		view[f.name] = v
		off += n
	}
	rec, err := d.New(view)
	if err != nil {
		return nil, base, err
	}
	return rec, off, nil
}
