//go:build fuzz
// +build fuzz

package layout

import (
	"testing"
)

var fuzzPacket = MustDefine("Packet",
	UIntField("tlen"),
	StringField("text", Ref("tlen")),
	UByteField("flag", Prefix([]byte{1}).OrOmit()),
	NullStringField("name", MaxLength(Lit(64))),
)

// FuzzPacket_RoundTrip encodes random values and decodes them back
func FuzzPacket_RoundTrip(f *testing.F) {
	f.Add([]byte(""), []byte("x"))
	f.Add([]byte("Hello World!"), []byte("Ala ma kota"))
	f.Add([]byte{0x00, 0x01, 0x02}, []byte{0xFF, 0xFE})

	f.Fuzz(func(t *testing.T, text, name []byte) {
		if len(text) > 10000 || len(name) > 63 {
			t.Skip("input too large")
		}
		for _, c := range name {
			if c == 0 {
				t.Skip("name must not contain NUL")
			}
		}

		rec, err := fuzzPacket.New(map[string]Value{
			"text": Bytes(text),
			"flag": Int(1),
			"name": Bytes(append(append([]byte(nil), name...), 0)),
		})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		data, err := rec.Encode(0)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}

		got, next, err := fuzzPacket.Decode(data, 0)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if next != len(data) {
			t.Fatalf("consumed %d of %d bytes", next, len(data))
		}
		if !rec.Equal(got) {
			t.Fatalf("round trip mismatch: %s != %s", rec, got)
		}
	})
}

// FuzzPacket_DecodeNoPanic feeds arbitrary bytes to the decoder
func FuzzPacket_DecodeNoPanic(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{3, 0, 0, 0, 'a', 'b', 'c', 1, 'n', 0})
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF})

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, next, err := fuzzPacket.Decode(data, 0)
		if err != nil {
			return
		}
		if next > len(data) {
			t.Fatalf("consumed %d bytes of %d", next, len(data))
		}
		if _, err := rec.Encode(0); err != nil {
			t.Fatalf("decoded record does not re-encode: %v", err)
		}
	})
}
