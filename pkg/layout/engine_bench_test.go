//go:build bench
// +build bench

package layout

import (
	"bytes"
	"testing"
)

var benchPacket = MustDefine("Packet",
	UIntField("tlen"),
	StringField("text", Ref("tlen")),
	ArrayField("samples", Lit(16), ShortField("")),
	VarcharField("note"),
)

func BenchmarkRecord_Encode(b *testing.B) {
	benchmarks := []struct {
		name string
		text []byte
	}{
		{name: "small", text: []byte("Hello World!")},
		{name: "medium", text: bytes.Repeat([]byte("v"), 1000)},
		{name: "large", text: bytes.Repeat([]byte("v"), 100000)},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			rec, err := benchPacket.New(map[string]Value{
				"text":    Bytes(bm.text),
				"samples": Ints(1, 2, 3),
				"note":    Str("bench"),
			})
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := rec.Encode(0); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDefinition_Decode(b *testing.B) {
	rec, err := benchPacket.New(map[string]Value{
		"text":    Bytes(bytes.Repeat([]byte("v"), 1000)),
		"samples": Ints(1, 2, 3),
		"note":    Str("bench"),
	})
	if err != nil {
		b.Fatal(err)
	}
	data, err := rec.Encode(0)
	if err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := benchPacket.Decode(data, 0); err != nil {
			b.Fatal(err)
		}
	}
}
