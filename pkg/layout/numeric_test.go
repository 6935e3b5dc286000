package layout

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/cstruct/pkg/codec"
)

func le32(vs ...uint32) []byte {
	var out []byte
	for _, v := range vs {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

func TestNumeric_PackUnpack(t *testing.T) {
	def := MustDefine("TestStruct", NumericField("intField", CType("int")))
	idata := le32(42)

	rec, err := def.New(map[string]Value{"intField": Int(42)})
	require.NoError(t, err)

	data, err := rec.Encode(0)
	require.NoError(t, err)
	assert.Equal(t, idata, data)

	got, next, err := def.Decode(idata, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, next)
	assert.Equal(t, Int(42), got.Get("intField"))
}

func TestNumeric_MixedWidthsRoundTrip(t *testing.T) {
	def := MustDefine("TestStruct",
		ByteField("byteField"),
		ShortField("shortField"),
		IntField("intField"),
		LongField("longField"),
		ULongField("ulongField"),
	)

	rec, err := def.New(map[string]Value{
		"byteField":  Int(42),
		"shortField": Int(-30000),
		"intField":   Int(4000000),
		"longField":  Int(-1),
		"ulongField": Int(1 << 40),
	})
	require.NoError(t, err)

	data, err := rec.Encode(0)
	require.NoError(t, err)
	assert.Len(t, data, 1+2+4+8+8)

	got, next, err := def.Decode(data, 0)
	require.NoError(t, err)
	assert.Equal(t, len(data), next)
	assert.True(t, rec.Equal(got), "got %s", got)
}

func TestNumeric_Bounds(t *testing.T) {
	testCases := []struct {
		name  string
		decl  func() *Decl
		value int64
		ok    bool
	}{
		{name: "int upper bound", decl: func() *Decl { return IntField("f") }, value: 1 << 31, ok: true},
		{name: "int above upper", decl: func() *Decl { return IntField("f") }, value: 1<<31 + 1},
		{name: "int lower bound", decl: func() *Decl { return IntField("f") }, value: -(1 << 31) + 1, ok: true},
		{name: "int below lower", decl: func() *Decl { return IntField("f") }, value: -(1 << 31)},
		{name: "ubyte zero", decl: func() *Decl { return UByteField("f") }, value: 0, ok: true},
		{name: "ubyte max", decl: func() *Decl { return UByteField("f") }, value: 255, ok: true},
		{name: "ubyte 256", decl: func() *Decl { return UByteField("f") }, value: 256},
		{name: "ubyte negative", decl: func() *Decl { return UByteField("f") }, value: -1},
		{name: "byte 128", decl: func() *Decl { return ByteField("f") }, value: 128, ok: true},
		{name: "byte -128", decl: func() *Decl { return ByteField("f") }, value: -128},
		{name: "byte 5442", decl: func() *Decl { return ByteField("f") }, value: 5442},
		{name: "short 5645442", decl: func() *Decl { return ShortField("f") }, value: 5645442},
		{name: "ushort max", decl: func() *Decl { return UShortField("f") }, value: 65535, ok: true},
		{name: "uint negative", decl: func() *Decl { return UIntField("f") }, value: -1},
		{name: "uint max", decl: func() *Decl { return UIntField("f") }, value: 1<<32 - 1, ok: true},
		{name: "ulong negative", decl: func() *Decl { return ULongField("f") }, value: -1},
		{name: "long min", decl: func() *Decl { return LongField("f") }, value: math.MinInt64},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			def := MustDefine("Bounded", tc.decl())
			_, err := def.New(map[string]Value{"f": Int(tc.value)})
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrOutOfBounds)
			var ve *ValueError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "f", ve.Field)
			assert.Equal(t, "bounds", ve.Constraint.Name())
		})
	}
}

func TestNumeric_BoundAcceptedButNotEncodable(t *testing.T) {
	def := MustDefine("Edge", IntField("f"))
	rec, err := def.New(map[string]Value{"f": Int(1 << 31)})
	require.NoError(t, err)

	_, err = rec.Encode(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrOverflow)
	var ve *ValueError
	assert.ErrorAs(t, err, &ve)
}

func TestNumeric_NoCTypeHasNoBounds(t *testing.T) {
	def := MustDefine("Plain", NumericField("f"))
	f, ok := def.Field("f")
	require.True(t, ok)
	assert.Equal(t, "int", f.Type())
	for _, c := range f.Constraints() {
		assert.NotEqual(t, "bounds", c.Name())
	}
}

func TestNumeric_WrongType(t *testing.T) {
	def := MustDefine("Typed", IntField("f"))
	_, err := def.New(map[string]Value{"f": Str("42")})
	assert.ErrorIs(t, err, ErrWrongType)

	_, err = def.New(map[string]Value{"f": Real(1.5)})
	assert.ErrorIs(t, err, ErrWrongType)

	_, err = def.New(map[string]Value{"f": nil})
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestNumeric_Floats(t *testing.T) {
	def := MustDefine("Floats", FloatField("f"), DoubleField("d"))

	rec, err := def.New(map[string]Value{"f": Real(1.5), "d": Int(2)})
	require.NoError(t, err)
	assert.Equal(t, Real(2), rec.Get("d"), "integers widen to real")

	data, err := rec.Encode(0)
	require.NoError(t, err)
	assert.Len(t, data, 12)

	got, _, err := def.Decode(data, 0)
	require.NoError(t, err)
	assert.Equal(t, Real(1.5), got.Get("f"))
	assert.Equal(t, Real(2), got.Get("d"))
}

func TestNumeric_ShortBuffer(t *testing.T) {
	def := MustDefine("Short", IntField("f"))
	_, _, err := def.Decode([]byte{1, 2, 3}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrShortBuffer)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "f", de.Field)
	assert.Nil(t, de.Constraint)
}
