package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/cstruct/pkg/codec"
)

func fieldNames(d *Definition) []string {
	var out []string
	for _, f := range d.Fields() {
		out = append(out, f.Name())
	}
	return out
}

func TestDefine_OrdersByIndex(t *testing.T) {
	def, err := Define("Ordered",
		IntField("c").At(3),
		IntField("a").At(1),
		IntField("b").At(1),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, fieldNames(def))
}

func TestExtend_AppendsAfterInherited(t *testing.T) {
	base := MustDefine("Base", UIntField("magic"), UShortField("version"))
	ext, err := base.Extend("Ext", IntField("c").At(1), IntField("b").At(0))
	require.NoError(t, err)

	assert.Equal(t, []string{"magic", "version", "b", "c"}, fieldNames(ext))
	assert.Equal(t, []string{"magic", "version"}, fieldNames(base))
	assert.Equal(t, "Ext", ext.Name())

	_, err = base.Extend("Dup", IntField("magic"))
	assert.ErrorIs(t, err, ErrDuplicateField)
}

func TestDefine_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		decls []*Decl
		want  error
	}{
		{
			name:  "option not accepted by kind",
			decls: []*Decl{StringField("s", Lit(2), CType("int"))},
			want:  ErrUnknownOption,
		},
		{
			name:  "max_length on a string",
			decls: []*Decl{StringField("s", Lit(2), MaxLength(Lit(4)))},
			want:  ErrUnknownOption,
		},
		{
			name:  "unknown ctype",
			decls: []*Decl{NumericField("x", CType("quad"))},
			want:  codec.ErrUnknownKind,
		},
		{
			name:  "duplicate field",
			decls: []*Decl{IntField("x"), IntField("x")},
			want:  ErrDuplicateField,
		},
		{
			name:  "forward reference",
			decls: []*Decl{StringField("t", Ref("n")), UIntField("n")},
			want:  ErrForwardRef,
		},
		{
			name:  "self reference",
			decls: []*Decl{IntField("x", Offset(Ref("x")))},
			want:  ErrForwardRef,
		},
		{
			name:  "unknown reference",
			decls: []*Decl{StringField("t", Ref("missing"))},
			want:  ErrBadRef,
		},
		{
			name:  "reference to a string",
			decls: []*Decl{StringField("a", Lit(4)), StringField("t", Ref("a"))},
			want:  ErrBadRef,
		},
		{
			name:  "reference to a real",
			decls: []*Decl{DoubleField("d"), ArrayField("xs", Ref("d"), IntField(""))},
			want:  ErrBadRef,
		},
		{
			name:  "computed offset",
			decls: []*Decl{IntField("x", Offset(Computed{Name: "pos"}))},
			want:  ErrInvalidParam,
		},
		{
			name:  "struct without definition",
			decls: []*Decl{StructField("s", nil)},
		},
		{
			name:  "array without element",
			decls: []*Decl{ArrayField("a", Lit(1), nil)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Define("Broken", tc.decls...)
			require.Error(t, err)
			var de *DefinitionError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "Broken", de.Definition)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestMustDefine_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustDefine("Broken", IntField("x"), IntField("x"))
	})
}

func TestNew_UnresolvedFields(t *testing.T) {
	def := MustDefine("Dummy", IntField("field"))

	_, err := def.New(map[string]Value{"field": Int(1), "extra": Int(2), "another": Int(3)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownField)

	var ue *UnresolvedFieldsError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"another", "extra"}, ue.Names)

	rec, err := def.New(nil)
	require.NoError(t, err)
	err = rec.Set("nope", Int(1))
	assert.ErrorAs(t, err, &ue)
}

func TestRecord_String(t *testing.T) {
	def := MustDefine("Packet",
		UIntField("tlen"),
		StringField("text", Ref("tlen")),
		UByteField("flag", Prefix([]byte{1}).OrOmit()),
	)
	rec, err := def.New(map[string]Value{"text": Str("Hello World!"), "flag": nil})
	require.NoError(t, err)
	assert.Equal(t, `Packet(tlen = 12, text = "Hello World!", flag = None)`, rec.String())
	assert.Equal(t, "Packet{tlen uint, text string, flag ubyte}", def.String())
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	def := MustDefine("Clone", StringField("s", Lit(-1)), ArrayField("xs", Lit(-1), IntField("")))
	rec, err := def.New(map[string]Value{"s": Str("abc"), "xs": Ints(1, 2)})
	require.NoError(t, err)

	cp := rec.Clone()
	require.True(t, rec.Equal(cp))
	require.NoError(t, cp.Set("s", Str("xyz")))
	assert.False(t, rec.Equal(cp))

	b, ok := rec.Bytes("s")
	require.True(t, ok)
	b[0] = 'Z'
	assert.Equal(t, Str("abc"), rec.Get("s"))
}

func TestRecord_SetCopiesBytes(t *testing.T) {
	def := MustDefine("Copy", StringField("s", Lit(-1)))
	buf := []byte("abc")
	rec, err := def.New(map[string]Value{"s": Bytes(buf)})
	require.NoError(t, err)

	buf[0] = 'X'
	assert.Equal(t, Str("abc"), rec.Get("s"))
}

func TestRecord_Size(t *testing.T) {
	def := MustDefine("Sized", UIntField("n"), StringField("s", Ref("n")))
	rec, err := def.New(map[string]Value{"s": Str("hello")})
	require.NoError(t, err)

	n, err := rec.Size(0)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestDecode_BaseOffset(t *testing.T) {
	def := MustDefine("Pair", UShortField("a"), UShortField("b"))
	buf := []byte{0xFF, 0xFF, 1, 0, 2, 0, 0xEE}

	rec, next, err := def.Decode(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, next)
	assert.Equal(t, Int(1), rec.Get("a"))
	assert.Equal(t, Int(2), rec.Get("b"))

	_, next, err = def.Decode(buf, 5)
	assert.Error(t, err)
	assert.Equal(t, 5, next)
}

func TestValueEqual(t *testing.T) {
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, Int(0)))
	assert.True(t, Equal(Int(1), Int(1)))
	assert.False(t, Equal(Int(1), Real(1)))
	assert.True(t, Equal(Bytes{}, Bytes(nil)))
	assert.True(t, Equal(Ints(1, 2), List{Int(1), Int(2)}))
	assert.False(t, Equal(Ints(1, 2), Ints(1)))
}
