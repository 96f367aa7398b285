package classfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model-declarator/internal/testutil/classgen"
)

const fwd = "com.braintribe.model.generic.annotation.ForwardDeclaration"

func TestParseHeader(t *testing.T) {
	data := classgen.Class{
		Name:       "pkg.Bar",
		Super:      "java.lang.Object",
		Interfaces: []string{"pkg.Marker", "java.io.Serializable"},
		Fields:     2,
		Methods:    3,
	}.Bytes()

	md, err := Parse(bytes.NewReader(data), fwd)
	require.NoError(t, err)
	assert.Equal(t, "pkg.Bar", md.Name)
	assert.Equal(t, "java.lang.Object", md.SuperName)
	assert.True(t, md.HasSuper())
	assert.Equal(t, []string{"pkg.Marker", "java.io.Serializable"}, md.Interfaces)
	assert.Empty(t, md.ForwardTarget)
	assert.Equal(t, uint16(52), md.Major)
}

func TestParseForwardAnnotation(t *testing.T) {
	tests := []struct {
		name string
		cls  classgen.Class
		want string
	}{
		{
			name: "visible value",
			cls:  classgen.Class{Name: "pkg.Qux", Super: "java.lang.Object", Annotation: fwd, Value: "other:model", Methods: 1},
			want: "other:model",
		},
		{
			name: "invisible value",
			cls:  classgen.Class{Name: "pkg.Qux", Super: "java.lang.Object", Annotation: fwd, Value: "x:y", Invisible: true},
			want: "x:y",
		},
		{
			name: "other element name falls back to first string",
			cls:  classgen.Class{Name: "pkg.Qux", Super: "java.lang.Object", Annotation: fwd, Element: "model", Value: "a:b"},
			want: "a:b",
		},
		{
			name: "unrelated annotation",
			cls:  classgen.Class{Name: "pkg.Qux", Super: "java.lang.Object", Annotation: "pkg.Other", Value: "nope"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := Parse(bytes.NewReader(tt.cls.Bytes()), fwd)
			require.NoError(t, err)
			assert.Equal(t, tt.want, md.ForwardTarget)
		})
	}
}

func TestParseWithoutForwardAnnotationName(t *testing.T) {
	data := classgen.Class{Name: "pkg.Qux", Super: "java.lang.Object", Annotation: fwd, Value: "other:model"}.Bytes()
	md, err := Parse(bytes.NewReader(data), "")
	require.NoError(t, err)
	assert.Empty(t, md.ForwardTarget)
}

func TestParseNoSuper(t *testing.T) {
	data := classgen.Class{Name: "module-info"}.Bytes()
	md, err := Parse(bytes.NewReader(data), fwd)
	require.NoError(t, err)
	assert.False(t, md.HasSuper())
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 52}), fwd)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseTruncated(t *testing.T) {
	data := classgen.Class{Name: "pkg.Bar", Super: "java.lang.Object", Methods: 2}.Bytes()
	for _, n := range []int{3, 10, len(data) / 2, len(data) - 1} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			_, err := Parse(bytes.NewReader(data[:n]), fwd)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseOversizedAttributeLength(t *testing.T) {
	data := classgen.Class{Name: "pkg.Qux", Super: "java.lang.Object", Annotation: fwd, Value: "x:y"}.Bytes()
	// The annotation body is the last 11 bytes; its u4 length precedes it.
	binary.BigEndian.PutUint32(data[len(data)-15:], 0x7fffff00)
	_, err := Parse(bytes.NewReader(data), fwd)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestIsBinaryName(t *testing.T) {
	for _, ok := range []string{"A", "pkg.Foo", "pkg.Foo$Bar", "_x.$y", "été.Ünïcode1"} {
		assert.True(t, IsBinaryName(ok), ok)
	}
	for _, bad := range []string{"", "pkg.", ".Foo", "pkg..Foo", "com.acme.my-type", "9bad", "pkg/Foo"} {
		assert.False(t, IsBinaryName(bad), bad)
	}
}

func TestDecodeModifiedUTF8(t *testing.T) {
	s, err := decodeModifiedUTF8([]byte("plain/Name"))
	require.NoError(t, err)
	assert.Equal(t, "plain/Name", s)

	s, err = decodeModifiedUTF8([]byte{'a', 0xC0, 0x80, 'b'})
	require.NoError(t, err)
	assert.Equal(t, "a\x00b", s)

	// U+00E9 and U+1F600 as a CESU-8 surrogate pair.
	s, err = decodeModifiedUTF8([]byte{0xC3, 0xA9, 0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80})
	require.NoError(t, err)
	assert.Equal(t, "é😀", s)

	_, err = decodeModifiedUTF8([]byte{0xC3})
	assert.Error(t, err)
}

type mapSource map[string][]byte

func (m mapSource) Read(name string) ([]byte, string, error) {
	b, ok := m[name]
	if !ok {
		return nil, "", errors.New("missing")
	}
	return b, "mem", nil
}

func TestReaderCachesHitsAndMisses(t *testing.T) {
	src := mapSource{
		"pkg/Bar.class": classgen.Class{Name: "pkg.Bar", Super: "java.lang.Object"}.Bytes(),
		"pkg/Bad.class": []byte("garbage"),
		"pkg/Odd.class": classgen.Class{Name: "pkg.Other", Super: "java.lang.Object"}.Bytes(),
	}
	r := NewReader(src, fwd)

	md, err := r.Load("pkg.Bar")
	require.NoError(t, err)
	assert.Equal(t, "pkg.Bar", md.Name)
	_, _ = r.Load("pkg.Bar")

	_, err = r.Load("pkg.Missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.Load("pkg.Missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = r.Load("pkg.Bad")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, ErrMalformed)

	_, err = r.Load("pkg.Odd")
	require.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 4, r.Loads())
}

func TestResourceName(t *testing.T) {
	assert.Equal(t, "a/b/C$D.class", ResourceName("a.b.C$D"))
	assert.Equal(t, "a.b.C", BinaryName("a/b/C"))
}
