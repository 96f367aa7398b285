// Package classgen synthesizes minimal JVM class files for tests. Generated
// classes have an empty body: a constant pool, the class/super/interface
// references and, optionally, one class-level annotation carrying a single
// string element.
package classgen

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
)

// Class describes the class to emit. Names are dotted ("a.b.C").
type Class struct {
	Name       string
	Super      string // empty means no supertype
	Interfaces []string
	Interface  bool

	// Annotation, when set, is attached with one element Element=Value.
	Annotation string
	Element    string // defaults to "value"
	Value      string
	Invisible  bool // emit as RuntimeInvisibleAnnotations

	// Padding adds fields/methods so parsers must skip them.
	Fields  int
	Methods int
}

type pool struct {
	buf   bytes.Buffer
	count uint16
	utf8  map[string]uint16
	class map[string]uint16
}

func newPool() *pool {
	return &pool{count: 1, utf8: map[string]uint16{}, class: map[string]uint16{}}
}

func (p *pool) addUtf8(s string) uint16 {
	if idx, ok := p.utf8[s]; ok {
		return idx
	}
	p.buf.WriteByte(1)
	_ = binary.Write(&p.buf, binary.BigEndian, uint16(len(s)))
	p.buf.WriteString(s)
	idx := p.count
	p.count++
	p.utf8[s] = idx
	return idx
}

func (p *pool) addClass(dotted string) uint16 {
	internal := strings.ReplaceAll(dotted, ".", "/")
	if idx, ok := p.class[internal]; ok {
		return idx
	}
	nameIdx := p.addUtf8(internal)
	p.buf.WriteByte(7)
	_ = binary.Write(&p.buf, binary.BigEndian, nameIdx)
	idx := p.count
	p.count++
	p.class[internal] = idx
	return idx
}

// addLong appends an eight-byte constant (two slots).
func (p *pool) addLong(v int64) {
	p.buf.WriteByte(5)
	_ = binary.Write(&p.buf, binary.BigEndian, v)
	p.count += 2
}

// Bytes renders the class file.
func (c Class) Bytes() []byte {
	p := newPool()
	thisIdx := p.addClass(c.Name)
	var superIdx uint16
	if c.Super != "" {
		superIdx = p.addClass(c.Super)
	}
	ifaces := make([]uint16, len(c.Interfaces))
	for i, n := range c.Interfaces {
		ifaces[i] = p.addClass(n)
	}
	p.addLong(42)
	memberName := p.addUtf8("m")
	memberDesc := p.addUtf8("I")
	codeAttr := p.addUtf8("Synthetic")

	var attrName, typeIdx, elemIdx, valueIdx uint16
	if c.Annotation != "" {
		an := "RuntimeVisibleAnnotations"
		if c.Invisible {
			an = "RuntimeInvisibleAnnotations"
		}
		attrName = p.addUtf8(an)
		typeIdx = p.addUtf8("L" + strings.ReplaceAll(c.Annotation, ".", "/") + ";")
		elem := c.Element
		if elem == "" {
			elem = "value"
		}
		elemIdx = p.addUtf8(elem)
		valueIdx = p.addUtf8(c.Value)
	}

	var out bytes.Buffer
	w := func(v any) { _ = binary.Write(&out, binary.BigEndian, v) }
	w(uint32(0xCAFEBABE))
	w(uint16(0))
	w(uint16(52))
	w(p.count)
	out.Write(p.buf.Bytes())
	access := uint16(0x0021)
	if c.Interface {
		access = 0x0601
	}
	w(access)
	w(thisIdx)
	w(superIdx)
	w(uint16(len(ifaces)))
	for _, i := range ifaces {
		w(i)
	}
	members := func(n int) {
		w(uint16(n))
		for i := 0; i < n; i++ {
			w(uint16(0x0001))
			w(memberName)
			w(memberDesc)
			w(uint16(1))
			w(codeAttr)
			w(uint32(3))
			out.Write([]byte{1, 2, 3})
		}
	}
	members(c.Fields)
	members(c.Methods)

	if c.Annotation == "" {
		w(uint16(0))
		return out.Bytes()
	}
	var body bytes.Buffer
	bw := func(v any) { _ = binary.Write(&body, binary.BigEndian, v) }
	bw(uint16(1))
	bw(typeIdx)
	bw(uint16(1))
	bw(elemIdx)
	body.WriteByte('s')
	bw(valueIdx)

	w(uint16(1))
	w(attrName)
	w(uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

// WriteDir writes every class under root using the package layout.
func WriteDir(root string, classes ...Class) error {
	for _, c := range classes {
		p := filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(c.Name, ".", "/")+".class"))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, c.Bytes(), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// WriteJar writes an archive holding the classes and the extra resources
// (slash-separated name -> content).
func WriteJar(path string, classes []Class, resources map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	for _, c := range classes {
		w, err := zw.Create(strings.ReplaceAll(c.Name, ".", "/") + ".class")
		if err != nil {
			_ = f.Close()
			return err
		}
		if _, err := w.Write(c.Bytes()); err != nil {
			_ = f.Close()
			return err
		}
	}
	for name, content := range resources {
		w, err := zw.Create(name)
		if err != nil {
			_ = f.Close()
			return err
		}
		if _, err := w.Write([]byte(content)); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
