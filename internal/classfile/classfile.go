// Package classfile extracts the minimal structural metadata of a compiled
// JVM class: its name, direct supertype, direct interfaces and an optional
// forward-declaration annotation payload.
//
// Only the class header is decoded. Fields and methods are skipped without
// being materialized and no bytecode is ever interpreted. All names are
// returned in dotted binary form ("a.b.C$D").
package classfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Magic is the leading u4 of every class file.
const Magic = 0xCAFEBABE

// Constant pool tags (JVMS §4.4).
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

const (
	attrVisibleAnnotations   = "RuntimeVisibleAnnotations"
	attrInvisibleAnnotations = "RuntimeInvisibleAnnotations"
)

// ErrMalformed marks structurally invalid class data.
var ErrMalformed = errors.New("malformed class file")

// Metadata is the structural summary of one class.
type Metadata struct {
	Name          string   // dotted binary name
	SuperName     string   // empty for java.lang.Object and module-info
	Interfaces    []string // declaration order
	ForwardTarget string   // empty when the class carries no forward annotation
	Major, Minor  uint16
}

// HasSuper reports whether the class declares a supertype.
func (m *Metadata) HasSuper() bool { return m.SuperName != "" }

// Parse decodes the class header read from r. forwardAnnotation is the dotted
// name of the annotation whose "value" element redirects model ownership; an
// empty string disables annotation scanning.
func Parse(r io.Reader, forwardAnnotation string) (*Metadata, error) {
	d := &decoder{r: bufio.NewReader(r)}
	if d.u4() != Magic {
		if d.err != nil {
			return nil, d.fail("magic")
		}
		return nil, fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	md := &Metadata{}
	md.Minor = d.u2()
	md.Major = d.u2()

	cp, err := readConstantPool(d)
	if err != nil {
		return nil, err
	}

	d.u2() // access flags
	thisIdx, superIdx := d.u2(), d.u2()
	if d.err != nil {
		return nil, d.fail("header")
	}
	if md.Name, err = cp.className(thisIdx); err != nil {
		return nil, err
	}
	if superIdx != 0 {
		if md.SuperName, err = cp.className(superIdx); err != nil {
			return nil, err
		}
	}

	n := int(d.u2())
	md.Interfaces = make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, err := cp.className(d.u2())
		if d.err != nil {
			return nil, d.fail("interfaces")
		}
		if err != nil {
			return nil, err
		}
		md.Interfaces = append(md.Interfaces, name)
	}

	skipMembers(d) // fields
	skipMembers(d) // methods
	if d.err != nil {
		return nil, d.fail("members")
	}

	forwardDesc := ""
	if forwardAnnotation != "" {
		forwardDesc = "L" + strings.ReplaceAll(forwardAnnotation, ".", "/") + ";"
	}
	if md.ForwardTarget, err = readClassAttributes(d, cp, forwardDesc); err != nil {
		return nil, err
	}
	return md, nil
}

// BinaryName converts an internal name ("a/b/C") to dotted form.
func BinaryName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// IsBinaryName reports whether name is a dotted binary type name such as
// "a.b.C$D".
func IsBinaryName(name string) bool {
	return reBinaryName.MatchString(name)
}

var reBinaryName = regexp.MustCompile(`^[\p{L}_$][\p{L}\p{N}_$]*(\.[\p{L}_$][\p{L}\p{N}_$]*)*$`)

// ResourceName maps a dotted type name to its class resource path.
func ResourceName(name string) string {
	return strings.ReplaceAll(name, ".", "/") + ".class"
}

// ---------------- constant pool ----------------

type cpEntry struct {
	tag  uint8
	ref  uint16 // Class/String/MethodType/Module/Package name index
	utf8 string
}

type constantPool []cpEntry

func readConstantPool(d *decoder) (constantPool, error) {
	count := int(d.u2())
	if d.err != nil {
		return nil, d.fail("constant pool count")
	}
	cp := make(constantPool, count)
	for i := 1; i < count; i++ {
		tag := d.u1()
		e := cpEntry{tag: tag}
		switch tag {
		case tagUtf8:
			s, err := decodeModifiedUTF8(d.bytes(int(d.u2())))
			if err != nil && d.err == nil {
				return nil, fmt.Errorf("%w: constant #%d: %v", ErrMalformed, i, err)
			}
			e.utf8 = s
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			e.ref = d.u2()
		case tagInteger, tagFloat:
			d.skip(4)
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			d.skip(4)
		case tagMethodHandle:
			d.skip(3)
		case tagLong, tagDouble:
			d.skip(8)
			cp[i] = e
			i++ // eight-byte constants take two slots
			continue
		default:
			if d.err != nil {
				return nil, d.fail("constant pool")
			}
			return nil, fmt.Errorf("%w: constant #%d: unknown tag %d", ErrMalformed, i, tag)
		}
		if d.err != nil {
			return nil, d.fail("constant pool")
		}
		cp[i] = e
	}
	return cp, nil
}

func (cp constantPool) utf8(idx uint16) (string, error) {
	if int(idx) <= 0 || int(idx) >= len(cp) || cp[idx].tag != tagUtf8 {
		return "", fmt.Errorf("%w: constant #%d is not Utf8", ErrMalformed, idx)
	}
	return cp[idx].utf8, nil
}

func (cp constantPool) className(idx uint16) (string, error) {
	if int(idx) <= 0 || int(idx) >= len(cp) || cp[idx].tag != tagClass {
		return "", fmt.Errorf("%w: constant #%d is not a Class", ErrMalformed, idx)
	}
	s, err := cp.utf8(cp[idx].ref)
	if err != nil {
		return "", err
	}
	return BinaryName(s), nil
}

// ---------------- members & attributes ----------------

func skipMembers(d *decoder) {
	n := int(d.u2())
	for i := 0; i < n && d.err == nil; i++ {
		d.skip(6) // access, name, descriptor
		skipAttributes(d)
	}
}

func skipAttributes(d *decoder) {
	n := int(d.u2())
	for i := 0; i < n && d.err == nil; i++ {
		d.skip(2)
		d.skip(int(d.u4()))
	}
}

func readClassAttributes(d *decoder, cp constantPool, forwardDesc string) (string, error) {
	n := int(d.u2())
	if d.err != nil {
		return "", d.fail("attributes")
	}
	target := ""
	for i := 0; i < n; i++ {
		nameIdx := d.u2()
		length := int(d.u4())
		if d.err != nil {
			return "", d.fail("attributes")
		}
		name, err := cp.utf8(nameIdx)
		if err != nil {
			return "", err
		}
		if forwardDesc == "" || (name != attrVisibleAnnotations && name != attrInvisibleAnnotations) {
			d.skip(length)
			continue
		}
		body := d.bytes(length)
		if d.err != nil {
			return "", d.fail("annotations")
		}
		v, found, err := findAnnotationValue(body, cp, forwardDesc)
		if err != nil {
			return "", err
		}
		if found && target == "" {
			target = v
		}
	}
	return target, nil
}

// ---------------- decoder ----------------

type decoder struct {
	r   *bufio.Reader
	err error
	buf [8]byte
}

func (d *decoder) read(n int) []byte {
	if d.err != nil {
		return d.buf[:n]
	}
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		d.err = err
	}
	return d.buf[:n]
}

func (d *decoder) u1() uint8  { return d.read(1)[0] }
func (d *decoder) u2() uint16 { return binary.BigEndian.Uint16(d.read(2)) }
func (d *decoder) u4() uint32 { return binary.BigEndian.Uint32(d.read(4)) }

// bytes reads n bytes. Lengths above smallRead come from the input itself,
// so the buffer grows with the data actually present rather than with the
// claimed size.
func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n <= smallRead {
		b := make([]byte, n)
		if _, err := io.ReadFull(d.r, b); err != nil {
			d.err = err
			return nil
		}
		return b
	}
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, d.r, int64(n)); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		d.err = err
		return nil
	}
	return buf.Bytes()
}

const smallRead = 64 << 10

func (d *decoder) skip(n int) {
	if d.err != nil || n <= 0 {
		return
	}
	if _, err := d.r.Discard(n); err != nil {
		d.err = err
	}
}

func (d *decoder) fail(section string) error {
	if errors.Is(d.err, io.EOF) || errors.Is(d.err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated in %s", ErrMalformed, section)
	}
	return fmt.Errorf("read %s: %w", section, d.err)
}
