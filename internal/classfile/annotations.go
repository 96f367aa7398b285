package classfile

import (
	"encoding/binary"
	"fmt"
)

// annReader walks the body of a Runtime(In)VisibleAnnotations attribute.
type annReader struct {
	b   []byte
	off int
	cp  constantPool
}

func (a *annReader) u1() (uint8, error) {
	if a.off+1 > len(a.b) {
		return 0, fmt.Errorf("%w: truncated annotation", ErrMalformed)
	}
	v := a.b[a.off]
	a.off++
	return v, nil
}

func (a *annReader) u2() (uint16, error) {
	if a.off+2 > len(a.b) {
		return 0, fmt.Errorf("%w: truncated annotation", ErrMalformed)
	}
	v := binary.BigEndian.Uint16(a.b[a.off:])
	a.off += 2
	return v, nil
}

// findAnnotationValue returns the string payload of the "value" element of
// the first annotation whose type descriptor equals desc. When the element is
// not named "value", the first string element is used.
func findAnnotationValue(body []byte, cp constantPool, desc string) (string, bool, error) {
	a := &annReader{b: body, cp: cp}
	n, err := a.u2()
	if err != nil {
		return "", false, err
	}
	for i := 0; i < int(n); i++ {
		typeIdx, err := a.u2()
		if err != nil {
			return "", false, err
		}
		typ, err := cp.utf8(typeIdx)
		if err != nil {
			return "", false, err
		}
		if typ != desc {
			if err := a.skipAnnotationPairs(); err != nil {
				return "", false, err
			}
			continue
		}
		v, ok, err := a.stringElement("value")
		return v, ok, err
	}
	return "", false, nil
}

// stringElement reads the element-value pairs of the current annotation and
// returns the preferred string element.
func (a *annReader) stringElement(preferred string) (string, bool, error) {
	pairs, err := a.u2()
	if err != nil {
		return "", false, err
	}
	first, found := "", false
	for i := 0; i < int(pairs); i++ {
		nameIdx, err := a.u2()
		if err != nil {
			return "", false, err
		}
		name, err := a.cp.utf8(nameIdx)
		if err != nil {
			return "", false, err
		}
		tag, err := a.u1()
		if err != nil {
			return "", false, err
		}
		if tag != 's' {
			if err := a.skipElementBody(tag); err != nil {
				return "", false, err
			}
			continue
		}
		idx, err := a.u2()
		if err != nil {
			return "", false, err
		}
		s, err := a.cp.utf8(idx)
		if err != nil {
			return "", false, err
		}
		if name == preferred {
			return s, true, nil
		}
		if !found {
			first, found = s, true
		}
	}
	return first, found, nil
}

func (a *annReader) skipAnnotationPairs() error {
	pairs, err := a.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(pairs); i++ {
		if _, err := a.u2(); err != nil {
			return err
		}
		if err := a.skipElement(); err != nil {
			return err
		}
	}
	return nil
}

func (a *annReader) skipElement() error {
	tag, err := a.u1()
	if err != nil {
		return err
	}
	return a.skipElementBody(tag)
}

func (a *annReader) skipElementBody(tag uint8) error {
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's', 'c':
		_, err := a.u2()
		return err
	case 'e':
		if _, err := a.u2(); err != nil {
			return err
		}
		_, err := a.u2()
		return err
	case '@':
		if _, err := a.u2(); err != nil {
			return err
		}
		return a.skipAnnotationPairs()
	case '[':
		n, err := a.u2()
		if err != nil {
			return err
		}
		for i := 0; i < int(n); i++ {
			if err := a.skipElement(); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown element tag %q", ErrMalformed, tag)
	}
}
