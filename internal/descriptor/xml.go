package descriptor

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"model-declarator/internal/cache"
)

// FileName is the descriptor's file name inside the output directory.
const FileName = "model-declaration.xml"

// Write renders m in the model-declaration layout. Forward types are not part
// of this document; see forward.WriteManifest.
func Write(w io.Writer, m *Model) error {
	_, err := w.Write(Render(m))
	return err
}

// Render returns the descriptor document for m.
func Render(m *Model) []byte {
	var b bytes.Buffer
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\" ?>\n")
	b.WriteString("<model-declaration xmlns:xsi=\"http://www.w3.org/2001/XMLSchema-instance\" xsi:noNamespaceSchemaLocation=\"model-declaration-1.0.xsd\">\n")
	b.WriteString("\n")
	elem(&b, "  ", "name", m.Name)
	b.WriteString("\n")
	elem(&b, "  ", "groupId", m.GroupID)
	elem(&b, "  ", "artifactId", m.ArtifactID)
	elem(&b, "  ", "version", m.Version)
	if m.GlobalID != "" {
		elem(&b, "  ", "globalId", m.GlobalID)
	}
	elem(&b, "  ", "hash", m.Hash)
	b.WriteString("\n")
	b.WriteString("  <dependencies>\n")
	for _, d := range m.Dependencies {
		elem(&b, "    ", "dependency", d)
	}
	b.WriteString("  </dependencies>\n")
	b.WriteString("\n")
	b.WriteString("  <types>\n")
	for _, t := range m.DeclaredTypes {
		elem(&b, "    ", "type", t)
	}
	b.WriteString("  </types>\n")
	b.WriteString("\n")
	b.WriteString("</model-declaration>")
	return b.Bytes()
}

func elem(b *bytes.Buffer, indent, tag, text string) {
	b.WriteString(indent)
	b.WriteString("<" + tag + ">")
	_ = xml.EscapeText(b, []byte(text))
	b.WriteString("</" + tag + ">\n")
}

type xmlModel struct {
	XMLName      xml.Name `xml:"model-declaration"`
	Name         string   `xml:"name"`
	GroupID      string   `xml:"groupId"`
	ArtifactID   string   `xml:"artifactId"`
	Version      string   `xml:"version"`
	GlobalID     string   `xml:"globalId"`
	Hash         string   `xml:"hash"`
	Dependencies []string `xml:"dependencies>dependency"`
	Types        []string `xml:"types>type"`
}

// Read parses a descriptor document. ForwardTypes of the result is empty.
func Read(r io.Reader) (*Model, error) {
	var x xmlModel
	if err := xml.NewDecoder(r).Decode(&x); err != nil {
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}
	m := &Model{
		Name:         strings.TrimSpace(x.Name),
		GroupID:      strings.TrimSpace(x.GroupID),
		ArtifactID:   strings.TrimSpace(x.ArtifactID),
		Version:      strings.TrimSpace(x.Version),
		GlobalID:     strings.TrimSpace(x.GlobalID),
		Hash:         strings.TrimSpace(x.Hash),
		ForwardTypes: map[string][]string{},
	}
	for _, d := range x.Dependencies {
		m.Dependencies = append(m.Dependencies, strings.TrimSpace(d))
	}
	for _, t := range x.Types {
		m.DeclaredTypes = append(m.DeclaredTypes, strings.TrimSpace(t))
	}
	return m, nil
}

// ReadFile loads the descriptor at path. A missing file yields (nil, nil).
func ReadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	m, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WriteFile stores data at path atomically. When the file already holds
// exactly data it is left untouched and written is false.
func WriteFile(path string, data []byte) (written bool, err error) {
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, data) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create output dir: %w", err)
	}
	err = cache.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
