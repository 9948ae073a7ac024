package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lu4p/cat"
)

var documentExts = map[string]bool{
	".docx": true, ".odt": true, ".rtf": true,
}

// wtTag matches <w:t>text</w:t> including variants carrying attributes such
// as xml:space="preserve".
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// Document extracts word-processing formats. DOCX is unpacked directly:
// the OOXML text nodes are collected from word/document.xml, which survives
// run and paragraph attributes that defeat naive paragraph matching. ODT and
// RTF go through the cat library.
type Document struct{}

// NewDocument returns the word-processing extractor.
func NewDocument() *Document {
	return &Document{}
}

func (d *Document) Name() string {
	return "document"
}

func (d *Document) CanHandle(path string) bool {
	return extMatches(path, documentExts)
}

func (d *Document) Extract(_ context.Context, path string) (string, error) {
	if strings.ToLower(filepath.Ext(path)) == ".docx" {
		return extractDocx(path)
	}

	text, err := cat.File(path)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return text, nil
}

func extractDocx(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract docx: not a zip: %w", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("extract docx: open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("extract docx: read %s: %w", f.Name, err)
		}
		docXML = buf.Bytes()
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("extract docx: word/document.xml not found")
	}

	parts := wtTag.FindAllStringSubmatch(string(docXML), -1)
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(p[1]))
	}
	return strings.TrimSpace(b.String()), nil
}
