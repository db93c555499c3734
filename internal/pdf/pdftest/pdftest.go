// Package pdftest builds small, structurally valid PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// Document describes the PDF to build
type Document struct {
	Pages  int
	Title  string
	Author string
	Cover  bool // draw CoverJPEG on the first page
}

// CoverJPEG returns the image embedded by documents built with Cover set
func CoverJPEG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Bytes renders a PDF of blank pages, optionally with a cover image, with a
// correct cross-reference table
func (d Document) Bytes() []byte {
	pages := d.Pages
	if pages < 1 {
		pages = 1
	}

	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))

	// Objects 1 and 2 are the catalog and page tree; pages follow, then the cover
	imageNum, contentNum := pages+3, pages+4
	for i := 0; i < pages; i++ {
		if i == 0 && d.Cover {
			objects = append(objects, fmt.Sprintf(
				"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /XObject << /Im1 %d 0 R >> >> /Contents %d 0 R >>",
				imageNum, contentNum))
			continue
		}
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	if d.Cover {
		cover := CoverJPEG()
		objects = append(objects, fmt.Sprintf(
			"<< /Type /XObject /Subtype /Image /Width 16 /Height 24 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n%s\nendstream",
			len(cover), cover))
		draw := "q 160 0 0 240 0 0 cm /Im1 Do Q"
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(draw), draw))
	}

	infoRef := ""
	if d.Title != "" || d.Author != "" {
		objects = append(objects, fmt.Sprintf("<< /Title (%s) /Author (%s) >>", d.Title, d.Author))
		infoRef = fmt.Sprintf(" /Info %d 0 R", len(objects))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, infoRef, xref)

	return buf.Bytes()
}

// WriteFile writes the document into a temp dir owned by t and returns its path
func WriteFile(t testing.TB, name string, d Document) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, d.Bytes(), 0644); err != nil {
		t.Fatalf("write pdf fixture: %v", err)
	}
	return path
}
