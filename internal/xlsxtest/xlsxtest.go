// Package xlsxtest builds workbook fixtures with anchored pictures for tests.
package xlsxtest

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// SheetName is the sheet every fixture writes to.
const SheetName = "Sheet1"

// Picture is an image anchored at a cell.
type Picture struct {
	Cell      string
	Extension string
	Data      []byte
}

func tile(shade uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: shade, G: 255 - shade, B: uint8(x * y), A: 255})
		}
	}
	return img
}

// PNG returns a small PNG whose pixels depend on shade.
func PNG(t *testing.T, shade uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, tile(shade)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG returns a small JPEG whose pixels depend on shade.
func JPEG(t *testing.T, shade uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, tile(shade), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// GIF returns a small GIF whose pixels depend on shade.
func GIF(t *testing.T, shade uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, tile(shade), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

// Workbook saves a workbook with the given cell values and pictures and
// returns its path.
func Workbook(t *testing.T, cells map[string]string, pictures []Picture) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for cell, value := range cells {
		if err := f.SetCellValue(SheetName, cell, value); err != nil {
			t.Fatalf("set %s: %v", cell, err)
		}
	}
	for _, p := range pictures {
		err := f.AddPictureFromBytes(SheetName, p.Cell, &excelize.Picture{
			Extension: p.Extension,
			File:      p.Data,
			Format:    &excelize.GraphicOptions{AltText: p.Cell},
		})
		if err != nil {
			t.Fatalf("add picture at %s: %v", p.Cell, err)
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// Rewrite copies the archive at src, replacing the named entries' contents.
// A nil value removes the entry. Entries not present in src are added.
func Rewrite(t *testing.T, src string, entries map[string][]byte) string {
	t.Helper()

	zr, err := zip.OpenReader(src)
	if err != nil {
		t.Fatalf("open %s: %v", src, err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	written := make(map[string]bool)
	for _, zf := range zr.File {
		data, replaced := entries[zf.Name]
		if !replaced {
			rc, err := zf.Open()
			if err != nil {
				t.Fatalf("open entry %s: %v", zf.Name, err)
			}
			data, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatalf("read entry %s: %v", zf.Name, err)
			}
		} else if data == nil {
			continue
		}
		writeEntry(t, zw, zf.Name, data)
		written[zf.Name] = true
	}
	for name, data := range entries {
		if data != nil && !written[name] {
			writeEntry(t, zw, name, data)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "rewritten.xlsx")
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", dst, err)
	}
	return dst
}

// Entry reads one entry from the archive at path.
func Entry(t *testing.T, path, name string) []byte {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		if zf.Name != name {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read entry %s: %v", name, err)
		}
		return data
	}
	t.Fatalf("entry %s not in %s", name, path)
	return nil
}

func writeEntry(t *testing.T, zw *zip.Writer, name string, data []byte) {
	t.Helper()
	w, err := zw.Create(name)
	if err != nil {
		t.Fatalf("create entry %s: %v", name, err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("write entry %s: %v", name, err)
	}
}

// EntryWithData returns the name of the archive entry whose bytes equal data.
func EntryWithData(t *testing.T, path string, data []byte) string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", zf.Name, err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", zf.Name, err)
		}
		if bytes.Equal(got, data) {
			return zf.Name
		}
	}
	t.Fatalf("no entry of %s holds the given bytes", path)
	return ""
}
