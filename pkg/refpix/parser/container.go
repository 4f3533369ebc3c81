package parser

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

// ErrNotArchive indicates the input file is not a zip container.
var ErrNotArchive = errors.New("not a zip archive")

// ErrNotWorkbook indicates the archive lacks the entries every workbook has.
var ErrNotWorkbook = errors.New("archive is not a spreadsheet workbook")

// ErrEntryNotFound indicates a named entry is absent from the archive.
var ErrEntryNotFound = errors.New("entry not found")

// requiredEntries must exist in any xlsx package.
var requiredEntries = []string{
	"[Content_Types].xml",
	"xl/workbook.xml",
}

// Container is an open spreadsheet archive. It owns the underlying file
// descriptor until Close is called.
type Container struct {
	path    string
	file    *os.File
	size    int64
	zr      *zip.Reader
	names   []string
	entries map[string]*zip.File
	wb      *excelize.File
}

// OpenContainer opens the spreadsheet at path as an archive.
func OpenContainer(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotArchive, err)
	}

	c := &Container{
		path:    path,
		file:    f,
		size:    info.Size(),
		zr:      zr,
		names:   make([]string, 0, len(zr.File)),
		entries: make(map[string]*zip.File, len(zr.File)),
	}
	for _, zf := range zr.File {
		c.names = append(c.names, zf.Name)
		c.entries[zf.Name] = zf
	}

	for _, name := range requiredEntries {
		if !c.Has(name) {
			c.Close()
			return nil, fmt.Errorf("%w: missing %s", ErrNotWorkbook, name)
		}
	}

	return c, nil
}

// Path returns the file path the container was opened from.
func (c *Container) Path() string {
	return c.path
}

// ListEntries returns entry names in archive order.
func (c *Container) ListEntries() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Has reports whether the archive holds an entry with the given name.
func (c *Container) Has(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// ReadEntry returns the raw bytes of the named entry.
func (c *Container) ReadEntry(name string) ([]byte, error) {
	zf, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Workbook returns the excelize view of the container, opened on first use
// from the same file descriptor.
func (c *Container) Workbook() (*excelize.File, error) {
	if c.wb != nil {
		return c.wb, nil
	}
	if c.file == nil {
		return nil, os.ErrClosed
	}
	wb, err := excelize.OpenReader(io.NewSectionReader(c.file, 0, c.size))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	c.wb = wb
	return wb, nil
}

// Close releases the workbook and the file descriptor. It is safe to call
// more than once.
func (c *Container) Close() error {
	var errs []error
	if c.wb != nil {
		errs = append(errs, c.wb.Close())
		c.wb = nil
	}
	if c.file != nil {
		errs = append(errs, c.file.Close())
		c.file = nil
	}
	return errors.Join(errs...)
}
