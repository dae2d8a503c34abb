package reader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

const containerPath = "META-INF/container.xml"

var (
	// ErrBadContainer is returned when the archive or its container
	// descriptor cannot be read.
	ErrBadContainer = errors.New("unreadable epub container")
	// ErrNoPackage is returned when the container points at a package
	// document that is absent or malformed.
	ErrNoPackage = errors.New("epub package document missing")
	// ErrNoChapters is returned when no spine document survives filtering.
	ErrNoChapters = errors.New("no extractable text")
)

// container mirrors META-INF/container.xml.
type container struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// Extract decodes raw EPUB bytes into a title and the ordered chapter texts.
// There is no partial result: either every step succeeds and at least one
// chapter survives, or an error wrapping one of the package sentinels is
// returned.
func Extract(data []byte) (*Book, error) {
	if err := checkContainer(data); err != nil {
		return nil, err
	}

	rc, err := epub.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPackage, err)
	}
	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("%w: no rootfiles found in epub", ErrNoPackage)
	}

	book := rc.Rootfiles[0]
	out := &Book{Title: strings.TrimSpace(book.Title)}
	if out.Title == "" {
		out.Title = "Unknown"
	}

	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil || !isHTML(ref.Item.MediaType) {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}

		text := extractTextFromHTML(string(data))
		if !keepChapter(text) {
			continue
		}
		out.Chapters = append(out.Chapters, text)
	}

	if len(out.Chapters) == 0 {
		return nil, ErrNoChapters
	}
	return out, nil
}

// checkContainer checks the archive and container descriptor before handing
// the bytes to the epub decoder, so a broken descriptor and a missing
// package document are reported as different failures.
func checkContainer(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadContainer, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	cf, ok := files[containerPath]
	if !ok {
		return fmt.Errorf("%w: %s not found", ErrBadContainer, containerPath)
	}
	raw, err := readZipFile(cf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadContainer, err)
	}

	var c container
	if err := xml.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrBadContainer, containerPath, err)
	}
	if len(c.Rootfiles) == 0 || c.Rootfiles[0].FullPath == "" {
		return fmt.Errorf("%w: no rootfile declared", ErrBadContainer)
	}

	opf := c.Rootfiles[0].FullPath
	if _, ok := files[opf]; !ok {
		return fmt.Errorf("%w: %s not found in archive", ErrNoPackage, opf)
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// isHTML reports whether a manifest media type names an HTML or XHTML
// document. An unspecified type is treated as HTML.
func isHTML(mediaType string) bool {
	if mediaType == "" {
		return true
	}
	return strings.Contains(strings.ToLower(mediaType), "html")
}
