// Package epubtest builds small EPUB archives in memory for tests.
package epubtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Doc is one spine document. Body is the inner HTML of <body>.
type Doc struct {
	Body      string
	MediaType string // defaults to application/xhtml+xml
}

// Book describes an archive to build.
type Book struct {
	Title   string
	OPFPath string // defaults to OEBPS/content.opf
	Docs    []Doc
}

// Build returns a valid EPUB whose spine holds one XHTML document per body.
func Build(title string, bodies ...string) []byte {
	b := Book{Title: title}
	for _, body := range bodies {
		b.Docs = append(b.Docs, Doc{Body: body})
	}
	return Zip(b.Files())
}

// Paragraphs wraps each paragraph in <p> and joins them.
func Paragraphs(paras ...string) string {
	var sb strings.Builder
	for _, p := range paras {
		sb.WriteString("<p>")
		sb.WriteString(p)
		sb.WriteString("</p>\n")
	}
	return sb.String()
}

// Files returns the archive entries for b keyed by path, so tests can
// remove or corrupt entries before zipping.
func (b Book) Files() map[string]string {
	opf := b.OPFPath
	if opf == "" {
		opf = "OEBPS/content.opf"
	}
	dir := ""
	if i := strings.LastIndex(opf, "/"); i >= 0 {
		dir = opf[:i+1]
	}

	files := map[string]string{
		"mimetype": "application/epub+zip",
		"META-INF/container.xml": fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="%s" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`, opf),
	}

	var manifest, spine strings.Builder
	for i, d := range b.Docs {
		id := fmt.Sprintf("ch%d", i+1)
		href := fmt.Sprintf("text/%s.xhtml", id)
		mt := d.MediaType
		if mt == "" {
			mt = "application/xhtml+xml"
		}
		fmt.Fprintf(&manifest, `    <item id="%s" href="%s" media-type="%s"/>`+"\n", id, href, mt)
		fmt.Fprintf(&spine, `    <itemref idref="%s"/>`+"\n", id)
		files[dir+href] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>%s</title></head>
<body>
%s
</body>
</html>`, id, d.Body)
	}

	files[opf] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>%s</dc:title>
    <dc:identifier id="id">test</dc:identifier>
  </metadata>
  <manifest>
%s  </manifest>
  <spine>
%s  </spine>
</package>`, b.Title, manifest.String(), spine.String())

	return files
}

// Zip packs files into an archive, writing mimetype first.
func Zip(files map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	names := make([]string, 0, len(files))
	for name := range files {
		if name != "mimetype" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := files["mimetype"]; ok {
		names = append([]string{"mimetype"}, names...)
	}

	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Prose returns n words of capitalised ten-word sentences with no
// abbreviations, so sentence splitting is unambiguous.
func Prose(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		switch {
		case i%10 == 0:
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString("Word")
		case i%10 == 9 || i == n-1:
			sb.WriteString(" word.")
		default:
			sb.WriteString(" word")
		}
	}
	return sb.String()
}
