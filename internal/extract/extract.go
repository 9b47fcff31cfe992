package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	MimePDF   = "application/pdf"
	MimeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeMSDoc = "application/msword"
	MimeText  = "text/plain"
)

var (
	// ErrUnsupportedFormat is returned for media types with no extraction path.
	ErrUnsupportedFormat = errors.New("unsupported file type")
	// ErrLegacyWord is wrapped when an application/msword upload is a binary
	// Word 97-2003 file rather than an OOXML package.
	ErrLegacyWord = errors.New("legacy binary .doc files cannot be read, save as .docx")
)

// Error wraps a parser or OCR failure for a supported media type.
type Error struct {
	MediaType string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %v", e.MediaType, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// OCR recognizes text in an image reachable at a URL.
type OCR interface {
	RecognizeURL(ctx context.Context, imageURL string) (string, error)
}

// Source describes one file to extract. Data wins over Path when both are set;
// URL is required for images.
type Source struct {
	Path      string
	Data      []byte
	MediaType string
	URL       string
	FileName  string
}

// Extractor dispatches on media type.
type Extractor struct {
	ocr OCR
}

func New(ocr OCR) *Extractor {
	return &Extractor{ocr: ocr}
}

// Supported reports whether mediaType has an extraction path.
func Supported(mediaType string) bool {
	switch clean := Normalize(mediaType); {
	case clean == MimePDF, clean == MimeDOCX, clean == MimeMSDoc, clean == MimeText:
		return true
	case IsImage(clean):
		return true
	}
	return false
}

// IsImage reports whether mediaType is an image/* type.
func IsImage(mediaType string) bool {
	return strings.HasPrefix(Normalize(mediaType), "image/")
}

// Normalize lowercases a media type and drops parameters.
func Normalize(mediaType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mediaType, ";")[0]))
}

// Extract returns the raw text of src. Unsupported types fail before any I/O.
func (e *Extractor) Extract(ctx context.Context, src Source) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	mediaType := Normalize(src.MediaType)
	if !Supported(mediaType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mediaType)
	}

	if IsImage(mediaType) {
		if strings.TrimSpace(src.URL) == "" {
			return "", &Error{MediaType: mediaType, Err: errors.New("image extraction requires a stored object URL")}
		}
		if e == nil || e.ocr == nil {
			return "", &Error{MediaType: mediaType, Err: errors.New("OCR provider not configured")}
		}
		text, err := e.ocr.RecognizeURL(ctx, src.URL)
		if err != nil {
			return "", &Error{MediaType: mediaType, Err: err}
		}
		return text, nil
	}

	data := src.Data
	if data == nil {
		raw, err := os.ReadFile(src.Path)
		if err != nil {
			return "", &Error{MediaType: mediaType, Err: err}
		}
		data = raw
	}
	return ExtractBytes(ctx, data, mediaType, src.FileName)
}

// ExtractBytes extracts text from an in-memory payload of a non-image type.
func ExtractBytes(ctx context.Context, data []byte, mediaType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized := normalizeMimeType(mediaType, fileName, data)
	var (
		text string
		err  error
	)
	switch normalized {
	case MimePDF:
		text, err = extractPDF(data)
	case MimeDOCX:
		text, err = extractDOCX(data)
	case MimeMSDoc:
		if !bytes.HasPrefix(data, zipMagic) {
			return "", &Error{MediaType: normalized, Err: ErrLegacyWord}
		}
		text, err = extractDOCX(data)
	case MimeText:
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, normalized)
	}
	if err != nil {
		return "", &Error{MediaType: normalized, Err: err}
	}
	return text, nil
}

// extractPDF joins the text items of every page with single spaces.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var items []string
	for i := 1; i <= reader.NumPage(); i++ {
		items = append(items, pageItems(reader.Page(i))...)
	}
	return strings.Join(strings.Fields(strings.Join(items, " ")), " "), nil
}

// tjWordGap is the TJ adjustment, in thousandths of an em, past which two
// fragments of one array are treated as separate words.
const tjWordGap = -200

// pageItems returns one item per text-showing operator on the page. A TJ
// array is one item; its fragments are glued unless a large negative
// adjustment separates them.
func pageItems(page pdf.Page) []string {
	if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
		return nil
	}
	encoders := make(map[string]pdf.TextEncoding)
	for _, name := range page.Fonts() {
		encoders[name] = page.Font(name).Encoder()
	}

	var enc pdf.TextEncoding
	decode := func(s string) string {
		if enc == nil {
			return s
		}
		return enc.Decode(s)
	}

	var items []string
	pdf.Interpret(page.V.Key("Contents"), func(stk *pdf.Stack, op string) {
		args := make([]pdf.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		switch op {
		case "Tf":
			if len(args) == 2 {
				enc = encoders[args[0].Name()]
			}
		case "Tj", "'", "\"":
			if len(args) > 0 {
				items = append(items, decode(args[len(args)-1].RawString()))
			}
		case "TJ":
			if len(args) != 1 {
				return
			}
			var b strings.Builder
			arr := args[0]
			for i := 0; i < arr.Len(); i++ {
				v := arr.Index(i)
				if v.Kind() == pdf.String {
					b.WriteString(decode(v.RawString()))
				} else if v.Float64() <= tjWordGap {
					b.WriteByte(' ')
				}
			}
			items = append(items, b.String())
		}
	})
	return items
}

var zipMagic = []byte("PK\x03\x04")

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return stripDocxXML(string(raw)), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteString("\t")
			}
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// normalizeMimeType maps generic zip uploads onto the OOXML type they contain.
func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := Normalize(mimeType)
	if clean != "application/zip" && clean != "application/octet-stream" {
		return clean
	}

	if mapped := mapOOXMLFromZip(data); mapped != "" {
		return mapped
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".docx":
		return MimeDOCX
	case ".pdf":
		return MimePDF
	case ".txt":
		return MimeText
	default:
		return clean
	}
}

func mapOOXMLFromZip(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return MimeDOCX
		}
	}
	return ""
}
