// Package textextract converts submitted document bytes into plain text.
package textextract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"
)

// Extractor pulls plain text out of uploaded submission files.
type Extractor struct {
	logger zerolog.Logger
}

// New builds an extractor that logs skipped units through the given logger.
func New(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger.With().Str("component", "textextract").Logger()}
}

// Extract dispatches on the file extension and returns the document text.
// Unsupported extensions yield an empty string; callers treat empty output
// as "could not extract". A failure inside a single page or paragraph skips
// that unit rather than aborting the document.
func (e *Extractor) Extract(filename string, raw []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return e.extractPDF(filename, raw)
	case ".docx", ".doc":
		return e.extractDOCX(filename, raw)
	default:
		e.logger.Warn().Str("filename", filename).Str("extension", ext).Msg("unsupported file extension, no text extracted")
		return ""
	}
}

func (e *Extractor) extractPDF(filename string, raw []byte) string {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		e.logger.Warn().Err(err).Str("filename", filename).Msg("failed to open pdf")
		return ""
	}

	var b strings.Builder
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			e.logger.Warn().Err(pageErr).Str("filename", filename).Int("page", i).Msg("skipping unreadable pdf page")
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	return b.String()
}

func (e *Extractor) extractDOCX(filename string, raw []byte) string {
	xmlData, err := readDocumentXML(raw)
	if err != nil {
		e.logger.Warn().Err(err).Str("filename", filename).Msg("failed to open docx")
		return ""
	}

	text, err := paragraphText(xmlData)
	if err != nil {
		// Keep whatever paragraphs decoded before the error.
		e.logger.Warn().Err(err).Str("filename", filename).Msg("docx decoding stopped early")
	}

	return text
}

func readDocumentXML(raw []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open docx zip: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, openErr := f.Open()
		if openErr != nil {
			return nil, fmt.Errorf("open document.xml: %w", openErr)
		}
		defer rc.Close()

		data, readErr := io.ReadAll(rc)
		if readErr != nil {
			return nil, fmt.Errorf("read document.xml: %w", readErr)
		}
		return data, nil
	}

	return nil, fmt.Errorf("word/document.xml not found")
}

// paragraphText walks the WordprocessingML token stream, collecting the
// character data inside <w:t> runs and separating paragraphs with newlines.
func paragraphText(xmlData []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(xmlData))

	var b strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return b.String(), fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "p":
				if b.Len() > 0 {
					b.WriteString("\n")
				}
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return b.String(), nil
}
