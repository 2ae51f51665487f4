package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/schema"
)

// ErrUnsupportedFormat is returned for files whose extension has no loader.
var ErrUnsupportedFormat = errors.New("unsupported file format")

const (
	MetaSource  = "source"
	MetaPage    = "page"
	MetaChunkID = "chunk_id"

	defaultPageNumber = 1
)

// SupportedExtensions lists the loaders known to LoadDocuments.
var SupportedExtensions = []string{".pdf", ".docx", ".txt"}

// LoadDocuments dispatches filePath to the loader for its extension and
// returns the raw text documents it contains.
func LoadDocuments(filePath string) ([]schema.Document, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	var (
		docs []schema.Document
		err  error
	)
	switch ext {
	case ".pdf":
		docs, err = parsePDF(filePath)
	case ".docx":
		docs, err = parseDOCX(filePath)
	case ".txt":
		docs, err = parseText(filePath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filepath.Base(filePath), err)
	}
	log.Debug().Str("file", filePath).Int("documents", len(docs)).Msg("Loaded documents")
	return docs, nil
}

func parsePDF(filePath string) ([]schema.Document, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Get file size for reader initialization
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var docs []schema.Document
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		docs = append(docs, newDocument(pageText, filePath, i))
	}
	return docs, nil
}

func parseDOCX(filePath string) ([]schema.Document, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := extractTextFromXML(r.Editable().GetContent())
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	return []schema.Document{newDocument(content, filePath, defaultPageNumber)}, nil
}

func parseText(filePath string) ([]schema.Document, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []schema.Document{newDocument(string(data), filePath, defaultPageNumber)}, nil
}

func newDocument(content, source string, page int) schema.Document {
	return schema.Document{
		PageContent: content,
		Metadata: map[string]any{
			MetaSource: source,
			MetaPage:   page,
		},
	}
}

// extractTextFromXML pulls the text runs out of a WordprocessingML body,
// one line per paragraph.
func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	for _, para := range strings.Split(xmlContent, "</w:p>") {
		var line strings.Builder
		parts := strings.Split(para, "<w:t")
		for i, part := range parts {
			if i == 0 {
				continue
			}
			// skip <w:tab/>, <w:tbl> and friends
			if part == "" || (part[0] != '>' && part[0] != ' ') {
				continue
			}
			startIdx := strings.Index(part, ">")
			endIdx := strings.Index(part, "</w:t>")
			if startIdx >= 0 && endIdx > startIdx {
				line.WriteString(unescapeXML(part[startIdx+1 : endIdx]))
			}
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			text.WriteString(s)
			text.WriteString("\n")
		}
	}
	return text.String()
}

var xmlUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string {
	return xmlUnescaper.Replace(s)
}
