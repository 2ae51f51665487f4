package parser

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p><w:r><w:t>Oil change intervals</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t xml:space="preserve">Change the oil every </w:t></w:r><w:r><w:tab/><w:t>5,000 miles &amp; check it monthly.</w:t></w:r></w:p>` +
	`<w:p></w:p>` +
	`</w:body></w:document>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`

func writeDocx(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		"[Content_Types].xml":          contentTypesXML,
		"word/document.xml":            documentXML,
		"word/_rels/document.xml.rels": relsXML,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestLoadDocumentsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.TXT")
	require.NoError(t, os.WriteFile(path, []byte("Change your oil every 5,000 miles."), 0o644))

	docs, err := LoadDocuments(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Change your oil every 5,000 miles.", docs[0].PageContent)
	assert.Equal(t, path, docs[0].Metadata[MetaSource])
	assert.Equal(t, 1, docs[0].Metadata[MetaPage])
}

func TestLoadDocumentsEmptyText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	docs, err := LoadDocuments(path)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoadDocumentsDocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.docx")
	writeDocx(t, path)

	docs, err := LoadDocuments(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Oil change intervals\nChange the oil every 5,000 miles & check it monthly.\n", docs[0].PageContent)
}

func TestLoadDocumentsUnsupported(t *testing.T) {
	for _, name := range []string{"data.csv", "slides.pptx", "noext"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

			_, err := LoadDocuments(path)
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestLoadDocumentsPDF(t *testing.T) {
	path := filepath.Join("testdata", "manual.pdf")
	docs, err := LoadDocuments(path)
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].PageContent, "Change the engine oil every 5000 miles.")
	assert.Equal(t, 1, docs[0].Metadata[MetaPage])
	assert.Equal(t, path, docs[0].Metadata[MetaSource])
}

func TestLoadDocumentsPDFUpperCaseExtension(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "manual.pdf"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "MANUAL.PDF")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	docs, err := LoadDocuments(path)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestLoadDocumentsMalformedPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not really a pdf"), 0o644))

	_, err := LoadDocuments(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadDocumentsMissingFile(t *testing.T) {
	_, err := LoadDocuments(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestExtractTextFromXMLSkipsNonTextElements(t *testing.T) {
	xml := `<w:p><w:r><w:tbl/><w:t>a &lt;b&gt;</w:t></w:r></w:p><w:p><w:r><w:t>c</w:t></w:r></w:p>`
	assert.Equal(t, "a <b>\nc\n", extractTextFromXML(xml))
}
