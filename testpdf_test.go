package pageharvest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// buildTestPDF returns a minimal valid PDF with one page per text, each
// page showing its text in Helvetica.
func buildTestPDF(texts ...string) []byte {
	var buf bytes.Buffer
	offsets := map[int]int{}
	obj := func(id int, body string) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
	}

	buf.WriteString("%PDF-1.4\n")
	fontID := 3 + 2*len(texts)

	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	var kids bytes.Buffer
	for i := range texts {
		if i > 0 {
			kids.WriteByte(' ')
		}
		fmt.Fprintf(&kids, "%d 0 R", 3+2*i)
	}
	obj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(texts)))

	for i, text := range texts {
		pageID, contentID := 3+2*i, 4+2*i
		obj(pageID, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>", contentID, fontID))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		obj(contentID, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}
	obj(fontID, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	size := fontID + 1
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", size)
	for id := 1; id < size; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xref)
	return buf.Bytes()
}

// writePagePDFs writes a one page PDF named page{N}.pdf for every page
// of rng into dir.
func writePagePDFs(t *testing.T, dir string, rng PageRange) {
	t.Helper()
	for _, n := range rng.Pages() {
		data := buildTestPDF(fmt.Sprintf("Page %d", n))
		if err := os.WriteFile(filepath.Join(dir, PDFName(n)), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
