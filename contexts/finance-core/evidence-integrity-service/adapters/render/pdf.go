package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	pageWidth   = 190.0
	lineHeight  = 6.0
	qrImageName = "verification-qr"
	qrSizeMM    = 40.0
	qrPixels    = 256
)

// PDFRenderer lays the document out on A4 pages. The creation date is pinned
// to the document's generation time so equal documents render equal bytes.
type PDFRenderer struct {
	Author string
}

func (r PDFRenderer) Render(ctx context.Context, doc entities.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetTitle(doc.Title, true)
	if r.Author != "" {
		pdf.SetAuthor(r.Author, true)
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Artifact %s  |  page %d", doc.ArtifactID, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(pageWidth, 8, tr(doc.Title), "", "L", false)
	pdf.Ln(2)

	heading(pdf, "Overview")
	for _, kv := range doc.Overview {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, lineHeight, tr(kv.Key), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, lineHeight, tr(kv.Value), "", 1, "L", false, 0, "")
	}

	heading(pdf, "Contributions and payouts")
	payoutTable(pdf, tr, doc.Payouts)

	heading(pdf, "Compliance checklist")
	for _, item := range doc.Checklist {
		mark := "FAIL"
		if item.Passed {
			mark = "PASS"
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(15, lineHeight, mark, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		line := item.Item
		if item.Note != "" {
			line += " (" + item.Note + ")"
		}
		pdf.MultiCell(0, lineHeight, tr(line), "", "L", false)
	}

	if doc.Fairness != nil {
		heading(pdf, "Fairness analysis")
		f := doc.Fairness
		body(pdf, tr, fmt.Sprintf("Audit %s recorded %s", f.AuditID, f.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST")))
		body(pdf, tr, fmt.Sprintf("Gini coefficient %.4f (%s), fairness score %.2f", f.GiniCoefficient, f.GiniCategory, f.FairnessScore))
		for _, flag := range f.RedFlags {
			body(pdf, tr, fmt.Sprintf("[red] %s: %s", flag.ID, flag.Detail))
		}
		for _, flag := range f.GreenFlags {
			body(pdf, tr, fmt.Sprintf("[green] %s: %s", flag.ID, flag.Detail))
		}
		for _, rec := range f.Recommendations {
			body(pdf, tr, "- "+rec)
		}
	}

	if doc.Signature != nil {
		heading(pdf, "Manifest signature")
		signed := "unsigned"
		if doc.Signature.SignedAt != nil {
			signed = doc.Signature.SignedAt.UTC().Format("2006-01-02 15:04:05 MST")
		}
		body(pdf, tr, fmt.Sprintf("Manifest %s with %d entries, signed %s", doc.Signature.ManifestID, doc.Signature.Entries, signed))
	}

	if len(doc.Timeline) > 0 {
		heading(pdf, "Timeline")
		for _, event := range doc.Timeline {
			body(pdf, tr, fmt.Sprintf("%s  %s  %s  %s",
				event.OccurredAt.UTC().Format("2006-01-02 15:04"), event.EventType, event.Actor, event.Summary))
		}
	}

	if len(doc.Files) > 0 {
		heading(pdf, "File integrity")
		pdf.SetFont("Courier", "", 8)
		for _, file := range doc.Files {
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s  %d bytes  sha256:%s", file.FileName, file.SizeBytes, file.SHA256)), "", "L", false)
		}
	}

	if len(doc.IncompleteSections) > 0 {
		heading(pdf, "Incomplete sections")
		body(pdf, tr, "The following sections could not be gathered and are omitted: "+strings.Join(doc.IncompleteSections, ", "))
	}

	if err := verificationBlock(pdf, tr, doc.Verification); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (PDFRenderer) ContentType() string {
	return "application/pdf"
}

func (PDFRenderer) Extension() string {
	return "pdf"
}

func heading(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func body(pdf *gofpdf.Fpdf, tr func(string) string, text string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, lineHeight, tr(text), "", "L", false)
}

func payoutTable(pdf *gofpdf.Fpdf, tr func(string) string, rows []entities.PayoutRow) {
	if len(rows) == 0 {
		body(pdf, tr, "No payouts recorded.")
		return
	}
	widths := []float64{70, 45, 35, 40}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Contributor", "Type", "Weight", "Amount"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	total := 0.0
	for _, row := range rows {
		total += row.Amount
		pdf.CellFormat(widths[0], 6, tr(row.ContributorID), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(row.ContributionType), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%.4f", row.Weight), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%.2f", row.Amount), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 6, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 6, fmt.Sprintf("%.2f", total), "1", 1, "R", false, 0, "")
}

func verificationBlock(pdf *gofpdf.Fpdf, tr func(string) string, v entities.VerificationDetails) error {
	heading(pdf, "Verification")
	png, err := verificationQR(v.URL)
	if err != nil {
		return err
	}
	if pdf.GetY()+qrSizeMM > 270 {
		pdf.AddPage()
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(qrImageName, opts, bytes.NewReader(png))
	x, y := pdf.GetXY()
	pdf.ImageOptions(qrImageName, x, y, qrSizeMM, qrSizeMM, false, opts, 0, v.URL)
	pdf.SetXY(x+qrSizeMM+5, y)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, lineHeight, tr("Reference: "+v.Reference), "", "L", false)
	pdf.SetX(x + qrSizeMM + 5)
	pdf.MultiCell(0, lineHeight, tr("Verify at: "+v.URL), "", "L", false)
	pdf.SetX(x + qrSizeMM + 5)
	pdf.MultiCell(0, lineHeight, "The SHA-256 of this file is recorded at generation time.", "", "L", false)
	pdf.SetY(y + qrSizeMM + 2)
	return pdf.Error()
}

// verificationQR encodes the verify URL as a PNG QR code.
func verificationQR(url string) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, qrPixels)
	if err != nil {
		return nil, fmt.Errorf("encode verification qr: %w", err)
	}
	return png, nil
}

var _ ports.Renderer = PDFRenderer{}
