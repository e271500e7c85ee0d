// Package invoice формирует PDF-счета для подтвержденных платежей.
package invoice

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// ErrEmptyInvoice возвращается, если у счета нет номера или получателя.
var ErrEmptyInvoice = errors.New("invoice number and recipient are required")

// Issuer — реквизиты платформы, печатаемые в шапке счета.
type Issuer struct {
	Name    string
	Address string
	Email   string
}

// Render возвращает PDF-документ счета.
func Render(issuer Issuer, req models.InvoiceRequest) ([]byte, error) {
	const op = "invoice.Render"
	if strings.TrimSpace(req.Number) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyInvoice)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Invoice "+req.Number, true)
	pdf.SetAuthor(issuer.Name, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(issuer.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if issuer.Address != "" {
		pdf.CellFormat(0, 5, tr(issuer.Address), "", 1, "L", false, 0, "")
	}
	if issuer.Email != "" {
		pdf.CellFormat(0, 5, tr(issuer.Email), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "INVOICE", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	row := func(label, value string) {
		pdf.CellFormat(40, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(value), "", 1, "L", false, 0, "")
	}
	row("Invoice no.:", req.Number)
	row("Issued:", req.IssuedAt.UTC().Format("2006-01-02"))
	row("Billed to:", req.Email)
	row("Status:", "PAID")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(130, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(0, 8, "Amount", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(130, 8, tr(req.Description), "1", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, FormatAmount(req), "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(130, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(0, 8, FormatAmount(req), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

// FormatAmount печатает сумму с двумя знаками и кодом валюты.
func FormatAmount(req models.InvoiceRequest) string {
	return req.Amount.StringFixed(2) + " " + strings.ToUpper(req.Currency)
}

// FileName возвращает имя вложения для счета.
func FileName(number string) string {
	return "invoice-" + number + ".pdf"
}
