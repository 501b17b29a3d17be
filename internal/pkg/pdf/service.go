// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/quickcommerce/storefront/internal/config"
	"github.com/quickcommerce/storefront/internal/domain/order"
	"github.com/shopspring/decimal"
)

var invoiceTmpl = template.Must(template.New("invoice").Parse(invoiceTemplate))

// Service renders order invoices
type Service struct {
	config *config.Config
	now    func() time.Time
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		now:    time.Now,
	}
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	OrderNumber   string
	OrderDate     string
	Status        string
	Company       CompanyInfo
	BillTo        []string
	ShipTo        []string
	PaymentMethod string
	Lines         []InvoiceLine
	Subtotal      string
	Tax           string
	Shipping      string
	Discount      string
	HasDiscount   bool
	Total         string
	PromoCode     string
	Notes         string
}

// InvoiceLine is one rendered order item
type InvoiceLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	Amount    string
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Website string
}

// GenerateInvoice renders the invoice for an order as PDF. Needs the
// wkhtmltopdf binary on PATH.
func (s *Service) GenerateInvoice(o *order.Order) (*bytes.Buffer, error) {
	htmlContent, err := s.RenderHTML(o)
	if err != nil {
		return nil, err
	}

	// Convert HTML to PDF
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)
	pdfg.Title.Set("Invoice " + o.OrderNumber)

	page := wkhtmltopdf.NewPageReader(strings.NewReader(htmlContent))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// RenderHTML renders the invoice markup that GenerateInvoice converts
func (s *Service) RenderHTML(o *order.Order) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, s.invoiceData(o)); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) invoiceData(o *order.Order) InvoiceData {
	currency := o.Currency
	lines := make([]InvoiceLine, len(o.Items))
	for i, item := range o.Items {
		lines[i] = InvoiceLine{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: FormatMoney(item.Price, currency),
			Amount:    FormatMoney(item.Subtotal(), currency),
		}
	}

	data := InvoiceData{
		InvoiceNumber: "INV-" + strings.TrimPrefix(o.OrderNumber, "QC-"),
		InvoiceDate:   s.now().Format("January 2, 2006"),
		OrderNumber:   o.OrderNumber,
		OrderDate:     o.CreatedAt.Format("January 2, 2006"),
		Status:        string(o.Status),
		Company: CompanyInfo{
			Name:    s.config.Invoice.CompanyName,
			Address: s.config.Invoice.CompanyAddress,
			Phone:   s.config.Invoice.CompanyPhone,
			Email:   s.config.Invoice.CompanyEmail,
			Website: s.config.Invoice.CompanyWebsite,
		},
		Lines:       lines,
		Subtotal:    FormatMoney(o.Subtotal, currency),
		Tax:         FormatMoney(o.Tax, currency),
		Shipping:    FormatMoney(o.ShippingCost, currency),
		Discount:    FormatMoney(o.Discount, currency),
		HasDiscount: o.Discount > 0,
		Total:       FormatMoney(o.Total, currency),
		PromoCode:   o.PromoCode,
		Notes:       o.Notes,
	}
	if o.BillingAddress != nil {
		data.BillTo = o.BillingAddress.Lines()
	}
	if o.ShippingAddress != nil {
		data.ShipTo = o.ShippingAddress.Lines()
	}
	if o.PaymentMethod != nil {
		data.PaymentMethod = strings.ReplaceAll(o.PaymentMethod.Type, "_", " ")
	}
	return data
}

// FormatMoney renders cents as a currency amount, e.g. 3349 USD -> "USD 33.49"
func FormatMoney(cents int64, currency string) string {
	return currency + " " + decimal.New(cents, -2).StringFixed(2)
}

// Invoice HTML template
const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.InvoiceNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { overflow: hidden; margin-bottom: 30px; border-bottom: 2px solid #eee; padding-bottom: 20px; }
        .company-info { float: left; }
        .invoice-info { float: right; text-align: right; }
        .invoice-title { font-size: 28px; font-weight: bold; color: #2563eb; }
        .addresses { overflow: hidden; margin-bottom: 30px; }
        .address { float: left; width: 45%; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 20px; }
        th { background: #f8fafc; text-align: left; padding: 8px; border-bottom: 1px solid #e5e7eb; }
        td { padding: 8px; border-bottom: 1px solid #f1f5f9; }
        .num { text-align: right; }
        .totals { width: 40%; margin-left: 60%; }
        .grand-total td { font-weight: bold; font-size: 16px; border-top: 2px solid #333; }
    </style>
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h2>{{.Company.Name}}</h2>
            <div>{{.Company.Address}}</div>
            <div>{{.Company.Phone}} · {{.Company.Email}}</div>
            <div>{{.Company.Website}}</div>
        </div>
        <div class="invoice-info">
            <div class="invoice-title">INVOICE</div>
            <div>Invoice #: {{.InvoiceNumber}}</div>
            <div>Invoice date: {{.InvoiceDate}}</div>
            <div>Order #: {{.OrderNumber}}</div>
            <div>Order date: {{.OrderDate}}</div>
            <div>Status: {{.Status}}</div>
        </div>
    </div>

    <div class="addresses">
        <div class="address">
            <h3>Bill To</h3>
            {{range .BillTo}}<div>{{.}}</div>{{end}}
        </div>
        <div class="address">
            <h3>Ship To</h3>
            {{range .ShipTo}}<div>{{.}}</div>{{end}}
        </div>
    </div>

    <table>
        <thead>
            <tr><th>Item</th><th class="num">Qty</th><th class="num">Unit price</th><th class="num">Amount</th></tr>
        </thead>
        <tbody>
            {{range .Lines}}<tr><td>{{.Name}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.UnitPrice}}</td><td class="num">{{.Amount}}</td></tr>
            {{end}}
        </tbody>
    </table>

    <table class="totals">
        <tr><td>Subtotal</td><td class="num">{{.Subtotal}}</td></tr>
        <tr><td>Tax</td><td class="num">{{.Tax}}</td></tr>
        <tr><td>Shipping</td><td class="num">{{.Shipping}}</td></tr>
        {{if .HasDiscount}}<tr><td>Discount{{if .PromoCode}} ({{.PromoCode}}){{end}}</td><td class="num">-{{.Discount}}</td></tr>{{end}}
        <tr class="grand-total"><td>Total</td><td class="num">{{.Total}}</td></tr>
    </table>

    {{if .PaymentMethod}}<p>Payment method: {{.PaymentMethod}}</p>{{end}}
    {{if .Notes}}<p>Notes: {{.Notes}}</p>{{end}}
</body>
</html>
`
