package turmob

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"turmob-efatura/lib/htmlutil"
	"turmob-efatura/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Product is one line item of an invoice. All economic fields pass
// through to the portal verbatim; consistency between lines and totals
// is the caller's responsibility.
type Product struct {
	ProductName         string
	Quantity            float64
	UnitPrice           float64
	DiscountAmount      float64
	DiscountRate        float64
	VatAmount           float64
	VatRate             float64
	LineExtensionAmount float64
}

// Totals are the invoice-level amounts, again passed through verbatim.
type Totals struct {
	LineExtensionAmount float64
	VatAmount           float64
	TaxInclusiveAmount  float64
	DiscountAmount      float64
	PayableAmount       float64
}

// the portal's verbose per-line schema, mostly structural defaults
type invoiceProduct struct {
	ProductInvoiceModelId  int     `json:"ProductInvoiceModelId"`
	DiscountAmount         float64 `json:"DiscountAmount"`
	DiscountRate           float64 `json:"DiscountRate"`
	LineExtensionAmount    float64 `json:"LineExtensionAmount"`
	MeasureUnitId          int     `json:"MeasureUnitId"`
	ProductId              any     `json:"ProductId"`
	ProductName            string  `json:"ProductName"`
	Quantity               float64 `json:"Quantity"`
	TaxExemptionReason     string  `json:"TaxExemptionReason"`
	TaxExemptionReasonCode string  `json:"TaxExemptionReasonCode"`
	UnitPrice              float64 `json:"UnitPrice"`
	VatAmount              float64 `json:"VatAmount"`
	VatRate                float64 `json:"VatRate"`
	AdditionalTaxes        []any   `json:"AdditionalTaxes"`
	WitholdingTaxes        []any   `json:"WitholdingTaxes"`
	Deleted                bool    `json:"Deleted"`
	DeliveryList           []any   `json:"DeliveryList"`
	CustomsTrackingList    []any   `json:"CustomsTrackingList"`
	IdMensei               int     `json:"IdMensei"`
	Mensei                 any     `json:"Mensei"`
	SiniflandirmaKodu      any     `json:"SiniflandirmaKodu"`
	IdSiniflandirmaKodu    int     `json:"IdSiniflandirmaKodu"`
	GTipNoArcvh            string  `json:"GTipNoArcvh"`
}

type invoiceReceiver struct {
	SendingType string `json:"SendingType"`
}

type invoicePayload struct {
	ETTN                     string           `json:"ETTN"`
	InvoiceId                string           `json:"InvoiceId"`
	RecipientType            string           `json:"RecipientType"`
	InvoiceNumber            string           `json:"InvoiceNumber"`
	CompanyId                string           `json:"CompanyId"`
	ScenarioType             string           `json:"ScenarioType"`
	ReceiverInboxTag         any              `json:"ReceiverInboxTag"`
	InvoiceDate              string           `json:"InvoiceDate"`
	InvoiceTime              string           `json:"InvoiceTime"`
	InvoiceType              string           `json:"InvoiceType"`
	LastPaymentDate          string           `json:"LastPaymentDate"`
	DispatchList             []any            `json:"DispatchList"`
	IdAlici                  int64            `json:"IdAlici"`
	Products                 []invoiceProduct `json:"Products"`
	CurrencyCode             string           `json:"CurrencyCode"`
	CrossRate                float64          `json:"CrossRate"`
	TaxExemptionReason       string           `json:"TaxExemptionReason"`
	Notes                    []string         `json:"Notes"`
	Receiver                 invoiceReceiver  `json:"Receiver"`
	IsFreeOfCharge           bool             `json:"IsFreeOfCharge"`
	KismiIadeMi              bool             `json:"KismiIadeMi"`
	CompanyBankAccountList   []any            `json:"CompanyBankAccountList"`
	TotalLineExtensionAmount float64          `json:"TotalLineExtensionAmount"`
	TotalVATAmount           float64          `json:"TotalVATAmount"`
	TotalTaxInclusiveAmount  float64          `json:"TotalTaxInclusiveAmount"`
	TotalDiscountAmount      float64          `json:"TotalDiscountAmount"`
	TotalPayableAmount       float64          `json:"TotalPayableAmount"`
	RoundCounter             int              `json:"RoundCounter"`
}

func (c *Client) getCreateQuickToken(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "client:getCreateQuickToken")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/Invoice/CreateQuick")
	if err = connErr(err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch quick create page")
		return "", err
	}

	token := htmlutil.ScriptInputValue(res.Body())
	if token == "" {
		span.SetStatus(codes.Error, "failed to find verification token")
		return "", fmt.Errorf("%w in Invoice/CreateQuick script", ErrTokenNotFound)
	}
	return token, nil
}

func buildInvoicePayload(idAlici int64, products []Product, totals Totals) invoicePayload {
	now := timezone.Now()

	lines := make([]invoiceProduct, len(products))
	for i, p := range products {
		lines[i] = invoiceProduct{
			ProductInvoiceModelId: 0,
			DiscountAmount:        p.DiscountAmount,
			DiscountRate:          p.DiscountRate,
			LineExtensionAmount:   p.LineExtensionAmount,
			MeasureUnitId:         67,
			ProductId:             nil,
			ProductName:           p.ProductName,
			Quantity:              p.Quantity,
			UnitPrice:             p.UnitPrice,
			VatAmount:             p.VatAmount,
			VatRate:               p.VatRate,
			AdditionalTaxes:       []any{},
			WitholdingTaxes:       []any{},
			DeliveryList:          []any{},
			CustomsTrackingList:   []any{},
		}
	}

	return invoicePayload{
		ETTN:                     "",
		InvoiceId:                "0",
		RecipientType:            "2",
		InvoiceNumber:            "",
		CompanyId:                companyId,
		ScenarioType:             "0",
		ReceiverInboxTag:         nil,
		InvoiceDate:              now.Format("02-01-2006"),
		InvoiceTime:              now.Format("15:04:05"),
		InvoiceType:              "1",
		LastPaymentDate:          "",
		DispatchList:             []any{},
		IdAlici:                  idAlici,
		Products:                 lines,
		CurrencyCode:             "TRY",
		CrossRate:                0,
		Notes:                    []string{""},
		Receiver:                 invoiceReceiver{SendingType: "2"},
		CompanyBankAccountList:   []any{},
		TotalLineExtensionAmount: totals.LineExtensionAmount,
		TotalVATAmount:           totals.VatAmount,
		TotalTaxInclusiveAmount:  totals.TaxInclusiveAmount,
		TotalDiscountAmount:      totals.DiscountAmount,
		TotalPayableAmount:       totals.PayableAmount,
		RoundCounter:             0,
	}
}

// CreateInvoice submits an invoice for the given recipient. A successful
// submission answers with an opaque 16-character invoice id; anything
// else the portal returns is reported as ok == false rather than an
// error, since a malformed id is an expected degraded outcome.
func (c *Client) CreateInvoice(ctx context.Context, idAlici int64, products []Product, totals Totals) (invoiceId string, ok bool, err error) {
	ctx, span := tracer.Start(ctx, "client:CreateInvoice")
	defer span.End()
	span.SetAttributes(attribute.Int64("recipient_id", idAlici))

	if !c.loggedIn {
		return "", false, fmt.Errorf("%w to create an invoice", ErrAuthenticationRequired)
	}

	token, err := c.getCreateQuickToken(ctx)
	if err != nil {
		return "", false, err
	}

	jsonData, err := json.Marshal(buildInvoicePayload(idAlici, products, totals))
	if err != nil {
		return "", false, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"jsonData":       string(jsonData),
			antiForgeryField: token,
		}).
		Post("/Invoice/Create")
	if err = connErr(err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit invoice")
		return "", false, err
	}

	invoiceId = strings.Trim(res.String(), " \t\n\r\x00\x0B\"")
	if len(invoiceId) != 16 {
		span.SetStatus(codes.Error, fmt.Sprintf(
			"expected a 16 character invoice id, got %q (status %d)",
			invoiceId, res.StatusCode(),
		))
		return "", false, nil
	}

	return invoiceId, true, nil
}
