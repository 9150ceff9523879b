package commands

import (
	"fmt"
	"os"

	"turmob-efatura/lib/configutil"
	"turmob-efatura/lib/scrapers/turmob"
	"turmob-efatura/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type invoiceProduct struct {
	ProductName         string  `json:"product_name"`
	Quantity            float64 `json:"quantity"`
	UnitPrice           float64 `json:"unit_price"`
	DiscountAmount      float64 `json:"discount_amount"`
	DiscountRate        float64 `json:"discount_rate"`
	VatAmount           float64 `json:"vat_amount"`
	VatRate             float64 `json:"vat_rate"`
	LineExtensionAmount float64 `json:"line_extension_amount"`
}

type invoiceSpec struct {
	Recipient struct {
		Name    string `json:"name"`
		VknTckn string `json:"vkn_tckn"`
		County  string `json:"county"`
		City    string `json:"city"`
	} `json:"recipient"`
	Products []invoiceProduct `json:"products"`
	Totals   struct {
		LineExtensionAmount float64 `json:"line_extension_amount"`
		VatAmount           float64 `json:"vat_amount"`
		TaxInclusiveAmount  float64 `json:"tax_inclusive_amount"`
		DiscountAmount      float64 `json:"discount_amount"`
		PayableAmount       float64 `json:"payable_amount"`
	} `json:"totals"`
}

var invoiceFile *string

func init() {
	invoiceFile = invoiceCmd.Flags().String("file", "invoice.json5", "The invoice description to submit.")
	rootCmd.AddCommand(invoiceCmd)
}

func renderInvoice(spec invoiceSpec) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Product", "Qty", "Unit Price", "Discount", "VAT", "Line Total"})
	for _, p := range spec.Products {
		t.AppendRow(table.Row{
			p.ProductName,
			p.Quantity,
			p.UnitPrice,
			p.DiscountAmount,
			p.VatAmount,
			p.LineExtensionAmount,
		})
	}
	t.AppendFooter(table.Row{
		"TOTAL", "", "",
		spec.Totals.DiscountAmount,
		spec.Totals.VatAmount,
		spec.Totals.PayableAmount,
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var invoiceCmd = &cobra.Command{
	Use:   "invoice [--file <path/to/invoice.json5>]",
	Short: "Submits an invoice described by a json5 file and prints the invoice id.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		spec, err := configutil.ReadConfig[invoiceSpec](*invoiceFile)
		if err != nil {
			serviceutil.Fatal("failed to read invoice file", err)
		}

		client := createClient(cmd.Context(), cfg)

		recipientId, err := client.GetInvoiceUser(
			cmd.Context(),
			spec.Recipient.Name,
			spec.Recipient.VknTckn,
			spec.Recipient.County,
			spec.Recipient.City,
		)
		if err != nil {
			serviceutil.Fatal("failed to resolve recipient", err)
		}

		products := make([]turmob.Product, len(spec.Products))
		for i, p := range spec.Products {
			products[i] = turmob.Product{
				ProductName:         p.ProductName,
				Quantity:            p.Quantity,
				UnitPrice:           p.UnitPrice,
				DiscountAmount:      p.DiscountAmount,
				DiscountRate:        p.DiscountRate,
				VatAmount:           p.VatAmount,
				VatRate:             p.VatRate,
				LineExtensionAmount: p.LineExtensionAmount,
			}
		}

		renderInvoice(spec)

		invoiceId, ok, err := client.CreateInvoice(cmd.Context(), recipientId, products, turmob.Totals{
			LineExtensionAmount: spec.Totals.LineExtensionAmount,
			VatAmount:           spec.Totals.VatAmount,
			TaxInclusiveAmount:  spec.Totals.TaxInclusiveAmount,
			DiscountAmount:      spec.Totals.DiscountAmount,
			PayableAmount:       spec.Totals.PayableAmount,
		})
		if err != nil {
			serviceutil.Fatal("failed to submit invoice", err)
		}
		if !ok {
			serviceutil.Fatal("portal rejected invoice", fmt.Errorf("response was not a 16 character invoice id"))
		}
		fmt.Println(invoiceId)
	},
}
