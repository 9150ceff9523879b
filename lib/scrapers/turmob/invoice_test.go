package turmob

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var testProducts = []Product{
	{
		ProductName:         "Muhasebe Danışmanlığı",
		Quantity:            1,
		UnitPrice:           1000,
		VatAmount:           200,
		VatRate:             20,
		LineExtensionAmount: 1000,
	},
	{
		ProductName:         "Defter Tutma",
		Quantity:            2,
		UnitPrice:           250,
		DiscountAmount:      50,
		DiscountRate:        10,
		VatAmount:           90,
		VatRate:             20,
		LineExtensionAmount: 450,
	},
}

var testTotals = Totals{
	LineExtensionAmount: 1450,
	VatAmount:           290,
	TaxInclusiveAmount:  1740,
	DiscountAmount:      50,
	PayableAmount:       1740,
}

func serveInvoiceFlow(t *testing.T, portal *fakePortal, token, response string) {
	portal.mux.HandleFunc("GET /Invoice/CreateQuick", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, scriptTokenPage(token))
	})
	portal.mux.HandleFunc("POST /Invoice/Create", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, token, r.PostForm.Get("__RequestVerificationToken"))

		var payload invoicePayload
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("jsonData")), &payload))

		require.Equal(t, int64(4242), payload.IdAlici)
		require.Equal(t, "TRY", payload.CurrencyCode)
		require.Equal(t, "180382", payload.CompanyId)
		require.Equal(t, "2", payload.RecipientType)
		require.Equal(t, "0", payload.ScenarioType)
		require.Equal(t, "1", payload.InvoiceType)
		require.Equal(t, "2", payload.Receiver.SendingType)
		require.Regexp(t, regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`), payload.InvoiceDate)
		require.Regexp(t, regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`), payload.InvoiceTime)

		require.Len(t, payload.Products, 2)
		first := payload.Products[0]
		require.Equal(t, "Muhasebe Danışmanlığı", first.ProductName)
		require.Equal(t, float64(1000), first.UnitPrice)
		require.Equal(t, float64(200), first.VatAmount)
		require.Equal(t, 67, first.MeasureUnitId)
		second := payload.Products[1]
		require.Equal(t, float64(50), second.DiscountAmount)
		require.Equal(t, float64(450), second.LineExtensionAmount)

		require.Equal(t, float64(1450), payload.TotalLineExtensionAmount)
		require.Equal(t, float64(290), payload.TotalVATAmount)
		require.Equal(t, float64(1740), payload.TotalTaxInclusiveAmount)
		require.Equal(t, float64(50), payload.TotalDiscountAmount)
		require.Equal(t, float64(1740), payload.TotalPayableAmount)

		fmt.Fprint(w, response)
	})
}

func TestCreateInvoice(t *testing.T) {
	portal := newFakePortal(t)
	serveInvoiceFlow(t, portal, "tok-i1", `"abcd1234efgh5678"`)

	client := portal.newClient(t, ClientOptions{})
	client.loggedIn = true

	id, ok, err := client.CreateInvoice(context.Background(), 4242, testProducts, testTotals)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abcd1234efgh5678", id)
}

func TestCreateInvoiceTrimsResponse(t *testing.T) {
	portal := newFakePortal(t)
	serveInvoiceFlow(t, portal, "tok-i2", "\n  \"abcd1234efgh5678\"\t\n")

	client := portal.newClient(t, ClientOptions{})
	client.loggedIn = true

	id, ok, err := client.CreateInvoice(context.Background(), 4242, testProducts, testTotals)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abcd1234efgh5678", id)
}

func TestCreateInvoiceMalformedId(t *testing.T) {
	portal := newFakePortal(t)
	serveInvoiceFlow(t, portal, "tok-i3", `<html>Beklenmeyen hata</html>`)

	client := portal.newClient(t, ClientOptions{})
	client.loggedIn = true

	// a malformed id is a reported outcome, not an error
	id, ok, err := client.CreateInvoice(context.Background(), 4242, testProducts, testTotals)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, id)
}

func TestCreateInvoiceTokenFreshPerCall(t *testing.T) {
	portal := newFakePortal(t)
	tokenFetches := 0
	portal.mux.HandleFunc("GET /Invoice/CreateQuick", func(w http.ResponseWriter, r *http.Request) {
		tokenFetches++
		fmt.Fprint(w, scriptTokenPage(fmt.Sprintf("tok-i4-%d", tokenFetches)))
	})
	submissions := 0
	portal.mux.HandleFunc("POST /Invoice/Create", func(w http.ResponseWriter, r *http.Request) {
		submissions++
		require.NoError(t, r.ParseForm())
		// each submission carries the token of its own page fetch
		require.Equal(t, fmt.Sprintf("tok-i4-%d", submissions), r.PostForm.Get("__RequestVerificationToken"))
		fmt.Fprint(w, `"abcd1234efgh5678"`)
	})

	client := portal.newClient(t, ClientOptions{})
	client.loggedIn = true

	for i := 0; i < 2; i++ {
		_, ok, err := client.CreateInvoice(context.Background(), 4242, testProducts, testTotals)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, 2, tokenFetches)
}

func TestBuildInvoicePayloadDefaults(t *testing.T) {
	payload := buildInvoicePayload(4242, testProducts, testTotals)

	require.Equal(t, "", payload.ETTN)
	require.Equal(t, "0", payload.InvoiceId)
	require.Equal(t, "", payload.InvoiceNumber)
	require.Empty(t, payload.DispatchList)
	require.Equal(t, []string{""}, payload.Notes)

	// empty structural lists must serialize as [], not null
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"DispatchList":[]`)
	require.Contains(t, string(raw), `"AdditionalTaxes":[]`)
	require.Contains(t, string(raw), `"ReceiverInboxTag":null`)
	require.Contains(t, string(raw), `"ProductId":null`)
}
