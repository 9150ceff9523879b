package turmob

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"turmob-efatura/lib/cities"
	"turmob-efatura/lib/htmlutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// the portal account this client submits under; recipients and invoices
// are scoped to it
const companyId = "180382"

// findRecipient searches existing recipients by name. Exactly one match
// resolves to that recipient's id; zero matches means the caller may
// create one; two or more is an ambiguity a human has to untangle.
func (c *Client) findRecipient(ctx context.Context, name string) (int64, bool, error) {
	ctx, span := tracer.Start(ctx, "client:findRecipient")
	defer span.End()
	span.SetAttributes(attribute.String("recipient", name))

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":         name,
			"companyId": "undefined",
		}).
		Get("/Invoice/GetRecipientList")
	if err = connErr(err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch recipient list")
		return 0, false, err
	}

	var recipients []struct {
		IdAlici int64 `json:"IdAlici"`
	}
	err = json.Unmarshal(res.Body(), &recipients)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recipient list is not json")
		return 0, false, fmt.Errorf("%w: recipient list: %v", ErrInvalidResponse, err)
	}

	switch len(recipients) {
	case 0:
		return 0, false, nil
	case 1:
		return recipients[0].IdAlici, true, nil
	default:
		span.SetStatus(codes.Error, "ambiguous recipient name")
		return 0, false, fmt.Errorf("%w: %s (%d matches)", ErrAmbiguousRecipient, name, len(recipients))
	}
}

type location struct {
	cityId   int
	countyId int64
}

// resolveLocation maps a (city, county) name pair to the portal's
// numeric ids. The city comes from the static table; counties are
// queried per city and matched by folded name.
func (c *Client) resolveLocation(ctx context.Context, cityName, countyName string) (location, error) {
	ctx, span := tracer.Start(ctx, "client:resolveLocation")
	defer span.End()
	span.SetAttributes(
		attribute.String("city", cityName),
		attribute.String("county", countyName),
	)

	cityId, err := cities.CityId(cityName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown city")
		return location{}, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("CityId", strconv.Itoa(cityId)).
		Get("/Invoice/GetCountyFromCityId")
	if err = connErr(err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch county list")
		return location{}, err
	}

	var counties []struct {
		IdIlce  int64  `json:"IdIlce"`
		IlceAdi string `json:"IlceAdi"`
	}
	err = json.Unmarshal(res.Body(), &counties)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "county list is not json")
		return location{}, fmt.Errorf("%w: county list: %v", ErrInvalidResponse, err)
	}

	fixed := cities.FixName(countyName)
	for _, county := range counties {
		if cities.FixName(county.IlceAdi) == fixed {
			return location{cityId: cityId, countyId: county.IdIlce}, nil
		}
	}

	span.SetStatus(codes.Error, "unknown county")
	return location{}, fmt.Errorf("%w: %s in city %s", ErrCountyNotFound, countyName, cityName)
}

func (c *Client) getCreatePageToken(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "client:getCreatePageToken")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/Invoice/Create")
	if err = connErr(err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch create page")
		return "", err
	}

	token := htmlutil.ScriptInputValue(res.Body())
	if token == "" {
		span.SetStatus(codes.Error, "failed to find verification token")
		return "", fmt.Errorf("%w in Invoice/Create script", ErrTokenNotFound)
	}
	return token, nil
}

// GetInvoiceUser returns the id of the recipient with the given name,
// creating it when it does not exist yet. Repeated calls with the same
// name are idempotent: an existing recipient short-circuits before any
// creation request.
func (c *Client) GetInvoiceUser(ctx context.Context, recipientName, vknTckn, countyName, cityName string) (int64, error) {
	ctx, span := tracer.Start(ctx, "client:GetInvoiceUser")
	defer span.End()

	if !c.loggedIn {
		return 0, fmt.Errorf("%w to get/create invoice user", ErrAuthenticationRequired)
	}

	existingId, found, err := c.findRecipient(ctx, recipientName)
	if err != nil {
		return 0, err
	}
	if found {
		return existingId, nil
	}

	loc, err := c.resolveLocation(ctx, cityName, countyName)
	if err != nil {
		return 0, err
	}

	token, err := c.getCreatePageToken(ctx)
	if err != nil {
		return 0, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"AliciAdi":            recipientName,
			"Vnktckn":             vknTckn,
			"IdIlce":              strconv.FormatInt(loc.countyId, 10),
			"IdIl":                strconv.Itoa(loc.cityId),
			"IlAdi":               cityName,
			// defaults for the fields the caller does not control
			"WebSite":             "",
			"Telefon":             "",
			"FaturaGonderimSekli": "2",
			"IdVergiDairesi":      "-1",
			"Fax":                 "",
			"Email":               "",
			"SokakAdi":            "",
			"BinaNo":              "",
			"PostaKodu":           "",
			"AliciTipi":           "2",
			"IdAliciTipi":         "1",
			"IdFirma":             companyId,
			"Musterino":           "",
			"IrsaliyeAlicisi":     "false",
			antiForgeryField:      token,
		}).
		Post("/Recipient/Create")
	if err = connErr(err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create recipient")
		return 0, err
	}

	var created struct {
		Error   string `json:"error"`
		IdAlici int64  `json:"IdAlici"`
	}
	err = json.Unmarshal(res.Body(), &created)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create response is not json")
		return 0, fmt.Errorf("%w: recipient create: %v", ErrInvalidResponse, err)
	}
	if created.Error != "" {
		span.SetStatus(codes.Error, "portal rejected recipient")
		return 0, fmt.Errorf("failed to create recipient %s: %s", recipientName, created.Error)
	}

	return created.IdAlici, nil
}
