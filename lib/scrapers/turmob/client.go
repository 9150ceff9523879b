// Package turmob drives the TÜRMOB e-Fatura portal through the same
// internal endpoints its web frontend uses: login, recipient lookup and
// creation, and invoice submission. The portal has no public API, so
// everything here rides on scraped anti-forgery tokens and a persisted
// cookie session.
package turmob

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"turmob-efatura/lib/htmlutil"
	"turmob-efatura/lib/scrapers/turmob/session"
	"turmob-efatura/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

const DefaultBaseUrl = "https://turmobefatura.luca.com.tr"

const antiForgeryField = "__RequestVerificationToken"

var (
	ErrConnection             = fmt.Errorf("connection error")
	ErrTokenNotFound          = fmt.Errorf("could not find request verification token")
	ErrInvalidResponse        = fmt.Errorf("invalid JSON response from server")
	ErrAmbiguousRecipient     = fmt.Errorf("multiple recipients found with this name")
	ErrCountyNotFound         = fmt.Errorf("county not found")
	ErrAuthenticationRequired = fmt.Errorf("must be logged in")
)

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	store     session.Store
	sessionId string
	loggedIn  bool
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
	// where persisted sessions live, defaults to a turmob_sessions
	// directory under the system temp dir
	SessionDir string
	// restores a previously saved session; an unknown or expired id
	// silently yields a fresh unauthenticated client
	SessionId string
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.SessionDir == "" {
		opts.SessionDir = filepath.Join(os.TempDir(), "turmob_sessions")
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	store, err := session.NewStore(opts.SessionDir)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	// redirect-vs-200 is itself the login-success signal, never follow
	client.SetRedirectPolicy(resty.NoRedirectPolicy())
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "turmob.lib.scrapers.turmob.http")
	if restyInstrumentOutput != nil {
		// restyutil only adds filesystem exchange dumps, spans come
		// from InstrumentResty above
		instrumentExchangeDumps(client)
	}

	c := &Client{
		BaseUrl: baseUrl,
		Http:    client,
		store:   store,
	}

	if opts.SessionId != "" {
		state, err := store.Load(opts.SessionId)
		if err == nil {
			err = c.restoreCookies(state)
			if err != nil {
				return nil, err
			}
			c.sessionId = opts.SessionId
			c.loggedIn = true
		} else if err != session.ErrNotFound {
			return nil, err
		}
	}

	return c, nil
}

// connErr translates transport failures into ErrConnection. A disabled
// redirect is not a failure: the 302 response is exactly what the login
// and submission flows branch on.
func connErr(err error) error {
	if err == nil || strings.Contains(err.Error(), "auto redirect is disabled") {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}

func (c *Client) getRequestVerificationToken(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "client:getRequestVerificationToken")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/Account/Login")
	if err = connErr(err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login page")
		return "", err
	}

	token := htmlutil.InputValue(res.Body(), antiForgeryField)
	if token == "" {
		span.SetStatus(codes.Error, "failed to find verification token")
		return "", fmt.Errorf("%w on login page", ErrTokenNotFound)
	}
	return token, nil
}

// Login authenticates with a VKN/TCKN tax identifier and password.
// Rejected credentials are an expected outcome and come back as
// (false, nil), not as an error.
func (c *Client) Login(ctx context.Context, vknTckn, password string) (bool, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	token, err := c.getRequestVerificationToken(ctx)
	if err != nil {
		return false, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"VknTckn":       vknTckn,
			"Password":      password,
			"RememberMe":    "on",
			antiForgeryField: token,
		}).
		Post("/Account/Login")
	if err = connErr(err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return false, err
	}

	// a 302 to the dashboard is the normal success path, but the portal
	// sometimes renders a page that carries the base url instead
	if res.StatusCode() == http.StatusFound || strings.Contains(res.String(), c.BaseUrl.String()) {
		c.loggedIn = true
		return true, nil
	}

	span.SetStatus(codes.Error, fmt.Sprintf("login rejected, status %d", res.StatusCode()))
	return false, nil
}

func (c *Client) IsLoggedIn() bool {
	return c.loggedIn
}

// ValidateSession checks whether the restored session is still accepted
// by the portal: a GET of the base url answers 200 only for an
// authenticated session.
func (c *Client) ValidateSession(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "client:ValidateSession")
	defer span.End()

	if !c.loggedIn {
		return false, nil
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/")
	if err = connErr(err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch home page")
		return false, err
	}

	return res.StatusCode() == http.StatusOK, nil
}

// SaveSession persists the current cookie state and returns the opaque
// session identifier a later NewClient call can restore it with.
func (c *Client) SaveSession() (string, error) {
	if !c.loggedIn {
		return "", fmt.Errorf("cannot save session: %w", ErrAuthenticationRequired)
	}

	state, err := c.cookieState()
	if err != nil {
		return "", err
	}
	id, err := c.store.Save(state)
	if err != nil {
		return "", err
	}
	c.sessionId = id
	return id, nil
}

// Close releases the client's cookie state unless SaveSession promoted
// it to a persisted session.
func (c *Client) Close() error {
	if c.sessionId != "" {
		return nil
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	c.Http.SetCookieJar(jar)
	c.loggedIn = false
	return nil
}

func (c *Client) cookieState() ([]byte, error) {
	cookies := c.Http.GetClient().Jar.Cookies(c.BaseUrl)
	return json.Marshal(cookies)
}

func (c *Client) restoreCookies(state []byte) error {
	var cookies []*http.Cookie
	err := json.Unmarshal(state, &cookies)
	if err != nil {
		return fmt.Errorf("failed to restore session cookies: %w", err)
	}
	c.Http.GetClient().Jar.SetCookies(c.BaseUrl, cookies)
	return nil
}
