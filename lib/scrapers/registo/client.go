package registo

import (
	"bytes"
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"neptun/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/registo")

const DefaultBaseUrl = "https://bpsb.registo.ro"

const (
	wizardPath       = "/client-interface/appointment-subscription"
	loginPath        = "/login"
	loginCheckPath   = "/login_check"
	appointmentsPath = "/client-interface/appointments"
	deletePathPrefix = "/client-interface/appointment/delete/"
)

// Client walks the booking site's form wizard over one retained cookie
// identity. The wizard's steps are order-dependent on server-side
// session state keyed by that identity, so a Client must not be shared
// between concurrent flows. One Client handles one subscription code,
// one resource, any number of date queries and at most one booking.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	subscriptionID string
	resourceID     string
	initialized    bool
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
	// defaults to 15 seconds, the only bound on a hung request
	Timeout time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 15
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
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
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, "scrapers/registo/http")

	return &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}, nil
}

// Initialize performs wizard steps 1 through 3: prime the server-side
// session, submit the subscription code, select the implied resource.
// ok=false means the code was rejected or has expired; that is the
// system's primary validation signal for a subscription, not an error.
// On success the scheduling constraints parsed from the step-3
// response are returned.
func (c *Client) Initialize(ctx context.Context, subscriptionCode string) (Constraints, bool, error) {
	ctx, span := tracer.Start(ctx, "client:Initialize")
	defer span.End()

	_, err := c.Http.R().
		SetContext(ctx).
		Get(wizardPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch wizard step 1")
		return Constraints{}, false, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"clientInput": subscriptionCode,
		}).
		Post(wizardPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit subscription code")
		return Constraints{}, false, err
	}

	selection, ok := ExtractResourceSelection(res.String())
	if !ok {
		span.AddEvent("subscription code rejected")
		return Constraints{}, false, nil
	}
	c.subscriptionID = selection.SubscriptionID
	c.resourceID = selection.ResourceID

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"resource":     c.resourceID,
			"subscription": c.subscriptionID,
		}).
		Post(wizardPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit resource selection")
		return Constraints{}, false, err
	}

	c.initialized = true
	return ExtractConstraints(res.String()), true, nil
}

// SlotsForDate performs wizard step 4 for one date. A date with no
// slots and a date the server rejects both come back as an empty
// slice; the upstream protocol does not distinguish them.
func (c *Client) SlotsForDate(ctx context.Context, date time.Time) ([]Slot, error) {
	if !c.initialized {
		panic("registo: SlotsForDate called before a successful Initialize")
	}

	ctx, span := tracer.Start(ctx, "client:SlotsForDate")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"date": date.Format("2006-01-02"),
		}).
		Post(wizardPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to query slots")
		return nil, err
	}

	return ExtractSlots(res.String()), nil
}

// Book submits the register step for one interval token. Success is
// inferred from the transport status alone; the server sends no
// explicit confirmation payload, so a true here is a weak signal and
// high-stakes callers should re-verify via Appointments.
func (c *Client) Book(ctx context.Context, intervalID string) (bool, error) {
	if !c.initialized {
		panic("registo: Book called before a successful Initialize")
	}

	ctx, span := tracer.Start(ctx, "client:Book")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"interval": intervalID,
		}).
		Post(wizardPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit booking")
		return false, err
	}

	return res.StatusCode() == http.StatusOK, nil
}

// Login authenticates the client identity outside the booking wizard:
// it pulls the anti-forgery token off the login page and posts it with
// the credentials. Success means the post-login redirect landed
// anywhere other than the login page.
func (c *Client) Login(ctx context.Context, email, password string) (bool, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(loginPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return false, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page html")
		return false, err
	}

	csrfToken := doc.Find("input[name=_csrf_token]").AttrOr("value", "")
	if csrfToken == "" {
		span.SetStatus(codes.Error, "failed to find csrf token")
		return false, nil
	}

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"_username":   email,
			"_password":   password,
			"_csrf_token": csrfToken,
		}).
		Post(loginCheckPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to make login request")
		return false, err
	}

	return !c.landedOnLogin(res), nil
}

// Appointments lists the authenticated account's bookings. ok=false
// means the session is not authenticated (the server redirected back
// to the login page).
func (c *Client) Appointments(ctx context.Context) ([]Appointment, bool, error) {
	ctx, span := tracer.Start(ctx, "client:Appointments")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(appointmentsPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch appointments")
		return nil, false, err
	}
	if c.landedOnLogin(res) {
		span.AddEvent("redirected to login")
		return nil, false, nil
	}

	return ExtractAppointmentRows(res.String()), true, nil
}

// CancelAppointment deletes a booking by its stable delete token, so a
// failed cancel is safe to retry.
func (c *Client) CancelAppointment(ctx context.Context, deleteID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "client:CancelAppointment")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Post(deletePathPrefix + deleteID)
	if err != nil {
		span.SetStatus(codes.Error, "failed to cancel appointment")
		return false, err
	}

	return res.StatusCode() == http.StatusOK, nil
}

func (c *Client) landedOnLogin(res *resty.Response) bool {
	if res.RawResponse == nil || res.RawResponse.Request == nil {
		return false
	}
	return strings.HasSuffix(res.RawResponse.Request.URL.Path, loginPath)
}
