// Package portal implements the PortalDriver port on top of a real Chrome
// instance driven over the DevTools protocol.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/target/invoice-uploader/config"
	"github.com/target/invoice-uploader/internal/core"
	"github.com/target/invoice-uploader/internal/domain/model"
	apperrors "github.com/target/invoice-uploader/internal/errors"
)

// Options configures the Chrome-backed driver.
type Options struct {
	Config    config.PortalConfig
	Selectors Selectors
	Logger    *slog.Logger
}

// Driver owns one Chrome instance. Login and RestoreSession mutate the
// shared cookie jar; SubmitInvoice opens an independent tab per call, so
// concurrent submissions share the logged-in state without sharing a page.
type Driver struct {
	cfg       config.PortalConfig
	selectors Selectors
	logger    *slog.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

var _ core.PortalDriver = (*Driver)(nil)

// New launches Chrome and returns a driver bound to it.
func New(ctx context.Context, opts Options) (*Driver, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sel := opts.Selectors
	if sel == (Selectors{}) {
		sel = DefaultSelectors()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Config.Headless),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Launch the browser eagerly so a missing Chrome binary fails at
	// startup instead of on the first row.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	logger.InfoContext(ctx, "browser launched", "headless", opts.Config.Headless)

	return &Driver{
		cfg:           opts.Config,
		selectors:     sel,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close shuts the browser down.
func (d *Driver) Close(_ context.Context) error {
	d.browserCancel()
	d.allocCancel()
	return nil
}

// storedCookie is the on-disk shape of one session cookie.
type storedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}

type storedState struct {
	Cookies []storedCookie `json:"cookies"`
}

// Login drives the portal login form and exports the resulting cookies as
// persistable session state.
func (d *Driver) Login(ctx context.Context, creds core.Credentials) (core.SessionState, error) {
	tab, cancel := d.newTab(ctx, d.cfg.LoginTimeout)
	defer cancel()

	err := chromedp.Run(tab,
		chromedp.Navigate(d.cfg.BaseURL+"/login"),
		chromedp.WaitVisible(d.selectors.Username, chromedp.ByQuery),
		chromedp.SendKeys(d.selectors.Username, creds.Username, chromedp.ByQuery),
		chromedp.SendKeys(d.selectors.Password, creds.Password, chromedp.ByQuery),
		chromedp.Click(d.selectors.SignInButton, chromedp.ByQuery),
		chromedp.WaitVisible(d.selectors.Dashboard, chromedp.ByQuery),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAuth, "login form flow")
	}

	var cookies []*network.Cookie
	err = chromedp.Run(tab, chromedp.ActionFunc(func(ctx context.Context) error {
		var cerr error
		cookies, cerr = storage.GetCookies().Do(ctx)
		return cerr
	}))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAuth, "export session cookies")
	}

	state := storedState{Cookies: make([]storedCookie, 0, len(cookies))}
	for _, c := range cookies {
		state.Cookies = append(state.Cookies, storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	blob, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal session state: %w", err)
	}
	return core.SessionState(blob), nil
}

// RestoreSession installs persisted cookies and verifies the portal still
// accepts them by loading the dashboard. A bounce back to the login form
// reads as "state rejected", not as an error.
func (d *Driver) RestoreSession(ctx context.Context, stateBlob core.SessionState) (bool, error) {
	var state storedState
	if err := json.Unmarshal(stateBlob, &state); err != nil {
		return false, nil // corrupt blob, fall back to fresh login
	}
	if len(state.Cookies) == 0 {
		return false, nil
	}

	params := make([]*network.CookieParam, 0, len(state.Cookies))
	for _, c := range state.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &exp
		}
		params = append(params, p)
	}

	tab, cancel := d.newTab(ctx, d.cfg.LoginTimeout)
	defer cancel()

	var location string
	err := chromedp.Run(tab,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return storage.SetCookies(params).Do(ctx)
		}),
		chromedp.Navigate(d.cfg.BaseURL+"/dashboard"),
		chromedp.Location(&location),
	)
	if err != nil {
		return false, fmt.Errorf("verify restored session: %w", err)
	}
	if d.atLogin(location) {
		return false, nil
	}
	return true, nil
}

// SubmitInvoice uploads one row in a fresh tab and returns the
// portal-assigned ID.
func (d *Driver) SubmitInvoice(ctx context.Context, row *model.InvoiceRow) (string, error) {
	tab, cancel := d.newTab(ctx, d.cfg.SubmitTimeout)
	defer cancel()

	var location string
	err := chromedp.Run(tab,
		chromedp.Navigate(d.cfg.BaseURL+"/new-service"),
		chromedp.Location(&location),
	)
	if err != nil {
		return "", d.classify(tab, err, "open new-service page")
	}
	if d.atLogin(location) {
		return "", apperrors.SessionExpired("redirected to login")
	}

	if existing, dup, derr := d.findExisting(tab, row.ServiceID); derr == nil && dup {
		return "", apperrors.Duplicate(existing)
	}

	invoicePath, err := filepath.Abs(row.InvoicePath)
	if err != nil {
		return "", fmt.Errorf("resolve invoice path: %w", err)
	}

	actions := []chromedp.Action{
		chromedp.WaitVisible(d.selectors.ServiceID, chromedp.ByQuery),
		chromedp.SendKeys(d.selectors.ServiceID, row.ServiceID, chromedp.ByQuery),
		chromedp.SendKeys(d.selectors.Price, row.Price.StringFixed(2), chromedp.ByQuery),
		chromedp.SetUploadFiles(d.selectors.InvoiceFile, []string{invoicePath}, chromedp.ByQuery),
	}
	if row.Description != "" {
		actions = append(actions, chromedp.SendKeys(d.selectors.Description, row.Description, chromedp.ByQuery))
	}
	if row.InvoiceDate != "" {
		actions = append(actions, chromedp.SendKeys(d.selectors.InvoiceDate, row.InvoiceDate, chromedp.ByQuery))
	}
	actions = append(actions,
		chromedp.Click(d.selectors.SubmitButton, chromedp.ByQuery),
		chromedp.WaitVisible(d.selectors.SuccessMarker, chromedp.ByQuery),
	)

	if err := chromedp.Run(tab, actions...); err != nil {
		return "", d.classify(tab, err, "submit invoice form")
	}

	var portalID string
	if err := chromedp.Run(tab, chromedp.Text(d.selectors.PortalID, &portalID, chromedp.ByQuery)); err != nil {
		return "", d.classify(tab, err, "read portal id")
	}
	portalID = strings.TrimSpace(portalID)
	if portalID == "" {
		return "", apperrors.Permanent("portal reported success without an id")
	}
	return portalID, nil
}

// newTab opens an independent tab that also honors the pipeline context:
// cancelling ctx tears the tab down mid-action.
func (d *Driver) newTab(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	tab, tabCancel := chromedp.NewContext(d.browserCtx)
	tab, timeoutCancel := context.WithTimeout(tab, timeout)

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			tabCancel()
		case <-stop:
		}
	}()

	return tab, func() {
		close(stop)
		timeoutCancel()
		tabCancel()
	}
}

// findExisting checks the service table on the new-service page for the
// given service ID and returns the portal ID already assigned to it.
func (d *Driver) findExisting(tab context.Context, serviceID string) (string, bool, error) {
	script := fmt.Sprintf(`(() => {
		const table = document.querySelector(%q);
		if (!table) return "";
		for (const tr of table.querySelectorAll("tr")) {
			if (tr.textContent.includes(%q)) {
				const cell = tr.querySelector("[data-portal-id]");
				return cell ? cell.textContent.trim() : "unknown";
			}
		}
		return "";
	})()`, d.selectors.ServiceTable, serviceID)

	var existing string
	if err := chromedp.Run(tab, chromedp.Evaluate(script, &existing)); err != nil {
		return "", false, err
	}
	return existing, existing != "", nil
}

// classify maps a chromedp failure onto the upload failure taxonomy. A
// visible rejection banner is a portal-side refusal and permanent; a
// bounce to the login page is session expiry; everything else (timeouts,
// crashed tabs, transport errors) is worth retrying.
func (d *Driver) classify(tab context.Context, err error, op string) error {
	if banner, ok := d.rejectionBanner(tab); ok {
		return apperrors.Permanentf("portal rejected invoice: %s", banner)
	}
	if loc, lerr := d.currentLocation(tab); lerr == nil && d.atLogin(loc) {
		return apperrors.SessionExpired("redirected to login")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrapf(err, apperrors.ErrCodeTransientPortal, "%s timed out", op)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeTransientPortal, op)
}

func (d *Driver) rejectionBanner(tab context.Context) (string, bool) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? el.textContent.trim() : "";
	})()`, d.selectors.RejectionBanner)

	var banner string
	if err := chromedp.Run(tab, chromedp.Evaluate(script, &banner)); err != nil {
		return "", false
	}
	return banner, banner != ""
}

func (d *Driver) currentLocation(tab context.Context) (string, error) {
	var location string
	err := chromedp.Run(tab, chromedp.Location(&location))
	return location, err
}

func (d *Driver) atLogin(location string) bool {
	return strings.Contains(location, "/login")
}
