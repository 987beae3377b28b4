package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/evanramirez88/toast-automation/pkg/config"
	"github.com/evanramirez88/toast-automation/pkg/events"
	"github.com/evanramirez88/toast-automation/pkg/goldencopy"
	"github.com/evanramirez88/toast-automation/pkg/healing"
	"github.com/evanramirez88/toast-automation/pkg/logging"
	"github.com/evanramirez88/toast-automation/pkg/menu"
	"github.com/evanramirez88/toast-automation/pkg/recovery"
	"github.com/evanramirez88/toast-automation/pkg/resolver"
	"github.com/evanramirez88/toast-automation/pkg/security/datadir"
	"github.com/evanramirez88/toast-automation/pkg/semantic"
	"github.com/evanramirez88/toast-automation/pkg/session"
)

// ErrSessionExpired marks a navigation that ended on a login page; it is
// routed through recovery rather than failing the caller outright.
var ErrSessionExpired = errors.New("session expired: landed on login page")

// Controller is the root of the automation service. It owns the single
// shared browser process, composes the session manager, resolver, recovery
// and golden-copy collaborators, and exposes the domain operations.
type Controller struct {
	cfg    *config.Config
	logger *logging.Logger
	diag   session.Diagnostics

	sessions   *session.Manager
	resolver   *resolver.Resolver
	healing    *healing.Store
	shots      *datadir.Guard
	comparator *goldencopy.Comparator
	registry   *Registry
	recovery   resolver.RecoveryOrchestrator
	emitter    *events.Emitter
	executor   *Executor

	pw      *playwright.Playwright
	browser playwright.Browser

	// credentials seen at login, kept so recovery can re-authenticate
	// mid-job without the original job payload.
	credMu sync.Mutex
	creds  map[string]Credentials

	// navigate and capture are indirected so tests can run the controller
	// without a browser process.
	navigate func(page playwright.Page, url string, timeout time.Duration) (string, error)
	capture  func(page playwright.Page, path string) error
}

// New composes a controller from configuration. The browser process is not
// started until Initialize.
func New(cfg *config.Config, logger *logging.Logger, diag session.Diagnostics) (*Controller, error) {
	store, err := session.NewStore(cfg.Sessions.StorageDir, cfg.Sessions.EncryptionKey, cfg.Sessions.MaxAge, logger)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(store, session.Options{
		Browser:     cfg.Browser,
		Diagnostics: cfg.Diagnostics,
		LockTimeout: cfg.Sessions.LockTimeout,
	}, logger, diag)

	healStore, err := healing.NewStore(cfg.Healing.DBPath)
	if err != nil {
		return nil, err
	}
	healer := healing.NewHealer(healStore, logger)

	var finder resolver.SemanticFinder
	if cfg.Semantic.APIKey != "" {
		opts := []semantic.FinderOption{semantic.WithModel(cfg.Semantic.Model)}
		if cfg.Semantic.BaseURL != "" {
			opts = append(opts, semantic.WithBaseURL(cfg.Semantic.BaseURL))
		}
		f, err := semantic.NewFinder(cfg.Semantic.APIKey, logger, opts...)
		if err != nil {
			return nil, err
		}
		finder = f
	} else if logger != nil {
		logger.Warnf("no semantic API key configured; natural-language element lookup is disabled")
	}

	comparator, err := goldencopy.NewComparator(cfg.GoldenCopy.BaselineDir, logger)
	if err != nil {
		return nil, err
	}
	registry, err := LoadRegistry(cfg.GoldenCopy.RegistryPath)
	if err != nil {
		return nil, err
	}
	shots, err := datadir.NewGuard(cfg.Diagnostics.ScreenshotDir)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:        cfg,
		logger:     logger,
		diag:       diag,
		sessions:   sessions,
		healing:    healStore,
		shots:      shots,
		comparator: comparator,
		registry:   registry,
		creds:      make(map[string]Credentials),
		navigate:   gotoAndSettle,
		capture:    capturePage,
	}
	c.emitter = events.NewEmitter(func(event string, recovered any) {
		c.warnf("handler for %s panicked: %v", event, recovered)
	})
	c.recovery = recovery.New(c.relogin, logger)
	c.resolver = resolver.New(healer, finder, c.recovery, logger)
	c.executor = NewExecutor(c, sessions, c.recovery, c.emitter, logger, diag)
	return c, nil
}

// Initialize prepares on-disk state and starts the shared browser process.
func (c *Controller) Initialize(ctx context.Context) error {
	if err := c.sessions.Initialize(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.cfg.Diagnostics.ScreenshotDir, 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	c.pw = pw

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(c.cfg.Browser.Headless),
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	c.browser = browser

	c.infof("controller initialized (headless=%v)", c.cfg.Browser.Headless)
	return nil
}

// Shutdown destroys every active session, then releases the browser
// process and supporting stores. Safe to call on a never-initialized
// controller.
func (c *Controller) Shutdown() error {
	c.sessions.DestroyAll()

	if c.browser != nil {
		if err := c.browser.Close(); err != nil {
			c.warnf("browser close: %v", err)
		}
		c.browser = nil
	}
	if c.pw != nil {
		if err := c.pw.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		c.pw = nil
	}
	return c.healing.Close()
}

// On subscribes a handler to a controller event (events.JobStart,
// events.JobComplete). Handler panics are logged and never propagate.
func (c *Controller) On(event string, h events.Handler) {
	c.emitter.On(event, h)
}

// ExecuteJob runs a job and returns its structured result.
func (c *Controller) ExecuteJob(ctx context.Context, job *Job) *JobResult {
	return c.executor.ExecuteJob(ctx, job)
}

// ActiveSessions lists the live sessions for observability.
func (c *Controller) ActiveSessions() []session.Info {
	return c.sessions.ActiveSessions()
}

// GenerateQuote prices an automation engagement.
func (c *Controller) GenerateQuote(params menu.QuoteParams) menu.QuoteBreakdown {
	return menu.PriceQuote(params)
}

// NavigateTo drives the client's session to a logical destination.
func (c *Controller) NavigateTo(ctx context.Context, clientID, destination string) error {
	sess, err := c.Session(ctx, clientID)
	if err != nil {
		return err
	}
	return c.navigateSession(ctx, sess, destination, true)
}

// Interact resolves the target on the client's current page and performs
// the action on it.
func (c *Controller) Interact(ctx context.Context, clientID string, target resolver.Target, action, value string) error {
	sess, err := c.Session(ctx, clientID)
	if err != nil {
		return err
	}
	return c.resolver.Perform(ctx, sess.Page, target, action, value)
}

// CreateMenuItem enters a new item into the client's back office.
func (c *Controller) CreateMenuItem(ctx context.Context, clientID string, item menu.Item) (map[string]any, error) {
	sess, err := c.Session(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return c.createItem(ctx, sess, item)
}

// UpdateMenuItem applies field updates to an existing item.
func (c *Controller) UpdateMenuItem(ctx context.Context, clientID, itemID string, updates map[string]string) error {
	sess, err := c.Session(ctx, clientID)
	if err != nil {
		return err
	}
	return c.updateItem(ctx, sess, itemID, updates)
}

// RunHealthCheck walks the critical-page registry for the client and folds
// the signals into one report.
func (c *Controller) RunHealthCheck(ctx context.Context, clientID string) (*HealthReport, error) {
	sess, err := c.Session(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return c.healthCheck(ctx, sess), nil
}

// Session implements Runner.
func (c *Controller) Session(ctx context.Context, clientID string) (*session.Session, error) {
	if c.browser == nil {
		return nil, fmt.Errorf("controller is not initialized")
	}
	return c.sessions.GetSession(ctx, clientID, c.browser)
}

// Login implements Runner: it performs the credential login sequence and
// caches the credentials for mid-job re-authentication.
func (c *Controller) Login(ctx context.Context, sess *session.Session, job *Job) error {
	if err := c.loginWithCredentials(ctx, sess, job.Credentials); err != nil {
		return err
	}
	c.credMu.Lock()
	c.creds[job.ClientID] = job.Credentials
	c.credMu.Unlock()
	return nil
}

// Run implements Runner: dispatch one operation by type.
func (c *Controller) Run(ctx context.Context, sess *session.Session, op Operation) (any, error) {
	switch op.Type {
	case OpNavigate:
		var p struct {
			Destination string `json:"destination"`
		}
		if err := op.DecodeParams(&p); err != nil {
			return nil, err
		}
		return nil, c.navigateSession(ctx, sess, p.Destination, false)

	case OpCreateItem:
		var item menu.Item
		if err := op.DecodeParams(&item); err != nil {
			return nil, err
		}
		return c.createItem(ctx, sess, item)

	case OpUpdateItem:
		var p struct {
			ID      string            `json:"id"`
			Updates map[string]string `json:"updates"`
		}
		if err := op.DecodeParams(&p); err != nil {
			return nil, err
		}
		return nil, c.updateItem(ctx, sess, p.ID, p.Updates)

	case OpHealthCheck:
		return c.healthCheck(ctx, sess), nil

	case OpScreenshot:
		var p struct {
			Label string `json:"label"`
		}
		if err := op.DecodeParams(&p); err != nil {
			return nil, err
		}
		if p.Label == "" {
			p.Label = "manual"
		}
		return c.Screenshot(sess, p.Label)

	case OpCustom:
		var p struct {
			Target resolver.Target `json:"target"`
			Action string          `json:"action"`
			Value  string          `json:"value"`
		}
		if err := op.DecodeParams(&p); err != nil {
			return nil, err
		}
		return nil, c.resolver.Perform(ctx, sess.Page, p.Target, p.Action, p.Value)

	default:
		return nil, fmt.Errorf("unsupported operation type %q", op.Type)
	}
}

// Screenshot implements Runner: capture the session's page to the
// configured evidence directory.
func (c *Controller) Screenshot(sess *session.Session, label string) (string, error) {
	name := fmt.Sprintf("%s-%s.png", time.Now().UTC().Format("20060102-150405.000"), sanitizeLabel(label))
	path, err := c.shots.Join(name)
	if err != nil {
		return "", err
	}
	if err := c.capture(sess.Page, path); err != nil {
		return "", fmt.Errorf("screenshot %q: %w", label, err)
	}
	return path, nil
}

// navigateSession drives the page to a logical destination. Landing on a
// login page is classified as an expired session; when allowRecovery is
// set the failure is offered to recovery and the navigation retried once.
func (c *Controller) navigateSession(ctx context.Context, sess *session.Session, destination string, allowRecovery bool) error {
	path, ok := c.cfg.Toast.Destinations[destination]
	if !ok {
		known := make([]string, 0, len(c.cfg.Toast.Destinations))
		for name := range c.cfg.Toast.Destinations {
			known = append(known, name)
		}
		sort.Strings(known)
		return fmt.Errorf("unknown destination %q (have %s)", destination, strings.Join(known, ", "))
	}
	url := c.cfg.Toast.BaseURL + path

	landed, err := c.navigate(sess.Page, url, c.cfg.Browser.NavigationTimeout)
	if err != nil {
		return &NavigationError{Destination: destination, Err: err}
	}
	if !c.isLoginURL(landed) {
		return nil
	}

	navErr := &NavigationError{Destination: destination, URL: landed, Err: ErrSessionExpired}
	if !allowRecovery || c.recovery == nil {
		return navErr
	}

	res, rerr := c.recovery.Recover(ctx, navErr, resolver.RecoveryContext{
		Page:     sess.Page,
		ClientID: sess.ClientID,
	})
	if rerr != nil || res == nil || !res.Recovered {
		return navErr
	}

	landed, err = c.navigate(sess.Page, url, c.cfg.Browser.NavigationTimeout)
	if err != nil {
		return &NavigationError{Destination: destination, Err: err}
	}
	if c.isLoginURL(landed) {
		return navErr
	}
	return nil
}

func (c *Controller) isLoginURL(url string) bool {
	for _, marker := range c.cfg.Toast.LoginURLMarkers {
		if strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

var (
	loginEmailTarget = resolver.Target{
		Selector:    "input[name=username]",
		Description: "the email or username field on the login page",
		Fallbacks:   []string{"input[type=email]", "#username"},
	}
	loginPasswordTarget = resolver.Target{
		Selector:    "input[name=password]",
		Description: "the password field on the login page",
		Fallbacks:   []string{"input[type=password]", "#password"},
	}
	loginSubmitTarget = resolver.Target{
		Selector:    "button[type=submit]",
		Description: "the log in button",
		Fallbacks:   []string{"[data-testid=login-submit]", "input[type=submit]"},
	}
)

// loginWithCredentials runs the login sequence: open the login page, enter
// credentials, submit, and confirm the browser left the login flow.
func (c *Controller) loginWithCredentials(ctx context.Context, sess *session.Session, creds Credentials) error {
	landed, err := c.navigate(sess.Page, c.cfg.Toast.BaseURL+"/login", c.cfg.Browser.NavigationTimeout)
	if err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if !c.isLoginURL(landed) {
		// Valid cookies skipped the login form entirely.
		c.infof("client %s already authenticated, login form skipped", sess.ClientID)
		return nil
	}

	if err := c.resolver.Perform(ctx, sess.Page, loginEmailTarget, resolver.ActionFill, creds.Email); err != nil {
		return fmt.Errorf("enter email: %w", err)
	}
	if err := c.resolver.Perform(ctx, sess.Page, loginPasswordTarget, resolver.ActionFill, creds.Password); err != nil {
		return fmt.Errorf("enter password: %w", err)
	}
	if err := c.resolver.Perform(ctx, sess.Page, loginSubmitTarget, resolver.ActionClick, ""); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}

	if err := sess.Page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	}); err != nil {
		return fmt.Errorf("wait for post-login load: %w", err)
	}
	if c.isLoginURL(sess.Page.URL()) {
		return fmt.Errorf("still on login page after submitting credentials")
	}

	c.infof("client %s authenticated", sess.ClientID)
	return nil
}

// relogin re-authenticates an expired session mid-job using the
// credentials cached at the job's original login.
func (c *Controller) relogin(ctx context.Context, rctx resolver.RecoveryContext) error {
	c.credMu.Lock()
	creds, ok := c.creds[rctx.ClientID]
	c.credMu.Unlock()
	if !ok {
		return fmt.Errorf("no cached credentials for client %s", rctx.ClientID)
	}

	sess, err := c.Session(ctx, rctx.ClientID)
	if err != nil {
		return err
	}
	if err := c.loginWithCredentials(ctx, sess, creds); err != nil {
		return err
	}
	if err := c.sessions.MarkAuthenticated(rctx.ClientID, sess.ToastGUID); err != nil {
		c.report("mark-authenticated", err)
	}
	return nil
}

var (
	addItemTarget = resolver.Target{
		Selector:    "[data-testid=add-item-btn]",
		Description: "the button that starts creating a menu item",
		Fallbacks:   []string{"button[class*='add-item']", "button[aria-label='Add item']"},
	}
	itemNameTarget = resolver.Target{
		Selector:    "input[name=itemName]",
		Description: "the menu item name field",
		Fallbacks:   []string{"[data-testid=item-name]", "#item-name"},
	}
	itemPriceTarget = resolver.Target{
		Selector:    "input[name=price]",
		Description: "the menu item price field",
		Fallbacks:   []string{"[data-testid=item-price]", "#item-price"},
	}
	itemDescriptionTarget = resolver.Target{
		Selector:    "textarea[name=description]",
		Description: "the menu item description field",
		Fallbacks:   []string{"[data-testid=item-description]"},
	}
	itemCategoryTarget = resolver.Target{
		Selector:    "select[name=category]",
		Description: "the menu item category selector",
		Fallbacks:   []string{"[data-testid=item-category]"},
	}
	saveItemTarget = resolver.Target{
		Selector:    "[data-testid=save-item-btn]",
		Description: "the button that saves the menu item",
		Fallbacks:   []string{"button[type=submit]"},
	}
	itemSearchTarget = resolver.Target{
		Selector:    "input[name=search]",
		Description: "the menu item search field",
		Fallbacks:   []string{"[data-testid=item-search]", "input[type=search]"},
	}
)

// createItem validates the item, then composes the interact sequence that
// enters it. Validation warnings are logged, never blocking.
func (c *Controller) createItem(ctx context.Context, sess *session.Session, item menu.Item) (map[string]any, error) {
	validation := menu.ValidateItem(item)
	for _, w := range validation.Warnings {
		c.warnf("item %q: %s", item.Name, w)
	}
	if !validation.IsValid {
		return nil, fmt.Errorf("item %q is invalid: %s", item.Name, strings.Join(validation.Errors, "; "))
	}

	if err := c.navigateSession(ctx, sess, "items", false); err != nil {
		return nil, err
	}
	if err := c.resolver.Perform(ctx, sess.Page, addItemTarget, resolver.ActionClick, ""); err != nil {
		return nil, err
	}
	if err := c.resolver.Perform(ctx, sess.Page, itemNameTarget, resolver.ActionFill, item.Name); err != nil {
		return nil, err
	}
	if err := c.resolver.Perform(ctx, sess.Page, itemPriceTarget, resolver.ActionFill, fmt.Sprintf("%.2f", item.Price)); err != nil {
		return nil, err
	}
	if item.Description != "" {
		if err := c.resolver.Perform(ctx, sess.Page, itemDescriptionTarget, resolver.ActionFill, item.Description); err != nil {
			return nil, err
		}
	}
	if item.Category != "" {
		if err := c.resolver.Perform(ctx, sess.Page, itemCategoryTarget, resolver.ActionSelect, item.Category); err != nil {
			return nil, err
		}
	}
	if err := c.resolver.Perform(ctx, sess.Page, saveItemTarget, resolver.ActionClick, ""); err != nil {
		return nil, err
	}

	return map[string]any{
		"name":     item.Name,
		"warnings": validation.Warnings,
	}, nil
}

// itemFieldTargets maps updatable field names to their form targets.
var itemFieldTargets = map[string]resolver.Target{
	"name":        itemNameTarget,
	"price":       itemPriceTarget,
	"description": itemDescriptionTarget,
	"category":    itemCategoryTarget,
}

// updateItem opens an existing item and applies field updates in a
// deterministic order.
func (c *Controller) updateItem(ctx context.Context, sess *session.Session, itemID string, updates map[string]string) error {
	if len(updates) == 0 {
		return fmt.Errorf("no updates given for item %s", itemID)
	}
	fields := make([]string, 0, len(updates))
	for field := range updates {
		if _, ok := itemFieldTargets[field]; !ok {
			return fmt.Errorf("unknown item field %q", field)
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	if err := c.navigateSession(ctx, sess, "items", false); err != nil {
		return err
	}
	if err := c.resolver.Perform(ctx, sess.Page, itemSearchTarget, resolver.ActionType, itemID); err != nil {
		return err
	}
	rowTarget := resolver.Target{
		Selector:    fmt.Sprintf("[data-testid='item-row-%s']", itemID),
		Description: fmt.Sprintf("the row for menu item %s in the item list", itemID),
		Fallbacks:   []string{fmt.Sprintf("tr:has-text(%q)", itemID)},
	}
	if err := c.resolver.Perform(ctx, sess.Page, rowTarget, resolver.ActionClick, ""); err != nil {
		return err
	}

	for _, field := range fields {
		target := itemFieldTargets[field]
		action := resolver.ActionFill
		if field == "category" {
			action = resolver.ActionSelect
		}
		if err := c.resolver.Perform(ctx, sess.Page, target, action, updates[field]); err != nil {
			return fmt.Errorf("update %s: %w", field, err)
		}
	}
	return c.resolver.Perform(ctx, sess.Page, saveItemTarget, resolver.ActionClick, "")
}

// healthCheck walks the registry pages, probing the critical targets and
// comparing against golden-copy baselines where one exists.
func (c *Controller) healthCheck(ctx context.Context, sess *session.Session) *HealthReport {
	report := &HealthReport{
		MenuAccessible: true,
		CheckedAt:      time.Now().UTC(),
	}

	start := time.Now()
	err := c.navigateSession(ctx, sess, "home", true)
	report.ResponseTimeMs = time.Since(start).Milliseconds()
	report.LoginSuccess = err == nil
	if err != nil {
		report.ProbeFailures = append(report.ProbeFailures, fmt.Sprintf("home: %v", err))
		report.Status = foldHealth(report)
		return report
	}

	for _, page := range c.registry.Pages {
		if page.Destination != "home" {
			if err := c.navigateSession(ctx, sess, page.Destination, false); err != nil {
				report.ProbeFailures = append(report.ProbeFailures, fmt.Sprintf("%s: %v", page.Name, err))
				if page.Name == "menus" {
					report.MenuAccessible = false
				}
				continue
			}
		}

		for _, target := range page.Targets {
			if _, err := c.resolver.Resolve(ctx, sess.Page, target); err != nil {
				report.ProbeFailures = append(report.ProbeFailures,
					fmt.Sprintf("%s: %s", page.Name, describeProbe(target)))
			}
		}

		if page.Baseline != "" && c.comparator.HasBaseline(page.Baseline) {
			cmp, err := c.comparator.CompareToBaseline(sess.Page, page.Baseline)
			if err != nil {
				c.report("golden-copy", err)
			} else if !cmp.Match {
				report.UIChangesDetected = true
			}
		}
	}

	if health, err := c.healing.Health(ctx); err != nil {
		c.report("selector-health", err)
	} else {
		report.SelectorHealth = health
	}

	report.Status = foldHealth(report)
	return report
}

// CaptureBaselines visits each registry page for the client and records a
// fresh golden-copy baseline.
func (c *Controller) CaptureBaselines(ctx context.Context, clientID string) error {
	sess, err := c.Session(ctx, clientID)
	if err != nil {
		return err
	}
	for _, page := range c.registry.Pages {
		if page.Baseline == "" {
			continue
		}
		if err := c.navigateSession(ctx, sess, page.Destination, true); err != nil {
			return err
		}
		if err := c.comparator.CaptureBaseline(sess.Page, page.Baseline); err != nil {
			return err
		}
	}
	return nil
}

func describeProbe(t resolver.Target) string {
	if t.Selector != "" {
		return fmt.Sprintf("target %q not resolvable", t.Selector)
	}
	return fmt.Sprintf("target %q not resolvable", t.Description)
}

func sanitizeLabel(label string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, label)
}

func gotoAndSettle(page playwright.Page, url string, timeout time.Duration) (string, error) {
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		return "", err
	}
	return page.URL(), nil
}

func capturePage(page playwright.Page, path string) error {
	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (c *Controller) report(stage string, err error) {
	c.warnf("%s: %v", stage, err)
	if c.diag != nil {
		c.diag(stage, err)
	}
}

func (c *Controller) infof(format string, v ...interface{}) {
	if c.logger != nil {
		c.logger.Infof(format, v...)
	}
}

func (c *Controller) warnf(format string, v ...interface{}) {
	if c.logger != nil {
		c.logger.Warnf(format, v...)
	}
}
