package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeStream feeds scripted account-data events to the watcher. Close
// marks the stream closed without closing the channel so tests can keep a
// handle on undelivered events.
type fakeStream struct {
	events chan AccountDataEvent

	mu     sync.Mutex
	closed bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan AccountDataEvent, 16)}
}

func (s *fakeStream) Events() <-chan AccountDataEvent { return s.events }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeStream) emit(event AccountDataEvent) {
	s.events <- event
}

type fakeAccountData struct {
	mu           sync.Mutex
	records      map[string]map[string]any
	updates      []AccountDataEvent
	subscribed   []string
	stream       *fakeStream
	getErr       error
	updateErr    error
	subscribeErr error
}

func newFakeAccountData() *fakeAccountData {
	return &fakeAccountData{
		records: map[string]map[string]any{},
		stream:  newFakeStream(),
	}
}

func (c *fakeAccountData) Get(_ context.Context, dataType string) (*AccountDataEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	content, ok := c.records[dataType]
	if !ok {
		return nil, nil
	}
	return &AccountDataEvent{Type: dataType, Content: content}, nil
}

func (c *fakeAccountData) Update(_ context.Context, dataType string, content map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateErr != nil {
		return c.updateErr
	}
	c.records[dataType] = content
	c.updates = append(c.updates, AccountDataEvent{Type: dataType, Content: content})
	return nil
}

func (c *fakeAccountData) Subscribe(_ context.Context, dataTypes []string) (AccountDataStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribeErr != nil {
		return nil, c.subscribeErr
	}
	c.subscribed = append([]string{}, dataTypes...)
	return c.stream, nil
}

func (c *fakeAccountData) set(dataType string, content map[string]any) {
	c.mu.Lock()
	c.records[dataType] = content
	c.mu.Unlock()
}

func (c *fakeAccountData) record(dataType string) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records[dataType]
}

func (c *fakeAccountData) updateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updates)
}

type fakeIssuer struct {
	mu    sync.Mutex
	token OpenIDToken
	err   error
	calls int
}

func (i *fakeIssuer) GetOpenIDToken(context.Context) (OpenIDToken, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
	if i.err != nil {
		return OpenIDToken{}, i.err
	}
	return i.token, nil
}

type fakeGuard struct {
	supported bool
	err       error
}

func (g fakeGuard) CanExchangeOpenID(context.Context) (bool, error) {
	return g.supported, g.err
}

// fakeIdentityAPI scripts each identity-server endpoint through optional
// funcs; a nil func succeeds with zero values.
type fakeIdentityAPI struct {
	mu            sync.Mutex
	registerCalls int
	accountCalls  int
	pingCalls     []string
	logoutCalls   []string

	registerFn     func(call int) (string, error)
	accountFn      func(token string, call int) error
	lookupFn       func(token string, pids []ThreePid) ([]FoundThreePid, error)
	requestBindFn  func(token string, binding PendingBinding) (string, error)
	finalizeBindFn func(token string, binding PendingBinding) error
	unbindFn       func(token string, pid ThreePid) error
	pingErr        error
	logoutErr      error
}

func (a *fakeIdentityAPI) Register(_ context.Context, _ string, _ OpenIDToken) (string, error) {
	a.mu.Lock()
	a.registerCalls++
	call := a.registerCalls
	fn := a.registerFn
	a.mu.Unlock()
	if fn == nil {
		return "service-token", nil
	}
	return fn(call)
}

func (a *fakeIdentityAPI) Account(_ context.Context, _, token string) error {
	a.mu.Lock()
	a.accountCalls++
	call := a.accountCalls
	fn := a.accountFn
	a.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(token, call)
}

func (a *fakeIdentityAPI) Lookup(_ context.Context, _, token string, pids []ThreePid) ([]FoundThreePid, error) {
	if a.lookupFn == nil {
		return nil, nil
	}
	return a.lookupFn(token, pids)
}

func (a *fakeIdentityAPI) RequestBind(_ context.Context, _, token string, binding PendingBinding) (string, error) {
	if a.requestBindFn == nil {
		return "sid-default", nil
	}
	return a.requestBindFn(token, binding)
}

func (a *fakeIdentityAPI) FinalizeBind(_ context.Context, _, token string, binding PendingBinding) error {
	if a.finalizeBindFn == nil {
		return nil
	}
	return a.finalizeBindFn(token, binding)
}

func (a *fakeIdentityAPI) Unbind(_ context.Context, _, token string, pid ThreePid) error {
	if a.unbindFn == nil {
		return nil
	}
	return a.unbindFn(token, pid)
}

func (a *fakeIdentityAPI) Logout(_ context.Context, baseURL, _ string) error {
	a.mu.Lock()
	a.logoutCalls = append(a.logoutCalls, baseURL)
	a.mu.Unlock()
	return a.logoutErr
}

func (a *fakeIdentityAPI) Ping(_ context.Context, baseURL string) error {
	a.mu.Lock()
	a.pingCalls = append(a.pingCalls, baseURL)
	a.mu.Unlock()
	return a.pingErr
}

func (a *fakeIdentityAPI) registered() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registerCalls
}

func (a *fakeIdentityAPI) accounts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accountCalls
}

type fakeScalarAPI struct {
	mu            sync.Mutex
	registerCalls int
	validateCalls int

	registerFn func(call int) (string, error)
	validateFn func(token string, call int) error
}

func (a *fakeScalarAPI) Register(_ context.Context, _ string, _ OpenIDToken, _ string) (string, error) {
	a.mu.Lock()
	a.registerCalls++
	call := a.registerCalls
	fn := a.registerFn
	a.mu.Unlock()
	if fn == nil {
		return "scalar-token", nil
	}
	return fn(call)
}

func (a *fakeScalarAPI) ValidateToken(_ context.Context, _, token, _ string) error {
	a.mu.Lock()
	a.validateCalls++
	call := a.validateCalls
	fn := a.validateFn
	a.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(token, call)
}

type fakeProbe struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *fakeProbe) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

func (p *fakeProbe) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *fakeProbe) pings() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeMonitor struct {
	mu         sync.Mutex
	onChange   func()
	registers  int
	unregister int
	err        error
}

func (m *fakeMonitor) Register(onChange func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.registers++
	m.onChange = onChange
	return nil
}

func (m *fakeMonitor) Unregister() {
	m.mu.Lock()
	m.unregister++
	m.onChange = nil
	m.mu.Unlock()
}

func (m *fakeMonitor) bound() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registers > m.unregister
}

// recordingListener captures change notifications on buffered channels so
// tests can wait for asynchronous watcher delivery.
type recordingListener struct {
	configs      chan *IntegrationManagerConfig
	allowed      chan AllowedWidgetsContent
	provisioning chan bool
	identity     chan *string
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		configs:      make(chan *IntegrationManagerConfig, 16),
		allowed:      make(chan AllowedWidgetsContent, 16),
		provisioning: make(chan bool, 16),
		identity:     make(chan *string, 16),
	}
}

func (l *recordingListener) OnConfigurationChanged(config *IntegrationManagerConfig) {
	l.configs <- config
}

func (l *recordingListener) OnAllowedWidgetsChanged(content AllowedWidgetsContent) {
	l.allowed <- content
}

func (l *recordingListener) OnProvisioningChanged(enabled bool) {
	l.provisioning <- enabled
}

func (l *recordingListener) OnIdentityServerChanged(url *string) {
	l.identity <- url
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case value := <-ch:
		return value
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func expectQuiet[T any](t *testing.T, ch <-chan T, what string) {
	t.Helper()
	select {
	case value := <-ch:
		t.Fatalf("unexpected %s: %v", what, value)
	case <-time.After(50 * time.Millisecond):
	}
}

type testManagerDeps struct {
	accountData *fakeAccountData
	identityAPI *fakeIdentityAPI
	scalarAPI   *fakeScalarAPI
	issuer      *fakeIssuer
	store       *MemoryTokenStore
}

func newTestManager(t *testing.T, extra ...Option) (*Manager, *testManagerDeps) {
	t.Helper()
	deps := &testManagerDeps{
		accountData: newFakeAccountData(),
		identityAPI: &fakeIdentityAPI{},
		scalarAPI:   &fakeScalarAPI{},
		issuer: &fakeIssuer{token: OpenIDToken{
			AccessToken:      "openid-assertion",
			TokenType:        "Bearer",
			MatrixServerName: "example.org",
			ExpiresIn:        3600,
		}},
		store: NewMemoryTokenStore(),
	}
	opts := []Option{
		WithAccountDataClient(deps.accountData),
		WithIdentityAPI(deps.identityAPI),
		WithScalarAPI(deps.scalarAPI),
		WithOpenIDIssuer(deps.issuer),
		WithTokenStore(deps.store),
	}
	opts = append(opts, extra...)
	m, err := NewManager(Config{}, opts...)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m, deps
}

func seedIdentityServer(t *testing.T, store *MemoryTokenStore, rawURL string) {
	t.Helper()
	url := rawURL
	if err := store.SetIdentityConfig(context.Background(), IdentityServerConfig{URL: &url}); err != nil {
		t.Fatalf("seed identity config: %v", err)
	}
}

func integrationManagerWidgets(uiURL, apiURL string) map[string]any {
	data := map[string]any{}
	if apiURL != "" {
		data["api_url"] = apiURL
	}
	return map[string]any{
		"$manager": map[string]any{
			"content": map[string]any{
				"type": WidgetTypeIntegrationManager,
				"url":  uiURL,
				"data": data,
			},
		},
	}
}
