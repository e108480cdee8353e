package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hydrobill.org/internal/billing"
	"hydrobill.org/internal/store"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	st := store.Open(t.TempDir(), zap.NewNop())
	gen := billing.NewGenerator(st, zap.NewNop(), 2.0)
	gen.StepDelay = 0

	api := New(st, gen, zap.NewNop(), "test", 1000, 1000)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) post(path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(c.t, err)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	return resp
}

func (c *apiClient) get(path string, params url.Values, token string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	require.NoError(c.t, err)
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	require.NoError(c.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	return resp
}

func (c *apiClient) login(username, password string) string {
	c.t.Helper()
	resp := c.post("/api/login", loginRequest{Username: username, Password: password}, "")
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	var payload loginResponse
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NotEmpty(c.t, payload.Token)
	return payload.Token
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	c := newTestAPI(t)
	resp := c.post("/api/login", loginRequest{Username: "john", Password: "wrong"}, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginLogoutLifecycle(t *testing.T) {
	c := newTestAPI(t)
	token := c.login("john", "john123")

	resp := c.get("/api/user", nil, token)
	user := decodeBody[store.User](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "john", user.Username)
	require.Empty(t, user.Password)

	resp = c.post("/api/logout", nil, token)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = c.get("/api/user", nil, token)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	c := newTestAPI(t)
	resp := c.get("/api/bills", nil, "")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = c.get("/api/bills", nil, "not-a-session")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnknownPathsOutsideAPIAreNotFound(t *testing.T) {
	c := newTestAPI(t)

	// Paths the auth middleware does not guard get the mux's 404, not 401.
	for _, path := range []string{"/favicon.ico", "/static/app.js", "/"} {
		resp := c.get(path, nil, "")
		resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	// Unknown /api/ paths still require a session first.
	resp := c.get("/api/unknown", nil, "")
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterAndDuplicateUsername(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/api/register", registerRequest{Username: "alice", Password: "pw1", Email: "alice@x.com"}, "")
	created := decodeBody[store.User](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, store.RoleUser, created.Role)
	require.NotEmpty(t, created.UserID)
	require.Empty(t, created.Password)

	resp = c.post("/api/register", registerRequest{Username: "alice", Password: "pw2"}, "")
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	c.login("alice", "pw1")
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	c := newTestAPI(t)
	userToken := c.login("john", "john123")
	adminToken := c.login("admin", "admin123")

	resp := c.get("/api/admin/analytics", nil, userToken)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = c.get("/api/admin/analytics", nil, adminToken)
	analytics := decodeBody[store.Analytics](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, analytics.TotalUsers)
	require.Equal(t, 2, analytics.OnlineUsers)

	resp = c.get("/api/admin/users", nil, adminToken)
	users := decodeBody[[]store.User](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, users, 2)
	for _, u := range users {
		require.Empty(t, u.Password)
	}
}

func TestConnectionAndBillFlow(t *testing.T) {
	c := newTestAPI(t)
	userToken := c.login("john", "john123")
	adminToken := c.login("admin", "admin123")

	resp := c.get("/api/connections", nil, userToken)
	conns := decodeBody[[]store.WaterConnection](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, conns, 1)
	require.Equal(t, "C001", conns[0].ConnectionID)

	resp = c.post("/api/connections/reading", readingRequest{ConnectionID: "C001", Reading: 150}, userToken)
	updated := decodeBody[store.WaterConnection](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 100.0, updated.PreviousReading)
	require.Equal(t, 150.0, updated.CurrentReading)

	resp = c.post("/api/admin/generate-bill", generateBillRequest{ConnectionID: "C001"}, adminToken)
	gen := decodeBody[generateBillResponse](t, resp)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotEmpty(t, gen.BillID)

	require.Eventually(t, func() bool {
		resp := c.get("/api/bill-progress", url.Values{"billId": {gen.BillID}}, userToken)
		progress := decodeBody[store.BillProgress](t, resp)
		return resp.StatusCode == http.StatusOK && progress.Status == store.ProgressCompleted
	}, 3*time.Second, 20*time.Millisecond)

	resp = c.get("/api/bills", nil, userToken)
	bills := decodeBody[[]store.Bill](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, bills, 1)
	require.Equal(t, 50.0, bills[0].UnitsConsumed)
	require.Equal(t, 100.0, bills[0].Amount)

	resp = c.post("/api/bills/pay", payBillRequest{BillID: gen.BillID}, userToken)
	paid := decodeBody[store.Bill](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, store.BillPaid, paid.Status)
	require.NotNil(t, paid.PaymentDate)

	resp = c.post("/api/bills/pay", payBillRequest{BillID: gen.BillID}, userToken)
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAddConnection(t *testing.T) {
	c := newTestAPI(t)
	userToken := c.login("john", "john123")
	adminToken := c.login("admin", "admin123")

	resp := c.post("/api/connections", addConnectionRequest{ConnectionType: "commercial", MeterNumber: "MTR002"}, userToken)
	created := decodeBody[store.WaterConnection](t, resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, created.ConnectionID)
	require.Equal(t, store.ConnectionActive, created.Status)
	require.Equal(t, 0.0, created.CurrentReading)

	resp = c.post("/api/connections", addConnectionRequest{ConnectionType: "commercial"}, userToken)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The admin listing sees every connection, owners only their own.
	resp = c.get("/api/connections", nil, adminToken)
	all := decodeBody[[]store.WaterConnection](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, all, 2)
}

func TestGenerateBillUnknownConnection(t *testing.T) {
	c := newTestAPI(t)
	adminToken := c.login("admin", "admin123")

	resp := c.post("/api/admin/generate-bill", generateBillRequest{ConnectionID: "nope"}, adminToken)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBillProgressUnknownBill(t *testing.T) {
	c := newTestAPI(t)
	token := c.login("john", "john123")

	resp := c.get("/api/bill-progress", url.Values{"billId": {"nope"}}, token)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConnectionStatusDefaultsOnline(t *testing.T) {
	c := newTestAPI(t)
	token := c.login("john", "john123")

	resp := c.get("/api/connections/status", url.Values{"id": {"C001"}}, token)
	status := decodeBody[store.ConnectionStatus](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, status.Online)
	require.Empty(t, status.ErrorMessage)
}

func TestHealthz(t *testing.T) {
	c := newTestAPI(t)
	resp := c.get("/healthz", nil, "")
	body := decodeBody[map[string]any](t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
}
