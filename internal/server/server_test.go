package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/QDOCK/internal/backend"
	"github.com/copyleftdev/QDOCK/internal/config"
	"github.com/copyleftdev/QDOCK/internal/docking"
	"github.com/copyleftdev/QDOCK/internal/logging"
	"github.com/copyleftdev/QDOCK/internal/qaoa"
)

// stubBackend runs jobs without any remote service: expectations come from
// a classical quadratic objective and sampling returns canned counts.
type stubBackend struct {
	name      string
	maxQubits int
	simulator bool
	delay     time.Duration
	counts    backend.Counts
}

func (b *stubBackend) Name() string      { return b.name }
func (b *stubBackend) MaxQubits() int    { return b.maxQubits }
func (b *stubBackend) IsSimulator() bool { return b.simulator }

func (b *stubBackend) Observe(ctx context.Context, _ *qaoa.Ansatz, params []float64) (float64, error) {
	if b.delay > 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(b.delay):
		}
	}
	sum := 0.0
	for _, v := range params {
		sum += v * v
	}
	return sum, nil
}

func (b *stubBackend) Sample(ctx context.Context, _ *qaoa.Ansatz, _ []float64, shots int) (backend.Counts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.counts, nil
}

// referenceGraph is the six-contact docking instance whose strong clique
// {0, 1, 2} has energy -2.0058 under penalty 6.
func referenceGraph() docking.Graph {
	return docking.Graph{
		Nodes:    []int{0, 1, 2, 3, 4, 5},
		Weights:  []float64{0.6686, 0.6686, 0.6686, 0.1453, 0.1453, 0.1453},
		NonEdges: [][2]int{{0, 3}, {1, 4}, {2, 5}},
	}
}

func referenceCounts() backend.Counts {
	return backend.Counts{"111000": 900, "000111": 100}
}

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Environment: "test",
	}

	// Set up HTTP config
	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = 120 * time.Second
	cfg.HTTP.ShutdownTimeout = 30 * time.Second

	// Set up logging
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "stdout"

	// Set up optimization defaults; iterations stay unbounded so runs end
	// on function convergence.
	cfg.Optimization.Tolerance = 1e-6
	cfg.Optimization.Seed = 42
	cfg.Optimization.InitialSpread = 1.0
	cfg.Optimization.DefaultLayers = 1
	cfg.Optimization.Shots = 1000

	return cfg
}

// testLogger creates a test logger
func testLogger(t *testing.T) *logging.Logger {
	logger, err := logging.NewLogger(&logging.Config{
		Level:  "debug",
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func testServer(t *testing.T, backends ...backend.Backend) (*Server, chi.Router) {
	t.Helper()

	registry := backend.NewRegistry()
	for _, b := range backends {
		require.NoError(t, registry.Register(b))
	}

	srv := NewServer(testConfig(t), testLogger(t), registry)
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

// statusPayload mirrors the job status response shape.
type statusPayload struct {
	JobID   string         `json:"job_id"`
	Status  string         `json:"status"`
	Backend string         `json:"backend"`
	Error   string         `json:"error"`
	Result  *DockingResult `json:"result"`
}

// waitForJob polls the status endpoint until the job reaches the wanted
// state or the deadline passes.
func waitForJob(t *testing.T, router http.Handler, id, want string) statusPayload {
	t.Helper()

	deadline := time.Now().Add(15 * time.Second)
	var last statusPayload
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/status/"+id, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &last))

		if last.Status == want {
			return last
		}
		if last.Status == "failed" && want != "failed" {
			t.Fatalf("docking job failed: %s", last.Error)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s stuck in %q, want %q", id, last.Status, want)
	return last
}

func postDock(t *testing.T, router http.Handler, req DockingRequest) (int, map[string]interface{}) {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/api/v1/dock", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httpReq)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	return rr.Code, payload
}

func TestNewServer(t *testing.T) {
	srv, _ := testServer(t)
	assert.NotNil(t, srv, "Server should be created")
}

func TestRegisterRoutes(t *testing.T) {
	_, r := testServer(t, &stubBackend{name: "stub", maxQubits: 30, counts: referenceCounts()})

	// Test if routes are registered
	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"POST", "/api/v1/dock", true},
		{"GET", "/api/v1/status/123", true},
		{"DELETE", "/api/v1/dock/123", true},
		{"GET", "/api/v1/backends", true},
		{"POST", "/rpc", true},
		// Health and metrics live on the top-level router, not here.
		{"GET", "/healthz", false},
		{"GET", "/nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			// A 404 means the route doesn't exist
			if tt.shouldExist && rr.Code == http.StatusNotFound {
				t.Errorf("Route %s %s should exist but returned 404", tt.method, tt.path)
			}
		})
	}
}

func TestDockingLifecycle(t *testing.T) {
	stub := &stubBackend{name: "stub", maxQubits: 30, simulator: true, counts: referenceCounts()}
	_, router := testServer(t, stub)

	code, ack := postDock(t, router, DockingRequest{
		Graph:   referenceGraph(),
		Penalty: 6.0,
	})
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "pending", ack["status"])
	assert.Equal(t, "stub", ack["backend"])

	id, ok := ack["job_id"].(string)
	require.True(t, ok, "response should carry a job id")

	status := waitForJob(t, router, id, "completed")
	require.NotNil(t, status.Result)
	result := status.Result

	assert.Equal(t, "stub", status.Backend)
	assert.Greater(t, result.Evaluations, 0)
	assert.Len(t, result.BestParameters, (2*6+10)*1)

	// The histogram is 900 shots of the strong clique and 100 of the weak
	// one; the sample expectation is their count-weighted energy mean.
	assert.InDelta(t, -1.84881, result.Expectation, 1e-9)

	require.Len(t, result.Candidates, 2)
	best := result.Candidates[0]
	assert.Equal(t, "111000", best.Bitstring)
	assert.Equal(t, 900, best.Count)
	assert.Equal(t, []int{0, 1, 2}, best.Nodes)
	assert.InDelta(t, 2.0058, best.TotalWeight, 1e-9)
	assert.InDelta(t, -2.0058, best.Energy, 1e-9)
	assert.True(t, best.Feasible())

	second := result.Candidates[1]
	assert.Equal(t, "000111", second.Bitstring)
	assert.InDelta(t, -0.4359, second.Energy, 1e-9)
}

func TestDockValidation(t *testing.T) {
	stub := &stubBackend{name: "stub", maxQubits: 4, counts: referenceCounts()}
	_, router := testServer(t, stub)

	valid := referenceGraph()

	badWeights := valid
	badWeights.Weights = badWeights.Weights[:3]

	tests := []struct {
		name string
		req  DockingRequest
	}{
		{name: "zero penalty", req: DockingRequest{Graph: valid, Penalty: 0}},
		{name: "negative penalty", req: DockingRequest{Graph: valid, Penalty: -2}},
		{name: "weights misaligned", req: DockingRequest{Graph: badWeights, Penalty: 6}},
		{name: "empty graph", req: DockingRequest{Penalty: 6}},
		{name: "unknown backend", req: DockingRequest{Graph: valid, Penalty: 6, Backend: "nope"}},
		{name: "named backend too small", req: DockingRequest{Graph: valid, Penalty: 6, Backend: "stub"}},
		{name: "no backend fits", req: DockingRequest{Graph: valid, Penalty: 6}},
		{name: "negative shots", req: DockingRequest{Graph: valid, Penalty: 6, Shots: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, payload := postDock(t, router, tt.req)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, payload["error"])
		})
	}
}

func TestCancelDockingJob(t *testing.T) {
	// Slow evaluations leave a window to cancel mid-run.
	stub := &stubBackend{name: "stub", maxQubits: 30, delay: 20 * time.Millisecond, counts: referenceCounts()}
	_, router := testServer(t, stub)

	code, ack := postDock(t, router, DockingRequest{Graph: referenceGraph(), Penalty: 6.0})
	require.Equal(t, http.StatusAccepted, code)
	id := ack["job_id"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/dock/"+id, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	status := waitForJob(t, router, id, "cancelled")
	assert.Nil(t, status.Result)

	// Cancelling a finished job is rejected.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/dock/"+id, nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCancelUnknownJob(t *testing.T) {
	_, router := testServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/dock/no-such-job", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusUnknownJob(t *testing.T) {
	_, router := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/no-such-job", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBackendsEndpoint(t *testing.T) {
	_, router := testServer(t,
		&stubBackend{name: "wide", maxQubits: 30, simulator: true, counts: referenceCounts()},
		&stubBackend{name: "narrow", maxQubits: 8, counts: referenceCounts()},
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/backends", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Backends []struct {
			Name      string `json:"name"`
			MaxQubits int    `json:"max_qubits"`
			Simulator bool   `json:"simulator"`
		} `json:"backends"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))

	require.Len(t, payload.Backends, 2)
	assert.Equal(t, "narrow", payload.Backends[0].Name)
	assert.Equal(t, 8, payload.Backends[0].MaxQubits)
	assert.False(t, payload.Backends[0].Simulator)
	assert.Equal(t, "wide", payload.Backends[1].Name)
	assert.True(t, payload.Backends[1].Simulator)
}

func rpcCall(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader([]byte(body)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

type rpcResponse struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      interface{}            `json:"id"`
	Result  map[string]interface{} `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeRPC(t *testing.T, rr *httptest.ResponseRecorder) rpcResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, "JSON-RPC errors still use HTTP 200")
	var resp rpcResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestJSONRPCErrors(t *testing.T) {
	_, router := testServer(t, &stubBackend{name: "stub", maxQubits: 30, counts: referenceCounts()})

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "parse error", body: `{not json`, code: -32700},
		{name: "wrong version", body: `{"jsonrpc":"1.0","id":1,"method":"docking.start"}`, code: -32600},
		{name: "unknown method", body: `{"jsonrpc":"2.0","id":1,"method":"docking.explode"}`, code: -32601},
		{name: "start without params", body: `{"jsonrpc":"2.0","id":1,"method":"docking.start"}`, code: -32000},
		{name: "status of unknown job", body: `{"jsonrpc":"2.0","id":1,"method":"docking.status","params":[{"job_id":"missing"}]}`, code: -32000},
		{name: "cancel without id", body: `{"jsonrpc":"2.0","id":1,"method":"docking.cancel","params":[{}]}`, code: -32000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeRPC(t, rpcCall(t, router, tt.body))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestJSONRPCDockingFlow(t *testing.T) {
	stub := &stubBackend{name: "stub", maxQubits: 30, counts: referenceCounts()}
	_, router := testServer(t, stub)

	start, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      7,
		"method":  "docking.start",
		"params": []interface{}{DockingRequest{
			Graph:   referenceGraph(),
			Penalty: 6.0,
		}},
	})
	require.NoError(t, err)

	resp := decodeRPC(t, rpcCall(t, router, string(start)))
	require.Nil(t, resp.Error)
	assert.Equal(t, float64(7), resp.ID)

	id, ok := resp.Result["job_id"].(string)
	require.True(t, ok)

	waitForJob(t, router, id, "completed")

	statusResp := decodeRPC(t, rpcCall(t, router,
		`{"jsonrpc":"2.0","id":8,"method":"docking.status","params":[{"job_id":"`+id+`"}]}`))
	require.Nil(t, statusResp.Error)
	assert.Equal(t, "completed", statusResp.Result["status"])
	assert.NotNil(t, statusResp.Result["result"])
}

func TestRespondWithError(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name       string
		code       int
		message    string
		id         interface{}
		expectedID interface{}
		expectCode int
	}{
		{
			name:       "valid error response",
			code:       -32000,
			message:    "invalid input",
			id:         "123",
			expectedID: "123",
			expectCode: http.StatusOK, // Because respondWithError writes 200 with error in body
		},
		{
			name:       "nil id",
			code:       -32700,
			message:    "Parse error",
			id:         nil,
			expectedID: nil,
			expectCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.respondWithError(rr, tt.code, tt.message, tt.id)

			assert.Equal(t, tt.expectCode, rr.Code, "status code should match")

			// Parse response body to verify error structure
			var response map[string]interface{}
			err := json.NewDecoder(rr.Body).Decode(&response)
			assert.NoError(t, err, "should decode response body")

			// Check error object
			errObj, ok := response["error"].(map[string]interface{})
			assert.True(t, ok, "response should contain error object")
			assert.Equal(t, float64(tt.code), errObj["code"], "error code should match")
			assert.Equal(t, tt.message, errObj["message"], "error message should match")

			// Check ID
			assert.Equal(t, tt.expectedID, response["id"], "response ID should match")
		})
	}
}

func TestClose(t *testing.T) {
	srv, _ := testServer(t)
	err := srv.Close()
	assert.NoError(t, err, "Close should not return an error")
}
