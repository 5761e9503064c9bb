package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/copyleftdev/QDOCK/internal/backend"
	"github.com/copyleftdev/QDOCK/internal/config"
	"github.com/copyleftdev/QDOCK/internal/docking"
	"github.com/copyleftdev/QDOCK/internal/errors"
	"github.com/copyleftdev/QDOCK/internal/hamiltonian"
	"github.com/copyleftdev/QDOCK/internal/logging"
	"github.com/copyleftdev/QDOCK/internal/qaoa"
)

// topCandidates is how many measured poses a completed job reports.
const topCandidates = 5

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// DockingRequest is one job submission: the interaction graph, the clique
// penalty, and optional overrides of the configured optimization defaults.
// A zero value defers to the server configuration; an empty backend name
// lets the registry pick by register capacity.
type DockingRequest struct {
	Graph          docking.Graph `json:"graph"`
	Penalty        float64       `json:"penalty"`
	Layers         int           `json:"layers,omitempty"`
	Backend        string        `json:"backend,omitempty"`
	Seed           int64         `json:"seed,omitempty"`
	Shots          int           `json:"shots,omitempty"`
	MaxIterations  int           `json:"max_iterations,omitempty"`
	MaxEvaluations int           `json:"max_evaluations,omitempty"`
}

// PoseCandidate is one measured pose with its sampling frequency and
// classical energy under the cost Hamiltonian.
type PoseCandidate struct {
	docking.Candidate
	Count  int     `json:"count"`
	Energy float64 `json:"energy"`
}

// DockingResult is the terminal payload of a completed docking job.
type DockingResult struct {
	BestCost       float64         `json:"best_cost"`
	BestParameters []float64       `json:"best_parameters"`
	Iterations     int             `json:"iterations"`
	Evaluations    int             `json:"evaluations"`
	Converged      bool            `json:"converged"`
	Runtime        string          `json:"runtime"`
	Expectation    float64         `json:"expectation"`
	Deviation      float64         `json:"deviation"`
	Candidates     []PoseCandidate `json:"candidates"`
}

// DockingJob tracks one docking optimization from submission to terminal
// state. Fields are guarded by the server's job lock; the background
// goroutine only writes through finishJob.
type DockingJob struct {
	ID          string
	Status      string // "pending", "running", "completed", "failed", "cancelled"
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	Backend     string
	NumQubits   int
	Error       string
	Result      *DockingResult
	CancelFunc  context.CancelFunc
}

// Server implements the HTTP and JSON-RPC surface of the docking service.
// It manages docking jobs and provides endpoints to start, monitor, and
// cancel them.
type Server struct {
	cfg      *config.Config
	logger   Logger
	backends *backend.Registry

	jobs   map[string]*DockingJob
	jobsMu sync.RWMutex // Protects the jobs map and every job in it
}

// NewServer creates a new server instance with the given config, logger,
// and backend registry.
func NewServer(cfg *config.Config, logger Logger, backends *backend.Registry) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		backends: backends,
		jobs:     make(map[string]*DockingJob),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/dock", s.handleDock)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/dock/{id}", s.handleCancel)
		r.Get("/backends", s.handleBackends)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}

	// Route to appropriate handler
	var result interface{}
	var err error

	switch request.Method {
	case "docking.start":
		result, err = s.rpcDockingStart(request.Params)
	case "docking.status":
		result, err = s.rpcDockingStatus(request.Params)
	case "docking.cancel":
		err = s.rpcDockingCancel(request.Params)
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	// Send successful response
	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// rpcDockingStart handles the docking.start JSON-RPC method.
// Expected parameters: one DockingRequest object.
// Returns: {"job_id": "...", "status": "pending", "backend": "..."}
func (s *Server) rpcDockingStart(params []json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("missing required parameters")
	}

	var req DockingRequest
	if err := json.Unmarshal(params[0], &req); err != nil {
		return nil, fmt.Errorf("invalid docking request: %v", err)
	}

	return s.startJob(req)
}

// rpcDockingStatus handles the docking.status JSON-RPC method.
// Expected parameters: {"job_id": "..."}
func (s *Server) rpcDockingStatus(params []json.RawMessage) (interface{}, error) {
	id, err := jobIDParam(params)
	if err != nil {
		return nil, err
	}
	return s.jobStatus(id)
}

// rpcDockingCancel handles the docking.cancel JSON-RPC method.
// Expected parameters: {"job_id": "..."}
func (s *Server) rpcDockingCancel(params []json.RawMessage) error {
	id, err := jobIDParam(params)
	if err != nil {
		return err
	}
	return s.cancelJob(id)
}

func jobIDParam(params []json.RawMessage) (string, error) {
	if len(params) == 0 {
		return "", fmt.Errorf("missing required parameters")
	}

	var p struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(params[0], &p); err != nil {
		return "", fmt.Errorf("invalid parameter format, expected object")
	}
	if p.JobID == "" {
		return "", fmt.Errorf("job_id is required")
	}
	return p.JobID, nil
}

// dockingRun carries everything the background goroutine needs. The job
// entry itself only holds what status reads return.
type dockingRun struct {
	graph       docking.Graph
	hamiltonian *hamiltonian.Hamiltonian
	ansatz      *qaoa.Ansatz
	backend     backend.Backend
	shots       int
	driver      qaoa.DriverConfig
}

// startJob validates a docking request, encodes it, picks a backend, and
// launches the optimization goroutine. Everything that can be rejected
// synchronously is rejected here, before the job id exists.
func (s *Server) startJob(req DockingRequest) (map[string]interface{}, error) {
	if req.Penalty <= 0 {
		return nil, fmt.Errorf("penalty must be positive, got %g", req.Penalty)
	}
	if err := req.Graph.Validate(); err != nil {
		return nil, err
	}

	layers := req.Layers
	if layers == 0 {
		layers = s.cfg.Optimization.DefaultLayers
	}
	shots := req.Shots
	if shots == 0 {
		shots = s.cfg.Optimization.Shots
	}
	if shots < 1 {
		return nil, fmt.Errorf("shot count must be positive, got %d", shots)
	}

	h, err := hamiltonian.EncodeMaxClique(req.Graph, req.Penalty)
	if err != nil {
		return nil, err
	}
	ansatz, err := qaoa.FromHamiltonian(h, layers)
	if err != nil {
		return nil, err
	}

	// Resolve the backend while the request can still fail loudly.
	var be backend.Backend
	if req.Backend != "" {
		var ok bool
		be, ok = s.backends.Get(req.Backend)
		if !ok {
			return nil, fmt.Errorf("unknown backend %q", req.Backend)
		}
		if be.MaxQubits() < ansatz.NumQubits {
			return nil, fmt.Errorf("backend %q holds %d qubits, graph needs %d",
				req.Backend, be.MaxQubits(), ansatz.NumQubits)
		}
	} else {
		be, err = s.backends.Select(ansatz.NumQubits)
		if err != nil {
			return nil, err
		}
	}

	seed := req.Seed
	if seed == 0 {
		seed = s.cfg.Optimization.Seed
	}
	maxIterations := req.MaxIterations
	if maxIterations == 0 {
		maxIterations = s.cfg.Optimization.MaxIterations
	}
	maxEvaluations := req.MaxEvaluations
	if maxEvaluations == 0 {
		maxEvaluations = s.cfg.Optimization.MaxEvaluations
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	job := &DockingJob{
		ID:          id,
		Status:      "pending",
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
		Backend:     be.Name(),
		NumQubits:   ansatz.NumQubits,
		CancelFunc:  cancel,
	}

	s.jobsMu.Lock()
	s.jobs[id] = job
	s.jobsMu.Unlock()

	jobsStarted.Inc()
	s.logger.Info("Docking job accepted", map[string]interface{}{
		"job_id":     id,
		"backend":    be.Name(),
		"num_qubits": ansatz.NumQubits,
		"layers":     layers,
		"terms":      ansatz.TermCount(),
	})

	go s.runDocking(ctx, job, dockingRun{
		graph:       req.Graph,
		hamiltonian: h,
		ansatz:      ansatz,
		backend:     be,
		shots:       shots,
		driver: qaoa.DriverConfig{
			MaxIterations:  maxIterations,
			MaxEvaluations: maxEvaluations,
			MaxRuntime:     s.cfg.Optimization.MaxRuntime,
			Tolerance:      s.cfg.Optimization.Tolerance,
			Seed:           seed,
			InitialSpread:  s.cfg.Optimization.InitialSpread,
			Logger: logging.NewZapLogger(s.logger.WithFields(map[string]interface{}{
				"job_id": id,
			})),
		},
	})

	return map[string]interface{}{
		"job_id":  id,
		"status":  "pending",
		"backend": be.Name(),
	}, nil
}

// runDocking executes a docking job in a goroutine: optimize, sample the
// optimized circuit, and decode the most frequent poses.
func (s *Server) runDocking(ctx context.Context, job *DockingJob, run dockingRun) {
	s.jobsMu.Lock()
	// A cancellation between submission and this point wins.
	if job.Status == "pending" {
		job.Status = "running"
		job.LastUpdated = time.Now()
	}
	s.jobsMu.Unlock()

	cost, err := qaoa.NewCost(run.ansatz, run.backend)
	if err != nil {
		s.finishJob(job, nil, err)
		return
	}
	driver, err := qaoa.NewDriver(cost, run.driver)
	if err != nil {
		s.finishJob(job, nil, err)
		return
	}

	optResult, err := driver.Optimize(ctx, driver.InitialParameters())
	costEvaluations.Add(float64(len(cost.History())))
	if err != nil {
		s.finishJob(job, nil, err)
		return
	}

	result := &DockingResult{
		BestCost:       optResult.BestCost,
		BestParameters: optResult.BestParameters,
		Iterations:     optResult.Iterations,
		Evaluations:    optResult.Evaluations,
		Converged:      optResult.Converged,
		Runtime:        optResult.Runtime.String(),
	}

	// Sampling turns the optimized parameters into poses; a job without
	// candidates is a failed job.
	counts, err := run.backend.Sample(ctx, run.ansatz, optResult.BestParameters, run.shots)
	if err != nil {
		s.finishJob(job, nil, err)
		return
	}
	mean, std, err := run.hamiltonian.ExpectationFromCounts(counts)
	if err != nil {
		s.finishJob(job, nil, err)
		return
	}
	result.Expectation = mean
	result.Deviation = std

	for _, outcome := range counts.Top(topCandidates) {
		cand, err := run.graph.Decode(outcome.Bitstring)
		if err != nil {
			s.finishJob(job, nil, err)
			return
		}
		energy, err := run.hamiltonian.EvalBitstring(outcome.Bitstring)
		if err != nil {
			s.finishJob(job, nil, err)
			return
		}
		result.Candidates = append(result.Candidates, PoseCandidate{
			Candidate: cand,
			Count:     outcome.Count,
			Energy:    energy,
		})
	}

	s.finishJob(job, result, nil)
}

// finishJob moves a job to its terminal state. The cancel handler may have
// marked the job cancelled while the run was winding down; that state wins
// over anything the goroutine reports.
func (s *Server) finishJob(job *DockingJob, result *DockingResult, err error) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if job.Status == "cancelled" {
		jobsFinished.WithLabelValues("cancelled").Inc()
		return
	}

	now := time.Now()
	job.EndTime = &now
	job.LastUpdated = now

	switch {
	case err != nil && errors.Is(err, context.Canceled):
		job.Status = "cancelled"
	case err != nil:
		job.Status = "failed"
		job.Error = err.Error()
		s.logger.Error("Docking job failed", map[string]interface{}{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	default:
		job.Status = "completed"
		job.Result = result
		s.logger.Info("Docking job completed", map[string]interface{}{
			"job_id":      job.ID,
			"best_cost":   result.BestCost,
			"expectation": result.Expectation,
			"converged":   result.Converged,
		})
	}

	jobsFinished.WithLabelValues(job.Status).Inc()
}

// jobStatus builds the status payload for one job.
func (s *Server) jobStatus(id string) (map[string]interface{}, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("docking job not found")
	}

	response := map[string]interface{}{
		"job_id":      job.ID,
		"status":      job.Status,
		"backend":     job.Backend,
		"num_qubits":  job.NumQubits,
		"start_time":  job.StartTime.Format(time.RFC3339),
		"last_update": job.LastUpdated.Format(time.RFC3339),
	}

	if job.EndTime != nil {
		response["end_time"] = job.EndTime.Format(time.RFC3339)
	}
	if job.Error != "" {
		response["error"] = job.Error
	}
	if job.Result != nil {
		response["result"] = job.Result
	}

	return response, nil
}

// cancelJob cancels a pending or running job.
func (s *Server) cancelJob(id string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("docking job not found")
	}

	switch job.Status {
	case "completed", "failed", "cancelled":
		// Already in a terminal state
		return fmt.Errorf("cannot cancel docking job with status: %s", job.Status)
	}

	if job.CancelFunc != nil {
		job.CancelFunc()
	}

	job.Status = "cancelled"
	now := time.Now()
	job.EndTime = &now
	job.LastUpdated = now

	s.logger.Info("Docking job cancelled", map[string]interface{}{
		"job_id": id,
	})

	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Close cancels every job still holding a cancel function.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	for _, job := range s.jobs {
		if job.CancelFunc != nil {
			job.CancelFunc()
		}
	}
	return nil
}

// handleDock handles the HTTP POST /dock endpoint for starting a new
// docking job.
func (s *Server) handleDock(w http.ResponseWriter, r *http.Request) {
	var req DockingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.startJob(req)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}

// handleStatus handles the HTTP GET /status/:id endpoint.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing job ID", http.StatusBadRequest)
		return
	}

	result, err := s.jobStatus(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// handleCancel handles the HTTP DELETE /dock/:id endpoint.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing job ID", http.StatusBadRequest)
		return
	}

	err := s.cancelJob(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "cancellation requested",
	})
}

// handleBackends handles the HTTP GET /backends endpoint, listing the
// registered execution backends.
func (s *Server) handleBackends(w http.ResponseWriter, r *http.Request) {
	type backendInfo struct {
		Name      string `json:"name"`
		MaxQubits int    `json:"max_qubits"`
		Simulator bool   `json:"simulator"`
	}

	infos := make([]backendInfo, 0)
	for _, name := range s.backends.Names() {
		b, ok := s.backends.Get(name)
		if !ok {
			continue
		}
		infos = append(infos, backendInfo{
			Name:      b.Name(),
			MaxQubits: b.MaxQubits(),
			Simulator: b.IsSimulator(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"backends": infos,
	})
}
