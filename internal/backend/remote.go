package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/QDOCK/internal/circuit"
	"github.com/copyleftdev/QDOCK/internal/errors"
	"github.com/copyleftdev/QDOCK/internal/qaoa"
)

// RemoteConfig describes one remote simulator or hardware service.
type RemoteConfig struct {
	// Name is the registry key the backend is addressed by.
	Name string
	// BaseURL is the service root, e.g. "http://sim.internal:8080".
	BaseURL string
	// Token, when set, is sent as a bearer token on every request.
	Token string
	// MaxQubits caps the register width submitted to the service.
	// Defaults to 30, the practical limit of a state-vector simulator in
	// ordinary host memory.
	MaxQubits int
	// Simulator marks the service as a simulator rather than hardware.
	Simulator bool
	// Timeout bounds each HTTP round trip. Defaults to 60s.
	Timeout time.Duration
	// Logger receives request-level debug output. Defaults to a no-op
	// logger.
	Logger *zap.Logger
}

// Remote submits evaluation work to a quantum execution service over JSON
// HTTP. Expectation requests carry the ansatz layout and the flattened
// Hamiltonian; sampling hands over a full gate program. Complex
// coefficients travel as {real, imag} pairs.
type Remote struct {
	name      string
	baseURL   string
	token     string
	maxQubits int
	simulator bool
	client    *http.Client
	logger    *zap.Logger
}

// NewRemote builds a remote backend, normalizing config defaults.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if cfg.Name == "" {
		return nil, errors.New("remote backend needs a name").WithComponent("backend")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("remote backend needs a base URL").WithComponent("backend")
	}
	if cfg.MaxQubits <= 0 {
		cfg.MaxQubits = 30
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Remote{
		name:      cfg.Name,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		maxQubits: cfg.MaxQubits,
		simulator: cfg.Simulator,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger.Named("remote_backend"),
	}, nil
}

// Name returns the registry key of the backend.
func (r *Remote) Name() string { return r.name }

// MaxQubits returns the widest register the backend accepts.
func (r *Remote) MaxQubits() int { return r.maxQubits }

// IsSimulator reports whether the service simulates rather than runs on
// hardware.
func (r *Remote) IsSimulator() bool { return r.simulator }

// complexPair is the {real, imag} wire form of a complex coefficient.
type complexPair struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imag"`
}

func toWire(coefficients []complex128) []complexPair {
	pairs := make([]complexPair, len(coefficients))
	for i, c := range coefficients {
		pairs[i] = complexPair{Real: real(c), Imag: imag(c)}
	}
	return pairs
}

// observeRequest carries everything the service needs to rebuild the
// DC-QAOA ansatz and take the Hamiltonian expectation of its output state.
type observeRequest struct {
	NumQubits    int           `json:"num_qubits"`
	NumLayers    int           `json:"num_layers"`
	Parameters   []float64     `json:"parameters"`
	Coefficients []complexPair `json:"coefficients"`
	Words        []string      `json:"words"`
}

type observeResponse struct {
	Expectation float64 `json:"expectation"`
}

type runRequest struct {
	Program *circuit.Program `json:"program"`
	Shots   int              `json:"shots"`
}

type runResponse struct {
	Counts Counts `json:"counts"`
}

// Observe submits an expectation request for the ansatz at the given
// parameters and returns the real expectation value.
func (r *Remote) Observe(ctx context.Context, ansatz *qaoa.Ansatz, params []float64) (float64, error) {
	const op = "Remote.Observe"

	if want := ansatz.ParameterCount(); len(params) != want {
		return 0, errors.Wrapf(qaoa.ErrDimensionMismatch, "got %d parameters, ansatz consumes %d", len(params), want).
			WithOperation(op).WithComponent("backend")
	}
	if ansatz.NumQubits > r.maxQubits {
		return 0, errors.Errorf("register of %d qubits exceeds backend %q capacity of %d", ansatz.NumQubits, r.name, r.maxQubits).
			WithOperation(op).WithComponent("backend")
	}

	words := make([]string, len(ansatz.Words))
	for i, w := range ansatz.Words {
		words[i] = string(w)
	}

	r.logger.Debug("Requesting expectation",
		zap.Int("num_qubits", ansatz.NumQubits),
		zap.Int("num_layers", ansatz.NumLayers),
		zap.Int("terms", ansatz.TermCount()),
	)

	var resp observeResponse
	err := r.post(ctx, op, "/v1/observe", observeRequest{
		NumQubits:    ansatz.NumQubits,
		NumLayers:    ansatz.NumLayers,
		Parameters:   params,
		Coefficients: toWire(ansatz.Coefficients),
		Words:        words,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Expectation, nil
}

// Sample appends a full-register measurement to the ansatz program at the
// given parameters and executes it for shots repetitions.
func (r *Remote) Sample(ctx context.Context, ansatz *qaoa.Ansatz, params []float64, shots int) (Counts, error) {
	const op = "Remote.Sample"

	program, err := ansatz.Program(params)
	if err != nil {
		return nil, errors.Wrap(err, "building ansatz program").
			WithOperation(op).WithComponent("backend")
	}
	program.MeasureAll()
	return r.Run(ctx, program, shots)
}

// Run executes an arbitrary gate program for shots repetitions and returns
// the measured counts. The program must end in measurements for the
// histogram to be non-empty; Sample arranges that for ansatz programs.
func (r *Remote) Run(ctx context.Context, program *circuit.Program, shots int) (Counts, error) {
	const op = "Remote.Run"

	if program == nil {
		return nil, errors.New("run needs a program").WithOperation(op).WithComponent("backend")
	}
	if shots < 1 {
		return nil, errors.Errorf("shot count must be positive, got %d", shots).
			WithOperation(op).WithComponent("backend")
	}
	if program.NumQubits > r.maxQubits {
		return nil, errors.Errorf("register of %d qubits exceeds backend %q capacity of %d", program.NumQubits, r.name, r.maxQubits).
			WithOperation(op).WithComponent("backend")
	}

	r.logger.Debug("Submitting program",
		zap.Int("num_qubits", program.NumQubits),
		zap.Int("depth", program.Depth()),
		zap.Int("shots", shots),
	)

	var resp runResponse
	if err := r.post(ctx, op, "/v1/run", runRequest{Program: program, Shots: shots}, &resp); err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

// post sends one JSON request and decodes the JSON response into out.
// Non-2xx statuses are errors carrying the status code and a trimmed body
// excerpt.
func (r *Remote) post(ctx context.Context, op, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "encoding request").WithOperation(op).WithComponent("backend")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building request").WithOperation(op).WithComponent("backend")
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calling backend %q", r.name).WithOperation(op).WithComponent("backend")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("backend %q returned status %d: %s", r.name, resp.StatusCode, strings.TrimSpace(string(excerpt))).
			WithOperation(op).WithComponent("backend")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding backend %q response", r.name).
			WithOperation(op).WithComponent("backend")
	}
	return nil
}
