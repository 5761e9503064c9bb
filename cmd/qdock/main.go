/*
qdock encodes a molecular interaction graph as a weighted maximum-clique
Hamiltonian and, given a quantum backend, drives a DC-QAOA optimization of
the docking objective: it prints the encoded Hamiltonian, the ansatz
parameter count, the optimization trajectory, and the highest-count docking
candidates decoded from the sampled measurement histogram. A search mode
builds and runs a Grover amplification program for one marked register
pattern instead.
*/
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/QDOCK/internal/backend"
	"github.com/copyleftdev/QDOCK/internal/circuit"
	"github.com/copyleftdev/QDOCK/internal/docking"
	"github.com/copyleftdev/QDOCK/internal/hamiltonian"
	"github.com/copyleftdev/QDOCK/internal/qaoa"
)

// notify is used to output error messages.
var notify *log.Logger

// checkError is a convenience function that aborts on error.
func checkError(e error) {
	if e != nil {
		notify.Fatal(e)
	}
}

// options collects the command-line settings shared by the run modes.
type options struct {
	penalty     float64
	layers      int
	seed        int64
	spread      float64
	iterations  int
	evaluations int
	tolerance   float64
	shots       int
	top         int
	backendURL  string
	backendName string
	token       string
	maxQubits   int
	timeout     time.Duration
	hardware    bool
	qubits      int
	marked      uint64
}

// graphInput is the JSON document qdock reads. Incompatible pairs may be
// given directly as non_edges, or the contact edges may be given instead, in
// which case their complement over all distinct node pairs is taken.
// Supplying both is an error.
type graphInput struct {
	Nodes    []int     `json:"nodes"`
	Weights  []float64 `json:"weights"`
	NonEdges [][2]int  `json:"non_edges"`
	Edges    [][2]int  `json:"edges"`
}

func main() {
	// Parse the command line.
	var err error
	notify = log.New(os.Stderr, os.Args[0]+": ", 0)
	var opt options
	mode := flag.String("mode", "dock", `run mode: "dock" (default) or "search"`)
	outFile := ""
	flag.StringVar(&outFile, "output", "", "output file name (default: standard output)")
	flag.StringVar(&outFile, "o", "", "shorthand for --output")
	flag.Float64Var(&opt.penalty, "penalty", 6.0, "incompatible-pair penalty strength of the clique Hamiltonian")
	flag.IntVar(&opt.layers, "layers", 1, "DC-QAOA ansatz layers")
	flag.Int64Var(&opt.seed, "seed", 42, "seed of the initial parameter draw (0: seed from the clock)")
	flag.Float64Var(&opt.spread, "spread", 1.0, "standard deviation of the initial parameter draw")
	flag.IntVar(&opt.iterations, "iterations", 0, "dock: optimizer iteration cap (0: unbounded); search: Grover iterations (0: optimal)")
	flag.IntVar(&opt.evaluations, "evaluations", 0, "cost evaluation cap (0: unbounded)")
	flag.Float64Var(&opt.tolerance, "tolerance", 1e-6, "function convergence tolerance of the optimizer")
	flag.IntVar(&opt.shots, "shots", 1000, "measurement shots when sampling")
	flag.IntVar(&opt.top, "top", 5, "number of leading candidates to report")
	flag.StringVar(&opt.backendURL, "backend", "", "remote backend base URL (default: encode only, no execution)")
	flag.StringVar(&opt.backendName, "backend-name", "qpp-cpu", "name the remote backend is reported as")
	flag.StringVar(&opt.token, "token", "", "bearer token sent to the remote backend")
	flag.IntVar(&opt.maxQubits, "max-qubits", 30, "register width cap of the remote backend")
	flag.DurationVar(&opt.timeout, "timeout", 60*time.Second, "HTTP timeout per backend request")
	flag.BoolVar(&opt.hardware, "hardware", false, "mark the backend as hardware rather than a simulator")
	flag.IntVar(&opt.qubits, "qubits", 0, "search: register width")
	flag.Uint64Var(&opt.marked, "marked", 0, "search: register pattern to amplify")
	verbose := flag.Bool("v", false, "verbose component logging to standard error")
	flag.Parse()

	// Open the output file.
	var w io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		checkError(err)
		defer f.Close()
		w = f
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		checkError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "dock":
		// Open the input file.
		var r io.Reader
		switch flag.NArg() {
		case 0:
			// Read from standard input.
			r = os.Stdin
		case 1:
			// Read from the named file.
			f, err := os.Open(flag.Arg(0))
			checkError(err)
			defer f.Close()
			r = f
		default:
			notify.Fatal("More than one input file was specified")
		}
		checkError(dock(ctx, w, r, logger, opt))
	case "search":
		checkError(search(ctx, w, logger, opt))
	default:
		notify.Fatalf("Unrecognized mode %q", *mode)
	}
}

// readGraph decodes a graph document and resolves the edge form into the
// non-edge list the encoder consumes.
func readGraph(r io.Reader) (docking.Graph, error) {
	var in graphInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return docking.Graph{}, fmt.Errorf("decoding graph: %w", err)
	}
	if len(in.Edges) > 0 && len(in.NonEdges) > 0 {
		return docking.Graph{}, fmt.Errorf("graph carries both edges and non_edges, give one")
	}
	nonEdges := in.NonEdges
	if len(in.Edges) > 0 {
		nonEdges = docking.NonEdgesFromEdges(in.Nodes, in.Edges)
	}
	return docking.Graph{Nodes: in.Nodes, Weights: in.Weights, NonEdges: nonEdges}, nil
}

// newRemote builds the remote backend client from the command-line settings.
func newRemote(opt options, logger *zap.Logger) (*backend.Remote, error) {
	return backend.NewRemote(backend.RemoteConfig{
		Name:      opt.backendName,
		BaseURL:   opt.backendURL,
		Token:     opt.token,
		MaxQubits: opt.maxQubits,
		Simulator: !opt.hardware,
		Timeout:   opt.timeout,
		Logger:    logger,
	})
}

// dock encodes the graph and reports the Hamiltonian and ansatz layout.
// With a backend configured it then minimizes the docking cost, samples the
// optimized state, and decodes the leading candidates.
func dock(ctx context.Context, w io.Writer, r io.Reader, logger *zap.Logger, opt options) error {
	g, err := readGraph(r)
	if err != nil {
		return err
	}

	h, err := hamiltonian.EncodeMaxClique(g, opt.penalty)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Hamiltonian over %d qubits, %d terms (penalty %g):\n", h.NumQubits(), h.Len(), opt.penalty)
	fmt.Fprint(w, h.String())

	ansatz, err := qaoa.FromHamiltonian(h, opt.layers)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "DC-QAOA ansatz: %d layers, %d parameters\n", opt.layers, ansatz.ParameterCount())

	if opt.backendURL == "" {
		return nil
	}

	remote, err := newRemote(opt, logger)
	if err != nil {
		return err
	}
	cost, err := qaoa.NewCost(ansatz, remote)
	if err != nil {
		return err
	}
	driver, err := qaoa.NewDriver(cost, qaoa.DriverConfig{
		MaxIterations:  opt.iterations,
		MaxEvaluations: opt.evaluations,
		Tolerance:      opt.tolerance,
		Seed:           opt.seed,
		InitialSpread:  opt.spread,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	result, err := driver.Optimize(ctx, driver.InitialParameters())
	if err != nil {
		return err
	}
	status := "stopped on budget"
	if result.Converged {
		status = "converged"
	}
	fmt.Fprintf(w, "Optimization %s: best cost %.6f after %d evaluations (%d iterations, %s)\n",
		status, result.BestCost, result.Evaluations, result.Iterations, result.Runtime.Round(time.Millisecond))
	if n := len(result.History); n > 0 {
		fmt.Fprintf(w, "Cost trajectory: %.6f at start, %.6f at best\n", result.History[0], result.BestCost)
	}

	counts, err := remote.Sample(ctx, ansatz, result.BestParameters, opt.shots)
	if err != nil {
		return err
	}
	mean, std, err := h.ExpectationFromCounts(counts)
	if err != nil {
		return err
	}
	total := counts.Shots()
	fmt.Fprintf(w, "Sampled %d shots on %q: expectation %.6f, spread %.6f\n", total, remote.Name(), mean, std)

	fmt.Fprintln(w, "Top candidates:")
	for i, outcome := range counts.Top(opt.top) {
		cand, err := g.Decode(outcome.Bitstring)
		if err != nil {
			return err
		}
		energy, err := h.EvalBitstring(outcome.Bitstring)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%3d. %s  %6d shots (%.1f%%)  energy %.6f  weight %.4f  nodes %v",
			i+1, outcome.Bitstring, outcome.Count, 100*float64(outcome.Count)/float64(total), energy, cand.TotalWeight, cand.Nodes)
		if !cand.Feasible() {
			fmt.Fprintf(w, "  violates %v", cand.Violations)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// search builds a Grover program for the marked register pattern and, with a
// backend configured, runs it and reports the measured histogram.
func search(ctx context.Context, w io.Writer, logger *zap.Logger, opt options) error {
	if opt.qubits < 2 {
		return fmt.Errorf("search needs -qubits of at least 2, got %d", opt.qubits)
	}
	iterations := opt.iterations
	if iterations == 0 {
		iterations = circuit.OptimalIterations(opt.qubits)
	}
	program, err := circuit.Search(opt.qubits, opt.marked, iterations)
	if err != nil {
		return err
	}

	bits := circuit.MarkedBits(opt.marked, opt.qubits)
	pattern := make([]byte, len(bits))
	for i, b := range bits {
		pattern[i] = byte('0' + b)
	}
	fmt.Fprintf(w, "Grover search for %s over %d qubits: %d iterations, depth %d\n",
		pattern, opt.qubits, iterations, program.Depth())

	if opt.backendURL == "" {
		return nil
	}

	remote, err := newRemote(opt, logger)
	if err != nil {
		return err
	}
	counts, err := remote.Run(ctx, program, opt.shots)
	if err != nil {
		return err
	}
	total := counts.Shots()
	fmt.Fprintf(w, "Measured outcomes (%d shots):\n", total)
	for _, outcome := range counts.Top(opt.top) {
		fmt.Fprintf(w, "  %s  %6d shots (%.1f%%)\n", outcome.Bitstring, outcome.Count, 100*float64(outcome.Count)/float64(total))
	}
	return nil
}
