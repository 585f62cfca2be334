package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/envisionhq/sceneflow/checkpoint"
)

// NodeFunc executes one stage over the state and returns the updated
// state. Stages catch their own faults and encode failure in
// State.Error; a NodeFunc never returns an error to the engine.
type NodeFunc func(ctx context.Context, st *State) *State

// RouteFunc selects the next stage name from the current state.
type RouteFunc func(st *State) string

// defaultMaxSteps bounds a single run so a broken routing function
// cannot spin forever.
const defaultMaxSteps = 50

// Graph is a directed graph of named stages under construction. Compile
// validates it into a Runner.
type Graph struct {
	nodes       map[string]NodeFunc
	edges       map[string]string
	conditional map[string]conditionalEdge
	entry       string
}

type conditionalEdge struct {
	route   RouteFunc
	targets []string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:       make(map[string]NodeFunc),
		edges:       make(map[string]string),
		conditional: make(map[string]conditionalEdge),
	}
}

// AddNode registers a named stage.
func (g *Graph) AddNode(name string, fn NodeFunc) *Graph {
	g.nodes[name] = fn
	return g
}

// AddEdge declares an unconditional transition from one stage to the
// next.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = to
	return g
}

// AddConditionalEdge declares a routed transition. route must return one
// of targets; targets are validated at compile time.
func (g *Graph) AddConditionalEdge(from string, route RouteFunc, targets ...string) *Graph {
	g.conditional[from] = conditionalEdge{route: route, targets: targets}
	return g
}

// SetEntryPoint names the stage execution starts from.
func (g *Graph) SetEntryPoint(name string) *Graph {
	g.entry = name
	return g
}

// Compile validates the graph and returns a Runner.
func (g *Graph) Compile(opts ...RunnerOption) (*Runner, error) {
	if g.entry == "" {
		return nil, fmt.Errorf("graph has no entry point")
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("entry point %q is not a node", g.entry)
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("edge from unknown node %q", from)
		}
		if _, ok := g.nodes[to]; !ok {
			return nil, fmt.Errorf("edge from %q to unknown node %q", from, to)
		}
	}
	for from, ce := range g.conditional {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("conditional edge from unknown node %q", from)
		}
		if len(ce.targets) == 0 {
			return nil, fmt.Errorf("conditional edge from %q has no targets", from)
		}
		for _, t := range ce.targets {
			if _, ok := g.nodes[t]; !ok {
				return nil, fmt.Errorf("conditional edge from %q to unknown node %q", from, t)
			}
		}
		if _, dup := g.edges[from]; dup {
			return nil, fmt.Errorf("node %q has both an edge and a conditional edge", from)
		}
	}

	r := &Runner{
		graph:    g,
		logger:   slog.Default(),
		maxSteps: defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Runner executes a compiled graph.
type Runner struct {
	graph       *Graph
	checkpoints checkpoint.Store
	logger      *slog.Logger
	maxSteps    int
}

// RunnerOption configures a Runner at compile time.
type RunnerOption func(*Runner)

// WithCheckpointStore sets the store used to persist state at
// suspension points. Without one, interrupts still return control but
// nothing is durable.
func WithCheckpointStore(store checkpoint.Store) RunnerOption {
	return func(r *Runner) { r.checkpoints = store }
}

// WithRunnerLogger sets the engine logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithMaxSteps overrides the routing-cycle guard.
func WithMaxSteps(n int) RunnerOption {
	return func(r *Runner) { r.maxSteps = n }
}

type invokeOptions struct {
	threadID        string
	interruptBefore string
}

// InvokeOption configures a single run.
type InvokeOption func(*invokeOptions)

// WithThreadID keys the run's checkpoints. Required for suspension to
// be durable.
func WithThreadID(id string) InvokeOption {
	return func(o *invokeOptions) { o.threadID = id }
}

// WithInterruptBefore suspends the run before entering the named stage:
// the engine persists a checkpoint and returns control to the caller.
// The entry stage itself is exempt, so a resume may re-enter the very
// stage it suspends before.
func WithInterruptBefore(stage string) InvokeOption {
	return func(o *invokeOptions) { o.interruptBefore = stage }
}

// Result reports how a run ended.
type Result struct {
	State *State
	// Interrupted is true when the run suspended before a stage instead
	// of reaching a terminal one.
	Interrupted bool
	// NextStage is the stage the run suspended before, empty on
	// completion.
	NextStage string
}

// Invoke runs the graph from its entry point. Engine errors cover graph
// and checkpoint faults only; stage failures travel inside State.Error.
func (r *Runner) Invoke(ctx context.Context, st *State, opts ...InvokeOption) (*Result, error) {
	var o invokeOptions
	for _, opt := range opts {
		opt(&o)
	}

	current := r.graph.entry
	for step := 0; ; step++ {
		if step >= r.maxSteps {
			return nil, fmt.Errorf("workflow exceeded %d steps at stage %q, aborting", r.maxSteps, current)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("workflow canceled at stage %q: %w", current, err)
		}

		if step > 0 && current == o.interruptBefore {
			if err := r.saveCheckpoint(ctx, o.threadID, st); err != nil {
				return nil, err
			}
			r.logger.Info("workflow suspended",
				"thread_id", o.threadID,
				"next_stage", current)
			return &Result{State: st, Interrupted: true, NextStage: current}, nil
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			return nil, fmt.Errorf("route returned unknown stage %q", current)
		}

		st = r.runStage(ctx, current, node, st)

		next, terminal := r.nextStage(current, st)
		if terminal {
			if err := r.deleteCheckpoint(ctx, o.threadID); err != nil {
				return nil, err
			}
			r.logger.Info("workflow completed",
				"thread_id", o.threadID,
				"final_stage", current)
			return &Result{State: st}, nil
		}
		current = next
	}
}

// Resume continues a suspended run. When base is nil the latest
// checkpoint for the thread is loaded; checkpoint.ErrNotFound surfaces
// unchanged so the caller can rebuild state from primary storage. The
// patch is merged before execution restarts from the entry point.
func (r *Runner) Resume(ctx context.Context, threadID string, base *State, patch *Patch, opts ...InvokeOption) (*Result, error) {
	if base == nil {
		if r.checkpoints == nil {
			return nil, fmt.Errorf("resume %s: no checkpoint store configured", threadID)
		}
		snap, err := r.checkpoints.Get(ctx, threadID)
		if err != nil {
			if err == checkpoint.ErrNotFound {
				return nil, err
			}
			return nil, fmt.Errorf("resume %s: %w", threadID, err)
		}
		base = &State{}
		if err := json.Unmarshal(snap.State, base); err != nil {
			return nil, fmt.Errorf("resume %s: decode snapshot v%d: %w", threadID, snap.Version, err)
		}
	}

	// A resume is a new interaction: a failure recorded by an earlier
	// run must not mask this run's outcome.
	base.Error = ""

	if patch != nil {
		patch.Apply(base)
	}

	opts = append(opts, WithThreadID(threadID))
	return r.Invoke(ctx, base, opts...)
}

// runStage executes one node with panic containment. A panicking stage
// yields a failed but internally consistent state, never a crashed
// process.
func (r *Runner) runStage(ctx context.Context, name string, node NodeFunc, st *State) (out *State) {
	start := time.Now()
	status := "ok"
	defer func() {
		if rec := recover(); rec != nil {
			status = "panic"
			st.Error = fmt.Sprintf("stage %s panicked: %v", name, rec)
			st.clearRewriteFlags()
			out = st
			r.logger.Error("stage panic recovered",
				"stage", name,
				"panic", rec)
		}
		observeStage(name, status, time.Since(start))
	}()

	r.logger.Debug("stage starting", "stage", name)
	out = node(ctx, st)
	if out == nil {
		out = st
	}
	if out.Error != "" {
		status = "error"
	}
	return out
}

// nextStage resolves the transition out of a stage. terminal is true
// when the stage has no outgoing edge.
func (r *Runner) nextStage(current string, st *State) (string, bool) {
	if ce, ok := r.graph.conditional[current]; ok {
		return ce.route(st), false
	}
	if to, ok := r.graph.edges[current]; ok {
		return to, false
	}
	return "", true
}

func (r *Runner) saveCheckpoint(ctx context.Context, threadID string, st *State) error {
	if r.checkpoints == nil || threadID == "" {
		return nil
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state for %s: %w", threadID, err)
	}
	snap, err := r.checkpoints.Put(ctx, threadID, data)
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", threadID, err)
	}
	r.logger.Debug("checkpoint saved",
		"thread_id", threadID,
		"version", snap.Version)
	return nil
}

func (r *Runner) deleteCheckpoint(ctx context.Context, threadID string) error {
	if r.checkpoints == nil || threadID == "" {
		return nil
	}
	if err := r.checkpoints.Delete(ctx, threadID); err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", threadID, err)
	}
	return nil
}
