// Package check implements the Model Checker façade of spec §4.6: the
// three exposed entry points (find/maximize/minimize) that wire together
// the constant-key and interleaving pre-passes, a chosen solver backend,
// the symbolic evaluator, and witness reification into one query. Grounded
// on the retrieval pack's audit logging (dolthub-go-mysql-server's auth/audit.go):
// one *logrus.Entry carrying query-scoped fields, created once per call and
// passed down rather than a package-global logger.
package check

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/eval"
	"github.com/cwbudde/symcheck/internal/interleave"
	"github.com/cwbudde/symcheck/internal/keys"
	"github.com/cwbudde/symcheck/internal/reify"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/internal/solver/ddsolver"
	"github.com/cwbudde/symcheck/internal/solver/smtsolver"
	"github.com/cwbudde/symcheck/internal/value"
	"github.com/cwbudde/symcheck/pkg/expr"
)

// Backend selects which solver.Solver implementation a query runs against
// (spec §6 "Backend ∈ {Smt, DecisionDiagram}").
type Backend int

const (
	Smt Backend = iota
	DecisionDiagram
)

func (b Backend) String() string {
	if b == DecisionDiagram {
		return "DecisionDiagram"
	}
	return "Smt"
}

// OptimizationContext distinguishes a plain satisfiability query from one
// that also optimizes an objective (spec §6).
type OptimizationContext int

const (
	Solving OptimizationContext = iota
	Optimization
)

// Config holds the per-query knobs spec §6 exposes.
type Config struct {
	Backend             Backend
	ListMaxLength       int
	Timeout             time.Duration // zero means no deadline beyond ctx's own
	OptimizationContext OptimizationContext
	// ExpectedVars sizes the decision-diagram backend's variable pool
	// up front (ddsolver.New's expectedVars); ignored for Smt.
	ExpectedVars int
	// Bounds configures the Smt backend's per-variable search domains;
	// ignored for DecisionDiagram.
	Bounds smtsolver.Bounds
}

// DefaultConfig returns spec §6's documented defaults.
func DefaultConfig() Config {
	return Config{
		Backend:             Smt,
		ListMaxLength:       5,
		OptimizationContext: Solving,
		ExpectedVars:        64,
		Bounds:              smtsolver.Default,
	}
}

// Checker runs find/maximize/minimize queries under one Config, optionally
// logging each query's progress (spec §6's façade procedure). A nil Logger
// disables logging entirely rather than writing to a default one, so a
// library consumer never gets unsolicited log output.
type Checker struct {
	cfg    Config
	Logger *logrus.Logger
}

// New builds a Checker. logger may be nil.
func New(cfg Config, logger *logrus.Logger) *Checker {
	return &Checker{cfg: cfg, Logger: logger}
}

// Result is the outcome of one query: Sat reports whether a satisfying
// assignment exists, and Assignment is the reified arbitrary-expression ->
// concrete-value mapping (spec §4.6 "a mapping from arbitrary-expression
// identity to concrete value, or the empty optional on unsat").
type Result struct {
	Sat        bool
	Assignment reify.Assignment
}

// Find runs a plain satisfiability query over constraint (spec §4.6,
// step sequence (1)-(5) without an objective).
func (c *Checker) Find(ctx context.Context, constraint expr.Node, args map[int]expr.Node) (Result, error) {
	return c.run(ctx, "Find", constraint, nil, false, args)
}

// Maximize runs an optimization query maximizing objective subject to
// constraint.
func (c *Checker) Maximize(ctx context.Context, objective, constraint expr.Node, args map[int]expr.Node) (Result, error) {
	return c.run(ctx, "Maximize", constraint, objective, true, args)
}

// Minimize runs an optimization query minimizing objective subject to
// constraint.
func (c *Checker) Minimize(ctx context.Context, objective, constraint expr.Node, args map[int]expr.Node) (Result, error) {
	return c.run(ctx, "Minimize", constraint, objective, false, args)
}

func (c *Checker) run(ctx context.Context, op string, constraint, objective expr.Node, maximize bool, args map[int]expr.Node) (Result, error) {
	queryID := uuid.NewString()
	log := c.entry(queryID, op)

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	// (1) constant-key and interleaving passes.
	keyInfo, err := keys.Collect(constraint)
	if err != nil {
		log.WithError(err).Warn("constant-key pass failed")
		return Result{}, err
	}
	if objective != nil {
		objKeys, err := keys.Collect(objective)
		if err != nil {
			log.WithError(err).Warn("constant-key pass failed on objective")
			return Result{}, err
		}
		for tk, set := range objKeys.ByType {
			if existing, ok := keyInfo.ByType[tk]; ok {
				for k := range set {
					existing[k] = struct{}{}
				}
			} else {
				keyInfo.ByType[tk] = set
			}
		}
	}

	analysis, err := interleave.Analyze(constraint)
	if err != nil {
		log.WithError(err).Warn("interleaving pass failed")
		return Result{}, err
	}
	log.WithField("arbitrary_count", analysis.Classes.NumLeaves()).Debug("pre-passes complete")

	// (2) instantiate the chosen solver.
	s, err := c.newSolver()
	if err != nil {
		log.WithError(err).Warn("solver instantiation failed")
		return Result{}, err
	}
	defer s.Close()

	ev := eval.New(s, eval.Config{ListMaxLength: c.cfg.ListMaxLength}, keyInfo, args)
	if order := arbitraryOrder(constraint, analysis); len(order) > 0 {
		if err := ev.Preallocate(order); err != nil {
			log.WithError(err).Warn("interleaving-grouped preallocation failed")
			return Result{}, err
		}
	}

	// (3) evaluate constraint (and objective) to terms.
	constraintVal, err := ev.Evaluate(constraint)
	if err != nil {
		log.WithError(err).Warn("constraint evaluation failed")
		return Result{}, err
	}
	constraintBool, ok := constraintVal.(*value.Bool)
	if !ok {
		err := errs.NewInvariantViolated("check: constraint does not evaluate to Bool (%T)", constraintVal)
		log.WithError(err).Warn("constraint has wrong type")
		return Result{}, err
	}

	var model solver.Model
	var sat bool
	switch {
	case objective == nil:
		model, sat, err = s.Check(ctx, constraintBool.Term)
	default:
		objVal, evalErr := ev.Evaluate(objective)
		if evalErr != nil {
			log.WithError(evalErr).Warn("objective evaluation failed")
			return Result{}, evalErr
		}
		objTerm, termErr := objectiveTerm(objVal)
		if termErr != nil {
			log.WithError(termErr).Warn("objective has unsupported type")
			return Result{}, termErr
		}
		if maximize {
			model, sat, err = s.Maximize(ctx, objTerm, constraintBool.Term)
		} else {
			model, sat, err = s.Minimize(ctx, objTerm, constraintBool.Term)
		}
	}
	if err != nil {
		log.WithError(err).Warn("solve failed")
		return Result{}, err
	}
	if !sat {
		log.Debug("unsat")
		return Result{Sat: false}, nil
	}

	assignment, err := reify.Reify(s, model, ev.Witnesses())
	if err != nil {
		log.WithError(err).Warn("reification failed")
		return Result{}, err
	}
	log.WithField("arbitrary_count", len(assignment)).Debug("sat")
	return Result{Sat: true, Assignment: assignment}, nil
}

func (c *Checker) entry(queryID, op string) *logrus.Entry {
	logger := c.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return logger.WithFields(logrus.Fields{
		"query_id": queryID,
		"backend":  c.cfg.Backend.String(),
		"pass":     op,
	})
}

func (c *Checker) newSolver() (solver.Solver, error) {
	switch c.cfg.Backend {
	case DecisionDiagram:
		return ddsolver.New(c.cfg.ExpectedVars)
	default:
		return smtsolver.New(c.cfg.Bounds), nil
	}
}

func objectiveTerm(v value.Value) (solver.Term, error) {
	switch o := v.(type) {
	case *value.Int:
		return o.Term, nil
	case *value.Real:
		return o.Term, nil
	case *value.BitVec:
		return o.Term, nil
	default:
		return nil, errs.NewInvariantViolated("check: objective does not evaluate to a numeric type (%T)", v)
	}
}

// arbitraryOrder computes spec §5's interleaving-grouped allocation order
// at Arbitrary-node granularity (internal/eval.Preallocate's documented
// simplification): every distinct *expr.Arbitrary reachable from root, in
// depth-first first-occurrence order, stable-sorted by the representative
// leaf of its interleaving class.
func arbitraryOrder(root expr.Node, analysis *interleave.Analysis) []*expr.Arbitrary {
	var order []*expr.Arbitrary
	seen := map[expr.Node]struct{}{}
	var walk func(n expr.Node)
	walk = func(n expr.Node) {
		if n == nil {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		if a, ok := n.(*expr.Arbitrary); ok {
			order = append(order, a)
		}
		for _, child := range n.Children() {
			walk(child)
		}
	}
	walk(root)

	rep := make(map[*expr.Arbitrary]int, len(order))
	for _, a := range order {
		rep[a] = representativeOf(analysis.ByNode[a], analysis.Classes)
	}
	sort.SliceStable(order, func(i, j int) bool { return rep[order[i]] < rep[order[j]] })
	return order
}

// representativeOf returns the smallest class representative among every
// leaf flowing into result, or -1 if result contributes no flat leaves
// (structured results with no scalar leaves, e.g. an empty record).
func representativeOf(result interleave.Result, classes *interleave.Classes) int {
	best := -1
	consider := func(id int) {
		if best == -1 || id < best {
			best = id
		}
	}
	var walk func(r interleave.Result)
	walk = func(r interleave.Result) {
		switch v := r.(type) {
		case *interleave.Flat:
			for i, e := v.Vars.NextSet(0); e; i, e = v.Vars.NextSet(i + 1) {
				consider(int(classes.Representative(interleave.LeafID(i))))
			}
		case *interleave.Record:
			for _, f := range v.Fields {
				walk(f)
			}
		case *interleave.Union:
			for i, e := v.TagVars.NextSet(0); e; i, e = v.TagVars.NextSet(i + 1) {
				consider(int(classes.Representative(interleave.LeafID(i))))
			}
			for _, p := range v.Payloads {
				walk(p)
			}
		case *interleave.List:
			for _, cell := range v.Cells {
				walk(cell)
			}
		case *interleave.ConstMapResult:
			for _, sub := range v.ByKey {
				walk(sub)
			}
		}
	}
	if result != nil {
		walk(result)
	}
	return best
}
