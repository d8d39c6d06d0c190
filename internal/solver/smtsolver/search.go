package smtsolver

import (
	"context"
	"math/big"

	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

type smtModel struct {
	assignment assignment
}

func (*smtModel) Backend() string { return backendName }

// Check performs exhaustive search over the Cartesian product of every
// registered variable's bounded domain, stopping at the first assignment
// satisfying constraint (spec §4.1 "Check"). ctx is polled between
// candidates so a caller deadline (spec §5) is honored without the search
// itself needing to know about time.
func (s *Solver) Check(ctx context.Context, constraint solver.Term) (solver.Model, bool, error) {
	c := asTerm(constraint)
	found, err := s.search(ctx, func(env assignment) (bool, error) {
		v, err := c.eval(env)
		if err != nil {
			return false, err
		}
		return asBool(v), nil
	})
	if err != nil {
		return nil, false, err
	}
	if found == nil {
		return nil, false, nil
	}
	return &smtModel{assignment: found}, true, nil
}

// search enumerates s.order's domains depth-first, calling accept on each
// full assignment until accept returns true or the space is exhausted.
func (s *Solver) search(ctx context.Context, accept func(assignment) (bool, error)) (assignment, error) {
	env := make(assignment, len(s.order))
	var result assignment
	var walk func(i int) (bool, error)
	walk = func(i int) (bool, error) {
		if i == len(s.order) {
			ok, err := accept(env)
			if err != nil {
				return false, err
			}
			if ok {
				result = make(assignment, len(env))
				for k, v := range env {
					result[k] = v
				}
				return true, nil
			}
			return false, nil
		}
		id := s.order[i]
		for _, v := range s.domains[id].vals {
			if err := ctx.Err(); err != nil {
				return false, errs.NewTimeout(backendName)
			}
			env[id] = v
			done, err := walk(i + 1)
			if err != nil {
				return false, err
			}
			if done {
				return true, nil
			}
		}
		delete(env, id)
		return false, nil
	}
	_, err := walk(0)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// optimize scans every satisfying assignment and keeps the one with the
// best objective value; spec §1 excludes incremental solving, not a single
// exhaustive pass, so this stays a plain linear scan rather than a
// branch-and-bound search.
func (s *Solver) optimize(ctx context.Context, objective, constraint solver.Term, maximize bool) (solver.Model, bool, error) {
	obj, c := asTerm(objective), asTerm(constraint)
	var best assignment
	var bestVal *big.Int
	_, err := s.search(ctx, func(env assignment) (bool, error) {
		cv, err := c.eval(env)
		if err != nil {
			return false, err
		}
		if !asBool(cv) {
			return false, nil
		}
		ov, err := obj.eval(env)
		if err != nil {
			return false, err
		}
		val := asBig(ov)
		if best == nil || (maximize && val.Cmp(bestVal) > 0) || (!maximize && val.Cmp(bestVal) < 0) {
			best = make(assignment, len(env))
			for k, v := range env {
				best[k] = v
			}
			bestVal = new(big.Int).Set(val)
		}
		return false, nil // keep scanning the whole space for the true optimum
	})
	if err != nil {
		return nil, false, err
	}
	if best == nil {
		return nil, false, nil
	}
	return &smtModel{assignment: best}, true, nil
}

func (s *Solver) Maximize(ctx context.Context, objective, constraint solver.Term) (solver.Model, bool, error) {
	return s.optimize(ctx, objective, constraint, true)
}

func (s *Solver) Minimize(ctx context.Context, objective, constraint solver.Term) (solver.Model, bool, error) {
	return s.optimize(ctx, objective, constraint, false)
}

func (s *Solver) Get(m solver.Model, v solver.VarID, declaredType *exprtype.Type) (any, error) {
	sm, ok := m.(*smtModel)
	if !ok {
		return nil, errs.NewInvariantViolated("Get: model not produced by smtsolver backend")
	}
	val, ok := sm.assignment[v]
	if !ok {
		return nil, errs.NewInvariantViolated("Get: variable %d not bound in model", v)
	}
	switch declaredType.Kind {
	case exprtype.KindBool, exprtype.KindInt, exprtype.KindReal, exprtype.KindChar, exprtype.KindSeq:
		return val, nil
	case exprtype.KindBitVec:
		return bvMask(asBig(val), declaredType.Width, declaredType.Signed), nil
	default:
		return nil, errs.NewUnsupported(backendName, "Get", "cannot extract declared type "+declaredType.Kind.String())
	}
}
