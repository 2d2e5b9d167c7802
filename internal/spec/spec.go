// Package spec holds the loaded specification: rules, invariants, ghosts,
// hooks, axioms and the methods table, after load-time validation.
package spec

import (
	"fmt"

	"gprover/internal/contract"
	"gprover/internal/lang"
)

type Spec struct {
	Methods    map[string]lang.MethodEntry
	Rules      []*lang.RuleDecl
	Invariants []*lang.InvariantDecl
	Ghosts     map[string]*lang.GhostDecl
	GhostOrder []string
	Hooks      []*lang.HookDecl
}

func (s *Spec) Ghost(name string) (*lang.GhostDecl, bool) {
	g, ok := s.Ghosts[name]
	return g, ok
}

func (s *Spec) IsEnvfree(funcName string) bool {
	entry, ok := s.Methods[funcName]
	return ok && entry.Envfree
}

// SstoreHooks returns the write hooks matching a storage variable.
func (s *Spec) SstoreHooks(variable string) []*lang.HookDecl {
	return s.hooksFor(lang.HookSstore, variable)
}

// SloadHooks returns the read hooks matching a storage variable.
func (s *Spec) SloadHooks(variable string) []*lang.HookDecl {
	return s.hooksFor(lang.HookSload, variable)
}

func (s *Spec) hooksFor(kind lang.HookKind, variable string) []*lang.HookDecl {
	var result []*lang.HookDecl
	for _, hook := range s.Hooks {
		if hook.Kind == kind && hook.Variable == variable {
			result = append(result, hook)
		}
	}
	return result
}

// Load validates a parsed spec file against the contract it verifies and
// builds the lookup model. Everything rejected here is a specification
// error, reported before any symbolic execution starts.
func Load(file *lang.File, target *contract.Contract) (*Spec, error) {
	s := &Spec{
		Methods: make(map[string]lang.MethodEntry),
		Ghosts:  make(map[string]*lang.GhostDecl),
	}

	if file.Methods != nil {
		for _, entry := range file.Methods.Entries {
			if _, ok := target.Function(entry.Name); !ok {
				return nil, fmt.Errorf("methods block declares %q which contract %s does not define",
					entry.Name, target.Name)
			}
			if _, dup := s.Methods[entry.Name]; dup {
				return nil, fmt.Errorf("methods block declares %q twice", entry.Name)
			}
			s.Methods[entry.Name] = entry
		}
	}

	for _, ghost := range file.Ghosts {
		if _, dup := s.Ghosts[ghost.Name]; dup {
			return nil, fmt.Errorf("duplicate ghost %q", ghost.Name)
		}
		s.Ghosts[ghost.Name] = ghost
		s.GhostOrder = append(s.GhostOrder, ghost.Name)
	}
	for _, ghost := range file.Ghosts {
		for _, axiom := range append(append([]lang.Expr{}, ghost.InitAxioms...), ghost.Axioms...) {
			if err := s.checkAxiomExpr(ghost, axiom); err != nil {
				return nil, err
			}
		}
	}

	for _, hook := range file.Hooks {
		if err := s.checkHook(hook, target); err != nil {
			return nil, err
		}
		s.Hooks = append(s.Hooks, hook)
	}

	for _, rule := range file.Rules {
		if !blockHasVerdict(rule.Body) {
			return nil, fmt.Errorf(
				"rule %q has no assert or satisfy statement: a rule without a terminal check is ambiguous and is rejected",
				rule.Name)
		}
		s.Rules = append(s.Rules, rule)
	}
	s.Invariants = append(s.Invariants, file.Invariants...)
	return s, nil
}

// blockHasVerdict reports whether any path through the block can reach an
// assert or satisfy statement.
func blockHasVerdict(block *lang.Block) bool {
	if block == nil {
		return false
	}
	for _, stmt := range block.Stmts {
		switch st := stmt.(type) {
		case *lang.AssertStmt, *lang.SatisfyStmt:
			return true
		case *lang.IfStmt:
			if blockHasVerdict(st.Then) || blockHasVerdict(st.Else) {
				return true
			}
		case *lang.WhileStmt:
			if blockHasVerdict(st.Body) {
				return true
			}
		}
	}
	return false
}

// checkAxiomExpr enforces that axioms constrain ghost state only: an axiom
// over contract storage would be an assumption about code the prover is
// supposed to check.
func (s *Spec) checkAxiomExpr(ghost *lang.GhostDecl, expr lang.Expr) error {
	var bad string
	walkExpr(expr, func(e lang.Expr) {
		ident, ok := e.(*lang.Ident)
		if !ok {
			return
		}
		if _, isGhost := s.Ghosts[ident.Name]; !isGhost && ident.Name != "max_uint256" {
			bad = ident.Name
		}
	})
	if bad != "" {
		return fmt.Errorf("axiom of ghost %q references %q, which is not a ghost", ghost.Name, bad)
	}
	return nil
}

func (s *Spec) checkHook(hook *lang.HookDecl, target *contract.Contract) error {
	typ, ok := target.StorageType(hook.Variable)
	if !ok {
		return fmt.Errorf("hook pattern references unknown storage variable %q", hook.Variable)
	}
	if typ.IsMapping() && hook.KeyParam == nil {
		return fmt.Errorf("hook on mapping %q needs a [KEY ...] pattern", hook.Variable)
	}
	if !typ.IsMapping() && hook.KeyParam != nil {
		return fmt.Errorf("hook on scalar %q cannot use a [KEY ...] pattern", hook.Variable)
	}
	if hook.Kind == lang.HookSload && hook.OldParam != nil {
		return fmt.Errorf("Sload hook on %q cannot capture an old value", hook.Variable)
	}
	return nil
}

func walkExpr(e lang.Expr, visit func(lang.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch expr := e.(type) {
	case *lang.IndexExpr:
		walkExpr(expr.X, visit)
		walkExpr(expr.Index, visit)
	case *lang.CallExpr:
		for _, arg := range expr.Args {
			walkExpr(arg, visit)
		}
	case *lang.UnaryExpr:
		walkExpr(expr.X, visit)
	case *lang.BinaryExpr:
		walkExpr(expr.X, visit)
		walkExpr(expr.Y, visit)
	}
}
