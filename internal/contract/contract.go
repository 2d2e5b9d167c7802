// Package contract holds the semantic model built from parsed contract
// files: storage layouts, function tables and interface surfaces the
// evaluator executes against.
package contract

import (
	"fmt"

	"gprover/internal/lang"
)

type Contract struct {
	Name          string
	Storage       map[string]*lang.Type
	StorageOrder  []string
	Functions     map[string]*lang.FunctionDecl
	Constructor   *lang.FunctionDecl
	functionOrder []string
}

func (c *Contract) Function(name string) (*lang.FunctionDecl, bool) {
	fn, ok := c.Functions[name]
	return fn, ok
}

func (c *Contract) FunctionNames() []string {
	return c.functionOrder
}

func (c *Contract) StorageType(name string) (*lang.Type, bool) {
	typ, ok := c.Storage[name]
	return typ, ok
}

// MutatingFunctions returns the operations an invariant's inductive step has
// to cover. View and pure functions cannot alter state and are skipped.
func (c *Contract) MutatingFunctions() []*lang.FunctionDecl {
	var result []*lang.FunctionDecl
	for _, name := range c.functionOrder {
		fn := c.Functions[name]
		if fn.Mutability == lang.MutDefault {
			result = append(result, fn)
		}
	}
	return result
}

type System struct {
	Contracts  map[string]*Contract
	Interfaces map[string]*lang.InterfaceDecl
	order      []string
}

func (s *System) Contract(name string) (*Contract, bool) {
	c, ok := s.Contracts[name]
	return c, ok
}

func (s *System) ContractNames() []string {
	return s.order
}

// Load builds the system model out of parsed files and performs the checks
// that do not need symbolic execution: duplicate names, storage fields with
// unknown interface types, duplicate functions.
func Load(files []*lang.File) (*System, error) {
	system := &System{
		Contracts:  make(map[string]*Contract),
		Interfaces: make(map[string]*lang.InterfaceDecl),
	}
	for _, file := range files {
		for _, iface := range file.Interfaces {
			if _, ok := system.Interfaces[iface.Name]; ok {
				return nil, fmt.Errorf("duplicate interface %q", iface.Name)
			}
			system.Interfaces[iface.Name] = iface
		}
	}
	for _, file := range files {
		for _, decl := range file.Contracts {
			if _, ok := system.Contracts[decl.Name]; ok {
				return nil, fmt.Errorf("duplicate contract %q", decl.Name)
			}
			c, err := buildContract(decl)
			if err != nil {
				return nil, err
			}
			system.Contracts[decl.Name] = c
			system.order = append(system.order, decl.Name)
		}
	}
	// interface-typed storage fields must reference a declared interface
	for _, c := range system.Contracts {
		for name, typ := range c.Storage {
			if typ.Kind != lang.TypeInterface {
				continue
			}
			if _, ok := system.Interfaces[typ.Name]; !ok {
				return nil, fmt.Errorf("contract %s: storage field %q has unknown interface type %q",
					c.Name, name, typ.Name)
			}
		}
	}
	return system, nil
}

func buildContract(decl *lang.ContractDecl) (*Contract, error) {
	c := &Contract{
		Name:      decl.Name,
		Storage:   make(map[string]*lang.Type),
		Functions: make(map[string]*lang.FunctionDecl),
	}
	for _, sv := range decl.Storage {
		if _, ok := c.Storage[sv.Name]; ok {
			return nil, fmt.Errorf("contract %s: duplicate storage variable %q", decl.Name, sv.Name)
		}
		c.Storage[sv.Name] = sv.Type
		c.StorageOrder = append(c.StorageOrder, sv.Name)
	}
	for _, fn := range decl.Functions {
		if fn.IsConstructor {
			if c.Constructor != nil {
				return nil, fmt.Errorf("contract %s: duplicate constructor", decl.Name)
			}
			c.Constructor = fn
			continue
		}
		if _, ok := c.Functions[fn.Name]; ok {
			return nil, fmt.Errorf("contract %s: duplicate function %q", decl.Name, fn.Name)
		}
		c.Functions[fn.Name] = fn
		c.functionOrder = append(c.functionOrder, fn.Name)
	}
	return c, nil
}
