package main

import (
	"fmt"
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"gprover/internal/lang"
)

var parseCommand = &cobra.Command{
	Use:   "parse",
	Short: "parse a contract or spec file and print what was found",
	Long:  ``,
	Run: func(*cobra.Command, []string) {
		if err := parseExec(); err != nil {
			fmt.Printf("service err: %v\n", err)
		}
	},
}

var (
	ParseFile string
	AsSpec    bool
)

func init() {
	parseCommand.Flags().StringVar(&ParseFile, "file", "", "file to parse")
	parseCommand.Flags().BoolVar(&AsSpec, "spec", false, "parse as a specification file")
}

func parseExec() error {
	src, err := ioutil.ReadFile(ParseFile)
	if err != nil {
		return errors.Wrapf(err, "read %s", ParseFile)
	}

	var file *lang.File
	if AsSpec {
		file, err = lang.ParseSpecSource(string(src))
	} else {
		file, err = lang.ParseContractSource(string(src))
	}
	if err != nil {
		return err
	}

	for _, c := range file.Contracts {
		fmt.Printf("contract %s\n", c.Name)
		for _, v := range c.Storage {
			fmt.Printf("  storage %s %s\n", v.Type.String(), v.Name)
		}
		for _, fn := range c.Functions {
			name := fn.Name
			if fn.IsConstructor {
				name = "constructor"
			}
			fmt.Printf("  function %s/%d\n", name, len(fn.Params))
		}
	}
	for _, iface := range file.Interfaces {
		fmt.Printf("interface %s (%d functions)\n", iface.Name, len(iface.Functions))
	}
	if file.Methods != nil {
		for _, entry := range file.Methods.Entries {
			fmt.Printf("method %s/%d envfree=%v\n", entry.Name, len(entry.Params), entry.Envfree)
		}
	}
	for _, rule := range file.Rules {
		fmt.Printf("rule %s/%d\n", rule.Name, len(rule.Params))
	}
	for _, inv := range file.Invariants {
		fmt.Printf("invariant %s (%d preserved blocks)\n", inv.Name, len(inv.Preserved))
	}
	for _, ghost := range file.Ghosts {
		kind := "ghost"
		if ghost.Persistent {
			kind = "persistent ghost"
		}
		fmt.Printf("%s %s %s\n", kind, ghost.Type.String(), ghost.Name)
	}
	for _, hook := range file.Hooks {
		kind := "Sstore"
		if hook.Kind == lang.HookSload {
			kind = "Sload"
		}
		fmt.Printf("hook %s %s\n", kind, hook.Variable)
	}
	return nil
}
