// Package config reads the JSON run configuration naming the contract
// files, the spec file and the engine options.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

type Config struct {
	// Files are the contract source files to load.
	Files []string `json:"files"`
	// Spec is the specification file checked against Verify.
	Spec string `json:"spec"`
	// Verify names the contract under verification.
	Verify string `json:"verify"`
	// LoopIter bounds loop unrolling; paths needing more iterations are
	// reported incomplete unless OptimisticLoop is set.
	LoopIter int `json:"loop_iter"`
	// OptimisticLoop assumes loops exit within LoopIter iterations instead
	// of reporting the unexplored tail. Unsound by construction.
	OptimisticLoop bool `json:"optimistic_loop"`
	// Rules filters which rules and invariants run; empty runs all.
	Rules []string `json:"rule"`
	// Timeout is the per-rule budget in seconds.
	Timeout int `json:"timeout"`
	// Link binds an interface-typed storage field ("Contract.field") to a
	// concrete implementation contract.
	Link map[string]string `json:"link"`
	// Dispatcher lists candidate implementations tried for calls through an
	// interface. An under-approximation: only the listed candidates are
	// modeled.
	Dispatcher map[string][]string `json:"dispatcher"`
}

func DefaultConfig() *Config {
	return &Config{
		LoopIter: 1,
		Timeout:  300,
	}
}

func ReadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg := DefaultConfig()
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if len(cfg.Files) == 0 {
		return fmt.Errorf("config: no contract files")
	}
	if cfg.Spec == "" {
		return fmt.Errorf("config: no spec file")
	}
	if cfg.Verify == "" {
		return fmt.Errorf("config: no contract to verify")
	}
	if cfg.LoopIter < 1 {
		return fmt.Errorf("config: loop_iter must be at least 1")
	}
	if cfg.Timeout < 1 {
		return fmt.Errorf("config: timeout must be at least 1 second")
	}
	for key := range cfg.Link {
		if !strings.Contains(key, ".") {
			return fmt.Errorf("config: link key %q is not of the form Contract.field", key)
		}
	}
	return nil
}

// RuleSelected reports whether a rule or invariant name passes the filter.
func (cfg *Config) RuleSelected(name string) bool {
	if len(cfg.Rules) == 0 {
		return true
	}
	for _, rule := range cfg.Rules {
		if rule == name {
			return true
		}
	}
	return false
}

// LinkTarget resolves the linked implementation of contractName.field.
func (cfg *Config) LinkTarget(contractName, field string) (string, bool) {
	target, ok := cfg.Link[contractName+"."+field]
	return target, ok
}
