package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"gprover/internal/config"
	"gprover/internal/contract"
	"gprover/internal/funcs"
	"gprover/internal/lang"
	"gprover/internal/report"
	"gprover/internal/spec"
	"gprover/internal/verifier"
)

var verifyCommand = &cobra.Command{
	Use:   "verify",
	Short: "verify a contract against its specification",
	Long:  ``,
	Run: func(*cobra.Command, []string) {
		violated, err := verifyExec()
		if err != nil {
			fmt.Printf("service err: %v\n", err)
			os.Exit(1)
		}
		if violated {
			os.Exit(1)
		}
	},
}

var (
	ConfigFile     string
	ContractFiles  []string
	SpecFile       string
	VerifyContract string
	SelectedRules  []string
	LoopIter       int
	OptimisticLoop bool
	OutFile        string
)

func init() {
	verifyCommand.Flags().StringVar(&ConfigFile, "config", "", "run configuration file")
	verifyCommand.Flags().StringSliceVar(&ContractFiles, "files", nil, "contract source files")
	verifyCommand.Flags().StringVar(&SpecFile, "spec", "", "specification file")
	verifyCommand.Flags().StringVar(&VerifyContract, "verify", "", "contract under verification")
	verifyCommand.Flags().StringSliceVar(&SelectedRules, "rule", nil, "check only the named rules")
	verifyCommand.Flags().IntVar(&LoopIter, "loop-iter", 0, "loop unrolling bound")
	verifyCommand.Flags().BoolVar(&OptimisticLoop, "optimistic-loop", false, "assume loops exit within the bound")
	verifyCommand.Flags().StringVar(&OutFile, "out", "", "write results as JSON")
}

func buildConfig() (*config.Config, error) {
	var cfg *config.Config
	if ConfigFile != "" {
		loaded, err := config.ReadConfigFromFile(ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}
	if len(ContractFiles) > 0 {
		cfg.Files = ContractFiles
	}
	if SpecFile != "" {
		cfg.Spec = SpecFile
	}
	if VerifyContract != "" {
		cfg.Verify = VerifyContract
	}
	if len(SelectedRules) > 0 {
		cfg.Rules = SelectedRules
	}
	if LoopIter > 0 {
		cfg.LoopIter = LoopIter
	}
	if OptimisticLoop {
		cfg.OptimisticLoop = true
	}
	return cfg, cfg.Validate()
}

// loadSystem parses the contract files into the semantic model.
func loadSystem(cfg *config.Config) (*contract.System, error) {
	var files []*lang.File
	for _, path := range cfg.Files {
		src, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		file, err := lang.ParseContractSource(string(src))
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
		files = append(files, file)
	}
	return contract.Load(files)
}

func loadSpec(cfg *config.Config, system *contract.System) (*spec.Spec, error) {
	src, err := ioutil.ReadFile(cfg.Spec)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", cfg.Spec)
	}
	file, err := lang.ParseSpecSource(string(src))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", cfg.Spec)
	}
	target, ok := system.Contract(cfg.Verify)
	if !ok {
		return nil, errors.Errorf("contract %q not found in the loaded files", cfg.Verify)
	}
	return spec.Load(file, target)
}

func verifyExec() (bool, error) {
	cfg, err := buildConfig()
	if err != nil {
		return false, err
	}

	yices2.Init()
	defer yices2.Exit()
	funcs.Init()

	system, err := loadSystem(cfg)
	if err != nil {
		return false, err
	}
	sp, err := loadSpec(cfg, system)
	if err != nil {
		return false, err
	}
	v, err := verifier.New(system, sp, cfg)
	if err != nil {
		return false, err
	}

	reports := v.Run()
	for _, rep := range reports {
		fmt.Println(rep.String())
	}
	fmt.Println(report.Summary(reports))

	if OutFile != "" {
		if err := writeReports(OutFile, reports); err != nil {
			return false, err
		}
	}
	return report.AnyViolation(reports), nil
}

func writeReports(path string, reports []*report.Report) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal reports")
	}
	return ioutil.WriteFile(path, data, 0644)
}
