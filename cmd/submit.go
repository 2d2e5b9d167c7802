package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"gprover/internal/report"
	"gprover/internal/util"
)

var submitCommand = &cobra.Command{
	Use:   "submit",
	Short: "upload a results file to the reporting endpoint",
	Long:  ``,
	Run: func(*cobra.Command, []string) {
		if err := submitExec(); err != nil {
			fmt.Printf("service err: %v\n", err)
		}
	},
}

var (
	ResultsFile string
	FetchID     string
)

func init() {
	submitCommand.Flags().StringVar(&ResultsFile, "results", "", "results JSON written by verify --out")
	submitCommand.Flags().StringVar(&FetchID, "fetch", "", "print a previously submitted result by id")
}

func submitExec() error {
	endpoint := os.Getenv("GPROVER_ENDPOINT")
	if endpoint == "" {
		return errors.New("GPROVER_ENDPOINT not set")
	}
	if FetchID != "" {
		return fetchExec(endpoint)
	}
	data, err := ioutil.ReadFile(ResultsFile)
	if err != nil {
		return errors.Wrapf(err, "read %s", ResultsFile)
	}

	req, err := util.NewSubmitRequest(endpoint, os.Getenv("GPROVER_KEY"), bytes.NewReader(data))
	if err != nil {
		return err
	}
	resp, err := util.Do(req)
	if err != nil {
		return errors.Wrap(err, "submit")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := ioutil.ReadAll(resp.Body)
		return errors.Errorf("submit rejected: %s %s", resp.Status, body)
	}
	fmt.Println("submitted")
	return nil
}

// fetchExec pulls a stored results document back from the endpoint and
// prints it the way verify does.
func fetchExec(endpoint string) error {
	var reports []*report.Report
	url := strings.TrimRight(endpoint, "/") + "/" + FetchID
	if err := util.GetJSON(url, &reports); err != nil {
		return errors.Wrapf(err, "fetch %s", FetchID)
	}
	for _, rep := range reports {
		fmt.Println(rep.String())
	}
	fmt.Println(report.Summary(reports))
	return nil
}
