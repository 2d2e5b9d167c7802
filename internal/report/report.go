// Package report renders verification verdicts and counterexamples.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Status string

const (
	StatusVerified   Status = "VERIFIED"
	StatusViolated   Status = "VIOLATED"
	StatusIncomplete Status = "INCOMPLETE"
	StatusError      Status = "ERROR"
)

type Assignment struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Report struct {
	Name     string        `json:"name"`
	Kind     string        `json:"kind"` // "rule" or "invariant"
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Witness  []Assignment  `json:"counterexample,omitempty"`
	Duration time.Duration `json:"duration"`
	// SanityFailed flags a verified rule with no feasible non-reverting
	// path; the verdict stands but is vacuous.
	SanityFailed bool `json:"sanity_failed,omitempty"`
}

func (r *Report) AddWitness(name, value string) {
	r.Witness = append(r.Witness, Assignment{Name: name, Value: value})
}

func (r *Report) SortWitness() {
	sort.Slice(r.Witness, func(i, j int) bool {
		return r.Witness[i].Name < r.Witness[j].Name
	})
}

func (r *Report) String() string {
	color := 32
	if r.Status == StatusViolated || r.Status == StatusError {
		color = 31
	} else if r.Status == StatusIncomplete {
		color = 33
	}
	var b strings.Builder
	b.WriteString(Colour(color, fmt.Sprintf("[%s] %s %s (%.2fs)",
		r.Status, r.Kind, r.Name, r.Duration.Seconds())))
	if r.Message != "" {
		b.WriteString("\n  " + r.Message)
	}
	if r.SanityFailed {
		b.WriteString("\n  " + Colour(33, "sanity failed: no feasible non-reverting path"))
	}
	if len(r.Witness) > 0 {
		b.WriteString("\n  counterexample:")
		for _, a := range r.Witness {
			b.WriteString(fmt.Sprintf("\n    %s = %s", a.Name, a.Value))
		}
	}
	return b.String()
}

func Colour(color int, str string) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", color, str)
}

// Summary is the final one-line tally.
func Summary(reports []*Report) string {
	var verified, violated, incomplete, failed int
	for _, r := range reports {
		switch r.Status {
		case StatusVerified:
			verified++
		case StatusViolated:
			violated++
		case StatusIncomplete:
			incomplete++
		default:
			failed++
		}
	}
	return fmt.Sprintf("%d verified, %d violated, %d incomplete, %d errors",
		verified, violated, incomplete, failed)
}

// AnyViolation drives the nonzero process exit.
func AnyViolation(reports []*Report) bool {
	for _, r := range reports {
		if r.Status == StatusViolated || r.Status == StatusError {
			return true
		}
	}
	return false
}
