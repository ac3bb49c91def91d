package submission

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/citebench/coldstart/pkg/graph"
)

// RequiredColumns are the columns every predictions file must carry.
// The score column is required only when [Domain.RequireScore] is set.
var RequiredColumns = []string{"source", "target"}

// Domain is the id space predictions must draw from, published with the
// dataset. MaxFanOut bounds the predictions per test node above which a
// warning is raised.
type Domain struct {
	TestNodes  map[graph.ID]struct{}
	TrainNodes map[graph.ID]struct{}

	MaxFanOut    int
	RequireScore bool
}

// NewDomain builds the validation domain from the published node sets.
func NewDomain(testNodes, trainNodes []graph.ID, maxFanOut int) Domain {
	domain := Domain{
		TestNodes:  make(map[graph.ID]struct{}, len(testNodes)),
		TrainNodes: make(map[graph.ID]struct{}, len(trainNodes)),
		MaxFanOut:  maxFanOut,
	}

	for _, node := range testNodes {
		domain.TestNodes[node] = struct{}{}
	}
	for _, node := range trainNodes {
		domain.TrainNodes[node] = struct{}{}
	}
	return domain
}

// Result of validating one submission. Errors reject the submission before
// any scoring is attempted; warnings are reported but do not.
type Result struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate structurally checks a submission against the domain.
// Hard failures: missing required columns, empty prediction set, malformed
// values, source not a test node, target not a train node.
// Warnings: duplicate pairs, excessive per-node fan-out, unknown method,
// empty description.
func Validate(sub Submission, domain Domain) Result {
	var res Result

	required := RequiredColumns
	if domain.RequireScore {
		required = append(slices.Clone(required), "score")
	}

	for _, col := range required {
		if !slices.Contains(sub.File.Columns, col) {
			res.errorf("missing required column: %s", col)
		}
	}

	if len(res.Errors) > 0 {
		// without the required columns the records cannot be interpreted
		res.OK = false
		return res
	}

	if len(sub.File.Records) == 0 {
		res.errorf("prediction set is empty")
	}

	validateRecords(&res, sub.File.Records, domain)
	validateMetadata(&res, sub.Metadata)

	res.OK = len(res.Errors) == 0
	return res
}

func validateRecords(res *Result, records []Record, domain Domain) {
	type pair struct{ source, target graph.ID }

	seen := make(map[pair]struct{}, len(records))
	fanOut := make(map[graph.ID]int)
	duplicates := 0

	for i, r := range records {
		if domain.RequireScore && strings.TrimSpace(r.Score) == "" {
			res.errorf("row %d: score is required but missing", i+1)
			continue
		}

		if r.Score != "" {
			if _, err := strconv.ParseFloat(r.Score, 64); err != nil {
				res.errorf("row %d: score %q is not a number", i+1, r.Score)
				continue
			}
		}

		source, err := strconv.Atoi(r.Source)
		if err != nil {
			res.errorf("row %d: source %q is not an integer", i+1, r.Source)
			continue
		}

		target, err := strconv.Atoi(r.Target)
		if err != nil {
			res.errorf("row %d: target %q is not an integer", i+1, r.Target)
			continue
		}

		if _, ok := domain.TestNodes[graph.ID(source)]; !ok {
			res.errorf("row %d: source %d is not a test node", i+1, source)
			continue
		}

		if _, ok := domain.TrainNodes[graph.ID(target)]; !ok {
			res.errorf("row %d: target %d is not a train node", i+1, target)
			continue
		}

		p := pair{graph.ID(source), graph.ID(target)}
		if _, ok := seen[p]; ok {
			duplicates++
			continue
		}

		seen[p] = struct{}{}
		fanOut[p.source]++
	}

	if duplicates > 0 {
		res.warnf("%d duplicate (source,target) pairs; duplicates are deduplicated before scoring", duplicates)
	}

	if domain.MaxFanOut > 0 {
		nodes := make([]graph.ID, 0, len(fanOut))
		for node := range fanOut {
			nodes = append(nodes, node)
		}
		slices.Sort(nodes) // stable warning order across runs

		for _, node := range nodes {
			if fanOut[node] > domain.MaxFanOut {
				res.warnf("node %d has %d predictions, above the expected fan-out of %d", node, fanOut[node], domain.MaxFanOut)
			}
		}
	}
}

func validateMetadata(res *Result, meta Metadata) {
	if meta.TeamName == "" {
		res.errorf("metadata: team_name is empty")
	}

	if !meta.Method.Valid() {
		res.warnf("metadata: method %q is not one of %v", meta.Method, Methods)
	}

	if strings.TrimSpace(meta.Description) == "" {
		res.warnf("metadata: description is empty")
	}
}
