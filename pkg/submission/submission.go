// The submission package defines the prediction records participants submit,
// their metadata, and the structural validation run before scoring.
//
// Validation is pure data inspection: submitted code is never executed or
// imported, which is the security boundary between participants and judging.
package submission

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/citebench/coldstart/pkg/graph"

	"github.com/google/uuid"
)

// Method is the closed set of ways a submission can be produced.
type Method string

const (
	MethodHuman  Method = "human"
	MethodLLM    Method = "llm"
	MethodHybrid Method = "hybrid"
)

var Methods = []Method{MethodHuman, MethodLLM, MethodHybrid}

func (m Method) Valid() bool {
	return slices.Contains(Methods, m)
}

// Metadata describes a submission. It is consumed by validation only,
// never by scoring.
type Metadata struct {
	TeamName    string `json:"team_name"`
	Method      Method `json:"method"`
	Description string `json:"description"`
}

// Prediction is one predicted citation: a test node Source citing a train
// node Target. Score is optional and used only to rank the predictions of a
// node for Hit@K; a prediction without score ranks below any scored one.
type Prediction struct {
	Source   graph.ID
	Target   graph.ID
	Score    float64
	HasScore bool
}

// Record is one row of a predictions file, kept as raw strings so that
// validation can report malformed values instead of failing the parse.
type Record struct {
	Source string
	Target string
	Score  string
}

// File is the parsed shape of a predictions file: the columns found in the
// header plus the raw records.
type File struct {
	Columns []string
	Records []Record
}

// Submission is one immutable judging input, identified by its RunID.
type Submission struct {
	RunID    string
	Metadata Metadata
	File     File
}

func New(meta Metadata, file File) Submission {
	return Submission{
		RunID:    uuid.NewString(),
		Metadata: meta,
		File:     file,
	}
}

// Predictions converts the raw records into typed predictions.
// It must be called only after validation has passed.
func (f File) Predictions() ([]Prediction, error) {
	preds := make([]Prediction, len(f.Records))
	for i, r := range f.Records {
		p, err := r.parse()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		preds[i] = p
	}
	return preds, nil
}

func (r Record) parse() (Prediction, error) {
	source, err := strconv.Atoi(r.Source)
	if err != nil {
		return Prediction{}, fmt.Errorf("source %q is not an integer", r.Source)
	}

	target, err := strconv.Atoi(r.Target)
	if err != nil {
		return Prediction{}, fmt.Errorf("target %q is not an integer", r.Target)
	}

	p := Prediction{Source: graph.ID(source), Target: graph.ID(target)}
	if r.Score == "" {
		return p, nil
	}

	score, err := strconv.ParseFloat(r.Score, 64)
	if err != nil {
		return Prediction{}, fmt.Errorf("score %q is not a number", r.Score)
	}

	p.Score = score
	p.HasScore = true
	return p, nil
}
