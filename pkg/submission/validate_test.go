package submission

import (
	"strings"
	"testing"

	"github.com/citebench/coldstart/pkg/graph"
)

var testDomain = NewDomain(
	[]graph.ID{801, 802, 803},
	[]graph.ID{7, 13, 42, 156},
	2,
)

var testMeta = Metadata{
	TeamName:    "team_alpha",
	Method:      MethodLLM,
	Description: "feature similarity baseline",
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name         string
		file         File
		meta         Metadata
		requireScore bool

		ok           bool
		errContains  string
		warnContains string
	}{
		{
			name: "valid submission",
			file: File{
				Columns: []string{"source", "target", "score"},
				Records: []Record{
					{Source: "801", Target: "42", Score: "0.9"},
					{Source: "802", Target: "13", Score: "0.8"},
				},
			},
			meta: testMeta,
			ok:   true,
		},
		{
			name: "missing target column",
			file: File{
				Columns: []string{"source", "score"},
				Records: []Record{{Source: "801", Score: "0.9"}},
			},
			meta:        testMeta,
			ok:          false,
			errContains: "missing required column: target",
		},
		{
			name:        "empty prediction set",
			file:        File{Columns: []string{"source", "target"}},
			meta:        testMeta,
			ok:          false,
			errContains: "empty",
		},
		{
			name: "source not in test-node space",
			file: File{
				Columns: []string{"source", "target"},
				Records: []Record{{Source: "42", Target: "13"}},
			},
			meta:        testMeta,
			ok:          false,
			errContains: "not a test node",
		},
		{
			name: "target not in train-node space",
			file: File{
				Columns: []string{"source", "target"},
				Records: []Record{{Source: "801", Target: "802"}},
			},
			meta:        testMeta,
			ok:          false,
			errContains: "not a train node",
		},
		{
			name: "non-numeric score",
			file: File{
				Columns: []string{"source", "target", "score"},
				Records: []Record{{Source: "801", Target: "42", Score: "high"}},
			},
			meta:        testMeta,
			ok:          false,
			errContains: "not a number",
		},
		{
			name: "missing score when required",
			file: File{
				Columns: []string{"source", "target", "score"},
				Records: []Record{{Source: "801", Target: "42"}},
			},
			meta:         testMeta,
			requireScore: true,
			ok:           false,
			errContains:  "score is required",
		},
		{
			name: "duplicate pairs are a warning",
			file: File{
				Columns: []string{"source", "target"},
				Records: []Record{
					{Source: "801", Target: "42"},
					{Source: "801", Target: "42"},
				},
			},
			meta:         testMeta,
			ok:           true,
			warnContains: "duplicate",
		},
		{
			name: "fan-out above bound is a warning",
			file: File{
				Columns: []string{"source", "target"},
				Records: []Record{
					{Source: "801", Target: "7"},
					{Source: "801", Target: "13"},
					{Source: "801", Target: "42"},
				},
			},
			meta:         testMeta,
			ok:           true,
			warnContains: "fan-out",
		},
		{
			name: "unknown method is a warning",
			file: File{
				Columns: []string{"source", "target"},
				Records: []Record{{Source: "801", Target: "42"}},
			},
			meta:         Metadata{TeamName: "team_alpha", Method: "oracle", Description: "d"},
			ok:           true,
			warnContains: "method",
		},
		{
			name: "empty team name",
			file: File{
				Columns: []string{"source", "target"},
				Records: []Record{{Source: "801", Target: "42"}},
			},
			meta:        Metadata{Method: MethodHuman, Description: "d"},
			ok:          false,
			errContains: "team_name",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			domain := testDomain
			domain.RequireScore = test.requireScore

			res := Validate(Submission{Metadata: test.meta, File: test.file}, domain)
			if res.OK != test.ok {
				t.Fatalf("expected ok %v, got %v (errors %v)", test.ok, res.OK, res.Errors)
			}

			if test.errContains != "" && !containsSubstring(res.Errors, test.errContains) {
				t.Errorf("expected an error containing %q, got %v", test.errContains, res.Errors)
			}

			if test.warnContains != "" && !containsSubstring(res.Warnings, test.warnContains) {
				t.Errorf("expected a warning containing %q, got %v", test.warnContains, res.Warnings)
			}
		})
	}
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func TestFilePredictions(t *testing.T) {
	file := File{
		Columns: []string{"source", "target", "score"},
		Records: []Record{
			{Source: "801", Target: "42", Score: "0.9"},
			{Source: "802", Target: "13"},
		},
	}

	preds, err := file.Predictions()
	if err != nil {
		t.Fatalf("failed to parse predictions: %v", err)
	}

	expected := []Prediction{
		{Source: 801, Target: 42, Score: 0.9, HasScore: true},
		{Source: 802, Target: 13},
	}

	for i, p := range preds {
		if p != expected[i] {
			t.Errorf("row %d: expected %v, got %v", i, expected[i], p)
		}
	}
}

func TestMethodValid(t *testing.T) {
	for _, m := range Methods {
		if !m.Valid() {
			t.Errorf("expected method %q to be valid", m)
		}
	}

	if Method("oracle").Valid() {
		t.Error("expected method oracle to be invalid")
	}
}
