package redb

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/citebench/coldstart/pkg/graph"
	"github.com/citebench/coldstart/pkg/metrics"
)

// flushAll deletes all the keys of all existing databases. This command never fails.
func (db RedisDB) flushAll() {
	db.Client.FlushAll(context.Background())
}

func truth(node graph.ID) string {
	return KeyTruthPrefix + strconv.Itoa(int(node))
}

func report(runID string) string {
	return KeyReportPrefix + runID
}

// teamKey normalizes team names, making the one-submission rule case-insensitive.
func teamKey(team string) string {
	return strings.ToLower(strings.TrimSpace(team))
}

// toMembers converts IDs to the any-typed members redis commands accept.
func toMembers(ids []graph.ID) []any {
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = strconv.Itoa(int(id))
	}
	return members
}

// toIDs converts a slice of strings to sorted IDs.
func toIDs(members []string) ([]graph.ID, error) {
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]graph.ID, len(members))
	for i, m := range members {
		v, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer node id", m)
		}
		ids[i] = graph.ID(v)
	}

	slices.Sort(ids)
	return ids, nil
}

// reportFields flattens a report into the fields of a redis hash.
func reportFields(team string, rep metrics.Report) map[string]string {
	fields := map[string]string{
		ReportTeam:           team,
		ReportPrecision:      formatFloat(rep.Precision),
		ReportRecall:         formatFloat(rep.Recall),
		ReportF1:             formatFloat(rep.F1),
		ReportTruePositives:  strconv.Itoa(rep.TruePositives),
		ReportFalsePositives: strconv.Itoa(rep.FalsePositives),
		ReportFalseNegatives: strconv.Itoa(rep.FalseNegatives),
	}

	for k, hit := range rep.HitAtK {
		fields[ReportHitPrefix+strconv.Itoa(k)] = formatFloat(hit)
	}

	return fields
}

// parseReport parses the fields of a redis hash back into a report.
func parseReport(fields map[string]string) (metrics.Report, error) {
	rep := metrics.Report{
		HitAtK:    make(map[int]float64),
		Averaging: metrics.AveragingMicro,
	}

	var err error
	for key, val := range fields {
		switch {
		case key == ReportPrecision:
			rep.Precision, err = strconv.ParseFloat(val, 64)

		case key == ReportRecall:
			rep.Recall, err = strconv.ParseFloat(val, 64)

		case key == ReportF1:
			rep.F1, err = strconv.ParseFloat(val, 64)

		case key == ReportTruePositives:
			rep.TruePositives, err = strconv.Atoi(val)

		case key == ReportFalsePositives:
			rep.FalsePositives, err = strconv.Atoi(val)

		case key == ReportFalseNegatives:
			rep.FalseNegatives, err = strconv.Atoi(val)

		case strings.HasPrefix(key, ReportHitPrefix):
			var k int
			k, err = strconv.Atoi(strings.TrimPrefix(key, ReportHitPrefix))
			if err != nil {
				break
			}
			rep.HitAtK[k], err = strconv.ParseFloat(val, 64)
		}

		if err != nil {
			return metrics.Report{}, fmt.Errorf("failed to parse report field %s=%q: %w", key, val, err)
		}
	}

	return rep, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
