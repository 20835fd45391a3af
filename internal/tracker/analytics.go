package tracker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/compliance-engine/go-core/pkg/types"
)

// Pattern is a cluster of recent violations sharing a type and standard.
// Clusters larger than the systemic threshold indicate a process failure
// rather than isolated incidents.
type Pattern struct {
	Code           string    `json:"violation_type"`
	Standard       string    `json:"standard"`
	Count          int       `json:"count"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
	Resources      []string  `json:"resources"`
	Systemic       bool      `json:"systemic"`
	Recommendation string    `json:"recommendation,omitempty"`
}

// patternWindow is how far back pattern detection looks.
const patternWindow = 30 * 24 * time.Hour

// systemicThreshold is the cluster size above which a pattern is systemic.
const systemicThreshold = 3

// DetectPatterns clusters the trailing month of violations by type and
// standard. Clusters with more than three occurrences are marked systemic
// with a remediation recommendation.
func (t *Tracker) DetectPatterns(ctx context.Context) ([]Pattern, error) {
	since := t.now().Add(-patternWindow)
	recent, err := t.store.Query(ctx, &Filter{DetectedFrom: since})
	if err != nil {
		return nil, fmt.Errorf("failed to query recent violations: %w", err)
	}

	type key struct {
		code     string
		standard string
	}
	clusters := make(map[key][]*types.Violation)
	for _, v := range recent {
		k := key{code: v.Code, standard: v.Standard}
		clusters[k] = append(clusters[k], v)
	}

	var patterns []Pattern
	for k, vs := range clusters {
		p := Pattern{
			Code:      k.code,
			Standard:  k.standard,
			Count:     len(vs),
			FirstSeen: vs[0].DetectedAt,
			LastSeen:  vs[0].DetectedAt,
		}
		seen := make(map[string]bool)
		for _, v := range vs {
			if v.DetectedAt.Before(p.FirstSeen) {
				p.FirstSeen = v.DetectedAt
			}
			if v.DetectedAt.After(p.LastSeen) {
				p.LastSeen = v.DetectedAt
			}
			res := v.ResourceType + "/" + v.ResourceID
			if !seen[res] {
				seen[res] = true
				p.Resources = append(p.Resources, res)
			}
		}
		sort.Strings(p.Resources)

		if p.Count > systemicThreshold {
			p.Systemic = true
			p.Recommendation = fmt.Sprintf(
				"%d occurrences of %s under %s in 30 days indicate a systemic process failure; review the underlying workflow rather than resolving incidents individually",
				p.Count, k.code, k.standard)
		}
		patterns = append(patterns, p)
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].Code < patterns[j].Code
	})
	return patterns, nil
}

// ResourceCount pairs a resource with its violation count.
type ResourceCount struct {
	Resource string `json:"resource"`
	Count    int    `json:"count"`
}

// TrendPoint is one day of the violation trend.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Analytics summarizes the violation population over a reporting window.
type Analytics struct {
	WindowStart        time.Time       `json:"window_start"`
	WindowEnd          time.Time       `json:"window_end"`
	Total              int             `json:"total"`
	Resolved           int             `json:"resolved"`
	Unresolved         int             `json:"unresolved"`
	AvgResolutionHours float64         `json:"avg_resolution_hours"`
	ByType             map[string]int  `json:"by_type"`
	BySeverity         map[string]int  `json:"by_severity"`
	ByStandard         map[string]int  `json:"by_standard"`
	TopResources       []ResourceCount `json:"top_resources"`
	DailyTrend         []TrendPoint    `json:"daily_trend"`
}

// topResourceLimit caps the most-violated-resources list.
const topResourceLimit = 10

// Report computes analytics for violations detected within the window.
func (t *Tracker) Report(ctx context.Context, from, to time.Time) (*Analytics, error) {
	if to.IsZero() {
		to = t.now()
	}

	violations, err := t.store.Query(ctx, &Filter{DetectedFrom: from, DetectedTo: to})
	if err != nil {
		return nil, fmt.Errorf("failed to query violations for report: %w", err)
	}

	report := &Analytics{
		WindowStart: from,
		WindowEnd:   to,
		Total:       len(violations),
		ByType:      make(map[string]int),
		BySeverity:  make(map[string]int),
		ByStandard:  make(map[string]int),
	}

	byResource := make(map[string]int)
	byDay := make(map[string]int)
	var resolutionHours float64
	var resolvedWithTimes int

	for _, v := range violations {
		report.ByType[v.Code]++
		report.BySeverity[string(v.Severity)]++
		report.ByStandard[v.Standard]++
		byResource[v.ResourceType+"/"+v.ResourceID]++
		byDay[v.DetectedAt.UTC().Format("2006-01-02")]++

		if v.Status.Terminal() {
			report.Resolved++
			if v.ResolvedAt != nil {
				resolutionHours += v.ResolvedAt.Sub(v.DetectedAt).Hours()
				resolvedWithTimes++
			}
		} else {
			report.Unresolved++
		}
	}

	if resolvedWithTimes > 0 {
		report.AvgResolutionHours = resolutionHours / float64(resolvedWithTimes)
	}

	for res, count := range byResource {
		report.TopResources = append(report.TopResources, ResourceCount{Resource: res, Count: count})
	}
	sort.Slice(report.TopResources, func(i, j int) bool {
		if report.TopResources[i].Count != report.TopResources[j].Count {
			return report.TopResources[i].Count > report.TopResources[j].Count
		}
		return report.TopResources[i].Resource < report.TopResources[j].Resource
	})
	if len(report.TopResources) > topResourceLimit {
		report.TopResources = report.TopResources[:topResourceLimit]
	}

	for day, count := range byDay {
		report.DailyTrend = append(report.DailyTrend, TrendPoint{Date: day, Count: count})
	}
	sort.Slice(report.DailyTrend, func(i, j int) bool {
		return report.DailyTrend[i].Date < report.DailyTrend[j].Date
	})

	return report, nil
}
