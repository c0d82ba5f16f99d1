package validation

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mahakg290399/data-quality-checks/internal/logger"
)

// Engine applies every registered rule to every record and aggregates the
// findings into an ordered report. Records are independent units, so the
// engine fans them out across a worker pool; each worker keeps its own
// finding slice and a single merge step groups them after all workers
// finish. No shared counters, no locking on the hot path.
type Engine struct {
	registry *Registry
	workers  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of concurrent record workers. Values below 1
// fall back to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine creates an engine over a populated registry.
func NewEngine(registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// indexedFinding carries the registration index of the producing rule so
// the merge step can order groups without depending on input order or
// worker interleaving.
type indexedFinding struct {
	finding  Finding
	ruleIdx  int
	fieldIdx int
}

// Validate applies the full rule set to every record and returns the
// aggregated report. It fails when the registry itself is invalid or the
// context is cancelled mid-run; malformed records produce findings, never
// an error.
func (e *Engine) Validate(ctx context.Context, records []Record) (*Report, error) {
	if err := e.registry.Validate(); err != nil {
		return nil, err
	}

	rules := e.registry.Rules()
	start := time.Now()

	workers := e.workers
	if workers > len(records) {
		workers = len(records)
	}
	if workers < 1 {
		workers = 1
	}

	perWorker := make([][]indexedFinding, workers)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range jobs {
				perWorker[w] = e.evaluateRecord(rules, records[i], perWorker[w])
			}
		}(w)
	}

feed:
	for i := range records {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)

	// Barrier: every worker must finish before findings are merged, or the
	// group counts would be wrong.
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var pooled []indexedFinding
	for _, findings := range perWorker {
		pooled = append(pooled, findings...)
	}

	report := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Records:     len(records),
		Issues:      e.aggregate(pooled),
	}

	logger.TotalRuns.Add(1)
	logger.TotalRecords.Add(int64(len(records)))
	logger.TotalFindings.Add(int64(len(pooled)))
	logger.Debug("validation run complete",
		"report_id", report.ID,
		"records", len(records),
		"findings", len(pooled),
		"issue_groups", len(report.Issues),
		"duration", time.Since(start).String(),
	)

	return report, nil
}

// evaluateRecord applies every rule to one record in registration order.
// Each rule contributes at most one finding.
func (e *Engine) evaluateRecord(rules []Rule, rec Record, out []indexedFinding) []indexedFinding {
	for idx, rule := range rules {
		finding, failed := rule.Evaluate(rec)
		if !failed {
			continue
		}
		finding.RecordID = rec.ID
		out = append(out, indexedFinding{
			finding:  finding,
			ruleIdx:  idx,
			fieldIdx: e.registry.FieldIndex(finding.Field),
		})
	}
	return out
}

type groupKey struct {
	field string
	issue string
}

// aggregate pools findings into groups keyed by (field, issue) and orders
// them deterministically: declared fields in registration order first, then
// synthetic cross-field labels by the registration order of their first
// producing rule. Input permutation cannot change the output.
func (e *Engine) aggregate(findings []indexedFinding) []IssueGroup {
	counts := make(map[groupKey]int)
	firstRule := make(map[groupKey]int)
	fieldIdx := make(map[groupKey]int)

	for _, f := range findings {
		key := groupKey{field: f.finding.Field, issue: f.finding.Issue}
		counts[key]++
		if prev, seen := firstRule[key]; !seen || f.ruleIdx < prev {
			firstRule[key] = f.ruleIdx
		}
		fieldIdx[key] = f.fieldIdx
	}

	groups := make([]IssueGroup, 0, len(counts))
	keys := make([]groupKey, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		ai, bi := fieldIdx[a], fieldIdx[b]
		// Undeclared fields (cross-field labels) sort after all declared
		// fields.
		if ai < 0 {
			ai = int(^uint(0) >> 1)
		}
		if bi < 0 {
			bi = int(^uint(0) >> 1)
		}
		if ai != bi {
			return ai < bi
		}
		if firstRule[a] != firstRule[b] {
			return firstRule[a] < firstRule[b]
		}
		return a.issue < b.issue
	})

	for _, key := range keys {
		groups = append(groups, IssueGroup{
			Field: key.field,
			Issue: key.issue,
			Count: counts[key],
		})
	}
	return groups
}
