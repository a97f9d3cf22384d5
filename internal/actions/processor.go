// Package actions implements the Action Processor (C7): a user-ordered list
// of record transforms (setTag, includeData, excludeData, JMESPath filter)
// applied left-to-right. Grounded on producer/metrics/enrich.go's
// EnumRegistry.Resolve safe-fallback-on-no-match contract, generalized to
// whole-record transforms that never fail the caller.
package actions

import (
	"log/slog"
	"strings"

	"github.com/jmespath/go-jmespath"

	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

// Processor applies a component's action list to records.
type Processor struct {
	logger *slog.Logger
}

// New constructs a Processor.
func New(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Processor{logger: logger}
}

// Apply runs every enabled action against rec in order. Actions never
// propagate an error: a failing action is logged and skipped, leaving the
// record exactly as the prior action left it (§4.7).
func (p *Processor) Apply(list []models.ActionSpec, rec *models.Record) {
	for i, a := range list {
		if !p.applyOneMatch(a, rec) {
			continue
		}
		p.applyOne(i, a, rec)
	}
}

// applyOneMatch evaluates ifAllMatch, if present, against rec.Data; an empty
// condition set always matches.
func (p *Processor) applyOneMatch(a models.ActionSpec, rec *models.Record) bool {
	for path, want := range a.IfAllMatch {
		got, ok := lookupPath(rec.Data, path)
		if !ok || toString(got) != want {
			return false
		}
	}
	return true
}

func (p *Processor) applyOne(index int, a models.ActionSpec, rec *models.Record) {
	before := rec.Clone()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("actions: action panicked, continuing with pre-action record",
				"index", index, "panic", r)
			*rec = *before
		}
	}()

	if len(a.SetTag) > 0 {
		p.setTag(a.SetTag, rec)
	}
	if a.IncludePaths != nil {
		rec.Data = includePaths(rec.Data, a.IncludePaths)
	}
	if a.ExcludePaths != nil {
		rec.Data = excludePaths(rec.Data, a.ExcludePaths)
	}
	for outKey, expr := range a.JMESPath {
		result, err := jmespath.Search(expr, rec.Data)
		if err != nil {
			p.logger.Error("actions: jmespath expression failed", "expr", expr, "error", err.Error())
			*rec = *before
			return
		}
		if rec.Data == nil {
			rec.Data = map[string]any{}
		}
		rec.Data[outKey] = result
	}
}

// setTag merges literal tag values into rec.Tags, resolving back-tick
// placeholders (`T`, `A`) from the tenant/application inferred from the
// record's sourceId ("<namespace>::<system>::<poller>" style paths carry
// the tenant as the namespace segment; application resolution falls back to
// the second segment when present).
func (p *Processor) setTag(tags map[string]string, rec *models.Record) {
	if rec.Tags == nil {
		rec.Tags = map[string]string{}
	}
	tenant, app := tenantApplicationFromSourceID(rec.SourceID)
	for k, v := range tags {
		resolved := strings.NewReplacer("`T`", tenant, "`A`", app).Replace(v)
		rec.Tags[k] = resolved
	}
}

func tenantApplicationFromSourceID(sourceID string) (tenant, app string) {
	parts := strings.Split(sourceID, "::")
	if len(parts) > 0 {
		tenant = parts[0]
	}
	if len(parts) > 1 {
		app = parts[1]
	}
	return tenant, app
}

func lookupPath(data map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var cur any = data
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
