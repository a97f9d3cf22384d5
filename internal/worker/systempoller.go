package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/f5devcentral/telemetry-streaming-agent/internal/actions"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/httpclient"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/normalize"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/trace"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/vault"
	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

// defaultEndpoints are the well-known management paths polled when a system
// poller declares no explicit endpointList (§4.4 step 2).
var defaultEndpoints = []models.EndpointSpec{
	{Name: "deviceInfo", Path: "/mgmt/shared/identified-devices/config/device-info"},
	{Name: "virtualServers", Path: "/mgmt/tm/ltm/virtual/stats"},
	{Name: "pools", Path: "/mgmt/tm/ltm/pool/stats"},
}

// systemPoller executes one HTTP poll cycle for a Telemetry_System_Poller
// component, following the §4.4 cycle: resolve credentials, issue requests,
// normalize, tag with device context, apply actions, dispatch.
//
// Grounded on producer/metrics.Producer.Produce's shape (decode inputs,
// assemble one output record, log a debug summary) retargeted from a
// decoded SNMP varbind set to an HTTP JSON response body.
type systemPoller struct {
	pool      *httpclient.Pool
	vault     *vault.Vault
	processor *actions.Processor
	logger    *slog.Logger
	dispatch  func(ctx context.Context, rec models.Record)

	traceMu      sync.Mutex
	traceWriters map[string]*trace.Writer // poller id -> its ring-buffer writer

	ihealthMu sync.Mutex
	ihealth   map[string]*iHealthState // poller id -> in-progress iHealth run

	tokens *httpclient.TokenCache // cloud access tokens for TokenSource-based credentials
}

func newSystemPoller(pool *httpclient.Pool, v *vault.Vault, processor *actions.Processor, logger *slog.Logger, dispatch func(context.Context, models.Record)) *systemPoller {
	return &systemPoller{
		pool:         pool,
		vault:        v,
		processor:    processor,
		logger:       logger,
		dispatch:     dispatch,
		traceWriters: map[string]*trace.Writer{},
		ihealth:      map[string]*iHealthState{},
		tokens:       httpclient.NewTokenCache(),
	}
}

// traceWriterFor returns c's cached trace.Writer, constructing it on first
// use, or nil if tracing isn't enabled for c. Cached per poller id so the
// ring buffer persists across cycles instead of restarting empty every poll.
func (p *systemPoller) traceWriterFor(c models.Component) *trace.Writer {
	if !c.Trace.Enable {
		return nil
	}
	p.traceMu.Lock()
	defer p.traceMu.Unlock()
	if w, ok := p.traceWriters[c.ID]; ok {
		return w
	}
	w, err := trace.New(trace.Config{Path: c.Trace.Path}, p.logger)
	if err != nil {
		p.logger.Warn("worker: trace writer unavailable", "poller", c.ID, "path", c.Trace.Path, "error", err.Error())
		return nil
	}
	p.traceWriters[c.ID] = w
	return w
}

// Poll runs one cycle for c, whose Fields must be a models.SystemPollerFields.
func (p *systemPoller) Poll(ctx context.Context, c models.Component) {
	fields, ok := c.Fields.(models.SystemPollerFields)
	if !ok {
		p.logger.Error("worker: poll invoked on non-system-poller component", "id", c.ID)
		return
	}

	start := time.Now()
	rec, err := p.cycle(ctx, c, fields)
	if errors.Is(err, errIHealthPending) {
		p.logger.Debug("worker: ihealth cycle advanced, report not ready yet", "poller", c.ID)
		return
	}
	if err != nil {
		p.logger.Warn("worker: system poller cycle failed", "poller", c.ID, "error", err.Error())
		return
	}
	p.logger.Debug("worker: system poller cycle complete", "poller", c.ID, "duration_ms", time.Since(start).Milliseconds())
	p.dispatch(ctx, rec)
}

func (p *systemPoller) cycle(ctx context.Context, c models.Component, fields models.SystemPollerFields) (models.Record, error) {
	plain, err := p.vault.Resolve(ctx, fields.Credentials.Passphrase)
	if err != nil {
		return models.Record{}, fmt.Errorf("worker: resolve credentials: %w", err)
	}

	if fields.IsIHealthPoller {
		client := p.pool.Get(iHealthHost)
		return p.iHealthCycle(ctx, c, fields, client, plain)
	}

	endpoints := fields.Endpoints
	if len(endpoints) == 0 {
		endpoints = defaultEndpoints
	}

	target := httpclient.TargetKey(fields.Connection.Host, fields.Connection.Port)
	client := p.pool.Get(target)

	tracer := p.traceWriterFor(c)

	data := map[string]any{}
	for _, ep := range endpoints {
		body, err := p.fetch(ctx, client, fields, plain, ep)
		if err != nil {
			p.logger.Warn("worker: endpoint fetch failed", "poller", c.ID, "endpoint", ep.Name, "error", err.Error())
			continue
		}
		if tracer != nil && c.Trace.Type == "input" {
			if err := tracer.Write(map[string]any{"endpoint": ep.Name, "data": body}); err != nil {
				p.logger.Warn("worker: trace write failed", "poller", c.ID, "error", err.Error())
			}
		}
		data[ep.Name] = p.normalizeEndpoint(ep.Name, body)
	}

	data["hostname"] = fields.Connection.Host

	rec := models.Record{
		Timestamp:              time.Now().UTC(),
		TelemetryEventCategory: "systemInfo",
		SourceID:               c.ID,
		Namespace:              c.Namespace,
		Data:                   data,
		Tags:                   fields.Tag,
	}
	p.processor.Apply(fields.Actions, &rec)

	if tracer != nil && c.Trace.Type != "input" {
		if err := tracer.Write(rec); err != nil {
			p.logger.Warn("worker: trace write failed", "poller", c.ID, "error", err.Error())
		}
	}
	return rec, nil
}

// normalizeEndpoint restructures one endpoint's decoded body into the
// per-object-keyed-by-fully-qualified-name shape (§4.4 step 3), and applies
// the device-specific transforms (C8) that endpoint is known to need.
func (p *systemPoller) normalizeEndpoint(name string, body any) any {
	orig := body
	if arr, ok := body.([]any); ok {
		mapped, err := normalize.ArrayToMap(arr, normalize.ArrayToMapOptions{
			KeyNames:           []string{"name"},
			SkipWhenKeyMissing: true,
		})
		if err == nil {
			body = mapped
		}
	}

	switch name {
	case "deviceInfo":
		obj, ok := body.(map[string]any)
		if !ok {
			return body
		}
		if mac, ok := obj["macAddress"].(string); ok {
			obj["macAddress"] = normalize.MACNormalize(mac)
		}
		return obj
	case "asmPolicies":
		policies, ok := toMapSlice(orig)
		if !ok {
			return body
		}
		return map[string]any{
			"state":      normalize.ASMState(policies),
			"lastChange": normalize.ASMLastChange(policies),
		}
	default:
		return body
	}
}

// toMapSlice coerces a decoded JSON array (or an already array-to-map'd
// value) back into []map[string]any for normalizers that need the original
// policy list, e.g. ASM state/lastChange.
func toMapSlice(body any) ([]map[string]any, bool) {
	switch v := body.(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, true
	case map[string]any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func (p *systemPoller) fetch(ctx context.Context, client *http.Client, fields models.SystemPollerFields, plain models.Secret, ep models.EndpointSpec) (any, error) {
	scheme := fields.Connection.Protocol
	if scheme == "" {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s:%d%s", scheme, fields.Connection.Host, fields.Connection.Port, ep.Path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("worker: build request: %w", err)
	}
	switch fields.Credentials.TokenSource {
	case "gcp-metadata":
		tok, err := p.resolveGCPToken(ctx, fields.Connection.Host)
		if err != nil {
			return nil, fmt.Errorf("worker: resolve token: %w", err)
		}
		httpclient.ApplyBearer(req, tok)
	default:
		if fields.Credentials.Username != "" {
			req.SetBasicAuth(fields.Credentials.Username, plain.Plaintext)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("worker: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("worker: read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("worker: endpoint %s returned %d", ep.Name, resp.StatusCode)
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body), nil
	}
	return parsed, nil
}

// gcpTokenResponse is the subset of the GCE metadata server's service
// account token response (§4.5) this collector cares about.
type gcpTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// resolveGCPToken returns a cached Bearer token for target, refreshing it
// from the instance metadata server on a cache miss (P6).
func (p *systemPoller) resolveGCPToken(ctx context.Context, target string) (string, error) {
	if tok, ok := p.tokens.Get(target); ok {
		return tok, nil
	}

	raw, err := httpclient.GCPInstanceToken(ctx, "")
	if err != nil {
		return "", err
	}

	var parsed gcpTokenResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.AccessToken == "" {
		// Metadata server returned a bare token string instead of the usual
		// JSON envelope: cache it with a conservative default TTL.
		p.tokens.Set(target, raw, time.Now().Add(5*time.Minute))
		return raw, nil
	}

	ttl := time.Duration(parsed.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	p.tokens.Set(target, parsed.AccessToken, time.Now().Add(ttl))
	return parsed.AccessToken, nil
}

// iHealthHost and iHealthScheme address the cloud iHealth service an
// iHealth poller authenticates against, in place of a device
// connection.host (§4.4 supplement). Vars, not consts, so tests can point
// them at a local httptest server.
var (
	iHealthHost   = "ihealth2-api.f5.com"
	iHealthScheme = "https"
)

// errIHealthPending is returned by iHealthCycle when it has advanced the
// state machine but the multi-step protocol hasn't produced a record yet;
// Poll treats it as a non-failure, nothing-to-dispatch cycle.
var errIHealthPending = errors.New("worker: ihealth report not ready")

// iHealthPhase is one step of the iHealth poller's upload -> poll-for-
// report -> fetch protocol (§4.4 supplement).
type iHealthPhase int

const (
	iHealthUploading iHealthPhase = iota
	iHealthPolling
	iHealthFetching
	iHealthDone
)

// iHealthState tracks one poller's progress through the protocol across
// cycles; a poller id stays in Polling across multiple scheduler ticks
// until the report is ready.
type iHealthState struct {
	Phase    iHealthPhase
	ReportID string
}

// iHealthCycle advances c's iHealth state machine by exactly one phase per
// call. Uploading and Polling return errIHealthPending (nothing to
// dispatch yet); Fetching returns the finished record and resets to
// Uploading on the next cycle, mirroring the upload -> poll -> fetch ->
// restart protocol of the real service.
func (p *systemPoller) iHealthCycle(ctx context.Context, c models.Component, fields models.SystemPollerFields, client *http.Client, plain models.Secret) (models.Record, error) {
	p.ihealthMu.Lock()
	st, ok := p.ihealth[c.ID]
	if !ok {
		st = &iHealthState{Phase: iHealthUploading}
		p.ihealth[c.ID] = st
	}
	p.ihealthMu.Unlock()

	switch st.Phase {
	case iHealthUploading:
		id, err := p.ihealthUpload(ctx, client, fields, plain)
		if err != nil {
			return models.Record{}, fmt.Errorf("worker: ihealth upload: %w", err)
		}
		st.ReportID = id
		st.Phase = iHealthPolling
		return models.Record{}, errIHealthPending

	case iHealthPolling:
		ready, err := p.ihealthPoll(ctx, client, fields, plain, st.ReportID)
		if err != nil {
			return models.Record{}, fmt.Errorf("worker: ihealth poll: %w", err)
		}
		if !ready {
			return models.Record{}, errIHealthPending
		}
		st.Phase = iHealthFetching
		return models.Record{}, errIHealthPending

	case iHealthFetching:
		report, err := p.ihealthFetch(ctx, client, fields, plain, st.ReportID)
		if err != nil {
			return models.Record{}, fmt.Errorf("worker: ihealth fetch: %w", err)
		}
		st.Phase = iHealthDone
		rec := models.Record{
			Timestamp:              time.Now().UTC(),
			TelemetryEventCategory: "systemInfo",
			SourceID:               c.ID,
			Namespace:              c.Namespace,
			Data:                   map[string]any{"qkviewReport": report},
			Tags:                   fields.Tag,
		}
		p.processor.Apply(fields.Actions, &rec)
		return rec, nil

	default: // Done: start a fresh upload next cycle
		st.Phase = iHealthUploading
		st.ReportID = ""
		return models.Record{}, errIHealthPending
	}
}

func (p *systemPoller) ihealthUpload(ctx context.Context, client *http.Client, fields models.SystemPollerFields, plain models.Secret) (string, error) {
	body, err := p.doIHealthRequest(ctx, client, fields, plain, http.MethodPost, "/qkview-analyzer/api/qkviews")
	if err != nil {
		return "", err
	}
	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("worker: ihealth upload response: %w", err)
	}
	return parsed.ID, nil
}

func (p *systemPoller) ihealthPoll(ctx context.Context, client *http.Client, fields models.SystemPollerFields, plain models.Secret, reportID string) (bool, error) {
	body, err := p.doIHealthRequest(ctx, client, fields, plain, http.MethodGet, fmt.Sprintf("/qkview-analyzer/api/qkviews/%s", reportID))
	if err != nil {
		return false, err
	}
	var parsed struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("worker: ihealth poll response: %w", err)
	}
	return parsed.Status == "READY", nil
}

func (p *systemPoller) ihealthFetch(ctx context.Context, client *http.Client, fields models.SystemPollerFields, plain models.Secret, reportID string) (any, error) {
	body, err := p.doIHealthRequest(ctx, client, fields, plain, http.MethodGet, fmt.Sprintf("/qkview-analyzer/api/qkviews/%s/diagnostics", reportID))
	if err != nil {
		return nil, err
	}
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body), nil
	}
	return parsed, nil
}

func (p *systemPoller) doIHealthRequest(ctx context.Context, client *http.Client, fields models.SystemPollerFields, plain models.Secret, method, path string) ([]byte, error) {
	url := fmt.Sprintf("%s://%s%s", iHealthScheme, iHealthHost, path)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("worker: build ihealth request: %w", err)
	}
	if fields.Credentials.Username != "" {
		req.SetBasicAuth(fields.Credentials.Username, plain.Plaintext)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("worker: do ihealth request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("worker: read ihealth body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("worker: ihealth %s returned %d", path, resp.StatusCode)
	}
	return body, nil
}
