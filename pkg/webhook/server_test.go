package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammar0144/soql4go/pkg/querycache"
)

type fakeProcessor struct {
	events []querycache.ChangeEvent
	mode   querycache.InvalidationMode
	err    error
}

func (p *fakeProcessor) HandleChangeEvent(ctx context.Context, event querycache.ChangeEvent) (querycache.InvalidationMode, error) {
	p.events = append(p.events, event)
	if p.err != nil {
		return "", p.err
	}
	return p.mode, nil
}

func testServer(t *testing.T, mutate func(*Config)) (*Server, *fakeProcessor) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Secret = "hunter2"
	if mutate != nil {
		mutate(&cfg)
	}
	proc := &fakeProcessor{mode: querycache.ModeRecordLevel}
	srv, err := NewServer(cfg, proc, nil)
	require.NoError(t, err)
	return srv, proc
}

func cdcBody(entity, changeType string, ids ...string) []byte {
	payload := map[string]interface{}{
		"ChangeEventHeader": map[string]interface{}{
			"entityName": entity,
			"recordIds":  ids,
			"changeType": changeType,
		},
	}
	body, _ := json.Marshal(payload)
	return body
}

func postCDC(srv *Server, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/cdc", bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/health", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["webhook_invalidation_enabled"])
	assert.Equal(t, true, body["webhook_secret_configured"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestChangeEventWithSharedSecret(t *testing.T) {
	srv, proc := testServer(t, nil)

	rec := postCDC(srv, cdcBody("Account", "UPDATE", "001A", "001B"), map[string]string{
		secretHeader: "hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Account", body["entity"])
	assert.Equal(t, float64(2), body["records_affected"])
	assert.Equal(t, "record-level", body["invalidation_type"])

	require.Len(t, proc.events, 1)
	assert.Equal(t, querycache.ChangeEvent{
		Object:     "Account",
		RecordIDs:  []string{"001A", "001B"},
		ChangeType: querycache.ChangeUpdate,
	}, proc.events[0])
}

func TestChangeEventWithSignature(t *testing.T) {
	srv, proc := testServer(t, nil)
	body := cdcBody("Contact", "DELETE", "003A")

	rec := postCDC(srv, body, map[string]string{
		signatureHeader: Sign("hunter2", body),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, proc.events, 1)
}

func TestChangeEventObjectLevelResponse(t *testing.T) {
	srv, proc := testServer(t, nil)
	proc.mode = querycache.ModeObjectLevel

	rec := postCDC(srv, cdcBody("Account", "CREATE"), map[string]string{
		secretHeader: "hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "object-level", body["invalidation_type"])
	assert.Equal(t, float64(0), body["records_affected"])
}

func TestChangeEventRejectedWhenDisabled(t *testing.T) {
	srv, proc := testServer(t, func(c *Config) { c.Enabled = false })

	rec := postCDC(srv, cdcBody("Account", "UPDATE", "001A"), map[string]string{
		secretHeader: "hunter2",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, proc.events)
}

func TestChangeEventWrongSecret(t *testing.T) {
	srv, proc := testServer(t, nil)

	rec := postCDC(srv, cdcBody("Account", "UPDATE", "001A"), map[string]string{
		secretHeader: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, proc.events)
}

func TestChangeEventBadSignature(t *testing.T) {
	srv, proc := testServer(t, nil)
	body := cdcBody("Account", "UPDATE", "001A")

	tests := []struct {
		name string
		sig  string
	}{
		{"wrong key", Sign("other-key", body)},
		{"missing prefix", "deadbeef"},
		{"not hex", "sha256=zzzz"},
		{"absent", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.sig != "" {
				headers[signatureHeader] = tt.sig
			}
			rec := postCDC(srv, body, headers)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
	assert.Empty(t, proc.events)
}

func TestChangeEventValidationSkipped(t *testing.T) {
	srv, proc := testServer(t, func(c *Config) { c.RequireValidation = false })

	rec := postCDC(srv, cdcBody("Account", "UPDATE", "001A"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, proc.events, 1)
}

func TestChangeEventMalformedPayload(t *testing.T) {
	srv, _ := testServer(t, nil)

	rec := postCDC(srv, []byte("{not json"), map[string]string{
		secretHeader: "hunter2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangeEventMissingHeaderBlock(t *testing.T) {
	srv, _ := testServer(t, nil)

	rec := postCDC(srv, []byte(`{"payloadVersion": 1}`), map[string]string{
		secretHeader: "hunter2",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ChangeEventHeader is required", body["error"])
}

func TestChangeEventMissingEntity(t *testing.T) {
	srv, _ := testServer(t, nil)

	rec := postCDC(srv, cdcBody("", "UPDATE", "001A"), map[string]string{
		secretHeader: "hunter2",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "entityName")
}

func TestChangeEventUnknownChangeType(t *testing.T) {
	srv, _ := testServer(t, nil)

	rec := postCDC(srv, cdcBody("Account", "MERGE", "001A"), map[string]string{
		secretHeader: "hunter2",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "changeType")
}

func TestChangeEventProcessorFailure(t *testing.T) {
	srv, proc := testServer(t, nil)
	proc.err = errors.New("redis: connection refused")

	rec := postCDC(srv, cdcBody("Account", "UPDATE", "001A"), map[string]string{
		secretHeader: "hunter2",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.NotContains(t, body["error"], "redis", "internal detail must not leak")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Enabled = true
	assert.Error(t, cfg.Validate(), "enabled with validation requires a secret")

	cfg.RequireValidation = false
	assert.NoError(t, cfg.Validate())
}
