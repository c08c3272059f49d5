package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deadline-sync-api/internal/models"
	"github.com/noah-isme/deadline-sync-api/internal/service"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()

	schemaPath, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)
	return schema
}

func readPayload(t *testing.T, resp *http.Response) interface{} {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestSessionContract(t *testing.T) {
	schema := compileSchema(t, "session.schema.json")
	server := newTestServer(t, &syncServiceStub{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"access_token":"ya29.contract"}`))
	resp := server.do(t, req, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, schema.Validate(readPayload(t, resp)))
}

func TestSyncAnnouncementsContract(t *testing.T) {
	schema := compileSchema(t, "sync_result.schema.json")

	stub := &syncServiceStub{syncAnnouncements: func(models.Session) (service.SyncResult, error) {
		return service.SyncResult{
			Kind:    models.SyncKindAnnouncements,
			Total:   2,
			Success: 1,
			Failed:  1,
			Events: []service.SyncedEvent{
				{Title: "Unit 3 Quiz", CalendarID: "evt-1", Source: models.SourceAnnouncement},
			},
			CreatedEvents: []models.CreatedEvent{{
				ID:      "evt-1",
				Summary: "Quiz: Unit 3 Quiz (Due: 8:00 PM IST) - Math 101",
				Start:   models.EventTime{DateTime: "2025-09-15T20:00:00+05:30", TimeZone: "Asia/Kolkata"},
				End:     models.EventTime{DateTime: "2025-09-15T21:00:00+05:30", TimeZone: "Asia/Kolkata"},
				Type:    "announcement",
			}},
		}, nil
	}}
	server := newTestServer(t, stub)
	_, token := server.login(t)

	resp := server.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/sync/announcements", nil), token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, schema.Validate(readPayload(t, resp)))
}

func TestSyncContractRejectsMissingCounts(t *testing.T) {
	schema := compileSchema(t, "sync_result.schema.json")

	var payload interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"success":true,"message":"ok","data":{"kind":"assignments","total":1}}`), &payload))
	require.Error(t, schema.Validate(payload))
}
