package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pipewatch/internal/awsclient"
	"pipewatch/internal/models"
	"pipewatch/internal/service/engine"
)

type fakeState struct {
	snapshot    *models.SyncSnapshot
	snapshotErr error
	settings    models.Settings
	settingsErr error
	saved       []models.Settings
	saveErr     error
}

func (f *fakeState) GetSnapshot() (*models.SyncSnapshot, error) {
	return f.snapshot, f.snapshotErr
}

func (f *fakeState) GetSettings() (models.Settings, error) {
	return f.settings, f.settingsErr
}

func (f *fakeState) SaveSettings(settings models.Settings) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, settings)
	return nil
}

type fakeApprover struct {
	approvals []models.PendingApproval
	err       error
}

func (f *fakeApprover) Approve(_ context.Context, approval models.PendingApproval) error {
	if f.err != nil {
		return f.err
	}
	f.approvals = append(f.approvals, approval)
	return nil
}

type fakeTrigger struct {
	triggered int
}

func (f *fakeTrigger) TriggerNow() {
	f.triggered++
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthz(t *testing.T) {
	server := NewServer(&fakeState{}, &fakeApprover{}, &fakeTrigger{})
	recorder := doRequest(t, server, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestStatusNotFoundBeforeFirstCycle(t *testing.T) {
	server := NewServer(&fakeState{}, &fakeApprover{}, &fakeTrigger{})
	recorder := doRequest(t, server, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestStatusReturnsSnapshot(t *testing.T) {
	state := &fakeState{snapshot: &models.SyncSnapshot{
		LastUpdated:      time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Pipelines:        []models.PipelineStatus{{PipelineName: "prod-a", Executions: []models.PipelineExecutionSummary{}}},
		TotalPipelines:   3,
		MatchedPipelines: 1,
	}}
	server := NewServer(state, &fakeApprover{}, &fakeTrigger{})

	recorder := doRequest(t, server, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var snapshot models.SyncSnapshot
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &snapshot))
	require.Equal(t, *state.snapshot, snapshot)
}

func TestRefreshSchedulesCycle(t *testing.T) {
	trigger := &fakeTrigger{}
	server := NewServer(&fakeState{}, &fakeApprover{}, trigger)

	recorder := doRequest(t, server, http.MethodPost, "/api/v1/refresh", "")
	require.Equal(t, http.StatusAccepted, recorder.Code)
	require.Equal(t, 1, trigger.triggered)
}

func TestApproveSubmitsAndTriggersRefresh(t *testing.T) {
	approver := &fakeApprover{}
	trigger := &fakeTrigger{}
	server := NewServer(&fakeState{}, approver, trigger)

	body := `{"pipelineName":"prod-a","stageName":"Release","actionName":"ManualGate","token":"token-123"}`
	recorder := doRequest(t, server, http.MethodPost, "/api/v1/approve", body)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, approver.approvals, 1)
	require.Equal(t, "token-123", approver.approvals[0].Token)
	require.Equal(t, 1, trigger.triggered)
}

func TestApproveErrorMapping(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		approveErr   error
		expectedCode int
	}{
		{
			name:         "malformed payload",
			body:         "{not json",
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "missing token",
			body:         `{"pipelineName":"prod-a","stageName":"Release","actionName":"ManualGate"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "not configured",
			body:         `{"pipelineName":"p","stageName":"s","actionName":"a","token":"t"}`,
			approveErr:   awsclient.ErrNotConfigured,
			expectedCode: http.StatusConflict,
		},
		{
			name:         "remote rejection",
			body:         `{"pipelineName":"p","stageName":"s","actionName":"a","token":"t"}`,
			approveErr:   &engine.ApprovalError{Pipeline: "p", Err: errors.New("token expired")},
			expectedCode: http.StatusBadGateway,
		},
		{
			name:         "unexpected failure",
			body:         `{"pipelineName":"p","stageName":"s","actionName":"a","token":"t"}`,
			approveErr:   errors.New("boom"),
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trigger := &fakeTrigger{}
			server := NewServer(&fakeState{}, &fakeApprover{err: tc.approveErr}, trigger)

			recorder := doRequest(t, server, http.MethodPost, "/api/v1/approve", tc.body)
			require.Equal(t, tc.expectedCode, recorder.Code)
			require.Zero(t, trigger.triggered, "failed approvals must not trigger a refresh")

			var response ErrorResponse
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
			require.NotEmpty(t, response.Error)
		})
	}
}

func TestGetSettingsRedactsSecret(t *testing.T) {
	state := &fakeState{settings: models.Settings{
		AccessKeyID:     "AKIA1",
		SecretAccessKey: "super-secret",
		Region:          "us-east-1",
	}}
	server := NewServer(state, &fakeApprover{}, &fakeTrigger{})

	recorder := doRequest(t, server, http.MethodGet, "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotContains(t, recorder.Body.String(), "super-secret")
	require.Contains(t, recorder.Body.String(), "AKIA1")
}

func TestPutSettingsSavesAndRedactsResponse(t *testing.T) {
	state := &fakeState{}
	server := NewServer(state, &fakeApprover{}, &fakeTrigger{})

	body := `{"accessKeyId":"AKIA1","secretAccessKey":"super-secret","region":"us-east-1","refreshIntervalMs":60000}`
	recorder := doRequest(t, server, http.MethodPut, "/api/v1/settings", body)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, state.saved, 1)
	require.Equal(t, "super-secret", state.saved[0].SecretAccessKey)
	require.NotContains(t, recorder.Body.String(), "super-secret")
}

func TestPutSettingsRejectsNegativeInterval(t *testing.T) {
	state := &fakeState{}
	server := NewServer(state, &fakeApprover{}, &fakeTrigger{})

	body := `{"accessKeyId":"AKIA1","secretAccessKey":"x","region":"us-east-1","refreshIntervalMs":-1}`
	recorder := doRequest(t, server, http.MethodPut, "/api/v1/settings", body)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Empty(t, state.saved)
}
