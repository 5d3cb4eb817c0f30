package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoca/convoca/pkg/eventbus"
	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/persistence/file"
	"github.com/convoca/convoca/pkg/registry"
	logsender "github.com/convoca/convoca/pkg/senders/log"
	"github.com/convoca/convoca/pkg/services"
	"github.com/convoca/convoca/pkg/web"
)

type nopPublisher struct{}

func (nopPublisher) Publish(_ context.Context, _ string, _ eventbus.Event) error {
	return nil
}

func setupTestApp(t *testing.T) (*fiber.App, *services.Workflow) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	workflowService := services.NewWorkflow(persistence, nopPublisher{})
	runsService := services.NewRuns(persistence)
	validate := validator.New(validator.WithRequiredStructEnabled())

	registryInstance := registry.NewRegistry(slog.Default())
	registryInstance.RegisterSender(logsender.NewSenderFactory(models.ActionTypeEmail))

	handlers := web.NewAPIHandlers(workflowService, runsService, validate, registryInstance)

	app := fiber.New()
	web.RegisterRoutes(app, handlers)

	return app, workflowService
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, data
}

func createRequestBody() web.CreateWorkflowRequest {
	return web.CreateWorkflowRequest{
		EventID:     "event-1",
		Name:        "Welcome sequence",
		Description: "Greets new guests",
		TriggerType: models.TriggerTypeManual,
		Actions: []*models.Action{
			{
				ID:   "a1",
				Type: models.ActionTypeEmail,
				Message: &models.MessageConfig{
					Recipients: models.RecipientsAll,
					Message:    "Welcome!",
				},
			},
		},
	}
}

func workflowDefinition() *models.Workflow {
	request := createRequestBody()

	return &models.Workflow{
		EventID:     request.EventID,
		Name:        request.Name,
		Description: request.Description,
		TriggerType: request.TriggerType,
		Actions:     request.Actions,
	}
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", createRequestBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow

	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Welcome sequence", created.Name)
	assert.Equal(t, models.WorkflowStatusPaused, created.Status)
}

func TestAPIHandlers_CreateWorkflow_Invalid(t *testing.T) {
	app, _ := setupTestApp(t)

	missing := createRequestBody()
	missing.Name = ""

	resp, _ := doJSON(t, app, http.MethodPost, "/workflows", missing)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	badCron := createRequestBody()
	badCron.TriggerType = models.TriggerTypeScheduled
	badCron.TriggerCron = "nope"

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", badCron)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "validation_error")
}

func TestAPIHandlers_GetWorkflow(t *testing.T) {
	app, service := setupTestApp(t)

	created, err := service.Create(context.Background(), workflowDefinition())
	require.NoError(t, err)

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.Workflow

	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_UpdateWorkflow(t *testing.T) {
	app, service := setupTestApp(t)

	created, err := service.Create(context.Background(), workflowDefinition())
	require.NoError(t, err)

	newName := "Renamed sequence"

	resp, body := doJSON(t, app, http.MethodPatch, "/workflows/"+created.ID, web.UpdateWorkflowRequest{
		Name: &newName,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Workflow

	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, created.EventID, updated.EventID)
}

func TestAPIHandlers_DeleteWorkflow(t *testing.T) {
	app, service := setupTestApp(t)

	created, err := service.Create(context.Background(), workflowDefinition())
	require.NoError(t, err)

	resp, _ := doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_RunWorkflow(t *testing.T) {
	app, service := setupTestApp(t)

	definition := workflowDefinition()
	definition.Status = models.WorkflowStatusActive

	created, err := service.Create(context.Background(), definition)
	require.NoError(t, err)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", web.RunNowRequest{
		GuestIDs: []string{"g1"},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Contains(t, string(body), "triggered")
}

func TestAPIHandlers_RunWorkflow_NotRunnable(t *testing.T) {
	app, service := setupTestApp(t)

	created, err := service.Create(context.Background(), workflowDefinition())
	require.NoError(t, err)

	// Created workflows start paused, so run-now conflicts.
	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "not_runnable")
}

func TestAPIHandlers_PauseAndActivate(t *testing.T) {
	app, service := setupTestApp(t)

	created, err := service.Create(context.Background(), workflowDefinition())
	require.NoError(t, err)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var activated models.Workflow

	require.NoError(t, json.Unmarshal(body, &activated))
	assert.Equal(t, models.WorkflowStatusActive, activated.Status)

	resp, body = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var paused models.Workflow

	require.NoError(t, json.Unmarshal(body, &paused))
	assert.Equal(t, models.WorkflowStatusPaused, paused.Status)
}

func TestAPIHandlers_ExportImport(t *testing.T) {
	app, service := setupTestApp(t)

	created, err := service.Create(context.Background(), workflowDefinition())
	require.NoError(t, err)

	resp, document := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/import", web.ImportWorkflowRequest{
		EventID:  "event-2",
		Document: document,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var imported models.Workflow

	require.NoError(t, json.Unmarshal(body, &imported))
	assert.Equal(t, "event-2", imported.EventID)
	assert.Contains(t, imported.Name, "(imported)")
}

func TestAPIHandlers_GetWorkflowRuns(t *testing.T) {
	app, service := setupTestApp(t)

	created, err := service.Create(context.Background(), workflowDefinition())
	require.NoError(t, err)

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/runs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"total_count":0`)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/missing/runs", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}
