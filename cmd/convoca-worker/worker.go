// Package main provides the Convoca worker that consumes trigger events and
// runs workflow executions.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/convoca/convoca/pkg/eventbus"
	"github.com/convoca/convoca/pkg/events"
	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/otelhelper"
	"github.com/convoca/convoca/pkg/workflow"
)

type Worker struct {
	id       string
	executor *workflow.Executor
	eventBus eventbus.EventBus
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewWorker(
	id string,
	executor *workflow.Executor,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		id:       id,
		executor: executor,
		eventBus: eventBus,
		tracer:   tracer,
		logger:   logger.With("module", "worker", "worker_id", id),
	}
}

// Start registers the trigger event handler and blocks until a shutdown
// signal arrives.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker subscriptions")

	if err := w.eventBus.Handle(events.WorkflowTriggeredEvent, w.handleWorkflowTriggered); err != nil {
		return err
	}

	wCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.eventBus.Subscribe(wCtx); err != nil {
		return err
	}

	w.logger.Info("Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	w.logger.Info("Received signal, shutting down worker", "signal", sig.String())

	return nil
}

func (w *Worker) handleWorkflowTriggered(ctx context.Context, event any) error {
	triggeredEvent, ok := event.(*events.WorkflowTriggered)
	if !ok {
		w.logger.Error("Invalid event type for WorkflowTriggered")

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "handle_workflow_triggered",
		attribute.String(otelhelper.WorkflowIDKey, triggeredEvent.WorkflowID),
		attribute.String(otelhelper.TriggerTypeKey, triggeredEvent.TriggerType),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	logger := w.logger.With(
		"workflow_id", triggeredEvent.WorkflowID,
		"trigger_type", triggeredEvent.TriggerType,
		"event_id", triggeredEvent.ID,
	)
	logger.Info("Processing workflow triggered event")

	run, err := w.execute(ctx, triggeredEvent)
	if err != nil {
		otelhelper.SetError(span, err)

		// Runs against paused or empty workflows are dropped, not retried.
		if errors.Is(err, workflow.ErrNotRunnable) {
			logger.Warn("Workflow is not runnable, dropping event")

			return nil
		}

		logger.Error("Workflow execution failed", "error", err)

		return err
	}

	span.SetAttributes(attribute.String(otelhelper.RunIDKey, run.ID))
	logger.Info("Workflow execution pass finished", "run_id", run.ID, "run_status", run.Status)

	return nil
}

// execute dispatches on RunID: a set RunID means the scheduler already
// claimed a suspended run and this event resumes it.
func (w *Worker) execute(ctx context.Context, event *events.WorkflowTriggered) (*models.WorkflowRun, error) {
	if event.RunID != "" {
		return w.executor.Resume(ctx, event.RunID)
	}

	return w.executor.Start(ctx, event.WorkflowID, event.GuestIDs)
}
