// internal/infra/etcd/etcd_execution_repository.go
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"time"

	"uitest-hub/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ExecutionDir is the key prefix for execution records:
	// /uitest/executions/{projectID}/{executionID}
	ExecutionDir = "/uitest/executions/"
)

type etcdExecutionRepository struct {
	client *clientv3.Client
	logger *slog.Logger
	tracer trace.Tracer
}

// NewEtcdExecutionRepository creates a new repository for execution records
// backed by etcd.
func NewEtcdExecutionRepository(client *clientv3.Client, logger *slog.Logger) domain.ExecutionRepository {
	return &etcdExecutionRepository{
		client: client,
		logger: logger.With("component", "etcd-execution-repo"),
		tracer: otel.Tracer("uitest-hub-etcd-execution-repo"),
	}
}

func executionKey(projectID, executionID string) string {
	return path.Join(ExecutionDir, projectID, executionID)
}

// Create persists a new execution record. The transaction is guarded on the
// key not existing yet, so an execution id is created exactly once.
func (r *etcdExecutionRepository) Create(ctx context.Context, exec *domain.Execution) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.CreateExecution")
	defer span.End()

	recordJSON, err := json.Marshal(exec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal execution record")
		return &domain.PersistenceError{Op: "create", Err: fmt.Errorf("marshal execution %s: %w", exec.ID, err)}
	}

	key := executionKey(exec.ProjectID, exec.ID)
	span.SetAttributes(
		attribute.String("execution.id", exec.ID),
		attribute.String("project.id", exec.ProjectID),
		attribute.String("etcd.key", key),
	)

	resp, err := r.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(recordJSON))).
		Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put execution record to etcd")
		return &domain.PersistenceError{Op: "create", Err: fmt.Errorf("save execution %s to etcd: %w", exec.ID, err)}
	}
	if !resp.Succeeded {
		err := fmt.Errorf("execution %s already exists", exec.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "duplicate execution id")
		return &domain.PersistenceError{Op: "create", Err: err}
	}
	return nil
}

// Update replaces an existing execution record. The whole record is written
// in a single Put so the terminal fields land atomically; the transaction is
// guarded on the key existing, so a terminal update never creates a record.
func (r *etcdExecutionRepository) Update(ctx context.Context, exec *domain.Execution) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.UpdateExecution")
	defer span.End()

	recordJSON, err := json.Marshal(exec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal execution record")
		return &domain.PersistenceError{Op: "update", Err: fmt.Errorf("marshal execution %s: %w", exec.ID, err)}
	}

	key := executionKey(exec.ProjectID, exec.ID)
	span.SetAttributes(
		attribute.String("execution.id", exec.ID),
		attribute.String("etcd.key", key),
	)

	resp, err := r.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), ">", 0)).
		Then(clientv3.OpPut(key, string(recordJSON))).
		Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update execution record in etcd")
		return &domain.PersistenceError{Op: "update", Err: fmt.Errorf("update execution %s in etcd: %w", exec.ID, err)}
	}
	if !resp.Succeeded {
		return domain.ErrExecutionNotFound
	}
	return nil
}

// Get retrieves a single execution record.
func (r *etcdExecutionRepository) Get(ctx context.Context, projectID, executionID string) (*domain.Execution, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.GetExecution")
	defer span.End()
	span.SetAttributes(
		attribute.String("project.id", projectID),
		attribute.String("execution.id", executionID),
	)

	resp, err := r.client.Get(ctx, executionKey(projectID, executionID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get execution record from etcd")
		return nil, &domain.PersistenceError{Op: "get", Err: fmt.Errorf("get execution %s/%s from etcd: %w", projectID, executionID, err)}
	}
	if len(resp.Kvs) == 0 {
		return nil, domain.ErrExecutionNotFound
	}

	var exec domain.Execution
	if err := json.Unmarshal(resp.Kvs[0].Value, &exec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to unmarshal execution record")
		return nil, &domain.PersistenceError{Op: "get", Err: fmt.Errorf("unmarshal execution %s/%s: %w", projectID, executionID, err)}
	}
	return &exec, nil
}

// ListByProject retrieves all executions for a project started at or after
// since, ordered oldest first.
func (r *etcdExecutionRepository) ListByProject(ctx context.Context, projectID string, since time.Time) ([]*domain.Execution, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.ListExecutions")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", projectID))

	prefix := path.Join(ExecutionDir, projectID) + "/"
	resp, err := r.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list execution records from etcd")
		return nil, &domain.PersistenceError{Op: "list", Err: fmt.Errorf("list executions for project %s from etcd: %w", projectID, err)}
	}

	execs := make([]*domain.Execution, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var exec domain.Execution
		if err := json.Unmarshal(kv.Value, &exec); err != nil {
			r.logger.Warn("failed to unmarshal execution record from etcd", "key", string(kv.Key), "error", err)
			continue
		}
		if exec.StartedAt.Before(since) {
			continue
		}
		execs = append(execs, &exec)
	}
	sort.SliceStable(execs, func(i, j int) bool {
		return execs[i].StartedAt.Before(execs[j].StartedAt)
	})
	span.SetAttributes(attribute.Int("records_returned", len(execs)))
	return execs, nil
}

// ListRunningBefore retrieves executions across all projects that are still
// running and were started before cutoff. Used by the reconciliation sweep.
func (r *etcdExecutionRepository) ListRunningBefore(ctx context.Context, cutoff time.Time) ([]*domain.Execution, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.ListRunningExecutions")
	defer span.End()

	resp, err := r.client.Get(ctx, ExecutionDir, clientv3.WithPrefix())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to scan execution records from etcd")
		return nil, &domain.PersistenceError{Op: "list-running", Err: fmt.Errorf("scan executions from etcd: %w", err)}
	}

	var stale []*domain.Execution
	for _, kv := range resp.Kvs {
		var exec domain.Execution
		if err := json.Unmarshal(kv.Value, &exec); err != nil {
			r.logger.Warn("failed to unmarshal execution record from etcd", "key", string(kv.Key), "error", err)
			continue
		}
		if exec.Status == domain.ExecutionStatusRunning && exec.StartedAt.Before(cutoff) {
			stale = append(stale, &exec)
		}
	}
	span.SetAttributes(attribute.Int("records_returned", len(stale)))
	return stale, nil
}
