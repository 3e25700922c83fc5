// internal/infra/etcd/etcd_script_repository.go
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"uitest-hub/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ScriptDir is the key prefix for script definitions:
	// /uitest/scripts/{projectID}/{scriptID}
	ScriptDir = "/uitest/scripts/"
)

type etcdScriptRepository struct {
	client *clientv3.Client
	logger *slog.Logger
	tracer trace.Tracer
}

// NewEtcdScriptRepository creates a read-side repository over the script
// catalogue maintained by the external CRUD layer.
func NewEtcdScriptRepository(client *clientv3.Client, logger *slog.Logger) domain.ScriptRepository {
	return &etcdScriptRepository{
		client: client,
		logger: logger.With("component", "etcd-script-repo"),
		tracer: otel.Tracer("uitest-hub-etcd-script-repo"),
	}
}

// Get retrieves a script definition.
func (r *etcdScriptRepository) Get(ctx context.Context, projectID, scriptID string) (*domain.Script, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.GetScript")
	defer span.End()
	span.SetAttributes(
		attribute.String("project.id", projectID),
		attribute.String("script.id", scriptID),
	)

	key := path.Join(ScriptDir, projectID, scriptID)
	resp, err := r.client.Get(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get script from etcd")
		return nil, &domain.PersistenceError{Op: "get-script", Err: fmt.Errorf("get script %s/%s from etcd: %w", projectID, scriptID, err)}
	}
	if len(resp.Kvs) == 0 {
		return nil, domain.ErrScriptNotFound
	}

	var script domain.Script
	if err := json.Unmarshal(resp.Kvs[0].Value, &script); err != nil {
		return nil, &domain.PersistenceError{Op: "get-script", Err: fmt.Errorf("unmarshal script %s/%s: %w", projectID, scriptID, err)}
	}
	return &script, nil
}

// ListByProject retrieves all script definitions for a project.
func (r *etcdScriptRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.Script, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.ListScripts")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", projectID))

	prefix := path.Join(ScriptDir, projectID) + "/"
	resp, err := r.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list scripts from etcd")
		return nil, &domain.PersistenceError{Op: "list-scripts", Err: fmt.Errorf("list scripts for project %s from etcd: %w", projectID, err)}
	}

	scripts := make([]*domain.Script, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var script domain.Script
		if err := json.Unmarshal(kv.Value, &script); err != nil {
			r.logger.Warn("failed to unmarshal script from etcd", "key", string(kv.Key), "error", err)
			continue
		}
		scripts = append(scripts, &script)
	}
	span.SetAttributes(attribute.Int("records_returned", len(scripts)))
	return scripts, nil
}
