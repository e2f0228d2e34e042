// Package generator publishes action and flow templates for every data
// collection of the platform's integrations. Each template is also written
// as YAML so the published definitions can be reviewed and versioned.
package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"conduit/core"
	"conduit/metrics"
	"conduit/platform"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	kindAction = "action"
	kindFlow   = "flow"

	// DefaultDelay spaces out collection fetches to stay under platform rate limits
	DefaultDelay = 100 * time.Millisecond
)

// Platform is the part of the platform client the generator drives.
type Platform interface {
	ListIntegrations(ctx context.Context) ([]core.Integration, error)
	ListDataCollections(ctx context.Context, integrationKey string) ([]core.DataCollection, error)
	GetDataCollection(ctx context.Context, integrationKey, collectionKey string) (*core.DataCollectionSpec, error)
	CreateAction(ctx context.Context, tmpl *platform.ActionTemplate) error
	PatchAction(ctx context.Context, integrationKey string, tmpl *platform.ActionTemplate) error
	CreateFlow(ctx context.Context, tmpl *platform.FlowTemplate) error
	PatchFlow(ctx context.Context, integrationKey string, tmpl *platform.FlowTemplate) error
}

// Options control a generation run.
type Options struct {
	// OutputDir receives actions/<integration>/ and flows/<integration>/
	OutputDir string
	// Integration restricts the run to one integration key
	Integration string
	// Delay is slept before every collection spec fetch
	Delay time.Duration
	// DryRun writes the YAML files without publishing them
	DryRun bool
}

// Summary counts what a run produced.
type Summary struct {
	Integrations int      `json:"integrations"`
	Collections  int      `json:"collections"`
	Actions      int      `json:"actions"`
	Flows        int      `json:"flows"`
	Created      int      `json:"created"`
	Patched      int      `json:"patched"`
	Failed       int      `json:"failed"`
	Files        []string `json:"files"`
}

// Progress is told about each collection as the walk reaches it.
type Progress func(integrationKey, collectionKey string)

// Generator walks the catalog and publishes templates.
type Generator struct {
	platform Platform
	opts     Options
	logger   *zap.SugaredLogger
	progress Progress
}

// New creates a generator
func New(p Platform, opts Options, logger *zap.SugaredLogger) *Generator {
	if opts.OutputDir == "" {
		opts.OutputDir = "dist"
	}
	return &Generator{platform: p, opts: opts, logger: logger}
}

// OnProgress registers a progress callback
func (g *Generator) OnProgress(fn Progress) {
	g.progress = fn
}

// Run generates templates for every selected integration. Failures of single
// collections or templates are logged and counted; listing failures abort.
func (g *Generator) Run(ctx context.Context) (*Summary, error) {
	integrations, err := g.integrations(ctx)
	if err != nil {
		return nil, err
	}
	g.logger.Infow("Generating templates", "integrations", len(integrations), "dry_run", g.opts.DryRun, "output_dir", g.opts.OutputDir)

	summary := &Summary{Files: []string{}}
	for _, integration := range integrations {
		summary.Integrations++
		if err := g.generateIntegration(ctx, integration, summary); err != nil {
			return summary, err
		}
	}

	g.logger.Infow("Template generation completed",
		"integrations", summary.Integrations,
		"collections", summary.Collections,
		"actions", summary.Actions,
		"flows", summary.Flows,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (g *Generator) integrations(ctx context.Context) ([]core.Integration, error) {
	all, err := g.platform.ListIntegrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	if g.opts.Integration == "" {
		return all, nil
	}
	for _, integration := range all {
		if integration.Key == g.opts.Integration {
			return []core.Integration{integration}, nil
		}
	}
	return nil, fmt.Errorf("integration %q: %w", g.opts.Integration, core.ErrNotFound)
}

func (g *Generator) generateIntegration(ctx context.Context, integration core.Integration, summary *Summary) error {
	collections, err := g.platform.ListDataCollections(ctx, integration.Key)
	if err != nil {
		return fmt.Errorf("failed to list data collections of %s: %w", integration.Key, err)
	}
	g.logger.Infow("Processing integration", "integration", integration.Key, "collections", len(collections))

	for _, collection := range collections {
		if g.progress != nil {
			g.progress(integration.Key, collection.Key)
		}
		if err := sleep(ctx, g.opts.Delay); err != nil {
			return err
		}

		spec, err := g.platform.GetDataCollection(ctx, integration.Key, collection.Key)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			summary.Failed++
			g.logger.Warnw("Failed to fetch data collection", "integration", integration.Key, "collection", collection.Key, "error", err)
			continue
		}
		spec.Key = collection.Key
		if spec.Name == "" {
			spec.Name = collection.Name
		}
		summary.Collections++

		for _, method := range templateMethods {
			if !spec.Supports(method) {
				continue
			}
			tmpl, err := ActionTemplateFor(method, spec, integration)
			if err != nil {
				return err
			}
			summary.Actions++
			g.publishAction(ctx, integration.Key, tmpl, summary)
		}

		for _, event := range spec.EventNames() {
			summary.Flows++
			g.publishFlow(ctx, integration.Key, FlowTemplate(event, spec, integration), summary)
		}
	}
	return nil
}

func (g *Generator) publishAction(ctx context.Context, integrationKey string, tmpl *platform.ActionTemplate, summary *Summary) {
	g.publish(ctx, kindAction, integrationKey, tmpl.Key, tmpl, summary,
		func() error { return g.platform.CreateAction(ctx, tmpl) },
		func() error { return g.platform.PatchAction(ctx, integrationKey, tmpl) },
	)
}

func (g *Generator) publishFlow(ctx context.Context, integrationKey string, tmpl *platform.FlowTemplate, summary *Summary) {
	g.publish(ctx, kindFlow, integrationKey, tmpl.Key, tmpl, summary,
		func() error { return g.platform.CreateFlow(ctx, tmpl) },
		func() error { return g.platform.PatchFlow(ctx, integrationKey, tmpl) },
	)
}

// publish writes the template and upserts it: create first, patch when the
// create is refused.
func (g *Generator) publish(ctx context.Context, kind, integrationKey, key string, tmpl any, summary *Summary, create, patch func() error) {
	path, err := g.write(kind, integrationKey, key, tmpl)
	if err != nil {
		summary.Failed++
		metrics.TemplatesPublishedTotal.WithLabelValues(kind, "error").Inc()
		g.logger.Errorw("Failed to write template", "kind", kind, "key", key, "error", err)
		return
	}
	summary.Files = append(summary.Files, path)

	if g.opts.DryRun {
		metrics.TemplatesPublishedTotal.WithLabelValues(kind, "written").Inc()
		g.logger.Debugw("Template written", "kind", kind, "key", key, "path", path)
		return
	}

	createErr := create()
	if createErr == nil {
		summary.Created++
		metrics.TemplatesPublishedTotal.WithLabelValues(kind, "created").Inc()
		g.logger.Infow("Template created", "kind", kind, "key", key)
		return
	}
	if errors.Is(createErr, core.ErrCircuitBreakerOpen) {
		summary.Failed++
		metrics.TemplatesPublishedTotal.WithLabelValues(kind, "error").Inc()
		g.logger.Errorw("Platform unavailable, template not published", "kind", kind, "key", key, "error", createErr)
		return
	}

	g.logger.Debugw("Template create refused, patching", "kind", kind, "key", key, "error", createErr)
	if err := patch(); err != nil {
		summary.Failed++
		metrics.TemplatesPublishedTotal.WithLabelValues(kind, "error").Inc()
		g.logger.Errorw("Failed to publish template", "kind", kind, "key", key, "create_error", createErr, "error", err)
		return
	}
	summary.Patched++
	metrics.TemplatesPublishedTotal.WithLabelValues(kind, "patched").Inc()
	g.logger.Infow("Template updated", "kind", kind, "key", key)
}

func (g *Generator) write(kind, integrationKey, key string, tmpl any) (string, error) {
	if err := checkPathSegment(integrationKey); err != nil {
		return "", err
	}
	if err := checkPathSegment(key); err != nil {
		return "", err
	}
	dir := filepath.Join(g.opts.OutputDir, kind+"s", integrationKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	data, err := yaml.Marshal(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s %s: %w", kind, key, err)
	}
	path := filepath.Join(dir, key+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// checkPathSegment rejects platform keys that would escape the output directory.
func checkPathSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("%w: unsafe template key %q", core.ErrInvalidInput, s)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
