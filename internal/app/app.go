package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/flowsnapgo/internal/config"
	"github.com/vk/flowsnapgo/internal/ctxlog"
	"github.com/vk/flowsnapgo/internal/flow"
	"github.com/vk/flowsnapgo/internal/localexecutor"
	"github.com/vk/flowsnapgo/internal/ops"
	"github.com/vk/flowsnapgo/internal/registry"
	"github.com/vk/flowsnapgo/internal/session"
	"github.com/vk/flowsnapgo/internal/tap"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	sess     *session.Session
	byName   map[string]*flow.Node
}

// NewApp constructs the application: it configures logging, registers the
// operator modules, loads the pipeline definition, and assembles it into a
// fresh session. It panics on critical configuration errors; the CLI
// entrypoint recovers and reports them.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline definition: %w", err))
	}
	logger.Debug("Pipeline definition loaded into unified model.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = []registry.Module{ops.Core()}
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("Operator modules registered.", "kinds", reg.Kinds())

	exec := localexecutor.New(reg, appConfig.WorkerCount)
	sess := session.New(exec, session.Options{StagingRoot: appConfig.StagingRoot})

	byName, err := assemble(ctx, sess, model.Pipeline)
	if err != nil {
		panic(fmt.Errorf("failed to assemble pipeline: %w", err))
	}
	logger.Debug("Pipeline assembled into session.", "nodes", sess.Active().Len())

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		registry: reg,
		sess:     sess,
		byName:   byName,
	}
}

// Session returns the application's session. This is primarily for testing.
func (a *App) Session() *session.Session {
	return a.sess
}

// Run executes the loaded pipeline. With SnapshotNode set it materializes
// that node's output in isolation and prints the records; otherwise it runs
// the whole active flow, writing every declared sink.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	if name := a.config.SnapshotNode; name != "" {
		n, ok := a.byName[name]
		if !ok {
			return fmt.Errorf("unknown pipeline node %q", name)
		}
		recs, err := a.sess.MaterializeAndList(ctx, n)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			line, err := tap.Marshal(rec)
			if err != nil {
				return fmt.Errorf("rendering record: %w", err)
			}
			if _, err := fmt.Fprintf(a.outW, "%s\n", line); err != nil {
				return err
			}
		}
		a.logger.Info("Snapshot complete.", "node", name, "records", len(recs))
		return nil
	}

	return a.sess.Run(ctx)
}
