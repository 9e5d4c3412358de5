// SPDX-License-Identifier: MPL-2.0

package layer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"layerforge/pkg/closure"
)

// State is the phase a pipeline invocation is in. Transitions are strictly
// Resolving -> Assembling -> Archiving -> Done; any failure moves directly
// to Failed. There is no partial-success or retry-within-build state; the
// caller re-runs the whole pipeline.
type State string

const (
	StateIdle       State = "idle"
	StateResolving  State = "resolving"
	StateAssembling State = "assembling"
	StateArchiving  State = "archiving"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

type (
	// Request describes a single build invocation.
	Request struct {
		// EntryPoints are absolute paths to the binaries to bundle.
		EntryPoints []string
		// Assets are auxiliary directories copied verbatim into the layer.
		Assets []AssetGroup
		// StagingDir is the directory staged into. When empty, a temporary
		// directory is created and removed after archiving.
		StagingDir string
		// OutputPath is where the final archive is written.
		OutputPath string
	}

	// Pipeline runs the resolve/assemble/archive sequence for one build.
	// A Pipeline is single-use: construct one per invocation.
	Pipeline struct {
		resolver *closure.Resolver
		state    State
		reason   error
	}
)

// NewPipeline creates a Pipeline that resolves dependencies with the
// given resolver.
func NewPipeline(resolver *closure.Resolver) *Pipeline {
	return &Pipeline{resolver: resolver, state: StateIdle}
}

// State returns the current pipeline state.
func (p *Pipeline) State() State { return p.state }

// FailureReason returns the error that moved the pipeline to Failed,
// or nil.
func (p *Pipeline) FailureReason() error { return p.reason }

// Run executes the full pipeline for the request. On any error the
// pipeline transitions to Failed and no archive exists at the output
// path. Closures for independent entry points are resolved in parallel;
// the union is a synchronization point so missing dependencies and
// destination collisions surface before the staging tree is touched.
func (p *Pipeline) Run(ctx context.Context, req Request) error {
	if len(req.EntryPoints) == 0 {
		return p.fail(fmt.Errorf("no entry points given"))
	}
	if req.OutputPath == "" {
		return p.fail(fmt.Errorf("no output path given"))
	}

	p.state = StateResolving
	slog.Info("resolving dependency closures", "entryPoints", len(req.EntryPoints))

	closures := make([]*closure.Closure, len(req.EntryPoints))
	entries := make([]string, len(req.EntryPoints))
	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range req.EntryPoints {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			canonical, err := filepath.EvalSymlinks(entry)
			if err != nil {
				return &closure.NotFoundError{Path: entry}
			}
			c, err := p.resolver.Resolve(canonical)
			if err != nil {
				return err
			}
			closures[i] = c
			entries[i] = canonical
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return p.fail(err)
	}

	staging := req.StagingDir
	if staging == "" {
		tmp, err := os.MkdirTemp("", "layerforge-stage-*")
		if err != nil {
			return p.fail(err)
		}
		defer os.RemoveAll(tmp)
		staging = tmp
	}

	p.state = StateAssembling
	tree, err := Assemble(ctx, Input{
		Closures:    closures,
		EntryPoints: entries,
		Assets:      req.Assets,
	}, staging)
	if err != nil {
		return p.fail(err)
	}

	p.state = StateArchiving
	if err := Archive(ctx, tree, req.OutputPath); err != nil {
		return p.fail(err)
	}

	p.state = StateDone
	slog.Info("layer build complete", "output", req.OutputPath)
	return nil
}

func (p *Pipeline) fail(err error) error {
	p.state = StateFailed
	p.reason = err
	return err
}
