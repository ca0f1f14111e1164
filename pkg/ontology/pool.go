/*
Copyright 2025 The KGCL Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ontology

import (
	"context"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
)

// Pool is the warm reasoner pool. EYE --image creates standalone
// executables, not loadable modules, so the reasoner cannot be
// treated as an in-process loaded image. Pool
// instead models it as a fixed set of workers that each invoke the
// same cached rules file (RulesPath) as an external process per job —
// never re-reading or "reloading" a module between jobs.
type Pool struct {
	rulesPath string
	sem       chan struct{}
	invoke    func(ctx context.Context, rulesPath string, job Job) (Result, error)
}

// Job is one unit of work submitted to the reasoner pool: the N-Quads
// snapshot to reason over.
type Job struct {
	Snapshot string
}

// Result is what a reasoner invocation returns: any derived quads, as
// raw N-Quads text the caller's RDF library parses back in.
type Result struct {
	DerivedNQuads string
}

// Invoker runs one reasoning job against the cached rules file. The
// default NewPool invoker is a no-op placeholder; callers wire a
// real one (e.g. shelling out to an EYE binary at KGCL_EYE_PATH).
type Invoker func(ctx context.Context, rulesPath string, job Job) (Result, error)

// NewPool constructs a pool of size workers, all sharing rulesPath.
// size <= 0 defaults to 1.
func NewPool(rulesPath string, size int, invoke Invoker) *Pool {
	if size <= 0 {
		size = 1
	}
	if invoke == nil {
		invoke = func(_ context.Context, _ string, job Job) (Result, error) {
			return Result{DerivedNQuads: job.Snapshot}, nil
		}
	}
	return &Pool{rulesPath: rulesPath, sem: make(chan struct{}, size), invoke: invoke}
}

// RulesPath returns the cached rules file path this pool was
// constructed with. It never changes for the pool's lifetime.
func (p *Pool) RulesPath() string { return p.rulesPath }

// Run submits job to the pool, blocking until a worker slot is free or
// ctx is cancelled.
func (p *Pool) Run(ctx context.Context, job Job) (Result, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return Result{}, kgclerrors.Wrap(kgclerrors.StoreError, ctx.Err(), "reasoner pool: waiting for worker slot")
	}
	defer func() { <-p.sem }()

	res, err := p.invoke(ctx, p.rulesPath, job)
	if err != nil {
		return Result{}, kgclerrors.Wrap(kgclerrors.StoreError, err, "reasoner pool: invocation failed")
	}
	return res, nil
}
