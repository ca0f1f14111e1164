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

// Command kgclctl is the thin orchestrator CLI adapter. It wires an
// Orchestrator from the pieces under pkg/ and maps whatever error
// kind it returns to an exit code; it carries no workflow-pattern or
// rule logic of its own — that is the core's job, not the CLI's.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/kgcl-io/kgcl-core/pkg/bbb"
	"github.com/kgcl-io/kgcl-core/pkg/condition"
	"github.com/kgcl-io/kgcl-core/pkg/config"
	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
	"github.com/kgcl-io/kgcl-core/pkg/hook"
	"github.com/kgcl-io/kgcl-core/pkg/lockchain"
	"github.com/kgcl-io/kgcl-core/pkg/logging"
	"github.com/kgcl-io/kgcl-core/pkg/metrics"
	"github.com/kgcl-io/kgcl-core/pkg/orchestrator"
	"github.com/kgcl-io/kgcl-core/pkg/shacl"
	"github.com/kgcl-io/kgcl-core/pkg/store"
	"github.com/kgcl-io/kgcl-core/pkg/tick"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("kgclctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML tunables file")
	graphPath := fs.String("graph", "", "path to a JSON or Turtle ingress document admitted through the Blood-Brain-Barrier")
	lockchainDir := fs.String("lockchain-dir", "", "git-backed lockchain directory; empty uses an in-memory commit store")
	maxTicks := fs.Uint64("max-ticks", 1000, "maximum ticks before NonConvergence")
	verify := fs.Bool("verify", false, "verify the lockchain instead of running ticks")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return kgclerrors.ExitCode(err)
	}
	log := logging.New(cfg.Logging.Level)
	ctx := context.Background()

	commitStore, err := buildCommitStore(ctx, *lockchainDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return kgclerrors.ExitCode(err)
	}
	chain := lockchain.New(commitStore)

	g := store.NewMemory()
	if *graphPath != "" {
		if err := admitGraph(ctx, g, *graphPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return kgclerrors.ExitCode(err)
		}
	}

	registry := hook.NewRegistry()
	evaluator := condition.NewEvaluator(shacl.New(), nil, log)
	executor := hook.NewExecutor(evaluator, 0, log)
	metricsSink := metrics.New("kgclctl")
	controller := tick.New(nil, registry, executor, log, metricsSink)
	orch := orchestrator.New("kgclctl", g, controller, chain, nil, log)

	if *verify {
		if err := orch.VerifyChain(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return kgclerrors.ExitCode(err)
		}
		fmt.Fprintln(os.Stdout, "lockchain verified")
		return 0
	}

	receipts, err := orch.RunToCompletion(ctx, *maxTicks)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printReceipts(receipts)
		return kgclerrors.ExitCode(err)
	}
	printReceipts(receipts)
	return 0
}

// admitGraph reads path (JSON or a Turtle fragment) and admits it
// through the Blood-Brain-Barrier before applying it to g. No fixed
// SHACL shapes are wired here: a production deployment supplies its
// own shapesTTL alongside --graph.
func admitGraph(ctx context.Context, g store.Store, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return kgclerrors.Wrap(kgclerrors.TopologyViolation, err, fmt.Sprintf("reading %s", path))
	}
	barrier := bbb.New(shacl.New(), "")
	delta, err := barrier.Admit(ctx, raw)
	if err != nil {
		return err
	}
	return g.Apply(ctx, delta)
}

func buildCommitStore(ctx context.Context, dir string) (lockchain.CommitStore, error) {
	if dir == "" {
		return lockchain.NewMemoryCommitStore(), nil
	}
	return lockchain.NewGitCommitStore(ctx, dir)
}

func printReceipts(receipts []tick.Receipt) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, r := range receipts {
		_ = enc.Encode(map[string]any{
			"tick":              r.Tick,
			"converged":         r.Converged,
			"rules_fired":       r.RulesFired,
			"triples_added":     r.TriplesAdded,
			"triples_removed":   r.TriplesRemoved,
			"state_hash_before": r.StateHashBefore,
			"state_hash_after":  r.StateHashAfter,
		})
	}
}
