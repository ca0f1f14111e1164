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

// Package patterns holds the Workflow Control Pattern (WCP 1-27) set
// as a frozen catalog of descriptors — data consulted by
// the kernel and the SemanticDriver, never polymorphic per-pattern
// classes. The handful of patterns whose enabling rule requires
// runtime state beyond a kernel verb (deferred choice, interleaved
// parallel's mutex, milestone, the two trigger patterns, cancel
// multi-instance) get small free functions here that read/write that
// state as quads in the graph store, the same way the rest of this
// engine represents state — never as fields mutated on a pattern
// struct.
package patterns

// Category groups related patterns for documentation/reporting.
type Category string

const (
	CategoryBasicControlFlow  Category = "basic_control_flow"
	CategoryAdvancedBranching Category = "advanced_branching_synchronization"
	CategoryMultipleInstance  Category = "multiple_instance"
	CategoryStateBased        Category = "state_based"
	CategoryCancellation      Category = "cancellation"
)

// Descriptor is a frozen Workflow Control Pattern entry: an id, a
// name, its category, and a one-line statement of its enabling rule.
// Descriptors carry no behavior; pkg/kernel and pkg/driver consult the
// ones they need directly, and the handful requiring runtime state use
// the functions below.
type Descriptor struct {
	ID         int
	Name       string
	Category   Category
	Obligation string
}

// Catalog is the full WCP 1-27 descriptor set, in pattern-id order.
var Catalog = []Descriptor{
	{1, "Sequence", CategoryBasicControlFlow, "single successor activated in order"},
	{2, "Parallel Split", CategoryBasicControlFlow, "exactly one input arc from a transition to each downstream place; firing produces tokens on all successors"},
	{3, "Synchronization", CategoryBasicControlFlow, "activated once every incoming branch has completed"},
	{4, "Exclusive Choice", CategoryBasicControlFlow, "exactly one downstream path activates; deterministic lowest-guard-IRI tie-break"},
	{5, "Simple Merge", CategoryBasicControlFlow, "first event to a place with multiple incoming transitions wins; others are discarded"},
	{6, "Multi-Choice", CategoryAdvancedBranching, "one or more of several outgoing branches activate, each independently guarded"},
	{7, "Structured Synchronizing Merge", CategoryAdvancedBranching, "activated once every branch activated by the corresponding multi-choice has completed"},
	{8, "Multi-Merge", CategoryAdvancedBranching, "activated once per completed incoming branch, no synchronization"},
	{9, "Structured Discriminator", CategoryAdvancedBranching, "activated by the first of N incoming branches; remaining arrivals are consumed silently"},
	{10, "Arbitrary Cycles", CategoryBasicControlFlow, "unstructured loop back to an earlier point in the net"},
	{11, "Implicit Termination", CategoryBasicControlFlow, "workflow completes when no transition remains enabled"},
	{12, "Multiple Instances Without Synchronization", CategoryMultipleInstance, "instances created and run independently without a join"},
	{13, "Multiple Instances With a Priori Design-Time Knowledge", CategoryMultipleInstance, "a fixed, statically known instance count is created and joined"},
	{14, "Multiple Instances With a Priori Run-Time Knowledge", CategoryMultipleInstance, "the instance count is determined at runtime before instances are created"},
	{15, "Multiple Instances Without a Priori Run-Time Knowledge", CategoryMultipleInstance, "instances may be created dynamically even after some have already completed"},
	{16, "Deferred Choice", CategoryStateBased, "all outgoing branches are marked enabled; the first external event commits to one branch, disabling the rest atomically within the same tick"},
	{17, "Interleaved Parallel Routing", CategoryStateBased, "mutual exclusion over a named set; acquire_mutex(task) returns false when another task in the set is active"},
	{18, "Milestone", CategoryStateBased, "task is enabled exactly while a SPARQL-ASK condition holds; the condition is re-evaluated every tick"},
	{19, "Cancel Task", CategoryCancellation, "cancels a single enabled or active task instance"},
	{20, "Cancel Case", CategoryCancellation, "cancels every task instance belonging to a case"},
	{21, "Structured Loop", CategoryBasicControlFlow, "a structured pre/post-tested repeat construct"},
	{22, "Recursion", CategoryBasicControlFlow, "a task or sub-process invokes itself"},
	{23, "Cancel Region", CategoryCancellation, "cancels every task instance within a named region of the net"},
	{24, "Complete Multiple Instance Task", CategoryMultipleInstance, "completes a multi-instance task once its configured completion condition over running instances is satisfied"},
	{25, "Transient Trigger", CategoryStateBased, "fires at most once; further activations are no-ops"},
	{26, "Persistent Trigger", CategoryStateBased, "fires on every matching event while enabled; maintains a fire counter"},
	{27, "Cancel Multiple Instance Activity", CategoryCancellation, "enumerates all instances of a task, marks each cancelled, records cancelledAt, returns a {cancelled, failed, errors} summary"},
}

// ByID looks up a pattern descriptor by its WCP number.
func ByID(id int) (Descriptor, bool) {
	for _, d := range Catalog {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}
