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

package lockchain

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// canonicalYAML marshals v in the commit-hash canonical form: keys sorted
// alphabetically at every nesting level, RFC 3339 UTC timestamps
// (time.Time already marshals this way via yaml.v3's default encoder),
// rules_fired as a flow sequence. yaml.v3 preserves struct field order
// by default, so this round-trips through a generic yaml.Node tree and
// sorts every mapping node's keys before re-encoding.
func canonicalYAML(v any) ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(v); err != nil {
		return nil, err
	}
	sortMappingKeys(&node)
	flowSequence(&node, "rules_fired")

	return yaml.Marshal(&node)
}

// sortMappingKeys recursively sorts every MappingNode's key/value pairs
// by key text, depth-first.
func sortMappingKeys(n *yaml.Node) {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			sortMappingKeys(c)
		}
	case yaml.MappingNode:
		type pair struct{ key, value *yaml.Node }
		pairs := make([]pair, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			pairs = append(pairs, pair{n.Content[i], n.Content[i+1]})
		}
		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].key.Value < pairs[j].key.Value })
		content := make([]*yaml.Node, 0, len(n.Content))
		for _, p := range pairs {
			sortMappingKeys(p.value)
			content = append(content, p.key, p.value)
		}
		n.Content = content
	case yaml.SequenceNode:
		for _, c := range n.Content {
			sortMappingKeys(c)
		}
	}
}

// flowSequence forces every sequence node directly under a mapping key
// named fieldName into flow style ("[a, b, c]"); rules_fired is always
// written as a flow sequence.
func flowSequence(n *yaml.Node, fieldName string) {
	if n.Kind == yaml.DocumentNode {
		for _, c := range n.Content {
			flowSequence(c, fieldName)
		}
		return
	}
	if n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Value == fieldName && val.Kind == yaml.SequenceNode {
			val.Style = yaml.FlowStyle
		}
		if val.Kind == yaml.SequenceNode {
			for _, item := range val.Content {
				flowSequence(item, fieldName)
			}
		} else {
			flowSequence(val, fieldName)
		}
	}
}
