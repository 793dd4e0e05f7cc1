// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graphutil

import (
	"fmt"
	"testing"

	"gonum.org/v1/gonum/graph/simple"
)

type edgeList map[int64][]int64

func buildDirected(edges edgeList) *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for from, outs := range edges {
		if g.Node(from) == nil {
			g.AddNode(simple.Node(from))
		}
		for _, to := range outs {
			g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}
	return g
}

// reachable computes whether y is reachable from x following the edges
func reachable(edges edgeList, x, y int64) bool {
	visited := map[int64]bool{}
	var visit func(int64)
	visit = func(n int64) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, nn := range edges[n] {
			visit(nn)
		}
	}
	visit(x)
	return visited[y]
}

func allNodes(edges edgeList) map[int64]bool {
	nodes := map[int64]bool{}
	for from, outs := range edges {
		nodes[from] = true
		for _, to := range outs {
			nodes[to] = true
		}
	}
	return nodes
}

// checkBottomUp asserts that every node appears exactly once and that no node can reach a node
// of a later component: components only have edges into earlier ones.
func checkBottomUp(t *testing.T, edges edgeList) error {
	t.Helper()
	sccs := BottomUpOrder(buildDirected(edges))

	covered := map[int64]bool{}
	for i, scc := range sccs {
		for _, n := range scc {
			if covered[n.ID()] {
				return fmt.Errorf("repeated node %v\nin:%v", n.ID(), edges)
			}
			covered[n.ID()] = true
			for j := i + 1; j < len(sccs); j++ {
				for _, m := range sccs[j] {
					if reachable(edges, n.ID(), m.ID()) {
						return fmt.Errorf("node %v appears before reachable node %v\nin:%v",
							n.ID(), m.ID(), edges)
					}
				}
			}
		}
	}
	for n := range allNodes(edges) {
		if !covered[n] {
			return fmt.Errorf("missing node %v\nin:%v", n, edges)
		}
	}
	return nil
}

func TestBottomUpOrderChain(t *testing.T) {
	sccs := BottomUpOrder(buildDirected(edgeList{0: {1}, 1: {2}}))
	if len(sccs) != 3 {
		t.Fatalf("expected 3 components, got %d", len(sccs))
	}
	want := []int64{2, 1, 0}
	for i, scc := range sccs {
		if len(scc) != 1 || scc[0].ID() != want[i] {
			t.Fatalf("expected node %d at position %d, got %v", want[i], i, scc)
		}
	}
}

func TestBottomUpOrderCycleBeforeCaller(t *testing.T) {
	// 0 and 1 call each other, both reach the leaf 2
	sccs := BottomUpOrder(buildDirected(edgeList{0: {1, 2}, 1: {0}}))
	if len(sccs) != 2 {
		t.Fatalf("expected 2 components, got %d", len(sccs))
	}
	if len(sccs[0]) != 1 || sccs[0][0].ID() != 2 {
		t.Fatalf("the leaf callee must come first, got %v", sccs[0])
	}
	if len(sccs[1]) != 2 {
		t.Fatalf("expected the cycle as one component, got %v", sccs[1])
	}
}

func TestBottomUpOrderProperty(t *testing.T) {
	graphs := []edgeList{
		{0: {1, 2}, 1: {3}, 2: {1}},
		{0: {1}, 1: {2}, 2: {0, 3}},
		{0: {}, 1: {}, 2: {0}},
		{0: {1, 2}, 1: {3}, 2: {1, 0}},
	}
	for _, edges := range graphs {
		if err := checkBottomUp(t, edges); err != nil {
			t.Fatalf("error: %v", err)
		}
	}
}
