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

// Package graphutil provides graph adapters and algorithms used to schedule the bottom-up
// summarization of procedures: the analysis must visit callees before callers, and needs to
// know which procedures participate in recursive call cycles.
package graphutil

import (
	"sort"

	"github.com/yourbasic/graph"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"
)

// CGraph is an abstraction over a callgraph to work with existing graph libraries. It implements
// yourbasic's graph.Iterator and Gonum's graph.Directed.
type CGraph struct {
	// The order of the graph
	order int

	// The original callgraph the CGraph was constructed from
	Graph *callgraph.Graph

	// IDMap maps from node IDs to CNodes
	IDMap map[int64]CNode

	// Keys are all the node IDs
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between IDMap[x] and IDMap[y]
	Edges map[int64]map[int64]bool
}

// NewCallgraphIterator returns a new call graph iterator where node ids correspond to the Node.ID
// of each callgraph node
func NewCallgraphIterator(cg *callgraph.Graph) CGraph {
	n := len(cg.Nodes)
	idmap := make(map[int64]CNode, n)
	edges := make(map[int64]map[int64]bool, n)
	keys := make([]int64, n)
	i := 0
	for _, node := range cg.Nodes {
		keys[i] = int64(node.ID)
		i++

		idmap[int64(node.ID)] = CNode{node}
		edges[int64(node.ID)] = map[int64]bool{}
		for _, e := range node.Out {
			if e.Callee != nil {
				edges[int64(node.ID)][int64(e.Callee.ID)] = true
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return CGraph{
		order: len(cg.Nodes),
		Graph: cg,
		IDMap: idmap,
		Edges: edges,
		Keys:  keys,
	}
}

// RecursiveFunctions returns the set of functions that participate in a call cycle: either a
// strongly connected component of two or more functions, or a direct self-call. The summary
// provider uses this information to treat in-cycle callees as having no summary instead of
// recursing forever.
func RecursiveFunctions(c CGraph) map[*ssa.Function]bool {
	recursive := map[*ssa.Function]bool{}
	components := graph.StrongComponents(c)
	for _, component := range components {
		if len(component) >= 2 {
			for _, id := range component {
				if node, ok := c.IDMap[int64(id)]; ok && node.Node.Func != nil {
					recursive[node.Node.Func] = true
				}
			}
		}
	}
	// Self-calls form components of size one but are still cycles
	for id, out := range c.Edges {
		if out[id] {
			if node, ok := c.IDMap[id]; ok && node.Node.Func != nil {
				recursive[node.Node.Func] = true
			}
		}
	}
	return recursive
}

// Order implements the order of the graph.Iterator interface for the CGraph
func (c CGraph) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the CGraph
func (c CGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if _, ok := c.IDMap[int64(v)]; !ok {
		return false
	}
	for w := range c.Edges[int64(v)] {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** Gonum Directed interface implementation **********************

// Node implements the Graph interface
func (c CGraph) Node(id int64) gonumgraph.Node {
	if n, ok := c.IDMap[id]; ok {
		return n
	}
	return nil
}

// Nodes returns the set of nodes in the graph, in id order
func (c CGraph) Nodes() gonumgraph.Nodes {
	keys := make([]int64, len(c.Keys))
	copy(keys, c.Keys)
	return newNodeSet(c.IDMap, keys)
}

// From returns the set of nodes reachable from the id by one edge, in id order
func (c CGraph) From(id int64) gonumgraph.Nodes {
	var keys []int64
	for out := range c.Edges[id] {
		keys = append(keys, out)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return newNodeSet(c.IDMap, keys)
}

// To returns the set of nodes with an edge to the id, in id order
func (c CGraph) To(id int64) gonumgraph.Nodes {
	var keys []int64
	for from, out := range c.Edges {
		if out[id] {
			keys = append(keys, from)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return newNodeSet(c.IDMap, keys)
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (c CGraph) HasEdgeBetween(xid, yid int64) bool {
	xe := c.Edges[xid]
	ye := c.Edges[yid]
	return xe[yid] || ye[xid]
}

// HasEdgeFromTo returns a boolean indicating whether a directed edge exists from uid to vid
func (c CGraph) HasEdgeFromTo(uid, vid int64) bool {
	return c.Edges[uid][vid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c CGraph) Edge(uid, vid int64) gonumgraph.Edge {
	ue := c.Edges[uid]
	if ue != nil {
		if ue[vid] {
			return CEdge{from: c.IDMap[uid], to: c.IDMap[vid]}
		}
	}
	return nil
}

// BottomUpOrder returns the strongly connected components of g ordered so that every component
// appears after the components it has edges into. On a call graph, where edges point from
// caller to callee, the order is callees first, which is the order a summary-based bottom-up
// analysis wants.
func BottomUpOrder(g gonumgraph.Directed) [][]gonumgraph.Node {
	sccs := topo.TarjanSCC(g)

	component := map[int64]int{}
	for i, scc := range sccs {
		for _, n := range scc {
			component[n.ID()] = i
		}
	}
	succs := make([][]int, len(sccs))
	for i, scc := range sccs {
		seen := map[int]bool{}
		for _, n := range scc {
			to := g.From(n.ID())
			for to.Next() {
				j := component[to.Node().ID()]
				if j != i && !seen[j] {
					seen[j] = true
					succs[i] = append(succs[i], j)
				}
			}
		}
		sort.Ints(succs[i])
	}

	// depth-first over the condensation, emitting successors before their predecessors
	out := make([][]gonumgraph.Node, 0, len(sccs))
	visited := make([]bool, len(sccs))
	var visit func(i int)
	visit = func(i int) {
		visited[i] = true
		for _, j := range succs[i] {
			if !visited[j] {
				visit(j)
			}
		}
		out = append(out, sccs[i])
	}
	for i := range sccs {
		if !visited[i] {
			visit(i)
		}
	}
	return out
}

// *************** Nodes implementation **********************

// CNode is a wrapper around a *callgraph.Node that implements the graph.Node interface
type CNode struct {
	Node *callgraph.Node
}

// ID returns the id of the node
func (n CNode) ID() int64 {
	return int64(n.Node.ID)
}

func (n CNode) String() string {
	if n.Node == nil {
		return ""
	}
	return n.Node.String()
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes. Next must be
// called before the first Node, per the gonum iterator contract.
type NodeSet struct {
	// nodes is the set of nodes in the iterator
	nodes map[int64]CNode

	// ids is the set of node ids in the iterator
	ids []int64

	// cur is the current index of the iterator, -1 before the first Next.
	// The current node is nodes[ids[cur]]
	cur int
}

func newNodeSet(nodes map[int64]CNode, ids []int64) *NodeSet {
	return &NodeSet{nodes: nodes, ids: ids, cur: -1}
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of nodes remaining in the iterator
func (ns *NodeSet) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset returns the iterator to its position before the first Next
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node returns the current node in the set
func (ns *NodeSet) Node() gonumgraph.Node {
	return ns.nodes[ns.ids[ns.cur]]
}

// *************** Edge implementation **********************

// CEdge implements the graph.Edge interface
type CEdge struct {
	from CNode
	to   CNode
}

// From returns the origin of the edge
func (e CEdge) From() gonumgraph.Node {
	return e.from
}

// To returns the destination of the edge
func (e CEdge) To() gonumgraph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e CEdge) ReversedEdge() gonumgraph.Edge {
	return CEdge{from: e.to, to: e.from}
}
