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

package lang

import (
	"github.com/awslabs/fluentcheck/internal/funcutil"
	"golang.org/x/tools/go/ssa"
)

// IterativeAnalysis is an iterative analysis that extends an InstrOp with a function executed each time a
// new Block is visited, and a function that queries the analysis once the Block has been visited to check
// whether the analysis information has changed.
type IterativeAnalysis interface {
	InstrOp
	Pre(instruction ssa.Instruction)
	Post(instruction ssa.Instruction)
	NewBlock(block *ssa.BasicBlock)
	ChangedOnEndBlock() bool // ChangedOnEndBlock returns a boolean signaling the information has changed.
}

// RunForwardIterative visits the blocks in the function. At each Block visited, it queues the successors of the Block
// if the information for the Block has changed after visiting each of its instructions.
// All reachable blocks of the function will be visited if the call to ChangedOnBlock is true after each first visit
// to a given Block (the IterativeAnalysis structure must keep track of previously visited blocks, and ensure
// termination)
func RunForwardIterative(op IterativeAnalysis, function *ssa.Function) {
	if len(function.Blocks) == 0 {
		return
	}
	// Block indexes to visit next
	var worklist []*ssa.BasicBlock
	// memoize paths between blocks
	var pathMem map[*ssa.BasicBlock]map[*ssa.BasicBlock]bool
	worklist = append(worklist, function.Blocks[0])
	for { // until fixpoint is reached
		// Set the current Block if there is one
		if len(worklist) == 0 {
			return
		}
		block := worklist[0]
		worklist = worklist[1:]
		// Iterate through instructions.
		op.NewBlock(block)
		for _, instr := range block.Instrs {
			op.Pre(instr)
			InstrSwitch(op, instr)
			op.Post(instr)
		}
		if op.ChangedOnEndBlock() {
			for _, nextBlock := range function.Blocks {
				if HasPathTo(block, nextBlock, pathMem) {
					if !funcutil.Contains(worklist, nextBlock) {
						worklist = append(worklist, nextBlock)
					}
				}
			}
		}

	}
}
