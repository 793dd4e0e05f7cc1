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

package fluent

import (
	"fmt"
	"go/token"
	"go/types"

	"github.com/awslabs/fluentcheck/analysis/config"
	"github.com/awslabs/fluentcheck/analysis/lang"
	"golang.org/x/tools/go/ssa"
)

// IntraAnalysisState is the per-procedure state of the fixpoint computation: the abstract
// state flowing through the current block, the post-states of the blocks already visited, and
// the accumulated return bindings. It implements lang.IterativeAnalysis so the generic forward
// solver can drive it; it owns no worklist logic of its own.
type IntraAnalysisState struct {
	function   *ssa.Function
	proc       string
	classifier Classifier
	provider   SummaryProvider
	logger     *config.LogGroup
	maxSuffix  int

	// initial is the state seeded from the formal parameters
	initial *AbstractState

	// flow is the state the current block is being executed against
	flow *AbstractState

	// blockOut holds the post-state of every visited block; ChangedOnEndBlock merges into it
	blockOut map[*ssa.BasicBlock]*AbstractState

	// returnState accumulates the return-rooted bindings of every return instruction
	returnState *AbstractState

	curBlock *ssa.BasicBlock
}

// NewIntraAnalysisState returns the analysis state for function, seeded from its formal
// parameters: each formal starts with an empty call set and no chain progress.
func NewIntraAnalysisState(function *ssa.Function, classifier Classifier,
	provider SummaryProvider, logger *config.LogGroup, maxSuffix int) *IntraAnalysisState {
	proc := function.String()
	initial := NewAbstractState(proc)
	for _, param := range function.Params {
		initial.Calls[LocalPath(proc, param)] = NewCallSet()
	}
	return &IntraAnalysisState{
		function:    function,
		proc:        proc,
		classifier:  classifier,
		provider:    provider,
		logger:      logger,
		maxSuffix:   maxSuffix,
		initial:     initial,
		flow:        initial.Copy(),
		blockOut:    map[*ssa.BasicBlock]*AbstractState{},
		returnState: NewAbstractState(proc),
	}
}

// pathOf returns the access path of value v, canonicalizing through the address-computing
// instructions so that a store through a field address and a later load of the same field meet
// on the same path.
func (t *IntraAnalysisState) pathOf(v ssa.Value) AccessPath {
	switch v := v.(type) {
	case *ssa.FieldAddr:
		return t.pathOf(v.X).Extend("."+fieldAddrName(v), t.maxSuffix)
	case *ssa.IndexAddr:
		return t.pathOf(v.X).Extend("[*]", t.maxSuffix)
	case *ssa.MakeInterface:
		return t.pathOf(v.X)
	case *ssa.ChangeType:
		return t.pathOf(v.X)
	case *ssa.ChangeInterface:
		return t.pathOf(v.X)
	default:
		return LocalPath(t.proc, v)
	}
}

func (t *IntraAnalysisState) position(instr ssa.Instruction) token.Position {
	return t.function.Prog.Fset.Position(instr.Pos())
}

// NewBlock sets up the flow state of block by joining the post-states of its predecessors.
// The entry block additionally starts from the formal-seeded initial state.
func (t *IntraAnalysisState) NewBlock(block *ssa.BasicBlock) {
	t.curBlock = block
	if block.Index == 0 {
		t.flow = t.initial.Copy()
	} else {
		t.flow = NewAbstractState(t.proc)
	}
	for _, pred := range block.Preds {
		if out, ok := t.blockOut[pred]; ok {
			out.MergeInto(t.flow)
		}
	}
}

// ChangedOnEndBlock merges the flow state into the recorded post-state of the current block
// and reports whether the post-state changed. Merging keeps the per-block information
// monotone, which guarantees the fixpoint terminates.
func (t *IntraAnalysisState) ChangedOnEndBlock() bool {
	out, ok := t.blockOut[t.curBlock]
	if !ok {
		t.blockOut[t.curBlock] = t.flow.Copy()
		return true
	}
	return t.flow.MergeInto(out)
}

// Pre logs the instruction about to be executed at trace level.
func (t *IntraAnalysisState) Pre(instr ssa.Instruction) {
	t.logger.Tracef("%s: %s", t.proc, lang.FmtInstr(instr))
}

// Post does nothing, all the work happens in the instruction operations.
func (t *IntraAnalysisState) Post(_ ssa.Instruction) {}

// DoCall executes a call instruction; the call is also a value binding its results.
func (t *IntraAnalysisState) DoCall(instr *ssa.Call) {
	t.transferCall(instr, instr)
}

// DoDefer executes a deferred call. The call has no result binding, so tracking applies to the
// receiver only. Defers run at function exit; treating them at the defer site over-approximates
// the chain, which is the safe direction for the union join.
func (t *IntraAnalysisState) DoDefer(instr *ssa.Defer) {
	t.transferCall(instr, nil)
}

// DoGo executes a go instruction, like a defer without result binding.
func (t *IntraAnalysisState) DoGo(instr *ssa.Go) {
	t.transferCall(instr, nil)
}

// transferCall is the call case of the transfer function. With a static callee, either the
// classifier gates pass or the receiver is already tracked, and the call extends the chain
// according to the callee's shape; otherwise the callee's summary is substituted into the
// caller. Dynamic dispatch is out of scope and leaves the state unchanged.
func (t *IntraAnalysisState) transferCall(instr ssa.CallInstruction, result ssa.Value) {
	callee := instr.Common().StaticCallee()
	if callee == nil {
		return
	}
	args := lang.GetArgs(instr)
	var calleeSummary *Summary
	if t.provider != nil {
		calleeSummary = t.provider.Lookup(callee).ValueOr(nil)
	}

	var rpath AccessPath
	hasRecv := callee.Signature.Recv() != nil && len(args) > 0
	if hasRecv {
		rpath = t.pathOf(args[0])
	}

	gates := t.classifier.CheckCallee(callee, calleeSummary) &&
		t.classifier.SatisfiesHeuristic(callee, calleeSummary)
	// Anything invoked on an already-tracked receiver stays tracked: long chains propagate
	// without re-checking the root at every link. Narrowing this union changes recall.
	tracked := hasRecv && t.flow.IsTracked(rpath)

	if !gates && !tracked {
		if calleeSummary != nil {
			t.applySummary(calleeSummary, args, result)
		}
		return
	}

	pos := t.position(instr)
	calleeName := callee.String()
	shape := t.classifier.ShapeOf(callee)
	t.logger.Tracef("%s: tracking call to %s (shape %d)", t.proc, calleeName, shape)

	if result == nil {
		// defer/go: no result to bind, the chain advances on the receiver in place
		if hasRecv {
			t.flow.AddCall(rpath, CallRecord{Receiver: rpath, Callee: calleeName, Pos: pos})
			switch shape {
			case ShapeTerminal:
				t.finalize(rpath, pos)
			case ShapeStep:
				t.markStep(rpath, callee.Name(), pos)
			}
		}
		return
	}

	respath := t.pathOf(result)
	recv := rpath
	if !hasRecv {
		recv = respath
	}
	// The result may be rebound across control-flow joins, so the record merges with
	// whatever call set is already bound to the result path.
	t.flow.AddCall(respath, CallRecord{Receiver: recv, Callee: calleeName, Pos: pos})

	switch shape {
	case ShapeFactory:
		created := namedTypeName(result.Type())
		if created == "" {
			created = callee.Name()
		}
		t.flow.Progress[respath] = NewProgress(created, pos)
	case ShapeTerminal:
		if hasRecv {
			t.finalize(rpath, pos)
		}
	case ShapeStep:
		if hasRecv {
			t.markStep(rpath, callee.Name(), pos)
			// builder methods return the receiver, the chain continues on the result
			t.flow.CopyTracking(rpath, respath)
		}
	default:
		// A tracked call without a chain shape, e.g. a helper returning a builder: the chain
		// it built internally arrives through its summary.
		if hasRecv {
			t.flow.CopyTracking(rpath, respath)
		}
		if calleeSummary != nil {
			t.applySummary(calleeSummary, args, result)
		}
	}
}

// finalize consumes the chain progress bound to rpath: the record moves to the finalized map
// keyed by the terminal position, where the reporting pass checks it against the rules.
func (t *IntraAnalysisState) finalize(rpath AccessPath, pos token.Position) {
	prog := t.flow.ProgressAt(rpath)
	if prog == nil {
		return
	}
	final := prog.Copy()
	final.Done = true
	final.DonePos = pos
	key := FinalKey{Pos: pos, Receiver: rpath}
	if existing, ok := t.flow.Finalized[key]; ok {
		final.MergeInto(existing)
	} else {
		t.flow.Finalized[key] = final
	}
	delete(t.flow.Progress, rpath)
}

// markStep records the configuration step name on the chain bound to rpath, creating a chain
// record if the receiver was tracked without one (e.g. a formal parameter).
func (t *IntraAnalysisState) markStep(rpath AccessPath, name string, pos token.Position) {
	prog := t.flow.ProgressAt(rpath)
	if prog == nil {
		prog = NewProgress("", pos)
		t.flow.Progress[rpath] = prog
	}
	prog.MarkStep(name)
}

// applySummary substitutes the callee's summary into the caller state: every formal-rooted
// path is rebound to the matching actual argument and every return-rooted path to the call
// result; anything else in the callee is a pure local and is dropped.
func (t *IntraAnalysisState) applySummary(calleeSummary *Summary, args []ssa.Value, result ssa.Value) {
	sub := func(p AccessPath) (AccessPath, bool) {
		switch p.Root {
		case RootFormal:
			if p.Index >= 0 && p.Index < len(args) {
				return t.pathOf(args[p.Index]).WithSuffix(p.Suffix), true
			}
			return p, false
		case RootReturn:
			if result == nil || calleeSummary.IsVoid {
				return p, false
			}
			base := t.pathOf(result)
			if calleeSummary.NumResults > 1 {
				return base.WithSuffix(fmt.Sprintf("#%d", p.Index) + p.Suffix), true
			}
			return base.WithSuffix(p.Suffix), true
		default:
			return p, false
		}
	}

	for path, set := range calleeSummary.State.Calls {
		np, ok := sub(path)
		if !ok {
			continue
		}
		nset := set.Substitute(sub)
		if existing, found := t.flow.Calls[np]; found {
			nset.MergeInto(existing)
		} else if len(nset) > 0 {
			t.flow.Calls[np] = nset
		}
	}
	for path, prog := range calleeSummary.State.Progress {
		np, ok := sub(path)
		if !ok {
			continue
		}
		if existing, found := t.flow.Progress[np]; found {
			prog.MergeInto(existing)
		} else {
			t.flow.Progress[np] = prog.Copy()
		}
	}
	// Finalized chains travel up so violations found in helpers surface at reporting entry
	// points; receivers keep their callee-local name when they have no caller binding.
	for k, prog := range calleeSummary.State.Finalized {
		nk := k
		if np, ok := sub(k.Receiver); ok {
			nk.Receiver = np
		}
		if existing, found := t.flow.Finalized[nk]; found {
			prog.MergeInto(existing)
		} else {
			t.flow.Finalized[nk] = prog.Copy()
		}
	}
}

// DoStore strongly updates the stored-to location with the tracking of the stored value.
func (t *IntraAnalysisState) DoStore(instr *ssa.Store) {
	t.flow.SetTracking(t.pathOf(instr.Val), t.pathOf(instr.Addr))
}

// DoUnOp treats loads as aliasing reads; other unary operations leave the state unchanged.
func (t *IntraAnalysisState) DoUnOp(instr *ssa.UnOp) {
	if instr.Op == token.MUL {
		t.flow.CopyTracking(t.pathOf(instr.X), t.pathOf(instr))
	}
}

// DoExtract binds the extracted component of a tuple.
func (t *IntraAnalysisState) DoExtract(instr *ssa.Extract) {
	src := t.pathOf(instr.Tuple).Extend(fmt.Sprintf("#%d", instr.Index), t.maxSuffix)
	t.flow.CopyTracking(src, t.pathOf(instr))
}

// DoPhi joins the tracking of every incoming edge into the phi value.
func (t *IntraAnalysisState) DoPhi(instr *ssa.Phi) {
	dst := t.pathOf(instr)
	for _, edge := range instr.Edges {
		t.flow.CopyTracking(t.pathOf(edge), dst)
	}
}

// DoField binds the field component of a struct value.
func (t *IntraAnalysisState) DoField(instr *ssa.Field) {
	tt, ok := instr.X.Type().Underlying().(*types.Struct)
	if !ok {
		return
	}
	src := t.pathOf(instr.X).Extend("."+tt.Field(instr.Field).Name(), t.maxSuffix)
	t.flow.CopyTracking(src, t.pathOf(instr))
}

// DoIndex binds the element component of an array value. All indices collapse on one path.
func (t *IntraAnalysisState) DoIndex(instr *ssa.Index) {
	src := t.pathOf(instr.X).Extend("[*]", t.maxSuffix)
	t.flow.CopyTracking(src, t.pathOf(instr))
}

// DoLookup binds the element component of a map read.
func (t *IntraAnalysisState) DoLookup(instr *ssa.Lookup) {
	src := t.pathOf(instr.X).Extend("[*]", t.maxSuffix)
	t.flow.CopyTracking(src, t.pathOf(instr))
}

// DoMapUpdate joins the written value into the element path of the map.
func (t *IntraAnalysisState) DoMapUpdate(instr *ssa.MapUpdate) {
	dst := t.pathOf(instr.Map).Extend("[*]", t.maxSuffix)
	t.flow.CopyTracking(t.pathOf(instr.Value), dst)
}

// DoConvert aliases the converted value.
func (t *IntraAnalysisState) DoConvert(instr *ssa.Convert) {
	t.flow.CopyTracking(t.pathOf(instr.X), t.pathOf(instr))
}

// DoMultiConvert aliases the converted value. The builder emits this instead of Convert inside
// generic bodies, where the conversion kind depends on the instantiation.
func (t *IntraAnalysisState) DoMultiConvert(instr *ssa.MultiConvert) {
	t.flow.CopyTracking(t.pathOf(instr.X), t.pathOf(instr))
}

// DoSliceArrayToPointer aliases the pointed-to array.
func (t *IntraAnalysisState) DoSliceArrayToPointer(instr *ssa.SliceToArrayPointer) {
	t.flow.CopyTracking(t.pathOf(instr.X), t.pathOf(instr))
}

// DoSlice aliases the sliced value.
func (t *IntraAnalysisState) DoSlice(instr *ssa.Slice) {
	t.flow.CopyTracking(t.pathOf(instr.X), t.pathOf(instr))
}

// DoTypeAssert aliases the asserted value; with comma-ok the value is the first component.
func (t *IntraAnalysisState) DoTypeAssert(instr *ssa.TypeAssert) {
	if instr.CommaOk {
		dst := t.pathOf(instr).Extend("#0", t.maxSuffix)
		t.flow.CopyTracking(t.pathOf(instr.X), dst)
		return
	}
	t.flow.CopyTracking(t.pathOf(instr.X), t.pathOf(instr))
}

// DoReturn binds the returned values to the symbolic return paths. Returns from different
// blocks join; the accumulated bindings become the return-rooted part of the summary.
func (t *IntraAnalysisState) DoReturn(instr *ssa.Return) {
	for i, res := range instr.Results {
		src := t.pathOf(res)
		rp := ReturnPath(t.proc, i)
		if set, ok := t.flow.Calls[src]; ok {
			dset, found := t.returnState.Calls[rp]
			if !found {
				dset = NewCallSet()
				t.returnState.Calls[rp] = dset
			}
			set.MergeInto(dset)
		}
		if prog, ok := t.flow.Progress[src]; ok {
			if existing, found := t.returnState.Progress[rp]; found {
				prog.MergeInto(existing)
			} else {
				t.returnState.Progress[rp] = prog.Copy()
			}
		}
	}
}

// The remaining instructions do not move tracked chains: identity transformation.

func (t *IntraAnalysisState) DoDebugRef(_ *ssa.DebugRef)                 {}
func (t *IntraAnalysisState) DoBinOp(_ *ssa.BinOp)                       {}
func (t *IntraAnalysisState) DoChangeInterface(_ *ssa.ChangeInterface)   {}
func (t *IntraAnalysisState) DoChangeType(_ *ssa.ChangeType)             {}
func (t *IntraAnalysisState) DoMakeInterface(_ *ssa.MakeInterface)       {}
func (t *IntraAnalysisState) DoRunDefers(_ *ssa.RunDefers)               {}
func (t *IntraAnalysisState) DoPanic(_ *ssa.Panic)                       {}
func (t *IntraAnalysisState) DoSend(_ *ssa.Send)                         {}
func (t *IntraAnalysisState) DoIf(_ *ssa.If)                             {}
func (t *IntraAnalysisState) DoJump(_ *ssa.Jump)                         {}
func (t *IntraAnalysisState) DoMakeChan(_ *ssa.MakeChan)                 {}
func (t *IntraAnalysisState) DoAlloc(_ *ssa.Alloc)                       {}
func (t *IntraAnalysisState) DoMakeSlice(_ *ssa.MakeSlice)               {}
func (t *IntraAnalysisState) DoMakeMap(_ *ssa.MakeMap)                   {}
func (t *IntraAnalysisState) DoRange(_ *ssa.Range)                       {}
func (t *IntraAnalysisState) DoNext(_ *ssa.Next)                         {}
func (t *IntraAnalysisState) DoFieldAddr(_ *ssa.FieldAddr)               {}
func (t *IntraAnalysisState) DoIndexAddr(_ *ssa.IndexAddr)               {}
func (t *IntraAnalysisState) DoMakeClosure(_ *ssa.MakeClosure)           {}
func (t *IntraAnalysisState) DoSelect(_ *ssa.Select)                     {}

// fieldAddrName returns the name of the field addressed by instr.
func fieldAddrName(instr *ssa.FieldAddr) string {
	ptr, ok := instr.X.Type().Underlying().(*types.Pointer)
	if !ok {
		return fmt.Sprintf("%d", instr.Field)
	}
	st, ok := ptr.Elem().Underlying().(*types.Struct)
	if !ok {
		return fmt.Sprintf("%d", instr.Field)
	}
	return st.Field(instr.Field).Name()
}
