package parse

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"crateindex/internal/model"
)

var distributedActorStructRe = regexp.MustCompile(`struct\s+(\w+)`)

// handleMacroInvocation records the invocation without expanding it
// (§4.2.8): the payload token tree is kept verbatim for the later
// macro-synthesis pass (internal/macroexpand) to pattern-match against,
// rather than being walked as if it were ordinary source.
//
// One shape gets special-cased here rather than deferred: the
// project's own `distributed_actor! { struct X { .. } }` macro is
// common enough, and recognizable enough from its invocation name
// alone, that the actor it declares is worth surfacing immediately
// instead of waiting on synthesis.
func (w *walker) handleMacroInvocation(n *sitter.Node, ctx *funcContext) {
	nameNode := n.ChildByFieldName("macro")
	name := w.text(nameNode)

	var payload *sitter.Node
	if tt := n.ChildByFieldName("token_tree"); tt != nil {
		payload = tt
	} else if n.NamedChildCount() > 1 {
		payload = n.NamedChild(int(n.NamedChildCount()) - 1)
	}

	kind := classifyMacro(name)
	w.moduleLevelCallerID() // ensures a synthesis target exists for this file, even if no ordinary calls do

	exp := model.MacroExpansion{
		Crate:     w.crate,
		File:      w.file,
		SpanStart: w.line(n),
		SpanEnd:   w.endLine(n),
		Name:      name,
		Kind:      kind,
		Preview:   previewOf(w.text(n)),
	}
	if payload != nil {
		exp.Payload = w.src[payload.StartByte():payload.EndByte()]
	}
	w.out.MacroExpansions = append(w.out.MacroExpansions, exp)

	if name == "distributed_actor" && payload != nil {
		w.recordDistributedActor(w.text(payload))
	}
}

func classifyMacro(name string) model.MacroKind {
	switch name {
	case "paste":
		return model.MacroKindPaste
	case "derive":
		return model.MacroKindDerive
	default:
		return model.MacroKindCustom
	}
}

func previewOf(s string) string {
	s = strings.TrimSpace(s)
	const max = 160
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func (w *walker) recordDistributedActor(body string) {
	m := distributedActorStructRe.FindStringSubmatch(body)
	if m == nil {
		return
	}
	name := m[1]
	id := w.typeID(name)

	w.addOrUpdateActor(model.Actor{ID: id, Kind: model.ActorKindDerived, IsDistributed: true})
	w.out.DistributedActors = append(w.out.DistributedActors, model.DistributedActor{
		Actor: id,
	})
}
