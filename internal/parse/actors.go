package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"crateindex/internal/model"
)

// recognizedActorTraits names the trait identifiers that mark a type as
// an actor when implemented directly (signal a, §4.2.5). It holds only
// "Actor", the library trait itself.
var recognizedActorTraits = map[string]bool{
	"Actor": true,
}

// detectDerivedActor implements signal (b): a `#[derive(Actor)]` or
// `#[derive(Message)]` attribute immediately preceding the item.
func (w *walker) detectDerivedActor(n *sitter.Node, t *model.Type) {
	prev := n.PrevSibling()
	for prev != nil && prev.Type() == "attribute_item" {
		text := w.text(prev)
		if strings.Contains(text, "derive") {
			if strings.Contains(text, "Actor") {
				w.addOrUpdateActor(model.Actor{ID: t.ID, Kind: model.ActorKindDerived})
			}
			if strings.Contains(text, "Message") {
				w.out.MessageTypes = append(w.out.MessageTypes, model.MessageType{
					QualifiedName: t.QualifiedName,
					Shape:         string(t.Kind),
				})
			}
		}
		prev = prev.PrevSibling()
	}
}

// detectActorFromImpl implements signal (a): `impl Actor for X` (or a
// `#[kameo(remote)]`-flavored variant of the same trait), and the
// project's own `distributed_actor!`-style actors which surface here as
// an impl of the library trait on a type whose name was already
// recorded as distributed by handleMacroInvocation.
func (w *walker) detectActorFromImpl(impl model.ImplBlock, implNode *sitter.Node) {
	trait := baseTraitName(impl.TraitName)
	if !recognizedActorTraits[trait] {
		return
	}
	a := model.Actor{ID: w.typeID(impl.TypeName), Kind: model.ActorKindBasic}
	if isRemoteActor(implNode, w) {
		a.IsDistributed = true
	}
	w.addOrUpdateActor(a)
}

// detectMessageHandlerFromImpl recognizes `impl MessageHandler<M> for X`
// and records the (actor, message) handler pair along with the reply
// type and async-ness of its `handle` method (§4.2.7).
func (w *walker) detectMessageHandlerFromImpl(impl model.ImplBlock, traitNode *sitter.Node) {
	trait := baseTraitName(impl.TraitName)
	if trait != "MessageHandler" {
		return
	}
	msg := genericArg(impl.TraitName)
	if msg == "" {
		return
	}

	isAsync := false
	replyType := ""
	for _, fnID := range impl.Methods {
		fn, ok := w.out.FunctionByID(fnID)
		if !ok || fn.Name != "handle" {
			continue
		}
		isAsync = fn.IsAsync
		replyType = fn.ReturnType
	}

	w.out.MessageHandlers = append(w.out.MessageHandlers, model.MessageHandler{
		Actor:     impl.TypeName,
		Message:   msg,
		ReplyType: replyType,
		IsAsync:   isAsync,
	})
}

// typeID resolves the stable ID of a type already recorded in this
// file, falling back to a line-less placeholder for forward references
// (a type implemented before its own definition appears, or defined in
// another file). Placeholders are not reconciled with the real IDs
// later: the merge stage's shadowing pass only adjusts IsTraitImpl.
func (w *walker) typeID(typeName string) string {
	for _, t := range w.out.Types {
		if t.Name == typeName || t.QualifiedName == typeName {
			return t.ID
		}
	}
	return w.crate + ":" + typeName
}

func baseTraitName(traitName string) string {
	if idx := strings.IndexByte(traitName, '<'); idx >= 0 {
		return strings.TrimSpace(traitName[:idx])
	}
	return strings.TrimSpace(traitName)
}

func genericArg(traitName string) string {
	start := strings.IndexByte(traitName, '<')
	end := strings.LastIndexByte(traitName, '>')
	if start < 0 || end < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(traitName[start+1 : end])
}

// isRemoteActor checks for a preceding `#[kameo(remote)]`-shaped
// attribute on the impl block, which marks the actor as distributed.
func isRemoteActor(n *sitter.Node, w *walker) bool {
	prev := n.PrevSibling()
	for prev != nil && prev.Type() == "attribute_item" {
		if strings.Contains(w.text(prev), "remote") {
			return true
		}
		prev = prev.PrevSibling()
	}
	return false
}

func (w *walker) addOrUpdateActor(a model.Actor) {
	for i := range w.out.Actors {
		if w.out.Actors[i].ID == a.ID {
			// A direct trait impl or derive always outranks an inferred
			// signal recorded from an earlier spawn site.
			if w.out.Actors[i].Kind == model.ActorKindInferred {
				w.out.Actors[i].Kind = a.Kind
			}
			if a.IsDistributed {
				w.out.Actors[i].IsDistributed = true
			}
			return
		}
	}
	w.out.Actors = append(w.out.Actors, a)
}
