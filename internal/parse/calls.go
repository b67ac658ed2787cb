package parse

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"crateindex/internal/model"
)

var spawnMethodNames = map[string]model.SpawnMethod{
	"spawn":              model.SpawnMethodSpawn,
	"spawn_with_mailbox": model.SpawnMethodSpawnWithMailbox,
	"spawn_link":         model.SpawnMethodSpawnLink,
	"spawn_in_thread":    model.SpawnMethodSpawnInThread,
}

// handleCallExpression extracts a Call record from a call_expression
// node, and — when the call shape matches a recognized spawn or
// tell/ask idiom — an ActorSpawn or MessageSend record too (§4.2.6,
// §4.2.7). The reference resolver (internal/resolve), not this pass,
// ever sets qualified_callee (§4.3).
func (w *walker) handleCallExpression(n *sitter.Node, ctx *funcContext) {
	fnNode := n.ChildByFieldName("function")
	if fnNode == nil {
		return
	}

	callerID := w.moduleLevelCallerID()
	if ctx != nil && ctx.functionID != "" {
		callerID = ctx.functionID
	}

	line := w.line(n)

	switch fnNode.Type() {
	case "identifier":
		name := w.text(fnNode)
		w.out.Calls = append(w.out.Calls, model.Call{
			CallerID:   callerID,
			File:       w.file,
			Line:       line,
			CalleeName: name,
			Kind:       model.CallKindFunction,
			FromCrate:  w.crate,
		})
	case "scoped_identifier":
		w.handleScopedCall(n, fnNode, callerID, line, ctx)
	case "field_expression":
		w.handleMethodCall(n, fnNode, callerID, line, ctx)
	}
}

func (w *walker) handleScopedCall(n, fnNode *sitter.Node, callerID string, line int, ctx *funcContext) {
	pathText := w.text(fnNode)
	parts := strings.Split(pathText, "::")
	methodName := parts[len(parts)-1]
	prefix := strings.Join(parts[:len(parts)-1], "::")

	// §4.3.2: scoped calls are deliberately left with
	// qualified_callee unset here by design — only the global index
	// stage (§4.5) resolves Type::method across crates.
	w.out.Calls = append(w.out.Calls, model.Call{
		CallerID:    callerID,
		File:        w.file,
		Line:        line,
		CalleeName:  methodName,
		Kind:        model.CallKindAssociated,
		FromCrate:   w.crate,
		ScopePrefix: prefix,
	})

	if spawnMethod, ok := spawnMethodNames[methodName]; ok {
		w.recordSpawn(n, prefix, spawnMethod, line, ctx)
	}
}

func (w *walker) handleMethodCall(n, fnNode *sitter.Node, callerID string, line int, ctx *funcContext) {
	receiver := fnNode.ChildByFieldName("value")
	field := fnNode.ChildByFieldName("field")
	if field == nil {
		return
	}
	methodName := w.text(field)

	w.out.Calls = append(w.out.Calls, model.Call{
		CallerID:   callerID,
		File:       w.file,
		Line:       line,
		CalleeName: methodName,
		Kind:       model.CallKindMethod,
		FromCrate:  w.crate,
	})

	if methodName == string(model.SendMethodTell) || methodName == string(model.SendMethodAsk) {
		w.recordSend(n, receiver, methodName, line, callerID)
	}
	if spawnMethod, ok := spawnMethodNames[methodName]; ok && receiver != nil {
		w.recordSpawn(n, w.text(receiver), spawnMethod, line, ctx)
	}
}

// recordSpawn classifies a spawn call's syntactic pattern (§4.2.6) by
// the shape of the receiver/prefix expression: an uppercase leading
// segment is a direct type reference; a prefix that names a trait
// already seen in this file is a trait-method call; anything else is
// treated as a module-level function.
func (w *walker) recordSpawn(n *sitter.Node, prefix string, method model.SpawnMethod, line int, ctx *funcContext) {
	childType := firstArgTypeGuess(n, w)
	pattern := classifySpawnPrefix(prefix, w.out.Types)

	parent := "module_level"
	if ctx != nil && ctx.implType != "" {
		parent = ctx.implType
	} else if ctx != nil && ctx.functionID != "" {
		parent = ctx.functionID
	}

	child := prefix
	if childType != "" {
		child = childType
	}

	w.out.Spawns = append(w.out.Spawns, model.ActorSpawn{
		Parent:  parent,
		Child:   child,
		File:    w.file,
		Line:    line,
		Method:  method,
		Pattern: pattern,
		Context: parent,
	})

	// Inferred-actor signal (§4.2.5c): the spawn receiver/argument is
	// treated as an actor unless already recorded via trait impl or
	// derive.
	w.markInferredActor(child)
}

func classifySpawnPrefix(prefix string, knownTypes []model.Type) model.SpawnPattern {
	if prefix == "" {
		return model.SpawnPatternModuleFunction
	}
	head := prefix
	if idx := strings.Index(prefix, "::"); idx >= 0 {
		head = prefix[:idx]
	}
	for _, t := range knownTypes {
		if t.Name == head && t.Kind == model.KindTrait {
			return model.SpawnPatternTraitMethod
		}
	}
	r := []rune(head)
	if len(r) > 0 && unicode.IsUpper(r[0]) {
		return model.SpawnPatternDirectType
	}
	return model.SpawnPatternModuleFunction
}

// firstArgTypeGuess extracts a composite-literal type name from the
// call's first argument, when the argument looks like `Type { .. }` or
// `Type::new(..)`; used to recover the spawned child's type when the
// receiver position only named a module path (e.g. `kameo::spawn(x)`).
func firstArgTypeGuess(n *sitter.Node, w *walker) string {
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		ch := args.Child(i)
		if ch.Type() == "struct_expression" {
			if typeNode := ch.ChildByFieldName("name"); typeNode != nil {
				return w.text(typeNode)
			}
		}
		if ch.Type() == "call_expression" {
			if fn := ch.ChildByFieldName("function"); fn != nil && fn.Type() == "scoped_identifier" {
				path := w.text(fn)
				if idx := strings.Index(path, "::"); idx >= 0 {
					return path[:idx]
				}
			}
		}
	}
	return ""
}

func (w *walker) recordSend(n, receiver *sitter.Node, method string, line int, callerID string) {
	if receiver == nil {
		return
	}
	target := w.text(receiver)
	message := ""
	if args := n.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
		message = w.text(args.NamedChild(0))
	}
	w.out.Sends = append(w.out.Sends, model.MessageSend{
		Sender:  callerID,
		Target:  target,
		Message: message,
		File:    w.file,
		Line:    line,
		Method:  model.SendMethod(method),
	})
}

func (w *walker) markInferredActor(typeName string) {
	if typeName == "" {
		return
	}
	w.addOrUpdateActor(model.Actor{ID: w.typeID(typeName), Kind: model.ActorKindInferred})
}
