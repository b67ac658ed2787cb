package parse

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"crateindex/internal/model"
)

// funcContext tracks the enclosing function (for call-site context) and
// the enclosing impl (for trait-impl attribution) while walking.
type funcContext struct {
	functionID   string
	implType     string
	implTrait    string
	hasImplTrait bool
}

// walker is the cursor-driven, pre-order visitor that turns one file's
// concrete syntax tree into model records. It never expands macros
// (SPEC_FULL.md §4.2.8): macro invocations are recorded, not inlined.
type walker struct {
	crate string
	file  string
	src   []byte
	out   *model.ParsedSymbols

	modulePath string
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.src[n.StartByte():n.EndByte()])
}

func (w *walker) line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func (w *walker) endLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}

// moduleLevelCallerID returns the id of the synthetic function record
// that calls and macro invocations made outside any function body are
// attributed to, registering it on first use so the containment
// invariant holds (§3.2.2).
func (w *walker) moduleLevelCallerID() string {
	id := model.ModuleLevelFunctionID(w.crate, w.file)
	if _, ok := w.out.FunctionByID(id); ok {
		return id
	}
	w.out.Functions = append(w.out.Functions, model.Function{
		ID:            id,
		Name:          "module_level",
		QualifiedName: "module_level",
		Crate:         w.crate,
		File:          w.file,
		Visibility:    model.VisibilityPrivate,
	})
	return id
}

// walkFile visits top-level items. Items nested inside a function body
// are reached through walkNode's generic recursion, which also handles
// call/spawn/message extraction.
func (w *walker) walkFile(root *sitter.Node) {
	w.walkNode(root, nil)
}

func (w *walker) walkNode(n *sitter.Node, ctx *funcContext) {
	switch n.Type() {
	case "function_item":
		w.handleFunctionItem(n, ctx, "")
		return
	case "impl_item":
		w.handleImplItem(n)
		return
	case "struct_item":
		w.handleStructItem(n)
		return
	case "enum_item":
		w.handleEnumItem(n)
		return
	case "union_item":
		w.handleUnionItem(n)
		return
	case "trait_item":
		w.handleTraitItem(n)
		return
	case "type_item":
		w.handleTypeAlias(n)
		return
	case "mod_item":
		w.handleModItem(n, ctx)
		return
	case "use_declaration":
		w.handleUseDeclaration(n)
		return
	case "macro_invocation":
		w.handleMacroInvocation(n, ctx)
		// macro bodies are not walked further: identifiers inside a
		// token-tree payload are never promoted to symbols (§4.2,
		// known precision/recall trade-off, §9).
		return
	case "call_expression":
		w.handleCallExpression(n, ctx)
		// still recurse, in case of nested calls in arguments
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walkNode(n.Child(i), ctx)
	}
}

// ---------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------

func (w *walker) handleFunctionItem(n *sitter.Node, enclosing *funcContext, forcedQualified string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)

	qualified := name
	if enclosing != nil && enclosing.implType != "" {
		qualified = enclosing.implType + "::" + name
	}
	if forcedQualified != "" {
		qualified = forcedQualified
	}

	lineStart := w.line(n)
	id := model.FunctionID(w.crate, qualified, lineStart)

	fn := model.Function{
		ID:            id,
		Name:          name,
		QualifiedName: qualified,
		Crate:         w.crate,
		ModulePath:    w.modulePath,
		File:          w.file,
		LineStart:     lineStart,
		LineEnd:       w.endLine(n),
		Visibility:    visibilityOf(n, w),
		IsAsync:       hasModifier(n, "async"),
		IsUnsafe:      hasModifier(n, "unsafe"),
		IsGeneric:     n.ChildByFieldName("type_parameters") != nil,
		IsTest:        hasTestAttribute(n, w),
		IsTraitImpl:   enclosing != nil && enclosing.hasImplTrait,
		Parameters:    w.extractParameters(n),
		ReturnType:    w.extractReturnType(n),
		Doc:           w.extractDocComment(n),
		Signature:     w.extractSignature(n),
	}
	w.out.Functions = append(w.out.Functions, fn)

	childCtx := &funcContext{functionID: id}
	if enclosing != nil {
		childCtx.implType = enclosing.implType
		childCtx.implTrait = enclosing.implTrait
		childCtx.hasImplTrait = enclosing.hasImplTrait
	}
	if body := n.ChildByFieldName("body"); body != nil {
		w.walkNode(body, childCtx)
	}
}

func visibilityOf(n *sitter.Node, w *walker) model.Visibility {
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if ch.Type() != "visibility_modifier" {
			continue
		}
		text := w.text(ch)
		switch {
		case text == "pub":
			return model.VisibilityPublic
		case strings.Contains(text, "crate"):
			return model.VisibilityCrateScope
		case strings.Contains(text, "super"):
			return model.VisibilitySuperScope
		}
		return model.VisibilityPublic
	}
	return model.VisibilityPrivate
}

func hasModifier(n *sitter.Node, keyword string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == keyword {
			return true
		}
	}
	return false
}

func hasTestAttribute(n *sitter.Node, w *walker) bool {
	prev := n.PrevSibling()
	for prev != nil && prev.Type() == "attribute_item" {
		text := w.text(prev)
		if strings.Contains(text, "test") {
			return true
		}
		prev = prev.PrevSibling()
	}
	return false
}

func (w *walker) extractParameters(n *sitter.Node) []model.Parameter {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []model.Parameter
	ordinal := 0
	for i := 0; i < int(params.ChildCount()); i++ {
		ch := params.Child(i)
		switch ch.Type() {
		case "self_parameter":
			text := w.text(ch)
			out = append(out, model.Parameter{
				Ordinal:   ordinal,
				Name:      "self",
				TypeText:  text,
				IsSelf:    true,
				IsMutable: strings.Contains(text, "mut"),
			})
			ordinal++
		case "parameter":
			pat := ch.ChildByFieldName("pattern")
			typ := ch.ChildByFieldName("type")
			name := w.text(pat)
			out = append(out, model.Parameter{
				Ordinal:   ordinal,
				Name:      name,
				TypeText:  w.text(typ),
				IsMutable: strings.HasPrefix(w.text(typ), "&mut"),
			})
			ordinal++
		}
	}
	return out
}

func (w *walker) extractReturnType(n *sitter.Node) string {
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		return w.text(ret)
	}
	return ""
}

func (w *walker) extractSignature(n *sitter.Node) string {
	if body := n.ChildByFieldName("body"); body != nil {
		return strings.TrimSpace(w.text(n)[:int(body.StartByte()-n.StartByte())])
	}
	return strings.TrimSpace(w.text(n))
}

// extractDocComment collects contiguous preceding `///` line comments.
func (w *walker) extractDocComment(n *sitter.Node) string {
	var lines []string
	prev := n.PrevSibling()
	for prev != nil && (prev.Type() == "line_comment" || prev.Type() == "attribute_item") {
		if prev.Type() == "line_comment" {
			text := w.text(prev)
			if strings.HasPrefix(text, "///") {
				lines = append([]string{strings.TrimSpace(strings.TrimPrefix(text, "///"))}, lines...)
			} else {
				break
			}
		}
		prev = prev.PrevSibling()
	}
	return strings.Join(lines, "\n")
}

// ---------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------

func (w *walker) newType(n *sitter.Node, name string, kind model.TypeKind) model.Type {
	qualified := name
	return model.Type{
		ID:            fmt.Sprintf("%s:%s:%d", w.crate, qualified, w.line(n)),
		Name:          name,
		QualifiedName: qualified,
		Crate:         w.crate,
		Kind:          kind,
		IsGeneric:     n.ChildByFieldName("type_parameters") != nil,
		Visibility:    visibilityOf(n, w),
		File:          w.file,
		LineStart:     w.line(n),
		LineEnd:       w.endLine(n),
	}
}

func (w *walker) handleStructItem(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	t := w.newType(n, w.text(nameNode), model.KindStruct)
	if body := n.ChildByFieldName("body"); body != nil {
		t.Fields = w.extractFields(body)
	}
	w.detectDerivedActor(n, &t)
	w.out.Types = append(w.out.Types, t)
}

func (w *walker) handleEnumItem(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	t := w.newType(n, w.text(nameNode), model.KindEnum)
	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			ch := body.Child(i)
			if ch.Type() == "enum_variant" {
				if vn := ch.ChildByFieldName("name"); vn != nil {
					t.Variants = append(t.Variants, w.text(vn))
				}
			}
		}
	}
	w.detectDerivedActor(n, &t)
	w.out.Types = append(w.out.Types, t)
}

func (w *walker) handleUnionItem(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	t := w.newType(n, w.text(nameNode), model.KindUnion)
	if body := n.ChildByFieldName("body"); body != nil {
		t.Fields = w.extractFields(body)
	}
	w.out.Types = append(w.out.Types, t)
}

func (w *walker) handleTraitItem(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	t := w.newType(n, w.text(nameNode), model.KindTrait)
	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			ch := body.Child(i)
			if ch.Type() == "function_item" || ch.Type() == "function_signature_item" {
				// trait method signatures are extracted as functions
				// too, without an enclosing impl (no trait_impl flag)
				w.handleFunctionItem(ch, &funcContext{implType: t.Name}, t.Name+"::"+w.text(ch.ChildByFieldName("name")))
			}
		}
	}
	w.out.Types = append(w.out.Types, t)
}

func (w *walker) handleTypeAlias(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	t := w.newType(n, w.text(nameNode), model.KindTypeAlias)
	w.out.Types = append(w.out.Types, t)
}

func (w *walker) extractFields(body *sitter.Node) []model.Field {
	var fields []model.Field
	for i := 0; i < int(body.ChildCount()); i++ {
		ch := body.Child(i)
		if ch.Type() != "field_declaration" {
			continue
		}
		nameNode := ch.ChildByFieldName("name")
		typeNode := ch.ChildByFieldName("type")
		if nameNode == nil {
			continue
		}
		fields = append(fields, model.Field{
			Name:       w.text(nameNode),
			TypeText:   w.text(typeNode),
			Visibility: visibilityOf(ch, w),
		})
	}
	return fields
}

// ---------------------------------------------------------------------
// Impl blocks
// ---------------------------------------------------------------------

func (w *walker) handleImplItem(n *sitter.Node) {
	// impl_item's first type reference is the implementing type; when
	// the grammar supplies a "trait" field, it is the trait reference
	// (§4.2.4).
	typeNode := n.ChildByFieldName("type")
	traitNode := n.ChildByFieldName("trait")
	typeName := w.text(typeNode)
	traitName := ""
	if traitNode != nil {
		traitName = w.text(traitNode)
	}

	impl := model.ImplBlock{
		TypeName:  typeName,
		TraitName: traitName,
		File:      w.file,
		Line:      w.line(n),
	}

	ctx := &funcContext{implType: typeName, implTrait: traitName, hasImplTrait: traitName != ""}

	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			ch := body.Child(i)
			if ch.Type() != "function_item" {
				continue
			}
			before := len(w.out.Functions)
			w.handleFunctionItem(ch, ctx, "")
			if len(w.out.Functions) > before {
				impl.Methods = append(impl.Methods, w.out.Functions[len(w.out.Functions)-1].ID)
			}
		}
	}
	w.out.Impls = append(w.out.Impls, impl)

	w.detectActorFromImpl(impl, n)
	w.detectMessageHandlerFromImpl(impl, traitNode)
}

// ---------------------------------------------------------------------
// Use declarations
// ---------------------------------------------------------------------

// handleModItem descends into an inline `mod foo { .. }` block, tracking
// the dotted module path for the duration; `mod foo;` (file-backed,
// no body) leaves the path untouched since the file it names is walked
// as its own unit by the caller.
func (w *walker) handleModItem(n *sitter.Node, ctx *funcContext) {
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return
	}
	prev := w.modulePath
	if prev == "" {
		w.modulePath = w.text(nameNode)
	} else {
		w.modulePath = prev + "::" + w.text(nameNode)
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		w.walkNode(body.Child(i), ctx)
	}
	w.modulePath = prev
}

func (w *walker) handleUseDeclaration(n *sitter.Node) {
	// Public re-exports ("pub use ...") extend the crate's export
	// surface; tracked on the Module record.
	if visibilityOf(n, w) != model.VisibilityPublic {
		return
	}
	w.out.Modules = append(w.out.Modules, model.Module{
		Crate:         w.crate,
		Path:          w.modulePath,
		File:          w.file,
		PublicExports: []string{w.text(n.ChildByFieldName("argument"))},
	})
}
