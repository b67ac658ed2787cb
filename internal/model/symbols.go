// Package model defines the typed symbol records produced by the tree
// parser and carried through reference resolution, macro-expansion
// synthesis, and graph projection. Cross-references are always by
// stable string id, never by pointer, so the set stays free of
// ownership cycles (see SPEC_FULL.md §9 "Cyclic graphs").
package model

// Visibility mirrors the source language's visibility modifiers.
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityCrateScope Visibility = "crate"
	VisibilitySuperScope Visibility = "super"
	VisibilityPrivate    Visibility = "private"
)

// Crate describes one member of a workspace, whether declared locally
// or pulled in as a path or registry dependency.
type Crate struct {
	Name            string
	Root            string
	Version         string
	IsWorkspaceMember bool
	IsExternal      bool
	Depth           int
	DeclaredDeps    []string
	Layer           string // optional architectural-layer tag, empty if untagged
}

// Module is a single file-scoped module within a crate.
type Module struct {
	Crate         string
	Path          string // dotted module path, e.g. "service::handlers"
	File          string
	PublicExports []string
}

// Parameter is a single function or method parameter.
type Parameter struct {
	Ordinal   int
	Name      string
	TypeText  string
	IsSelf    bool
	IsMutable bool
}

// Function is the record for a free function, associated function, or
// trait/impl method. Its ID is stable: crate:qualified_name:line_start.
type Function struct {
	ID            string
	Name          string
	QualifiedName string
	Crate         string
	ModulePath    string
	File          string
	LineStart     int
	LineEnd       int
	Visibility    Visibility
	IsAsync       bool
	IsUnsafe      bool
	IsGeneric     bool
	IsTest        bool
	IsTraitImpl   bool
	Parameters    []Parameter
	ReturnType    string
	Doc           string
	Signature     string
}

// TypeKind enumerates the shapes a Type record can take.
type TypeKind string

const (
	KindStruct    TypeKind = "struct"
	KindEnum      TypeKind = "enum"
	KindUnion     TypeKind = "union"
	KindTrait     TypeKind = "trait"
	KindTypeAlias TypeKind = "type-alias"
)

// Field is a struct/union/enum-variant field.
type Field struct {
	Name       string
	TypeText   string
	Visibility Visibility
}

// Type is the record for a struct, enum, union, trait, or type alias.
type Type struct {
	ID            string
	Name          string
	QualifiedName string
	Crate         string
	Kind          TypeKind
	Fields        []Field
	Variants      []string
	Methods       []string // function ids
	IsGeneric     bool
	Visibility    Visibility
	File          string
	LineStart     int
	LineEnd       int
}

// ImplBlock groups the methods declared under `impl Type` or
// `impl Trait for Type`.
type ImplBlock struct {
	TypeName  string
	TraitName string // empty for inherent impls
	File      string
	Line      int
	Methods   []string // function ids
}

// ActorKind records how an Actor record was discovered.
type ActorKind string

const (
	ActorKindBasic    ActorKind = "basic"
	ActorKindLibrary  ActorKind = "library"
	ActorKindDerived  ActorKind = "derived"
	ActorKindInferred ActorKind = "inferred"
)

// Actor shares its ID with the underlying Type record (invariant:
// actor identity, SPEC_FULL.md §3.2.5).
type Actor struct {
	ID                 string
	Kind               ActorKind
	IsDistributed      bool
	LocalMessages      []string
	DistributedMessages []string
}

// MessageType is the shape of a message payload type.
type MessageType struct {
	QualifiedName string
	Shape         string
}

// MessageHandler binds an actor to the message it handles.
type MessageHandler struct {
	Actor     string
	Message   string
	ReplyType string
	IsAsync   bool
}

// SpawnMethod enumerates the recognized spawn call forms.
type SpawnMethod string

const (
	SpawnMethodSpawn           SpawnMethod = "spawn"
	SpawnMethodSpawnWithMailbox SpawnMethod = "spawn_with_mailbox"
	SpawnMethodSpawnLink       SpawnMethod = "spawn_link"
	SpawnMethodSpawnInThread   SpawnMethod = "spawn_in_thread"
)

// SpawnPattern enumerates the syntactic shapes a spawn call can take.
type SpawnPattern string

const (
	SpawnPatternDirectType    SpawnPattern = "direct-type"
	SpawnPatternTraitMethod   SpawnPattern = "trait-method"
	SpawnPatternModuleFunction SpawnPattern = "module-function"
)

// ActorSpawn records a parent actor (or module scope) spawning a child.
type ActorSpawn struct {
	Parent  string
	Child   string
	File    string
	Line    int
	Method  SpawnMethod
	Pattern SpawnPattern
	Context string // enclosing function, or "module_level"
}

// SendMethod enumerates the two message-send idioms (fire-and-forget
// vs. request/reply).
type SendMethod string

const (
	SendMethodTell SendMethod = "tell"
	SendMethodAsk  SendMethod = "ask"
)

// MessageSend records a tell/ask call site.
type MessageSend struct {
	Sender  string
	Target  string
	Message string
	File    string
	Line    int
	Method  SendMethod
}

// DistributedActor tracks the distributed/local message split for an
// actor classified via the distributed-actor macro.
type DistributedActor struct {
	Actor              string
	DistributedMessages []string
	LocalMessages      []string
}

// DistributedMessageFlow is a cross-node message send.
type DistributedMessageFlow struct {
	Sender   string
	Target   string
	Message  string
	Method   SendMethod
	File     string
	Line     int
}

// CallKind enumerates the syntactic shape of a call site.
type CallKind string

const (
	CallKindFunction    CallKind = "function"
	CallKindMethod      CallKind = "method"
	CallKindAssociated  CallKind = "associated"
	CallKindMacro       CallKind = "macro"
)

// Call is a directed edge from a function (or synthetic dispatcher) to
// another function, possibly unresolved or synthetic.
type Call struct {
	CallerID           string
	File               string
	Line               int
	CalleeName         string
	QualifiedCallee    *string
	Kind               CallKind
	FromCrate          string
	ToCrate            *string
	IsSynthetic        bool
	SyntheticConfidence float64
	MacroContext       string // empty when not synthesized by a macro
	ScopePrefix        string // CallKindAssociated only: text before the final "::", e.g. "a" in a::helper() or "Self" in Self::new()
}

// CrossCrate reports whether this call crosses a crate boundary,
// matching invariant §3.2.3: cross_crate ⇔ to_crate.is_some() ∧
// to_crate ≠ from_crate.
func (c *Call) CrossCrate() bool {
	return c.ToCrate != nil && *c.ToCrate != c.FromCrate
}

// MacroKind enumerates the recognized macro invocation shapes.
type MacroKind string

const (
	MacroKindPaste     MacroKind = "paste"
	MacroKindDerive    MacroKind = "derive"
	MacroKindAttribute MacroKind = "attribute"
	MacroKindCustom    MacroKind = "custom"
)

// MacroExpansion records a macro invocation the walker did not expand,
// for later pattern-directed synthesis.
type MacroExpansion struct {
	Crate       string
	File        string
	SpanStart   int
	SpanEnd     int
	Name        string
	Kind        MacroKind
	Payload     []byte
	Preview     string
}
