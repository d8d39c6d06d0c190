// Package expr defines the expression AST the model-checking core consumes
// (spec §3, §6 "Expression AST provider"). The front-end expression builder
// that constructs these trees, and any syntactic sugar around them, lives
// outside this module; this package only fixes the node shapes the
// symbolic evaluator and its pre-passes need to walk.
//
// Nodes form a rooted, shared, immutable DAG. Node identity for memoization
// is the Go pointer identity of the node value itself — the DAG's sharing
// already gives every logically-distinct subexpression a distinct pointer,
// so a plain map keyed on the Node interface (pointer + concrete type) is
// enough; no separate identity field is introduced.
package expr

import "github.com/cwbudde/symcheck/pkg/exprtype"

// Node is the common interface of every expression AST node.
type Node interface {
	// Type returns the declared type of this node.
	Type() *exprtype.Type
	// Children returns the direct subexpressions, in evaluation order.
	Children() []Node
}

// Constant is a literal value node. Structured constants (record, union,
// ConstMap) carry their structure directly rather than via Children, since
// their shape is fixed at construction and the evaluator recurses on the
// Go value, not on child Nodes.
type Constant struct {
	Typ   *exprtype.Type
	Value any // concrete Go representation, shape matching Typ.Kind
}

func (c *Constant) Type() *exprtype.Type { return c.Typ }
func (c *Constant) Children() []Node     { return nil }

// Arbitrary denotes a free symbolic variable (spec GLOSSARY "Arbitrary
// expression"). Two distinct *Arbitrary values denote two distinct
// variables even if they share a type; the same *Arbitrary pointer shared
// across the DAG denotes one variable.
type Arbitrary struct {
	Typ *exprtype.Type
}

func (a *Arbitrary) Type() *exprtype.Type { return a.Typ }
func (a *Arbitrary) Children() []Node     { return nil }

// ArgumentRef refers to a caller-supplied argument by its stable integer
// identifier (spec §3 "Argument environment"). The same ArgID may appear at
// multiple nodes in the DAG; all refer to the same environment slot.
type ArgumentRef struct {
	ArgID int
	Typ   *exprtype.Type
}

func (r *ArgumentRef) Type() *exprtype.Type { return r.Typ }
func (r *ArgumentRef) Children() []Node     { return nil }

// Op identifies an arithmetic, bit-wise, comparison, or logical operator.
type Op uint8

const (
	OpInvalid Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpNot
	OpAnd
	OpOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// Binary is a two-operand arithmetic/bit-wise/comparison/logical node.
// Equality (OpEq/OpNe) dispatches structurally at evaluation time: for
// record/union/list operands it recurses field-wise, as spec §4.5 describes.
type Binary struct {
	Op          Op
	Left, Right Node
	Typ         *exprtype.Type
}

func (b *Binary) Type() *exprtype.Type { return b.Typ }
func (b *Binary) Children() []Node     { return []Node{b.Left, b.Right} }

// Unary is a one-operand bit-wise/logical node (OpBitNot, OpNot, and unary
// minus expressed as OpSub with an implicit zero — left to the builder).
type Unary struct {
	Op      Op
	Operand Node
	Typ     *exprtype.Type
}

func (u *Unary) Type() *exprtype.Type { return u.Typ }
func (u *Unary) Children() []Node     { return []Node{u.Operand} }

// IfThenElse selects Then or Else by the Boolean value of Guard.
type IfThenElse struct {
	Guard, Then, Else Node
	Typ               *exprtype.Type
}

func (i *IfThenElse) Type() *exprtype.Type { return i.Typ }
func (i *IfThenElse) Children() []Node     { return []Node{i.Guard, i.Then, i.Else} }

// RecordCreate builds a record value from field expressions, in the field
// order of Typ.
type RecordCreate struct {
	Fields []Node
	Typ    *exprtype.Type
}

func (r *RecordCreate) Type() *exprtype.Type { return r.Typ }
func (r *RecordCreate) Children() []Node     { return r.Fields }

// RecordGet projects one named field out of a record expression.
type RecordGet struct {
	Record Node
	Field  string
	Typ    *exprtype.Type
}

func (r *RecordGet) Type() *exprtype.Type { return r.Typ }
func (r *RecordGet) Children() []Node     { return []Node{r.Record} }

// RecordSet produces a new record equal to Record except that Field is
// replaced by Value.
type RecordSet struct {
	Record Node
	Field  string
	Value  Node
	Typ    *exprtype.Type
}

func (r *RecordSet) Type() *exprtype.Type { return r.Typ }
func (r *RecordSet) Children() []Node     { return []Node{r.Record, r.Value} }

// UnionCreate builds a union value with exactly one active alternative.
type UnionCreate struct {
	Tag     string
	Payload Node
	Typ     *exprtype.Type
}

func (u *UnionCreate) Type() *exprtype.Type { return u.Typ }
func (u *UnionCreate) Children() []Node     { return []Node{u.Payload} }

// UnionCase ("union-case"/match) extracts the payload of one alternative
// from a union expression; evaluating it when that alternative is not
// active is the caller's responsibility to guard (typically paired with a
// tag-test IfThenElse).
type UnionCase struct {
	Union Node
	Tag   string
	Typ   *exprtype.Type
}

func (u *UnionCase) Type() *exprtype.Type { return u.Typ }
func (u *UnionCase) Children() []Node     { return []Node{u.Union} }

// UnionTag tests whether Union's active alternative is Tag, producing a Bool.
type UnionTag struct {
	Union Node
	Tag   string
}

func (u *UnionTag) Type() *exprtype.Type { return exprtype.Bool }
func (u *UnionTag) Children() []Node     { return []Node{u.Union} }

// ConstMapGet looks up Key (which must be a Constant — the constant-key
// collector, spec §4.4, requires every key to be a literal) in a
// ConstMap-typed Map expression.
type ConstMapGet struct {
	Map Node
	Key *Constant
	Typ *exprtype.Type
}

func (g *ConstMapGet) Type() *exprtype.Type { return g.Typ }
func (g *ConstMapGet) Children() []Node     { return []Node{g.Map} }

// ConstMapSet produces a new ConstMap equal to Map except that Key maps to
// Value.
type ConstMapSet struct {
	Map   Node
	Key   *Constant
	Value Node
	Typ   *exprtype.Type
}

func (s *ConstMapSet) Type() *exprtype.Type { return s.Typ }
func (s *ConstMapSet) Children() []Node     { return []Node{s.Map, s.Value} }

// MapGet/MapSet address an array-backed Map by a (possibly symbolic) key,
// via solver select/store (spec §4.1 "Arrays").
type MapGet struct {
	Map, Key Node
	Typ      *exprtype.Type
}

func (g *MapGet) Type() *exprtype.Type { return g.Typ }
func (g *MapGet) Children() []Node     { return []Node{g.Map, g.Key} }

type MapSet struct {
	Map, Key, Value Node
	Typ             *exprtype.Type
}

func (s *MapSet) Type() *exprtype.Type { return s.Typ }
func (s *MapSet) Children() []Node     { return []Node{s.Map, s.Key, s.Value} }

// SeqOp identifies a sequence/character operator.
type SeqOp uint8

const (
	SeqOpInvalid SeqOp = iota
	SeqConcat
	SeqLength
	SeqAt
	SeqContains
	SeqIndexOf
	SeqSlice
	SeqReplace
)

// Sequence is a variadic sequence operation; the operand count and typing
// depends on Op (e.g. SeqSlice takes sequence+start+end, SeqAt takes
// sequence+index).
type Sequence struct {
	Op       SeqOp
	Operands []Node
	Typ      *exprtype.Type
}

func (s *Sequence) Type() *exprtype.Type { return s.Typ }
func (s *Sequence) Children() []Node     { return s.Operands }

// ListOp identifies a list operator over the fixed-length cons-chain
// representation described in spec §4.2.
type ListOp uint8

const (
	ListOpInvalid ListOp = iota
	ListCons
	ListHead
	ListTail
	ListIsEmpty
)

type List struct {
	Op       ListOp
	Operands []Node
	Typ      *exprtype.Type
}

func (l *List) Type() *exprtype.Type { return l.Typ }
func (l *List) Children() []Node     { return l.Operands }

// ConvertOp identifies a container/width conversion.
type ConvertOp uint8

const (
	ConvertInvalid ConvertOp = iota
	ConvertSignExtend
	ConvertZeroExtend
	ConvertTruncate
	ConvertIntToReal
	ConvertSeqToList
	ConvertListToSeq
)

// Convert re-types Operand without changing its semantic value (beyond the
// conversion itself), e.g. sign/zero-extension of a bit-vector.
type Convert struct {
	Op      ConvertOp
	Operand Node
	Typ     *exprtype.Type
}

func (c *Convert) Type() *exprtype.Type { return c.Typ }
func (c *Convert) Children() []Node     { return []Node{c.Operand} }
