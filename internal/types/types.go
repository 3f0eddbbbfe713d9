// Package types implements the type descriptor from spec §3: a closed tag
// set plus an optional user-type name for userdata. Descriptors are
// value-typed and compared structurally, matching the spec exactly.
package types

import "github.com/vela-lang/velac/internal/strpool"

// Tag is one of the eleven type tags named in spec §3.
type Tag int

const (
	Any Tag = iota
	Nil
	Boolean
	Integer
	Number
	IntegerArray
	NumberArray
	String
	Table
	Function
	Userdata
)

func (t Tag) String() string {
	switch t {
	case Any:
		return "any"
	case Nil:
		return "nil"
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Number:
		return "number"
	case IntegerArray:
		return "integer[]"
	case NumberArray:
		return "number[]"
	case String:
		return "string"
	case Table:
		return "table"
	case Function:
		return "function"
	case Userdata:
		return "userdata"
	default:
		return "<unknown-tag>"
	}
}

// T is a type descriptor. UserName is set only when Tag == Userdata; it
// may be a dotted chain like "foo.Bar" as produced by the parser's
// dotted-type-name extension (spec §4.4 "optionally extended by a dotted
// chain").
type T struct {
	Tag      Tag
	UserName *strpool.String
}

// Of constructs a descriptor for a non-userdata tag.
func Of(tag Tag) T { return T{Tag: tag} }

// UserType constructs a userdata descriptor named name.
func UserType(name *strpool.String) T { return T{Tag: Userdata, UserName: name} }

// Equal performs the structural comparison spec §3 requires ("any two
// descriptors may be compared structurally").
func (t T) Equal(other T) bool {
	if t.Tag != other.Tag {
		return false
	}
	if t.Tag != Userdata {
		return true
	}
	if t.UserName == nil || other.UserName == nil {
		return t.UserName == other.UserName
	}
	return t.UserName == other.UserName // interned: pointer equality suffices
}

func (t T) String() string {
	if t.Tag == Userdata && t.UserName != nil {
		return t.UserName.String()
	}
	return t.Tag.String()
}

// IsNumeric reports whether t is integer or number — the pair opcode
// selection (spec §4.5) specializes over.
func (t T) IsNumeric() bool { return t.Tag == Integer || t.Tag == Number }

// IsArray reports whether t is one of the two typed-array tags.
func (t T) IsArray() bool { return t.Tag == IntegerArray || t.Tag == NumberArray }

// KeywordToTag maps a recognized TYPE keyword (spec §4.4 "Typed local
// syntax") to a tag. Keywords not present here (an unknown TYPE name)
// become Userdata per the spec.
var KeywordToTag = map[string]Tag{
	"integer": Integer,
	"number":  Number,
	"string":  String,
	"boolean": Boolean,
	"closure": Function,
	"table":   Table,
	"any":     Any,
}

// ArrayElementTag maps Integer/Number to the corresponding typed-array tag,
// used when the parser sees a trailing "[]" after an integer/number type
// keyword (spec §4.4).
func ArrayElementTag(base Tag) (Tag, bool) {
	switch base {
	case Integer:
		return IntegerArray, true
	case Number:
		return NumberArray, true
	default:
		return Any, false
	}
}
