package script

import (
	"fmt"

	"github.com/tmwgo/server/internal/core/handle"
)

// Kind tags a value passed from script code into a native callback.
type Kind uint8

const (
	KindNone Kind = iota // absent or untranslatable value
	KindInt
	KindHandle
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInt:
		return "int"
	case KindHandle:
		return "handle"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Arg is one tagged callback argument. Backends translate interpreter values
// into Args; anything they cannot translate becomes KindNone and fails shape
// validation in the bridge.
type Arg struct {
	Kind   Kind
	Int    int64
	Handle handle.Handle
	Str    string
}

func IntArg(v int64) Arg            { return Arg{Kind: KindInt, Int: v} }
func HandleArg(h handle.Handle) Arg { return Arg{Kind: KindHandle, Handle: h} }
func StrArg(s string) Arg           { return Arg{Kind: KindString, Str: s} }
