package lexer

import "regexp"

// Kind is the category of a token, matching spec.md §3's
// {NUM, ID, KW, OP, PUNC, EOF} set.
type Kind int

const (
	EOF Kind = iota
	NUM
	ID
	KW
	OP
	PUNC
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case NUM:
		return "NUM"
	case ID:
		return "ID"
	case KW:
		return "KW"
	case OP:
		return "OP"
	case PUNC:
		return "PUNC"
	default:
		return "UNKNOWN"
	}
}

// Token is a single lexical token with source position.
type Token struct {
	Kind    Kind
	Lexeme  string
	Line    int
	Column  int

	// Numeric tokens only.
	IsFloat    bool
	TypeSuffix string // "i32", "i64", "f32", "f64", or "" if absent

	// Identifier tokens only: true when Lexeme matches __INTERP_\d+__.
	Interpolation bool
}

// keywords is the fixed keyword set; primitive type names are included so
// the parser can decide, from context, whether they head a type or a
// vector-constructor/conversion call.
var keywords = map[string]bool{
	"const": true, "var": true, "function": true, "subroutine": true,
	"import": true, "export": true, "layout": true, "packed": true,
	"begin": true, "end": true, "if": true, "then": true, "else": true,
	"for": true, "while": true, "do": true, "break": true,
	"call": true, "tailcall": true, "return": true, "array": true,
	"true": true, "false": true, "and": true, "or": true, "not": true, "mod": true,
	"function_ref": true,
}

var primitiveTypes = map[string]bool{
	"i32": true, "i64": true, "f32": true, "f64": true,
	"v128": true, "f64x2": true, "f32x4": true, "i32x4": true, "i64x2": true,
}

var interpPattern = regexp.MustCompile(`^__INTERP_\d+__$`)

// IsTypeKeyword reports whether lexeme names a primitive or vector type,
// used by the parser to recognise TYPE(args) conversion/constructor calls.
func IsTypeKeyword(lexeme string) bool {
	return primitiveTypes[lexeme]
}

// lookupIdent classifies an already-scanned identifier lexeme: it becomes
// KW if it is a keyword or a primitive/vector type name, ID otherwise. The
// parser, not the lexer, decides from surrounding context whether a type
// keyword heads a type reference or a call/conversion.
func lookupIdent(ident string) Kind {
	if keywords[ident] || primitiveTypes[ident] {
		return KW
	}
	return ID
}
