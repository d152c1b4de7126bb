package lookml

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Rules are tried in order at each position. Expr must precede Literal so
// that "sql: ... ;;" is taken as one token, SQL text and all.
var lookmlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Expr", Pattern: `(?:sql\w*|html|expression\w*)[ \t]*:(?:[^;]|;[^;])*;;`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Literal", Pattern: `[^\s{}\[\]:,"#;]+`},
	{Name: "Punct", Pattern: `[{}\[\]:,]`},
})

var parser = participle.MustBuild[document](
	participle.Lexer(lookmlLexer),
	participle.Elide("Comment", "Whitespace"),
)

type document struct {
	Items []*item `@@*`
}

type item struct {
	Expr *string `  @Expr`
	Pair *pair   `| @@`
}

// pair is "key: value", "key: name { ... }", "key: { ... }" or "key: [ ... ]".
type pair struct {
	Key   string `@Literal ":"`
	List  *list  `( @@`
	Block *block `| @@`
	Value *value `| @@ )`
}

type value struct {
	Scalar *scalar `@@`
	Block  *block  `@@?`
}

type scalar struct {
	Quoted *string `  @String`
	Bare   *string `| @Literal`
}

type block struct {
	Open  string  `@"{"`
	Items []*item `@@* "}"`
}

type list struct {
	Open  string      `@"["`
	Items []*listItem `( @@ ","? )* "]"`
}

type listItem struct {
	Block *block  `  @@`
	Key   *scalar `| @@`
	Value *scalar `  ( ":" @@ )?`
}
