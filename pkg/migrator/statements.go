package migrator

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

// statementLexer tokenizes a migration script into statement terminators,
// whitespace runs and everything else. It deliberately knows nothing about
// string literals or comments: a ';' inside a quoted string or a comment still
// ends the statement, so migration authors must keep semicolons out of literals.
//
// Whitespace covers the Unicode space separators and the C0/C1 separator controls
// on top of RE2's ASCII \s.
var statementLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Terminator", Pattern: `;`},
	{Name: "Whitespace", Pattern: `[` + whitespaceClass + `]+`},
	{Name: "Text", Pattern: `[^;` + whitespaceClass + `]+`},
})

const whitespaceClass = `\s\v\x{1c}-\x{1f}\x{85}\p{Z}\x{FEFF}`

var (
	terminatorToken = statementLexer.Symbols()["Terminator"]
	whitespaceToken = statementLexer.Symbols()["Whitespace"]
)

// ExtractSubqueries splits a migration script on ';' into individually executable
// statements. Whitespace runs inside a statement collapse to a single space,
// statements are trimmed and empty fragments are dropped.
//
// Example:
//
//	stmts, _ := migrator.ExtractSubqueries("INSERT INTO t VALUES (1);  \n\nINSERT INTO t VALUES (2);")
//	// stmts == []string{"INSERT INTO t VALUES (1)", "INSERT INTO t VALUES (2)"}
//
// Known limitation: the splitter is not SQL aware. Semicolons inside string
// literals, quoted identifiers, comments or function bodies split the statement.
func ExtractSubqueries(sql string) ([]string, error) {
	lex, err := statementLexer.LexString("", sql)
	if err != nil {
		return nil, errors.Wrap(err, "failed to tokenize migration script")
	}

	var (
		stmts   []string
		current strings.Builder
		space   bool
	)

	flush := func() {
		if current.Len() > 0 {
			stmts = append(stmts, current.String())
		}
		current.Reset()
		space = false
	}

	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, errors.Wrap(err, "failed to tokenize migration script")
		}

		if tok.EOF() {
			break
		}

		switch tok.Type {
		case terminatorToken:
			flush()
		case whitespaceToken:
			space = true
		default:
			if space && current.Len() > 0 {
				current.WriteByte(' ')
			}
			current.WriteString(tok.Value)
			space = false
		}
	}

	flush()
	return stmts, nil
}
