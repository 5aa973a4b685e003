package executor

import (
	"unicode"

	"github.com/mvxt99/minidb/internal/dberr"
	"github.com/mvxt99/minidb/internal/record"
	"github.com/mvxt99/minidb/internal/sql/parser"
)

// evalPredicate evaluates the WHERE condition against one cell. Equality is
// type-aware (case-insensitive for TEXT, NULL matches nothing); a literal
// that cannot live in the column's type simply matches no row.
func evalPredicate(cell record.Value, col record.Column, where *parser.Predicate) (bool, error) {
	switch where.Op {
	case parser.OpEq:
		want, ok := where.Value.Coerce(col.Type)
		if !ok {
			return false, nil
		}
		return cell.Equal(want), nil
	case parser.OpLike:
		if col.Type != record.TypeText {
			return false, dberr.Typef("LIKE requires a TEXT column, '%s' is %s", col.Name, col.Type)
		}
		if cell.IsNull() {
			return false, nil
		}
		return matchLike(cell.S, where.Value.S), nil
	default:
		return false, dberr.Parsef("unsupported WHERE operator")
	}
}

// matchLike implements the SQL LIKE contract: '%' matches zero or more
// characters, '_' matches exactly one, everything else matches itself
// case-insensitively. The match is anchored: the whole value must match.
// Both sides are decoded to runes up front so '_' counts characters, not
// bytes, and folding agrees with Value.Equal on non-ASCII text.
func matchLike(s, pattern string) bool {
	return likeHelper([]rune(s), []rune(pattern), 0, 0)
}

func likeHelper(s, pattern []rune, si, pi int) bool {
	for pi < len(pattern) {
		switch pattern[pi] {
		case '%':
			for si <= len(s) {
				if likeHelper(s, pattern, si, pi+1) {
					return true
				}
				si++
			}
			return false
		case '_':
			if si >= len(s) {
				return false
			}
			si++
			pi++
		default:
			if si >= len(s) || unicode.ToLower(s[si]) != unicode.ToLower(pattern[pi]) {
				return false
			}
			si++
			pi++
		}
	}
	return si == len(s)
}
