package expr

import "strings"

// Interpolate evaluates a template string: `${expr}` substitutes the
// stringified value of expr, and any other `$` (including one that is part
// of a literal `$$` run) is emitted verbatim, per spec.md §4.D.
func Interpolate(template string, env Env) (string, error) {
	var out strings.Builder
	r := []rune(template)
	n := len(r)
	i := 0
	for i < n {
		if r[i] == '$' && i+1 < n && r[i+1] == '{' {
			j := i + 2
			depth := 1
			for j < n && depth > 0 {
				switch r[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth == 0 {
					break
				}
				j++
			}
			if j >= n {
				return "", errorf("unterminated '${' in template")
			}
			exprSrc := string(r[i+2 : j])
			v, err := Eval(exprSrc, env)
			if err != nil {
				return "", err
			}
			out.WriteString(Str(v))
			i = j + 1
			continue
		}
		out.WriteRune(r[i])
		i++
	}
	return out.String(), nil
}
