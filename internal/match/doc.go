// Package match scores raw column names against catalog fields.
//
// Every (column, field) pair is tested in strict tier order and the first
// tier that fires decides the candidate:
//   - Exact: the normalised name equals a normalised alias (score 1.0)
//   - Pattern: a wildcard pattern matches (0.8 minus 0.01 per pattern index)
//   - Keyword: distinct keyword hits divided by the field's keyword count
//   - None: no evidence, score 0
//
// Disambiguation between fields is left to package resolve.
package match
