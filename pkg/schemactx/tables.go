package schemactx

import (
	"regexp"
	"strings"
)

// DefaultSchema is used for unqualified table names.
const DefaultSchema = "public"

// TableRef names a table referenced by a query.
type TableRef struct {
	Schema string
	Name   string
}

// String returns the schema-qualified name.
func (t TableRef) String() string {
	return t.Schema + "." + t.Name
}

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	stringLit    = regexp.MustCompile(`'(?:[^']|'')*'`)

	ident     = `(?:"[^"]+"|[A-Za-z_][A-Za-z0-9_$]*)`
	tableExpr = regexp.MustCompile(`(?i)\b(?:FROM|JOIN|UPDATE|INTO)\s+(?:ONLY\s+)?(` + ident + `(?:\s*\.\s*` + ident + `)?)`)
	cteName   = regexp.MustCompile(`(?i)(?:\bWITH\s+(?:RECURSIVE\s+)?|,\s*)(` + ident + `)\s+AS\s*(?:NOT\s+)?(?:MATERIALIZED\s+)?\(`)
	selectKw  = regexp.MustCompile(`(?i)\bSELECT\b`)
)

// Keywords that may directly follow FROM and are not tables.
var notTables = map[string]bool{
	"lateral":         true,
	"select":          true,
	"unnest":          true,
	"generate_series": true,
	"values":          true,
}

// ExtractTables returns the distinct tables a query reads or writes, in
// order of first appearance. CTE names, subqueries and comments are ignored.
func ExtractTables(query string) []TableRef {
	cleaned := blockComment.ReplaceAllString(query, " ")
	cleaned = lineComment.ReplaceAllString(cleaned, " ")
	cleaned = stringLit.ReplaceAllString(cleaned, "''")

	ctes := make(map[string]bool)
	for _, m := range cteName.FindAllStringSubmatch(cleaned, -1) {
		ctes[normalizeIdent(m[1])] = true
	}

	seen := make(map[TableRef]bool)
	var refs []TableRef
	for _, m := range tableExpr.FindAllStringSubmatchIndex(cleaned, -1) {
		if inFunctionArgs(cleaned, m[0]) {
			continue
		}
		ref, ok := parseTableRef(cleaned[m[2]:m[3]])
		if !ok {
			continue
		}
		if ref.Schema == DefaultSchema && ctes[ref.Name] {
			continue
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

// inFunctionArgs reports whether pos sits inside an open parenthesis that
// is not a subquery, as in EXTRACT(YEAR FROM created_at).
func inFunctionArgs(s string, pos int) bool {
	prefix := s[:pos]
	open := strings.LastIndex(prefix, "(")
	if open < 0 || open < strings.LastIndex(prefix, ")") {
		return false
	}
	return !selectKw.MatchString(prefix[open:])
}

func parseTableRef(raw string) (TableRef, bool) {
	parts := strings.SplitN(raw, ".", 2)
	for i := range parts {
		parts[i] = normalizeIdent(parts[i])
	}

	var ref TableRef
	if len(parts) == 2 {
		ref = TableRef{Schema: parts[0], Name: parts[1]}
	} else {
		ref = TableRef{Schema: DefaultSchema, Name: parts[0]}
	}
	if ref.Name == "" || notTables[ref.Name] {
		return TableRef{}, false
	}
	return ref, true
}

// normalizeIdent folds unquoted identifiers to lower case, the way
// Postgres resolves them. Quoted identifiers keep their case.
func normalizeIdent(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return strings.ToLower(s)
}
