package ra

import (
	"fmt"
	"strings"
)

// Model notation: colon-separated groups of variable abbreviations,
// e.g. "AB:BC:AC". Lookup is case-insensitive. An empty or whitespace spec
// refers to the default reference model for the system.

// TokenError pins a validation failure to the offending token.
type TokenError struct {
	Token   string
	Message string
}

func (e TokenError) Error() string {
	return fmt.Sprintf("token %q: %s", e.Token, e.Message)
}

// parseGroup resolves one colon group into variable indices using greedy
// longest-match against the registered abbreviations, which reduces to
// per-character lookup when all abbreviations are single letters.
func parseGroup(vl *VariableList, group string) ([]VariableIndex, error) {
	var out []VariableIndex
	rest := group
	for len(rest) > 0 {
		matched := false
		for l := len(rest); l >= 1; l-- {
			if v, ok := vl.ByAbbrev(rest[:l]); ok {
				out = append(out, v)
				rest = rest[l:]
				matched = true
				break
			}
		}
		if !matched {
			return nil, TokenError{Token: group, Message: fmt.Sprintf("unknown abbreviation at %q", rest)}
		}
	}
	return out, nil
}

// ParseModelSpec parses a model spec against the variable list. The result
// is canonicalized and simplified. An empty spec yields the bottom
// reference model.
func ParseModelSpec(vl *VariableList, spec string) (*Model, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return BottomReferenceModel(vl), nil
	}
	var rels []*Relation
	for _, group := range strings.Split(spec, ":") {
		group = strings.TrimSpace(group)
		if group == "" {
			return nil, TokenError{Token: group, Message: "empty relation group"}
		}
		vars, err := parseGroup(vl, group)
		if err != nil {
			return nil, err
		}
		rels = append(rels, NewRelation(vars))
	}
	return NewModel(rels).Simplify(), nil
}

// SpecValidation is the best-effort outcome of validating a model spec:
// every bad token is reported, and a model is still returned when all
// groups resolve.
type SpecValidation struct {
	Valid  bool
	Errors []TokenError
	Model  *Model
}

// ValidateModelSpec checks every token and collects all failures instead of
// stopping at the first.
func ValidateModelSpec(vl *VariableList, spec string) SpecValidation {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return SpecValidation{Valid: true, Model: BottomReferenceModel(vl)}
	}
	var rels []*Relation
	var errs []TokenError
	for _, group := range strings.Split(spec, ":") {
		group = strings.TrimSpace(group)
		if group == "" {
			errs = append(errs, TokenError{Token: group, Message: "empty relation group"})
			continue
		}
		vars, err := parseGroup(vl, group)
		if err != nil {
			errs = append(errs, err.(TokenError))
			continue
		}
		rels = append(rels, NewRelation(vars))
	}
	out := SpecValidation{Valid: len(errs) == 0, Errors: errs}
	if out.Valid {
		out.Model = NewModel(rels).Simplify()
	}
	return out
}
