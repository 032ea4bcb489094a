package store

import "github.com/tidwall/gjson"

type Op int

const (
	OpEq Op = iota
	// OpContains matches when the field is an array holding the value.
	OpContains
)

// Filter selects documents by a top-level JSON field.
type Filter struct {
	Field string
	Op    Op
	Value string
}

func Eq(field, value string) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

func Contains(field, value string) Filter {
	return Filter{Field: field, Op: OpContains, Value: value}
}

// UniqueFilters returns an Eq filter for every listed field present in
// body. Fields absent from body are not constrained.
func UniqueFilters(body []byte, fields []string) []Filter {
	var out []Filter
	for _, f := range fields {
		res := gjson.GetBytes(body, gjson.Escape(f))
		if res.Exists() && res.Type != gjson.Null {
			out = append(out, Eq(f, res.String()))
		}
	}
	return out
}

// Match evaluates filters against a raw JSON body.
func Match(body []byte, filters []Filter) bool {
	for _, f := range filters {
		res := gjson.GetBytes(body, gjson.Escape(f.Field))
		switch f.Op {
		case OpEq:
			if !res.Exists() || res.String() != f.Value {
				return false
			}
		case OpContains:
			if !res.IsArray() {
				return false
			}
			found := false
			res.ForEach(func(_, v gjson.Result) bool {
				if v.String() == f.Value {
					found = true
					return false
				}
				return true
			})
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}
