package cfg

// ParseValue parses raw for the variable id. It is the same as
// Describe(id).Parse(raw).
func ParseValue(id VarID, raw string) (Value, error) {
	return Describe(id).Parse(raw)
}

// ParseByName resolves name and parses raw for it. Unknown names give an
// ErrCodeUnknownVariable error listing close matches.
func ParseByName(name, raw string) (VarID, Value, error) {
	id, ok := Lookup(name)
	if !ok {
		return 0, Value{}, LookupError(name)
	}
	v, err := ParseValue(id, raw)
	if err != nil {
		return 0, Value{}, err
	}
	return id, v, nil
}
