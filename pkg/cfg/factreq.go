package cfg

import (
	"strings"
)

// FactNameRequest records a request for one specific named factory and/or
// the exclusion of a list of named factories. The zero value requests
// nothing and excludes nothing.
type FactNameRequest struct {
	specific string
	excluded []string
}

// ParseFactNameRequest parses the "pick-one, exclude-many" syntax used by the
// *factory variables: "@"-separated entries, each either a factory name or a
// "!"-prefixed name to exclude. At most one non-excluded entry may appear.
func ParseFactNameRequest(s string) (FactNameRequest, error) {
	var res FactNameRequest
	for _, entry := range strings.Split(s, "@") {
		e := strings.TrimSpace(entry)
		if e == "" {
			continue
		}
		if strings.HasPrefix(e, "!") {
			name := strings.TrimSpace(e[1:])
			if err := checkFactoryName(name); err != nil {
				return FactNameRequest{}, err
			}
			if !res.Excludes(name) {
				res.excluded = append(res.excluded, name)
			}
			continue
		}
		if err := checkFactoryName(e); err != nil {
			return FactNameRequest{}, err
		}
		if res.specific != "" {
			return FactNameRequest{}, newBadInput(ErrCodeConflict, s,
				"contains more than one (non-negated) entry (%q and %q)", res.specific, e)
		}
		res.specific = e
	}
	if res.specific != "" && res.Excludes(res.specific) {
		return FactNameRequest{}, newBadInput(ErrCodeConflict, s,
			"the factory %q is specified as being simultaneously required and excluded", res.specific)
	}
	return res, nil
}

func checkFactoryName(name string) error {
	ok := name != ""
	for _, c := range name {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-') {
			ok = false
			break
		}
	}
	if !ok {
		return newBadInput(ErrCodeSyntax, name, "not a valid factory name (allowed: letters, digits, '_' and '-')")
	}
	return nil
}

// HasSpecificRequest reports whether a specific factory is required.
func (r FactNameRequest) HasSpecificRequest() bool { return r.specific != "" }

// SpecificRequest returns the required factory name, or "".
func (r FactNameRequest) SpecificRequest() string { return r.specific }

// Excludes reports whether the named factory is excluded.
func (r FactNameRequest) Excludes(name string) bool {
	for _, e := range r.excluded {
		if e == name {
			return true
		}
	}
	return false
}

// Excluded returns the excluded factory names in insertion order.
func (r FactNameRequest) Excluded() []string {
	return append([]string(nil), r.excluded...)
}

// IsEmpty reports whether the request neither requires nor excludes anything.
func (r FactNameRequest) IsEmpty() bool {
	return r.specific == "" && len(r.excluded) == 0
}

// String renders the request in the syntax accepted by ParseFactNameRequest,
// e.g. "myfact@!other@!third".
func (r FactNameRequest) String() string {
	parts := make([]string, 0, len(r.excluded)+1)
	if r.specific != "" {
		parts = append(parts, r.specific)
	}
	for _, e := range r.excluded {
		parts = append(parts, "!"+e)
	}
	return strings.Join(parts, "@")
}

// Equal reports semantic equality: same specific request and the same set of
// exclusions regardless of order.
func (r FactNameRequest) Equal(o FactNameRequest) bool {
	if r.specific != o.specific || len(r.excluded) != len(o.excluded) {
		return false
	}
	for _, e := range r.excluded {
		if !o.Excludes(e) {
			return false
		}
	}
	return true
}

// WithAdditionalExclude returns a copy that also excludes name. Excluding the
// specifically requested factory is rejected.
func (r FactNameRequest) WithAdditionalExclude(name string) (FactNameRequest, error) {
	if err := checkFactoryName(name); err != nil {
		return FactNameRequest{}, err
	}
	if r.Excludes(name) {
		return r, nil
	}
	if name == r.specific {
		return FactNameRequest{}, newBadInput(ErrCodeConflict, name,
			"can not exclude the specifically requested factory")
	}
	return FactNameRequest{
		specific: r.specific,
		excluded: append(r.Excluded(), name),
	}, nil
}

// WithNoSpecificRequest returns a copy without the specific request,
// keeping the exclusions.
func (r FactNameRequest) WithNoSpecificRequest() FactNameRequest {
	return FactNameRequest{excluded: r.Excluded()}
}
