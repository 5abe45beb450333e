// Package check runs a configuration through every validation layer and
// produces one report: value parsing, the structured document schema,
// cross-variable consistency and the advisory Rego policies.
//
// Each run gets a UUID that is stamped on its log lines, trace spans and
// report, so a single check can be followed across all three.
package check
