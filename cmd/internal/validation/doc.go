// Package validation checks JSON:API request documents.
//
// A body is parsed once into an Envelope. A Pipeline then runs an ordered
// list of Stages against it; each stage records field violations in an
// Accumulator, and the pipeline stops after the first stage that leaves
// violations behind. Stage errors are reserved for system faults.
package validation
