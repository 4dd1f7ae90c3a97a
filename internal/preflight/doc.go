// Package preflight provides readiness checks for the filesystem paths and
// external engine that scummsync depends on.
//
// These checks run in two contexts:
//   - The launch and sync commands call RunAll and refuse to touch the
//     configuration store when the library directory is unusable.
//   - The CLI "scummsync status" command renders every result, plus the
//     library probe, as a health table.
package preflight
