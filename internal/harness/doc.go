// Package harness runs the differential conformance and performance check.
//
// One run has three phases:
//
//  1. Setup: the snapshot store is initialized and the fixtures are located.
//     Any failure here is fatal.
//  2. Build barrier: the candidate artifact is compiled once. A build failure
//     is fatal and no fixture is checked, so nothing passes by default.
//  3. Fixtures: a bounded worker pool checks fixtures independently. Each
//     fixture gets its own CaseResult and a failure never affects another
//     fixture.
//
// # Per-fixture check
//
// Both invokers are called once with a tight timing bracket. Each output is
// canonicalized, written to <root>/candidate/<case_key> and
// <root>/reference/<case_key>, then read back and checked for a lossless round
// trip. Each output must also carry a "views" collection. The re-read
// snapshots (or the in-memory canonical forms when round-tripping is off) are
// compared for structural equality. Finally, when benchmarking is on and the
// fixture has passed so far, each invoker is sampled repeatedly and the
// candidate must have the strictly lower median.
//
// Snapshots are written for every side that produced a document, so a
// mismatch can always be diffed by hand.
package harness
