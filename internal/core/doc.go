// Package core drives sales tables through column resolution, row
// coercion and persistence.
//
// The package is independent of any transport layer. The CLI and the HTTP
// API both go through [Service].
//
// # Run Flow
//
//  1. A [Table] is produced by [ReadTable] (BOM stripping, encoding repair)
//  2. The header is resolved against the catalog; unresolved required
//     fields either abort the run or flow through per the [Policy]
//  3. Rows are coerced one by one; rejected rows are collected with reasons
//  4. Accepted records are handed to the [Sink] in batches of
//     [Options.BatchSize], checking for cancellation between batches
//  5. A [RunSummary] reports counts, the mapping and every rejection, and
//     rejected rows are optionally written to "<name> - failed.csv"
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - CAT001: catalog problems
//   - MAP001-MAP002: unresolved required fields, bad overrides
//   - VAL001-VAL007: row validation
//   - FILE001-FILE005: file errors (size, encoding, format)
//   - DB001-DB007: database errors
//   - ING001-ING003: ingest concurrency, cancellation and timeouts
package core
