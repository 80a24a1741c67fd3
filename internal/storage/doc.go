// Package storage keeps a SQLite ledger of pipeline runs.
//
// Each run stores its summary counts and the rebased table it drew, so a
// chart can be traced back to the numbers behind it. The schema is managed
// with golang-migrate using migrations embedded in the binary.
package storage
