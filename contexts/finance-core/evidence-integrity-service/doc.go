// Package evidenceintegrityservice produces tamper-evident evidence packages
// for challenges inside the finance-core context and re-verifies them.
//
// A package is rendered once, hashed with SHA-256, written to blob storage and
// read back before its metadata is committed. Verification recomputes the hash
// of the stored bytes and reports any lookup or read failure as invalid.
package evidenceintegrityservice
