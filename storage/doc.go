// Package storage defines the durable key-value contract the session store
// persists its user record through.
//
// Backends live in sub-packages: memory (process-local), bbolt and sqlite
// (single file on the device), redis (shared instance). Each one satisfies
// [Storage] and is checked against the shared contract in storagetest.
//
// # What this package must NOT do
//
//   - Interpret stored values. Encoding belongs to the caller.
//   - Retry. A failed call is reported once.
package storage
