// Package journal keeps a tamper-evident record of everything a battle
// does: dice requests, applied changes and history entries. Events are
// hashed, chained to their predecessor and signed so a replay can prove the
// record was not edited.
package journal
