// Package cache persists resolved card metadata and the art override ledger.
//
// Card records live one per file under <root>/cards, named by FileName.
// Lookups hit memory first and fall back to disk; a corrupt file is treated
// as a miss so the caller re-resolves the card.
//
// The ledger at <root>/overrides.json maps oracle ids to the art URI the
// player picked. It survives match resets and restarts. Saves go through a
// temporary file and a rename.
package cache
