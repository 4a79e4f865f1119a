// Package card defines the identity model shared by every arenaview component.
//
// # Identities and keys
//
// The Arena log references cards by whatever it happens to know at that
// moment: a numeric title id, a print (grp) id, or occasionally just a name
// and set code. Identity captures that raw reference and Identity.Key reduces
// it to a single deterministic string:
//
//	mtga:<MtgaID>          when MtgaID is non-zero
//	grp:<GrpID>            when GrpID is non-zero
//	name:<Name>|<Set>      when Name is present (Set may be empty)
//	unknown:<json>         otherwise
//
// Two observations that carry different subsets of fields collapse onto the
// same key whenever their highest-priority field agrees. That is how the
// pipeline recognises "the same card" across log lines.
//
// # Metadata
//
// Metadata is the resolved record for a key. The identifying fields (name,
// Scryfall id, oracle id, base image) are written once per session; the
// alternate print list and draft statistics arrive later through Patch.
package card
