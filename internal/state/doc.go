// Package state holds the current hand and battlefield, the resolved card
// metadata and the two art override layers, and publishes versioned
// snapshots of them.
//
// # Versioning
//
// Every mutating call bumps UpdateID exactly once. The version never
// decreases during a session. Calls that change nothing (an upsert for a key
// that already has a record, a patch for a missing key) do not count as
// mutations.
//
// SetZones, Reset, SetArtOverride and ClearArtOverride publish a snapshot
// immediately. UpsertCard and PatchCard only bump; the resolver decides when
// to call Publish.
//
// # Effective Image
//
// Snapshots substitute each card's effective image URI:
//
//	oracle override (if the card has an oracle id) > instance override > base
//
// It is recomputed for every snapshot. Stored records keep their base image.
// Instance overrides are cleared by Reset; card metadata and oracle
// overrides are not.
//
// # Subscriptions
//
// Subscribe returns a one-slot channel seeded with the current snapshot.
// Publishing replaces an unread snapshot rather than blocking, so a slow
// consumer skips intermediate versions but always ends on the newest one.
// Consumers treat each snapshot as a full replacement.
package state
