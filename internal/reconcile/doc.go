// Package reconcile restores consistency between the configuration store and
// the marker files after the engine has edited the store.
//
// A pass runs four ordered stages on an in-memory store and a marker
// snapshot:
//
//  1. Surplus removal drops sections whose content path is not a direct child
//     of the library root (with their marker) and sections that repeat a
//     content path already claimed earlier in store order.
//  2. Orphan marker removal deletes markers whose id no surviving section
//     carries. A disambiguated id ("base-N") is kept when base survives and
//     the marker belongs to that section's own content directory.
//  3. Canonicalization renames every section to its gameid. When another
//     game section already holds that label the renamed section wins and the
//     earlier one is dropped.
//  4. Marker backfill writes each section's id into its own marker.
//
// A read-only post-check then compares marker ids against section ids and
// reports anything the stages could not converge. The store is mutated in
// place; marker changes are returned as a plan for the caller to apply after
// saving the store. A pass over its own output changes nothing.
//
// Unify implements variant collapsing ("uniq"): sections named base and
// base-<variant> are merged onto a single [base].
package reconcile
