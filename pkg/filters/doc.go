// Package filters selects container records for checking and updating.
// Filters chain onto a base filter; the self-protection and updater-image
// exclusions are applied unconditionally at the outermost layer so no
// configuration or user selection can reach past them.
package filters
