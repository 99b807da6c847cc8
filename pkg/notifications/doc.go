// Package notifications delivers update job results to external services
// via shoutrrr service URLs. A nil Notifier is valid and silently drops
// messages, so callers never need to guard their send sites.
package notifications
