// Package bootstrap loads the data collections the console needs once a session is
// authenticated.
//
// Settings load first and alone; every other collection depends on them. The
// remaining collections then load concurrently. A failing collection is logged and
// reported in the [Report] but never cancels or blocks its siblings.
package bootstrap
