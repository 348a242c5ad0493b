// Package screen reads the master deck's on-screen track metadata.
//
// The bridge core only sees the Source capability and its tri-state Result:
// OK with artist and title, NotReady, or Unavailable. Everything about
// keeping a handle on the application window lives here: finding the window
// by title, restoring it when minimized, re-anchoring on a known layout
// element and throttling reconnect attempts.
//
// Platform access goes through a Driver. The snapshot driver reads a JSON
// dump of the window's element texts written by an external accessibility
// helper.
package screen
