// ABOUTME: Package documentation for the hub package
// ABOUTME: The session/transport adapter between the controller and clients

// Package hub is the transport adapter for planning sessions.
//
// It multiplexes concurrently active sessions by session id: controller
// frames published for one session reach only that session's subscribers,
// each over its own buffered channel. Publishing never blocks the session
// driver; a subscriber that cannot keep up loses frames instead. Frames are
// delivered to clients as Server-Sent Events, with heartbeat comments to
// detect dead connections, and duplicate inbound client messages are
// suppressed by id within a TTL window.
package hub
