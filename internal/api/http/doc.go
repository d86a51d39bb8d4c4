// Package http exposes the terminal manager and the one-shot executor over a
// JSON HTTP API built on gin.
//
// Routes:
//   - POST   /terminals              create a session (id generated when omitted)
//   - GET    /terminals              list live sessions
//   - GET    /terminals/:id          session snapshot
//   - POST   /terminals/:id/input    queue input (data or data_base64)
//   - POST   /terminals/:id/resize   change the terminal size
//   - GET    /terminals/:id/output   drain buffered output and exit state
//   - DELETE /terminals/:id          kill the session
//   - POST   /exec                   run one command to completion
//
// Sessions created here deliver their output into a BufferedSink that the
// output route drains; streaming clients use the WebSocket surface instead.
// Errors are returned as {"success": false, "error": ..., "code": ...}.
package http
