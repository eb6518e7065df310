// Package session persists per-owner conversation history.
//
// Each owner has exactly one thread, keyed deterministically from the owner
// id. History is append-only: the chat layer appends the user and assistant
// turns of each exchange and replays the full history into the model on the
// next turn. Sessions are created lazily on first append and never deleted.
package session
