// Package main hosts the sitelog CLI entrypoint and command graph.
//
// The Cobra-based command tree covers project and session management, media
// capture, task review, webhook sync, and configuration scaffolding. Commands
// open the store directly and run the same dispatch pipeline the daemon uses,
// so a field laptop without the daemon still gets full functionality.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
