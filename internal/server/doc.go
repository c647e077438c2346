// Package server provides the local HTTP listener used by 'fmbridge auth login'.
//
// # Router
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] wraps
// [http.ServeMux]; [Middleware] is applied in reverse order (last added executes first).
// [LogRequests] is the only middleware the CLI installs.
//
// # OAuth Callback
//
// [OAuthHandler] completes the Firefly III authorization code flow. It checks the state
// parameter, exchanges the code (with the PKCE verifier) for a token, and sends exactly one
// [OAuthResult] on its result channel. Later callbacks are rejected.
//
// [AwaitCallback] binds the listener, serves the handler until a result arrives or the context
// ends, then shuts the listener down.
package server
