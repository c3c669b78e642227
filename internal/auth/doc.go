// Package auth provides authentication for the agentq HTTP API.
//
// # Authentication Methods
//
// The package supports two authentication methods, checked in order:
//
//   - Basic Auth: A single username with a bcrypt password hash from the
//     configuration. Intended for scripted clients and the enqueue CLI.
//
//   - JWT Tokens: API clients authenticate with bearer tokens signed with
//     HS256 using the configured jwt_secret. The "sub" claim identifies
//     the caller.
//
// With neither method configured, the middleware passes all requests
// through unauthenticated; enabling either one makes it mandatory.
//
// # Token Management
//
//	verifier := auth.NewJWTVerifier(secret)
//	token, err := verifier.Generate("ci-bot", 24*time.Hour)
//	subject, err := verifier.Verify(token)
//
// # Request Identity
//
// The middleware attaches an AuthContext to the request context. Handlers
// retrieve it with FromContext to learn the caller's subject and method.
package auth
