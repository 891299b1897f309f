// Package auth implements the authentication core of the KodBank service:
// password hashing, JWT issuance, a server side session registry, the
// request authentication gate and the account flows (register, login,
// logout, password reset and email verification).
//
// Sessions:
//   - Login signs a JWT with TokenService and records it in the
//     SessionRegistry. The token is only usable while its registry entry is
//     alive, so Logout revokes it immediately regardless of the JWT expiry.
//   - The Gate checks the signature first, then the registry, then the
//     registry expiry. Expired entries are purged on detection.
//
// Flows:
//   - Each flow is a Message plus a Handler with Execute(ctx, msg), mirroring
//     a command bus. Handlers return *goerrors.Error values; the HTTP layer
//     maps them to status codes and the JSON envelope.
//
// Activity sinks:
//   - ActivitySink is a best effort audit emitter. Handlers report login,
//     registration, reset and verification events; sink errors are logged
//     and never fail a request.
package auth
