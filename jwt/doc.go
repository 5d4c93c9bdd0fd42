// Package jwt inspects access tokens held by the session client and issues
// short-lived tokens for fake API servers used in demos and tests.
//
// Inspection never verifies signatures: the client only reads expiry and
// issued-at hints from tokens the server already accepted. Tokens that are not
// JWTs are treated as opaque and yield [ErrOpaqueToken].
package jwt
