// Package auth defines identity resolution for the pforte gateway.
//
// A Resolver maps an opaque session token to an Identity (role plus tenant
// membership). Tokens are capability handles: resolvers must never infer a
// role from the token text itself. The canonical resolver is a table lookup
// (see statictable); a JWT resolver (see jwt) shows that other token schemes
// plug in behind the same interface.
//
// Resolution is pure and side-effect free, so resolvers are safe for
// unbounded concurrent use.
package auth
