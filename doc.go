// Package sessionkit caches the signed-in user of a client application
// across restarts.
//
// A [Store] holds at most one [User]. On startup it reads the record persisted
// under "<namespace>:user" in a [storage.Storage] backend; until that read
// completes the state reports Loading. [Store.SignIn] asks a remote [Lookup]
// for the user behind an email, writes the answer to storage, then makes it
// current. [Store.SignOut] removes both. Dependents read [Store.State] or
// [Store.Subscribe] to changes, and reach the store through a context scope
// ([WithStore], [FromContext], [MustFromContext]).
//
// # What this package must NOT do
//
//   - Authenticate anyone. Sign-in sends only an email; there is no password,
//     token, or expiry. The cached user is a convenience, not a credential.
//   - Retry. Each sign-in, sign-out, and startup load is a single attempt.
//   - Surface startup storage or decoding failures. They are logged and the
//     store starts signed out.
package sessionkit
