// Package google owns the OAuth2 configuration and the persisted token
// store for the remote Google calendar provider. Tokens live in the user
// cache directory with owner-only permissions; the OAuth browser flow
// itself is the user's client, this package only exchanges and stores the
// resulting credentials.
package google
