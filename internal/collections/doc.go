// Package collections maintains the registry of capture collections: a fixed
// built-in set plus user-defined custom entries persisted in the preference
// store. Keys are sanitized, unique across built-ins and customs, and stable
// for the life of the registry.
package collections
