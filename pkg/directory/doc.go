// Package directory is the REST client for the external users api, the
// system of record for user accounts. Every call authenticates with a
// system bearer token obtained from a TokenProvider; user records are
// fetched fresh per operation and never cached here.
package directory
