// Package api holds the HTTP wire types shared between cmd/ragcore and
// api/handlers; the handlers themselves live in the api/handlers
// subpackage.
package api
