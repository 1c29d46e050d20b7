// Package secret resolves credentials referenced from configuration.
//
// A configured value may contain ${VAR} references, expanded strictly (an
// unset variable is an error), and secret references:
//
//	secretref:env:QUERYSYNC_TOKEN
//	secretref:file:/run/secrets/api-token
//	Bearer secretref:env:QUERYSYNC_TOKEN
//
// The env and file providers are built in; others can be passed to
// NewResolver.
package secret
