// Package auth is the client-side session for the CMS API.
//
// A Session holds the bearer token returned by the login endpoint, decodes
// the identity it carries and supplies the Authorization header to the fetch
// client. Roles form a strict hierarchy (user < technical < admin) and a
// RoleAuthorizer maps each resource kind to the minimum role needed to read
// or write it. The backend stays the authority; these checks only stop the
// client from issuing requests that are bound to be refused.
package auth
