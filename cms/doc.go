// Package cms is the typed client for the content management API.
//
// Every read is a query.Query whose key starts with the resource kind
// (KindBlogs, KindJobs, ...), so a mutation invalidates all filter variants
// of what it changed with a single query.MatchKind predicate. Writes are
// validated locally with go-playground/validator, checked against the
// session's role before any request is sent, and leave a best-effort entry
// in the audit trail.
//
//	api, _ := cms.New(httpClient, cache, cms.WithSession(session))
//	jobs, err := query.Fetch(ctx, cache, api.Jobs(false))
//	err = api.DeleteJob(ctx, jobs[0].ID)
package cms
