// Package apitest serves an in-memory copy of the CMS REST API.
//
// The backend mirrors the production routes under /api: public reads,
// token-protected admin writes, HS256 login tokens, and the filtering rules
// the site depends on (approved-only comments per post, active-only jobs
// unless all=true, "All" as no category). Tests use the request counters,
// Fail and Block to observe and steer what the cache sends over the wire;
// the CLI's serve-demo command runs it seeded with SeedDemo.
package apitest
