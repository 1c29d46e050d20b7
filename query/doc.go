// Package query provides a client-side cache for server-resident collections.
//
// A Client holds one entry per canonical Key. Reads go through GetOrFetch or a
// Subscription; concurrent reads of the same key share a single in-flight
// fetch. Mutations run through Mutate and, only after the remote call has
// succeeded, invalidate the keys named by their predicates. Invalidated
// entries that still have subscribers are refetched once in the background
// and every live subscriber is notified with the new Snapshot.
//
// # Keys
//
//	posts := query.NewKey("posts")
//	approved := query.NewKey("comments", map[string]any{"post_id": 42, "status": "approved"})
//
// Keys compare by their canonical JSON form, so map key order never matters.
//
// # Typed access
//
// The engine stores untyped values. Query and Mutation bind a result type per
// resource kind:
//
//	q := query.Query[[]Post]{Key: query.NewKey("posts"), Fetch: listPosts}
//	posts, err := query.Fetch(ctx, client, q)
//
//	del := query.Mutation[int, struct{}]{
//	    Name:        "delete_post",
//	    Run:         deletePost,
//	    Invalidates: []query.Predicate{query.MatchKind("posts")},
//	}
//	_, err = query.Mutate(ctx, client, del, 7)
package query
