package cms

import (
	"context"

	"github.com/jonwraymond/querysync/fetch"
	"github.com/jonwraymond/querysync/observe"
	"github.com/jonwraymond/querysync/query"
)

type loginResult struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// Signup registers a new account. It does not log in; call Login next.
// A taken email fails with a 400 fetch.HTTPError.
func (a *API) Signup(ctx context.Context, in Signup) (User, error) {
	if err := a.check(in); err != nil {
		return User{}, err
	}
	return query.Mutate(ctx, a.cache, query.Mutation[Signup, User]{
		Name: "signup",
		Run: func(ctx context.Context, in Signup) (User, error) {
			return fetch.PostJSON[User](ctx, a.http, "/signup", in)
		},
		Invalidates: []query.Predicate{query.MatchKind(KindUsers, KindDashboard)},
	}, in)
}

// Login exchanges credentials for a token and stores it in the session.
// Every cached query is invalidated so subscribed views refetch with the
// new credentials.
func (a *API) Login(ctx context.Context, email, password string) (LoginUser, error) {
	if a.session == nil {
		return LoginUser{}, ErrNoSession
	}

	body := map[string]string{"email": email, "password": password}
	res, err := fetch.PostJSON[loginResult](ctx, a.http, "/login", body)
	if err != nil {
		return LoginUser{}, err
	}
	if res.Token == "" {
		return LoginUser{}, ErrEmptyLoginResult
	}
	if err := a.session.Login(ctx, res.Token); err != nil {
		return LoginUser{}, err
	}

	n := a.cache.Invalidate(ctx, query.MatchAll())
	a.logger.Debug(ctx, "cache invalidated after login", observe.Field{Key: "entries", Value: n})
	return res.User, nil
}

// Logout clears the session. Cached data fetched with the old credentials
// is invalidated.
func (a *API) Logout(ctx context.Context) error {
	if a.session == nil {
		return ErrNoSession
	}
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.cache.Invalidate(ctx, query.MatchAll())
	return nil
}
