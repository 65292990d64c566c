// Package httpclient is the request pipeline of a typed HTTP/JSON API
// client.
//
// A Client holds the transport, configuration and credential source shared
// by every call. Resource areas are expressed as Sections, each with its
// own set of anonymous paths that are sent without credentials:
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.example.com",
//	}, httpclient.WithTokenSource(tokens))
//
//	users := client.Section("users", "/users/register")
//
//	u, err := httpclient.Get[User](ctx, users, "/users/42")
//	all, err := httpclient.GetList[User](ctx, users, "/users")
//
// Every response is classified once into an empty, value, sequence or
// failed result before any typed decoding. Non-2xx responses surface as
// *Error with ErrCodeRequestFailed and the exact body; bodies that do not
// match the target type surface as ErrCodeDecode.
//
// # Streaming
//
// Stream and GetStream decode a JSON array, newline-delimited JSON, or a
// text/event-stream body lazily, one element per Next:
//
//	seq, err := httpclient.GetStream[Event](ctx, events, "/events")
//	if err != nil {
//	    return err
//	}
//	for ev, err := range seq.All() {
//	    if err != nil {
//	        return err
//	    }
//	    handle(ev)
//	}
package httpclient
