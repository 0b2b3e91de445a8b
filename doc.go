/*
Package feign generates callable clients for declared remote HTTP APIs.

A remote API is described by a set of method descriptors. Each descriptor
tells how to turn a positional argument list into a concrete HTTP request:
which placeholders in the URL template each argument fills, whether an
argument is the request body, which parameters are form fields. Given a
Target (the identity of one deployment of the API) and such descriptors,
the package assembles a dispatch table mapping method keys to invocable
handlers and returns a generated client.

Let's define an API with two methods and call it.

	descriptors := []*feign.MethodDescriptor{
		{
			Key:      feign.ConfigKey("UserAPI", "Get", "string"),
			Template: feign.NewRequestTemplate(http.MethodGet, "/users/{id}"),
			ArgNames: map[int][]string{0: {"id"}},
		},
		{
			Key:       feign.ConfigKey("UserAPI", "Create", "User"),
			Template:  feign.NewRequestTemplate(http.MethodPost, "/users"),
			BodyIndex: feign.Index(0),
			BodyType:  reflect.TypeOf(User{}),
		},
	}

	builder, err := feign.New(
		feign.NewHardTarget("UserAPI", "https://users.example.com"),
		feign.Methods(descriptors...),
	)
	if err != nil {
		...
	}
	client := builder.Client()

	var user User
	err = client.Invoke(ctx, "UserAPI#Get(string)", &user, "42")

The transport, the body encoder and decoder, the error decoder and the retry
policy are pluggable collaborators, replaced with Option values passed to New.
Defaults are an http.Client based transport, JSON codecs and exponential
backoff.

Per-call configuration (extra header suppliers, extra interceptors, another
routing key) goes through the request builders:

	client := builder.Request().
		SupplyHeaders(authHeaders).
		RoutingKey("shard-2").
		Client()

The default client (no per-call additions) is built once and cached for the
life of the builder; per-call variants are built on demand and never cached.
Asynchronous calls use AsyncRequest and get a Future handle supporting
cancellation.
*/
package feign
