package feign

import (
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"
)

// Config is the finalized configuration backing one generated client
// family. It is assembled from Option values by New and immutable
// afterwards.
type Config struct {
	contract        Contract
	client          HttpClient
	transport       Transport
	encoder         Encoder
	decoder         Decoder
	errorDecoder    ErrorDecoder
	retry           RetryPolicy
	logf            Logf
	logLevel        Level
	opts            RequestOptions
	maxBody         int64
	interceptors    []RequestInterceptor
	suppliers       []HeaderSupplier
	routingKey      string
	dispatchFactory DispatchFactory
}

func NewDefaultConfig() *Config {
	return &Config{
		encoder:      JSONEncoder{},
		decoder:      JSONDecoder{},
		errorDecoder: CodeErrorDecoder{},
		retry:        DefaultBackoff(),
		logf:         log.Printf,
		logLevel:     LevelNone,
		opts:         DefaultRequestOptions(),
		maxBody:      10 * 1024 * 1024,
	}
}

type Option func(*Config)

// Methods registers the API's method descriptors through a static
// contract. Shorthand for CustomContract(NewStaticContract(...)).
func Methods(descriptors ...*MethodDescriptor) Option {
	return CustomContract(NewStaticContract(descriptors...))
}

// CustomContract sets the contract producing method descriptors for the
// target.
func CustomContract(contract Contract) Option {
	return func(config *Config) {
		config.contract = contract
	}
}

// CustomClient sets the HTTP client backing the default transport.
func CustomClient(client HttpClient) Option {
	return func(config *Config) {
		config.client = client
	}
}

// CustomTransport replaces the transport entirely. CustomClient is
// ignored when a transport is set.
func CustomTransport(transport Transport) Option {
	return func(config *Config) {
		config.transport = transport
	}
}

func CustomEncoder(encoder Encoder) Option {
	return func(config *Config) {
		config.encoder = encoder
	}
}

func CustomDecoder(decoder Decoder) Option {
	return func(config *Config) {
		config.decoder = decoder
	}
}

func CustomErrorDecoder(errorDecoder ErrorDecoder) Option {
	return func(config *Config) {
		config.errorDecoder = errorDecoder
	}
}

func CustomRetryPolicy(retry RetryPolicy) Option {
	return func(config *Config) {
		config.retry = retry
	}
}

// Logger sets the logging hook.
func Logger(logf Logf) Option {
	return func(config *Config) {
		config.logf = logf
	}
}

// Verbosity sets how much of each call is logged.
func Verbosity(level Level) Option {
	return func(config *Config) {
		config.logLevel = level
	}
}

// RequestTimeouts sets the per-request limits passed to the transport.
func RequestTimeouts(connect, read time.Duration) Option {
	return func(config *Config) {
		config.opts = RequestOptions{ConnectTimeout: connect, ReadTimeout: read}
	}
}

// MaxBody sets the response body size limit in bytes.
func MaxBody(maxBody int64) Option {
	return func(config *Config) {
		config.maxBody = maxBody
	}
}

// Intercept appends one interceptor to the base list.
func Intercept(interceptor RequestInterceptor) Option {
	return func(config *Config) {
		config.interceptors = append(config.interceptors, interceptor)
	}
}

// Interceptors sets the full base interceptor list, overwriting any
// previous interceptors.
func Interceptors(interceptors ...RequestInterceptor) Option {
	return func(config *Config) {
		config.interceptors = append([]RequestInterceptor{}, interceptors...)
	}
}

// SupplyHeaders appends one header supplier to the base list.
func SupplyHeaders(supplier HeaderSupplier) Option {
	return func(config *Config) {
		config.suppliers = append(config.suppliers, supplier)
	}
}

// HeaderSuppliers sets the full base supplier list, overwriting any
// previous suppliers.
func HeaderSuppliers(suppliers ...HeaderSupplier) Option {
	return func(config *Config) {
		config.suppliers = append([]HeaderSupplier{}, suppliers...)
	}
}

// DefaultRoutingKey sets the routing key used when a call does not
// override it.
func DefaultRoutingKey(key string) Option {
	return func(config *Config) {
		config.routingKey = key
	}
}

func CustomDispatchFactory(factory DispatchFactory) Option {
	return func(config *Config) {
		config.dispatchFactory = factory
	}
}

// ClientBuilder owns one generated client family: a target, its parsed
// descriptors with precomputed template factories, the finalized
// configuration and the cached default instance.
type ClientBuilder struct {
	config      *Config
	target      Target
	descriptors []*MethodDescriptor
	factories   map[string]*templateFactory
	transport   Transport
	log         *logger

	// mu guards the check-then-build of the cached default instance.
	mu  sync.Mutex
	def *Client
}

// New parses the target's contract once and returns the builder for its
// generated client family. It panics on duplicate config keys and
// malformed descriptors, which are programmer errors.
func New(target Target, options ...Option) (*ClientBuilder, error) {
	config := NewDefaultConfig()
	for _, option := range options {
		option(config)
	}
	if config.contract == nil {
		return nil, fmt.Errorf("no contract configured for %s: pass Methods or CustomContract", target.Service())
	}

	descriptors, err := config.contract.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract of %s: %w", target.Service(), err)
	}

	factories := make(map[string]*templateFactory, len(descriptors))
	for _, md := range descriptors {
		md.validate()
		if _, has := factories[md.Key]; has {
			panic(fmt.Sprintf("already has a method with config key %s", md.Key))
		}
		factories[md.Key] = newTemplateFactory(md, config.encoder)
	}

	transport := config.transport
	if transport == nil {
		transport = newHTTPTransport(config.client)
	}

	return &ClientBuilder{
		config:      config,
		target:      target,
		descriptors: descriptors,
		factories:   factories,
		transport:   transport,
		log:         &logger{logf: config.logf, level: config.logLevel},
	}, nil
}

// Client returns the generated client built from the base configuration.
// With no base header suppliers configured the instance is built once and
// cached for the life of the builder.
func (cb *ClientBuilder) Client() *Client {
	return cb.build(cb.config.suppliers, cb.config.interceptors, cb.config.routingKey)
}

// Request starts a per-call configuration override.
func (cb *ClientBuilder) Request() *RequestBuilder {
	return &RequestBuilder{
		cb:           cb,
		suppliers:    append([]HeaderSupplier{}, cb.config.suppliers...),
		interceptors: append([]RequestInterceptor{}, cb.config.interceptors...),
		key:          cb.config.routingKey,
	}
}

// AsyncRequest starts a per-call configuration override for an
// asynchronous call.
func (cb *ClientBuilder) AsyncRequest() *AsyncRequestBuilder {
	return &AsyncRequestBuilder{
		cb:           cb,
		suppliers:    append([]HeaderSupplier{}, cb.config.suppliers...),
		interceptors: append([]RequestInterceptor{}, cb.config.interceptors...),
		key:          cb.config.routingKey,
	}
}

// build assembles a generated client for the effective configuration.
// The cache is a single-slot memoization keyed by tuple equality with the
// default configuration; per-call variants are never cached. The mutex
// makes sure a racing first use never observes a partially built default.
func (cb *ClientBuilder) build(suppliers []HeaderSupplier, interceptors []RequestInterceptor, key string) *Client {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	isDefault := len(suppliers) == 0 &&
		interceptorsEqual(interceptors, cb.config.interceptors) &&
		key == cb.config.routingKey
	if isDefault && cb.def != nil {
		return cb.def
	}

	effective := append([]RequestInterceptor{}, interceptors...)
	if len(suppliers) > 0 {
		// Suppliers are consulted fresh on every build.
		effective = append(effective, headerInterceptor(mergeSuppliedHeaders(suppliers)))
	}

	target := cb.target
	if key != cb.config.routingKey {
		if keyed, ok := target.(KeyedTarget); ok {
			target = keyed.WithKey(key)
		}
	}

	dispatch := make(map[string]MethodHandler, len(cb.descriptors))
	for _, md := range cb.descriptors {
		dispatch[md.Key] = &methodHandler{
			target:       target,
			md:           md,
			factory:      cb.factories[md.Key],
			transport:    cb.transport,
			decoder:      cb.config.decoder,
			errorDecoder: cb.config.errorDecoder,
			retry:        cb.config.retry,
			interceptors: effective,
			opts:         cb.config.opts,
			maxBody:      cb.config.maxBody,
			log:          cb.log,
		}
	}
	if cb.config.dispatchFactory != nil {
		dispatch = cb.config.dispatchFactory(target, dispatch)
	}

	client := &Client{target: target, dispatch: dispatch}
	if isDefault {
		cb.def = client
	}
	return client
}

// Close releases the transport's resources if it supports closing.
func (cb *ClientBuilder) Close() error {
	if closer, ok := cb.transport.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// interceptorsEqual compares interceptor lists by length and element
// function identity, the closest Go analogue of element-wise list
// equality.
func interceptorsEqual(a, b []RequestInterceptor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if reflect.ValueOf(a[i]).Pointer() != reflect.ValueOf(b[i]).Pointer() {
			return false
		}
	}
	return true
}
