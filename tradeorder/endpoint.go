package tradeorder

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultConnectTimeout bounds a single connection attempt to one endpoint.
const DefaultConnectTimeout = 5 * time.Second

const redactedCredential = "xxxxx"

// DefaultEndpointURIs returns the three regional load balancer endpoints of the trade database.
func DefaultEndpointURIs() []string {
	return []string{
		"postgres://root@haproxy-us-west-2:26256/trade_db?sslmode=disable&application_name=birdtrade",
		"postgres://root@haproxy-us-east-1:26256/trade_db?sslmode=disable&application_name=birdtrade",
		"postgres://root@haproxy-eu-west-1:26256/trade_db?sslmode=disable&application_name=birdtrade",
	}
}

// Endpoint is one regional database access point.
type Endpoint struct {
	uri            string
	host           string
	port           uint16
	database       string
	user           string
	password       string
	connectTimeout time.Duration
}

// URI returns the full connection string, credentials included. Never log it, use Redacted instead.
func (e Endpoint) URI() string {
	return e.uri
}

func (e Endpoint) Host() string {
	return e.host
}

func (e Endpoint) Port() uint16 {
	return e.port
}

func (e Endpoint) Database() string {
	return e.database
}

func (e Endpoint) User() string {
	return e.user
}

// ConnectTimeout returns the upper bound for one connection attempt to this endpoint.
func (e Endpoint) ConnectTimeout() time.Duration {
	return e.connectTimeout
}

// Redacted renders the endpoint without user, password or any other secret for use in logs.
func (e Endpoint) Redacted() string {
	return fmt.Sprintf("%s:%d/%s", e.host, e.port, e.database)
}

// RedactError returns err with the endpoint's user name and password masked in its message.
// The result still matches everything err matches with errors.Is and errors.As.
func (e Endpoint) RedactError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	for _, credential := range []string{e.password, e.user} {
		if credential != "" {
			msg = strings.ReplaceAll(msg, credential, redactedCredential)
		}
	}

	if msg == err.Error() {
		return err
	}

	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string {
	return e.msg
}

func (e *redactedError) Unwrap() error {
	return e.err
}

// EndpointPool is the immutable, ordered set of configured endpoints.
type EndpointPool struct {
	endpoints []Endpoint
}

// EndpointPoolOption configures the endpoints of an EndpointPool.
type EndpointPoolOption func(*EndpointPool) error

// WithConnectTimeout sets the connect timeout of every endpoint in the pool.
func WithConnectTimeout(timeout time.Duration) EndpointPoolOption {
	return func(p *EndpointPool) error {
		if timeout <= 0 {
			return errors.Join(ErrInvalidEndpoint, fmt.Errorf("connect timeout must be positive, got %s", timeout))
		}

		for i := range p.endpoints {
			p.endpoints[i].connectTimeout = timeout
		}

		return nil
	}
}

// NewEndpointPool parses and validates the given postgres URIs.
// Each URI must name a host and a database.
func NewEndpointPool(uris []string, options ...EndpointPoolOption) (EndpointPool, error) {
	if len(uris) == 0 {
		return EndpointPool{}, ErrEmptyEndpoints
	}

	pool := EndpointPool{endpoints: make([]Endpoint, 0, len(uris))}

	for _, uri := range uris {
		endpoint, err := ParseEndpoint(uri)
		if err != nil {
			return EndpointPool{}, err
		}

		pool.endpoints = append(pool.endpoints, endpoint)
	}

	for _, option := range options {
		if err := option(&pool); err != nil {
			return EndpointPool{}, err
		}
	}

	return pool, nil
}

// ParseEndpoint parses a single postgres URI into an Endpoint with the default connect timeout.
func ParseEndpoint(uri string) (Endpoint, error) {
	parsedURL, urlErr := url.Parse(uri)
	if urlErr != nil {
		return Endpoint{}, errors.Join(ErrInvalidEndpoint, urlErr)
	}

	if parsedURL.Scheme != "postgres" && parsedURL.Scheme != "postgresql" {
		return Endpoint{}, errors.Join(ErrInvalidEndpoint, fmt.Errorf("unsupported scheme %q", parsedURL.Scheme))
	}

	config, parseErr := pgconn.ParseConfig(uri)
	if parseErr != nil {
		// the pgconn error message echoes the connection string, so it must not be joined
		return Endpoint{}, errors.Join(ErrInvalidEndpoint, fmt.Errorf("could not parse endpoint %s", parsedURL.Redacted()))
	}

	if parsedURL.Hostname() == "" {
		return Endpoint{}, errors.Join(ErrInvalidEndpoint, errors.New("host is missing"))
	}

	if config.Database == "" || parsedURL.Path == "" || parsedURL.Path == "/" {
		return Endpoint{}, errors.Join(ErrInvalidEndpoint, errors.New("database is missing"))
	}

	return Endpoint{
		uri:            uri,
		host:           config.Host,
		port:           config.Port,
		database:       config.Database,
		user:           config.User,
		password:       config.Password,
		connectTimeout: DefaultConnectTimeout,
	}, nil
}

// Len returns the number of endpoints.
func (p EndpointPool) Len() int {
	return len(p.endpoints)
}

// At returns the endpoint at index i in configuration order.
func (p EndpointPool) At(i int) Endpoint {
	return p.endpoints[i]
}

// Endpoints returns a copy of all endpoints in configuration order.
func (p EndpointPool) Endpoints() []Endpoint {
	endpoints := make([]Endpoint, len(p.endpoints))
	copy(endpoints, p.endpoints)

	return endpoints
}
