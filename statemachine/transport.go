package statemachine

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rainbowassets/gamefsm/envutil"
	"github.com/rs/dnscache"
)

const (
	defaultAssetTimeout          = 30 * time.Second
	defaultDialTimeout           = 10 * time.Second
	defaultKeepAlive             = 30 * time.Second
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultMaxIdleConns          = 16
)

// assetResolver caches host lookups for every asset client. An HTTPLoader
// asks the same base host once per asset name.
var assetResolver = &dnscache.Resolver{} //nolint:gochecknoglobals

// NewAssetClient returns the client HTTPLoader uses when none is given. Every
// request is bounded by FSM_ASSET_HTTP_TIMEOUT (default 30s); dialing, the TLS
// handshake and waiting for response headers have their own limits
// (FSM_ASSET_HTTP_DIAL_TIMEOUT, FSM_ASSET_HTTP_TLS_HANDSHAKE_TIMEOUT,
// FSM_ASSET_HTTP_RESPONSE_HEADER_TIMEOUT). Host lookups go through a shared
// DNS cache.
func NewAssetClient(ctx context.Context) *http.Client {
	timeout := envutil.Duration(ctx, "FSM_ASSET_HTTP_TIMEOUT",
		envutil.Default(defaultAssetTimeout),
		envutil.Validate(envutil.Positive[time.Duration])).
		ValueOrElse(defaultAssetTimeout)

	dialTimeout := envutil.Duration(ctx, "FSM_ASSET_HTTP_DIAL_TIMEOUT",
		envutil.Default(defaultDialTimeout)).
		ValueOrElse(defaultDialTimeout)

	tlsHandshakeTimeout := envutil.Duration(ctx, "FSM_ASSET_HTTP_TLS_HANDSHAKE_TIMEOUT",
		envutil.Default(defaultTLSHandshakeTimeout)).
		ValueOrElse(defaultTLSHandshakeTimeout)

	responseHeaderTimeout := envutil.Duration(ctx, "FSM_ASSET_HTTP_RESPONSE_HEADER_TIMEOUT",
		envutil.Default(defaultResponseHeaderTimeout)).
		ValueOrElse(defaultResponseHeaderTimeout)

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          defaultMaxIdleConns,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
	}

	useDNSCacheDialer(transport, dialTimeout, defaultKeepAlive)

	return &http.Client{Transport: transport, Timeout: timeout}
}

// useDNSCacheDialer makes trans resolve hosts through assetResolver and dial
// the resolved addresses in order until one answers.
func useDNSCacheDialer(trans *http.Transport, timeout, keepAlive time.Duration) {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: keepAlive,
	}

	trans.DialContext = func(ctx context.Context, network string, addr string) (conn net.Conn, err error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := assetResolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}

		for _, ip := range ips {
			conn, err = dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				break
			}
		}

		return conn, err
	}
}
