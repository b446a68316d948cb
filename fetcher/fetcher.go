// Package fetcher performs the single bounded outbound GET for a scrape
// request. The target host is caller-supplied, which makes this an
// SSRF-relevant boundary; the only gate applied is the http/https scheme
// check done upstream.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	utls "github.com/refraction-networking/utls"
	xproxy "golang.org/x/net/proxy"

	"github.com/uselens/pagelens/config"
	"github.com/uselens/pagelens/models"
)

// Fetcher retrieves raw page markup over HTTP with a Chrome TLS
// fingerprint (utls) to avoid trivial bot blocking.
type Fetcher struct {
	timeout      time.Duration
	userAgent    string
	proxy        string
	maxBodyBytes int64
}

// New creates a Fetcher from configuration.
func New(cfg config.FetcherConfig) *Fetcher {
	return &Fetcher{
		timeout:      cfg.Timeout,
		userAgent:    cfg.UserAgent,
		proxy:        cfg.Proxy,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch issues exactly one GET against targetURL and returns the raw
// markup. The attempt is bounded by the configured timeout; there is no
// retry. Connection errors, DNS failures, timeouts and non-2xx statuses
// are all surfaced uniformly as a FETCH_FAILED (or SCRAPE_TIMEOUT) error
// carrying a human-readable message.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) ([]byte, error) {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, f.proxy)
		},
	}
	if f.proxy != "" {
		proxyURL, err := url.Parse(f.proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "failed to build request", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Blame the fetch timeout only when it is the deadline that
			// actually fired; the caller's overall budget can expire first.
			msg := "request timed out"
			if parent.Err() == nil {
				msg = fmt.Sprintf("request timed out after %s", f.timeout)
			}
			return nil, models.NewScrapeError(models.ErrCodeTimeout, msg, err)
		}
		return nil, models.NewScrapeError(models.ErrCodeFetch, "failed to fetch website", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewScrapeError(models.ErrCodeFetch,
			fmt.Sprintf("website returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "failed to read response body", err)
	}

	return body, nil
}

// dialTLSChrome establishes a TLS connection with a Chrome fingerprint
// via utls.
func dialTLSChrome(ctx context.Context, network, addr, proxy string) (net.Conn, error) {
	var rawConn net.Conn
	var err error

	dialer := &net.Dialer{}

	if proxy != "" {
		proxyURL, parseErr := url.Parse(proxy)
		if parseErr == nil && (proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h") {
			rawConn, err = dialSOCKS5(ctx, proxyURL, addr, dialer)
			if err != nil {
				return nil, fmt.Errorf("socks5 dial: %w", err)
			}
		}
	}

	if rawConn == nil {
		rawConn, err = dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := utls.UClient(rawConn, &utls.Config{
		ServerName: host,
	}, utls.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// dialSOCKS5 performs the full SOCKS5 handshake with the proxy and
// returns a connection to the target address, ready for TLS.
func dialSOCKS5(ctx context.Context, proxyURL *url.URL, addr string, forward *net.Dialer) (net.Conn, error) {
	var auth *xproxy.Auth
	if proxyURL.User != nil {
		password, _ := proxyURL.User.Password()
		auth = &xproxy.Auth{User: proxyURL.User.Username(), Password: password}
	}

	d, err := xproxy.SOCKS5("tcp", proxyURL.Host, auth, forward)
	if err != nil {
		return nil, err
	}

	cd, ok := d.(xproxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks5 dialer does not support context dialing")
	}
	return cd.DialContext(ctx, "tcp", addr)
}
