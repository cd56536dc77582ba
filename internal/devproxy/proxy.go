// Package devproxy routes the viewer bundle to a local dev server and
// everything else to OMERO.web.
package devproxy

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

const (
	bundlePath   = "/static/omero_iviewer/bundle.js"
	bundlePrefix = "/static/omero_iviewer/"
)

// Proxy is an http.Handler splitting traffic between two upstreams
type Proxy struct {
	webClient *httputil.ReverseProxy
	devServer *httputil.ReverseProxy
	webURL    *url.URL
	devURL    *url.URL
	logger    *slog.Logger
}

// New parses both upstream URLs and builds the proxy
func New(webClientURL, devServerURL string, logger *slog.Logger) (*Proxy, error) {
	if logger == nil {
		logger = slog.Default()
	}
	webURL, err := parseUpstream(webClientURL)
	if err != nil {
		return nil, err
	}
	devURL, err := parseUpstream(devServerURL)
	if err != nil {
		return nil, err
	}

	p := &Proxy{webURL: webURL, devURL: devURL, logger: logger}
	p.webClient = p.reverseProxy(webURL, false)
	p.devServer = p.reverseProxy(devURL, true)
	return p, nil
}

func parseUpstream(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream %q needs a scheme and host", raw)
	}
	return u, nil
}

func (p *Proxy) reverseProxy(target *url.URL, stripPrefix bool) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			if stripPrefix {
				r.Out.URL.Path = "/" + strings.TrimPrefix(r.In.URL.Path, bundlePrefix)
				r.Out.URL.RawPath = ""
			}
			r.SetURL(target)
			r.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			p.logger.Error("Proxy request failed", "path", r.URL.Path, "upstream", target.String(), "err", err)
			http.Error(w, "Bad gateway", http.StatusBadGateway)
		},
	}
}

// IsBundle reports whether path is served by the dev server
func IsBundle(path string) bool {
	return strings.HasPrefix(path, bundlePath)
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if IsBundle(r.URL.Path) {
		p.logger.Debug("Proxying", "path", r.URL.Path, "to", "iviewer dev", "upstream", p.devURL.String())
		p.devServer.ServeHTTP(w, r)
		return
	}
	p.logger.Debug("Proxying", "path", r.URL.Path, "to", "OMERO.web", "upstream", p.webURL.String())
	p.webClient.ServeHTTP(w, r)
}
