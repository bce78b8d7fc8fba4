package asset

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// A Resource is a readable scene asset stored either on the local
// filesystem or behind an http(s) URL.
type Resource struct {
	io.ReadCloser

	// The local file path or the remote URL.
	location string

	// Set for remote resources.
	url *url.URL
}

// Path returns the location of this resource.
func (r *Resource) Path() string {
	return r.location
}

// Ext returns the lower-cased extension of the resource path, including
// the leading dot.
func (r *Resource) Ext() string {
	if r.url != nil {
		return strings.ToLower(path.Ext(r.url.Path))
	}
	return strings.ToLower(filepath.Ext(r.location))
}

// IsRemote returns true if the resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url != nil
}

// Open a resource. Paths with an http or https prefix are fetched
// remotely; everything else is opened from the local filesystem as is.
//
// The caller must close the returned resource.
func NewResource(pathToResource string) (*Resource, error) {
	lower := strings.ToLower(pathToResource)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return newRemoteResource(pathToResource)
	case strings.Contains(pathToResource, "://"):
		scheme := pathToResource[:strings.Index(pathToResource, "://")]
		return nil, fmt.Errorf("resource: unsupported scheme '%s'", scheme)
	}

	reader, err := os.Open(filepath.Clean(pathToResource))
	if err != nil {
		return nil, fmt.Errorf("resource: %w", err)
	}
	return &Resource{
		ReadCloser: reader,
		location:   pathToResource,
	}, nil
}

func newRemoteResource(rawURL string) (*Resource, error) {
	resURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("resource: invalid url %q: %w", rawURL, err)
	}

	resp, err := http.Get(resURL.String())
	if err != nil {
		return nil, fmt.Errorf("resource: could not fetch '%s': %w", resURL.String(), err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("resource: could not fetch '%s': status %d", resURL.String(), resp.StatusCode)
	}

	return &Resource{
		ReadCloser: resp.Body,
		location:   resURL.String(),
		url:        resURL,
	}, nil
}

// Create a resource from a reader.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	return &Resource{
		ReadCloser: io.NopCloser(source),
		location:   name,
	}
}
