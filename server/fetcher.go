package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goware/urlx"
	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

var (
	DefaultFetcherReqTimeout = 20 * time.Second
	DefaultFetcherMaxBytes   = int64(20 << 20)
	DefaultUserAgent         = "imgkit-fetcher/1.0"

	ErrFetchTooLarge = errors.New("fetcher: response body too large")
)

type Fetcher struct {
	Client *http.Client

	ReqTimeout    time.Duration
	HostKeepAlive time.Duration
	MaxBytes      int64

	// Query params appended to requests for a host.
	CustomParams map[string]map[string][]string

	// Throughput bounds the number of requests in flight across GetAll
	// calls. Zero means one at a time.
	Throughput int

	sem  chan struct{}
	once sync.Once
}

type FetcherResponse struct {
	URL    *url.URL
	Status int
	Data   []byte
	Err    error
}

func NewFetcher(throughput int) *Fetcher {
	if throughput <= 0 {
		throughput = 1
	}
	return &Fetcher{
		ReqTimeout:    DefaultFetcherReqTimeout,
		HostKeepAlive: 60 * time.Second,
		MaxBytes:      DefaultFetcherMaxBytes,
		Throughput:    throughput,
	}
}

// setup fills in whatever a zero Fetcher is missing on first use.
func (f *Fetcher) setup() {
	f.once.Do(func() {
		if f.Throughput <= 0 {
			f.Throughput = 1
		}
		f.sem = make(chan struct{}, f.Throughput)

		if f.ReqTimeout <= 0 {
			f.ReqTimeout = DefaultFetcherReqTimeout
		}
		if f.MaxBytes <= 0 {
			f.MaxBytes = DefaultFetcherMaxBytes
		}
		if f.Client != nil {
			return
		}
		transport := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   f.ReqTimeout,
				KeepAlive: f.HostKeepAlive,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			MaxIdleConnsPerHost:   2,
			ResponseHeaderTimeout: f.ReqTimeout,
		}
		f.Client = &http.Client{
			Timeout:   f.ReqTimeout,
			Transport: transport,
		}
	})
}

func (f *Fetcher) Get(ctx context.Context, rawURL string) (*FetcherResponse, error) {
	resps, err := f.GetAll(ctx, []string{rawURL})
	if err != nil {
		return nil, err
	}
	if len(resps) == 0 {
		return nil, errors.New("fetcher: no response")
	}
	resp := resps[0]
	if resp.Err != nil {
		return resp, resp.Err
	}
	return resp, nil
}

// GetAll fetches every url concurrently. Per-url failures are reported in
// each response's Err.
func (f *Fetcher) GetAll(ctx context.Context, urls []string) ([]*FetcherResponse, error) {
	m := metrics.GetOrRegisterTimer("fn.FetchRemoteData", nil)
	defer m.UpdateSince(time.Now())

	f.setup()
	fetches := make([]*FetcherResponse, len(urls))

	var wg sync.WaitGroup
	wg.Add(len(urls))

	for i, urlStr := range urls {
		fetches[i] = &FetcherResponse{}

		go func(fetch *FetcherResponse, reqURL string) {
			defer wg.Done()

			select {
			case f.sem <- struct{}{}:
				defer func() { <-f.sem }()
			case <-ctx.Done():
				fetch.Err = ctx.Err()
				return
			}

			fetch.Err = f.fetch(ctx, fetch, reqURL)
		}(fetches[i], urlStr)
	}

	wg.Wait()
	return fetches, nil
}

func (f *Fetcher) fetch(ctx context.Context, fetch *FetcherResponse, reqURL string) error {
	u, err := urlx.Parse(reqURL)
	if err != nil {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}

	if params, ok := f.CustomParams[u.Host]; ok {
		q := u.Query()
		for key, vals := range params {
			for _, v := range vals {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	fetch.URL = u

	logrus.Infof("Fetching %s", u.String())

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := f.Client.Do(req)
	if err != nil {
		logrus.Warnf("Error fetching %s because %s", u.String(), err)
		return err
	}
	defer resp.Body.Close()

	fetch.Status = resp.StatusCode
	if resp.StatusCode >= 400 {
		return fmt.Errorf("fetcher: %s responded %d", u.Host, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		return err
	}
	if int64(len(body)) > f.MaxBytes {
		return ErrFetchTooLarge
	}
	fetch.Data = body
	return nil
}
