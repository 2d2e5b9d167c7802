package util

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net"
	"net/http"
	"time"
)

var Client *http.Client = &http.Client{
	Timeout: time.Second * 120,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
			DualStack: true,
		}).DialContext,
		ForceAttemptHTTP2:     false,
		DisableKeepAlives:     true,
		MaxIdleConns:          0,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   100,
		Proxy:                 http.ProxyFromEnvironment,
	},
}

func Get(url string) (resp *http.Response, err error) {
	ctx := context.Background()
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	return Client.Do(req)
}

func Do(req *http.Request) (*http.Response, error) {
	ctx := context.Background()
	reqWithCtx := req.WithContext(ctx)

	return Client.Do(reqWithCtx)
}

// NewSubmitRequest builds an authenticated JSON POST; key may be empty for
// endpoints without auth.
func NewSubmitRequest(url, key string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest("POST", url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	return req, nil
}

func GetJSON(url string, data interface{}) error {
	resp, err := Get(url)
	if err != nil {
		return fmt.Errorf("get url %s err <%w>", url, err)
	}
	defer resp.Body.Close()
	respBody, _ := ioutil.ReadAll(resp.Body)
	err = json.Unmarshal(respBody, data)
	if err != nil {
		log.Printf("GetJSON url <%s> content:\n %s", url, respBody)
		return fmt.Errorf("unmarshal err <%w>", err)
	}
	return nil
}
