package lib

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnauthorized is returned by the JSON helpers on a 401 status
var ErrUnauthorized = errors.New("HTTP Client: Unauthorized request")

var httpClient = &http.Client{Timeout: 60 * time.Second}

// GetJSON fetches a given url with provided headers and parses the answer as JSON to the response object
func GetJSON(url string, response interface{}, headers map[string]string) {
	Check(GetJSONErr(url, response, headers))
}

// GetJSONErr fetches a given url with provided headers and parses the answer as JSON to the response object
func GetJSONErr(url string, response interface{}, headers map[string]string) error {
	return fetchJSON("GET", url, nil, response, headers, 0)
}

func PostJSON(url string, response interface{}, headers map[string]string, body interface{}) {
	Check(PostJSONErr(url, response, headers, body))
}

// PostJSONErr posts a JSON body and parses the answer as JSON to the response
// object. Transient failures and 5xx answers are retried, client errors are
// not (a rejected completion request stays rejected).
func PostJSONErr(url string, response interface{}, headers map[string]string, body interface{}) error {
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"
	bs, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return fetchJSON("POST", url, bs, response, headers, 0)
}

func fetchJSON(method, url string, body []byte, response interface{}, headers map[string]string, try int) error {
	retry := func(err error) error {
		if try >= 3 {
			return fmt.Errorf("fetch: out of retries: %v", err)
		}
		time.Sleep(time.Duration(try+1) * 250 * time.Millisecond)
		return fetchJSON(method, url, body, response, headers, try+1)
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf(`fetching "%s": %v`, url, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return retry(fmt.Errorf(`fetching "%s": %v`, url, err))
	}
	defer resp.Body.Close()
	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode == 401 {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 500 {
		return retry(fmt.Errorf(`fetching "%s": got status code %v (%s)`, url, resp.StatusCode, string(bs)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf(`fetching "%s": got status code %v (%s)`, url, resp.StatusCode, string(bs))
	}
	if response == nil {
		return nil
	}
	return json.Unmarshal(bs, response)
}
