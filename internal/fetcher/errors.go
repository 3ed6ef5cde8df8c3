package fetcher

import "fmt"

// HTTPError неуспешный статус после всех попыток
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s", e.StatusCode, e.URL)
}

// DisallowedError URL закрыт в robots.txt
type DisallowedError struct {
	URL string
}

func (e *DisallowedError) Error() string {
	return fmt.Sprintf("URL disallowed by robots.txt: %s", e.URL)
}
