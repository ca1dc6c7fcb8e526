package testing

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

type ConditionFunc func() (bool, error)

// WaitFor polls cond until it holds, fails or timeout passes.
func WaitFor(timeout time.Duration, description string, cond ConditionFunc) error {
	checkInterval := time.NewTicker(50 * time.Millisecond)
	defer checkInterval.Stop()
	timeoutChan := time.After(timeout)
	for {
		select {
		case <-checkInterval.C:
			ok, err := cond()
			if err != nil {
				return fmt.Errorf("%s: %w", description, err)
			}
			if ok {
				return nil
			}
		case <-timeoutChan:
			return fmt.Errorf("timeout waiting for %s", description)
		}
	}
}

func WaitForServer(timeout time.Duration, baseURL string) error {
	return WaitFor(timeout, "server at "+baseURL, func() (bool, error) {
		resp, err := http.Get(baseURL + "/metrics")
		if err != nil {
			// Not listening yet
			return false, nil
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK, nil
	})
}

func FreePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
