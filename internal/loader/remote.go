package loader

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/go-resty/resty/v2"
)

var remoteClient = newRemoteClient()

func newRemoteClient() *resty.Client {
	client := resty.New()
	client.SetTimeout(60 * time.Second)
	client.SetRetryCount(2)
	return client
}

// fetchRemote downloads a report export to a temp file and returns its path.
// The caller removes the file when done. The original extension is kept so
// format dispatch still works.
func fetchRemote(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnreadableFormat, rawURL, err)
	}

	tmp, err := os.CreateTemp("", "ads-report-*"+path.Ext(u.Path))
	if err != nil {
		return "", fmt.Errorf("creating temp file for %s: %w", rawURL, err)
	}
	tmp.Close()

	resp, err := remoteClient.R().SetOutput(tmp.Name()).Get(rawURL)
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %s: %v", ErrSourceNotFound, rawURL, err)
	}
	if resp.StatusCode() == 404 {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %s", ErrSourceNotFound, rawURL)
	}
	if resp.StatusCode() >= 400 {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %s: status %d", ErrUnreadableFormat, rawURL, resp.StatusCode())
	}
	return tmp.Name(), nil
}
