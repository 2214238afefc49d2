package common

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const maxResponseBytes = 4 * 1024 * 1024

// FetchText GETs a page and returns its body as UTF-8 text. Non-2xx statuses
// are errors; bodies are capped at 4MB. Legacy index sites still serve
// windows-125x and latin-1 pages, so the Content-Type charset is honored.
func FetchText(ctx context.Context, client *http.Client, rawURL, userAgent string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(userAgent) != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fetch HTTP %d: %s", resp.StatusCode, CleanHTMLText(string(snippet)))
	}

	body := decodeCharset(io.LimitReader(resp.Body, maxResponseBytes), resp.Header.Get("Content-Type"))
	payload, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func decodeCharset(body io.Reader, contentType string) io.Reader {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}
	var decoder *encoding.Decoder
	switch strings.ToLower(params["charset"]) {
	case "windows-1251":
		decoder = charmap.Windows1251.NewDecoder()
	case "windows-1252":
		decoder = charmap.Windows1252.NewDecoder()
	case "iso-8859-1", "latin1":
		decoder = charmap.ISO8859_1.NewDecoder()
	default:
		return body
	}
	return transform.NewReader(body, decoder)
}
