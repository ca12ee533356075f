package e2etest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/nearmiss/internal/errors"
)

// Client is a cookie-keeping HTTP client that submits the server's HTML forms like a browser would.
type Client struct {
	client *http.Client
	url    string
}

func NewClient(url string) (*Client, error) {
	jar, err := newUnsafeCookieJar()
	if err != nil {
		return nil, errors.Wrap(err, "create unsafe cookie jar")
	}
	return &Client{
		client: &http.Client{Jar: jar}, //nolint:exhaustruct // defaults are fine
		url:    url,
	}, nil
}

// Page is an HTML response after following redirects.
type Page struct {
	Doc *goquery.Document
	// URL is the final URL after redirects.
	URL        *neturl.URL
	StatusCode int
}

// File is a file field of a multipart form.
type File struct {
	Name    string
	Content []byte
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.url+urlPath, nil); err != nil {
			return errors.Wrap(err, "create request")
		}

		if resp, err = c.client.Do(req); err == nil {
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+urlPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	return resp, nil
}

// GetDoc fetches a URL and returns a goquery document.
func (c *Client) GetDoc(ctx context.Context, urlPath string) (*goquery.Document, error) {
	resp, err := c.Get(ctx, urlPath)
	if err != nil {
		return nil, errors.Wrap(err, "client get")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if http.StatusOK != resp.StatusCode {
		return nil, errors.New("unexpected status code", slog.Int("status", resp.StatusCode),
			slog.String("url_path", urlPath))
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "create document from reader")
	}
	return doc, nil
}

// SubmitForm submits the form with action formActionURLPath found in doc. The form's current input values are sent
// with values overriding them, so the CSRF token and hidden fields come along like in a browser.
func (c *Client) SubmitForm(
	ctx context.Context,
	doc *goquery.Document,
	formActionURLPath string,
	values neturl.Values,
) (*Page, error) {
	formValues, err := c.formValues(doc, formActionURLPath, values)
	if err != nil {
		return nil, err
	}
	body := strings.NewReader(formValues.Encode())
	return c.post(ctx, formActionURLPath, "application/x-www-form-urlencoded", body)
}

// SubmitMultipartForm is SubmitForm for forms with file inputs.
func (c *Client) SubmitMultipartForm(
	ctx context.Context,
	doc *goquery.Document,
	formActionURLPath string,
	values neturl.Values,
	files map[string]File,
) (*Page, error) {
	formValues, err := c.formValues(doc, formActionURLPath, values)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, vs := range formValues {
		for _, v := range vs {
			if err = mw.WriteField(key, v); err != nil {
				return nil, errors.Wrap(err, "write field", slog.String("key", key))
			}
		}
	}
	for key, f := range files {
		var w io.Writer
		if w, err = mw.CreateFormFile(key, f.Name); err != nil {
			return nil, errors.Wrap(err, "create form file", slog.String("key", key))
		}
		if _, err = w.Write(f.Content); err != nil {
			return nil, errors.Wrap(err, "write form file", slog.String("key", key))
		}
	}
	if err = mw.Close(); err != nil {
		return nil, errors.Wrap(err, "close multipart writer")
	}
	return c.post(ctx, formActionURLPath, mw.FormDataContentType(), &buf)
}

func (c *Client) post(ctx context.Context, urlPath, contentType string, body io.Reader) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+urlPath, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "create document from reader")
	}
	return &Page{Doc: doc, URL: resp.Request.URL, StatusCode: resp.StatusCode}, nil
}

// formValues collects the named inputs and textareas of the form and applies overrides.
func (c *Client) formValues(
	doc *goquery.Document,
	formActionURLPath string,
	overrides neturl.Values,
) (neturl.Values, error) {
	formSelector := fmt.Sprintf("form[action='%s']", formActionURLPath)
	form := doc.Find(formSelector)
	if form.Length() != 1 {
		return nil, errors.New("form not found", slog.String("selector", formSelector))
	}
	if _, ok := form.Find("input[name=csrf_token]").Attr("value"); !ok {
		return nil, errors.New("csrf_token not found in form", slog.String("selector", formSelector))
	}

	values := neturl.Values{}
	form.Find("input[name]").Each(func(_ int, s *goquery.Selection) {
		if typ, _ := s.Attr("type"); typ == "file" || typ == "submit" {
			return
		}
		name, _ := s.Attr("name")
		value, _ := s.Attr("value")
		values.Add(name, value)
	})
	form.Find("textarea[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		values.Add(name, s.Text())
	})
	for key, vs := range overrides {
		values[key] = vs
	}
	return values, nil
}
