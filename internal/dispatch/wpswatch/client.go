// Package wpswatch delivers camera trap images to WPS Watch.
package wpswatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"dispatcher/internal/constants"
	"dispatcher/internal/dispatch"
	"dispatcher/internal/logger"
	"dispatcher/internal/storage"
	apperrors "dispatcher/pkg/errors"
)

const defaultContentType = "application/octet-stream"

type field struct {
	name  string
	value string
}

type upload struct {
	url      string
	apiKey   string
	fields   []field
	fileName string
	data     []byte
}

// client holds what both adapters share: the upload call and blob handling.
type client struct {
	httpClient  *http.Client
	store       storage.BlobStore
	deleteFiles bool
	logger      logger.Logger
}

func (c *client) download(ctx context.Context, filePath string) ([]byte, error) {
	data, err := c.store.Download(ctx, filePath)
	if err != nil {
		c.logger.ErrorwCtx(ctx, "Error downloading file from cloud storage", "file", filePath, "error", err)
		return nil, err
	}
	return data, nil
}

// cleanup runs after a successful delivery. A failed delete is logged only:
// the delivery already happened and must not be repeated.
func (c *client) cleanup(ctx context.Context, filePath string) {
	if !c.deleteFiles {
		return
	}
	if err := c.store.Delete(ctx, filePath); err != nil {
		c.logger.WarnwCtx(ctx, "Failed to delete delivered file", "file", filePath, "error", err)
		return
	}
	c.logger.DebugwCtx(ctx, "File deleted from storage", "file", filePath)
}

func (c *client) post(ctx context.Context, u upload) (*dispatch.Response, error) {
	body, contentType, err := encodeMultipart(u)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(constants.WPSWatchAPIKeyHeader, u.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorwCtx(ctx, "Error occurred posting to WPS Watch", "url", u.url, "error", err)
		return nil, fmt.Errorf("error posting to WPS Watch %s: %w", u.url, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	result := &dispatch.Response{StatusCode: resp.StatusCode, Body: string(respBody)}

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		c.logger.ErrorwCtx(ctx, "WPS Watch rejected the upload",
			"url", u.url,
			"status_code", resp.StatusCode,
			"response", result.Body,
		)
		return result, apperrors.ErrDelivery.
			WithMessage(fmt.Sprintf("WPS Watch returned status %d", resp.StatusCode)).
			WithDetail("status_code", resp.StatusCode).
			WithDetail("url", u.url)
	}

	return result, nil
}

func encodeMultipart(u upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range u.fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`,
		constants.WPSWatchFilePart, u.fileName))
	header.Set("Content-Type", contentTypeFor(u.fileName))
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(u.data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func contentTypeFor(fileName string) string {
	if t := mime.TypeByExtension(filepath.Ext(fileName)); t != "" {
		return t
	}
	return defaultContentType
}

// uploadURL keeps scheme and host of the configured endpoint and appends the
// upload path, collapsing doubled slashes left by a trailing "/" in the portal.
func uploadURL(endpoint string, keepPath bool) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("endpoint %q is not an absolute url", endpoint)
	}

	p := constants.WPSWatchUploadPath
	if keepPath {
		p = parsed.Path + "/" + strings.TrimPrefix(constants.WPSWatchUploadPath, "/")
		for strings.Contains(p, "//") {
			p = strings.ReplaceAll(p, "//", "/")
		}
	}
	return parsed.Scheme + "://" + parsed.Host + p, nil
}
