package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// DefaultMaxBodyBytes caps a decoded request body.
const DefaultMaxBodyBytes int64 = 1 << 20

// DecodeRequestBody undoes the Content-Encoding of request bodies so
// handlers always read plain JSON. gzip and identity are accepted, any other
// coding is answered with 415. The decoded body is capped at maxBytes; a
// zero or negative value uses DefaultMaxBodyBytes.
func DecodeRequestBody(maxBytes int64) echo.MiddlewareFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			codings, err := contentCodings(req.Header.Get(echo.HeaderContentEncoding))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
			}
			if len(codings) == 0 {
				req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBytes)
				return next(c)
			}

			body := &layeredBody{closers: []io.Closer{req.Body}, Reader: req.Body}
			// Codings are listed in the order they were applied.
			for i := len(codings) - 1; i >= 0; i-- {
				gr, err := gzip.NewReader(body.Reader)
				if err != nil {
					_ = body.Close()
					return echo.NewHTTPError(http.StatusBadRequest, "invalid gzip body")
				}
				body.Reader = gr
				body.closers = append(body.closers, gr)
			}

			req.Body = http.MaxBytesReader(c.Response(), body, maxBytes)
			req.ContentLength = -1
			req.Header.Del(echo.HeaderContentEncoding)
			req.Header.Del(echo.HeaderContentLength)
			return next(c)
		}
	}
}

type unsupportedCoding string

func (u unsupportedCoding) Error() string {
	return "unsupported content encoding " + string(u)
}

// contentCodings returns the gzip layers named by header, dropping identity.
func contentCodings(header string) ([]string, error) {
	var out []string
	for _, enc := range strings.Split(header, ",") {
		enc = strings.ToLower(strings.TrimSpace(enc))
		switch enc {
		case "", "identity":
		case "gzip", "x-gzip":
			out = append(out, enc)
		default:
			return nil, unsupportedCoding(enc)
		}
	}
	return out, nil
}

// layeredBody reads through the last decoder and closes the decoders before
// the underlying body.
type layeredBody struct {
	io.Reader
	closers []io.Closer
}

func (b *layeredBody) Close() error {
	var err error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if cerr := b.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
