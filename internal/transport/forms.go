package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"catalog-api/internal/media"

	"go.uber.org/zap"
)

const (
	imageField    = "image"
	maxFieldBytes = 64 << 10
	// extra room for text fields and multipart framing beyond the image limit
	formOverhead = 1 << 20
)

var errMalformedForm = errors.New("invalid request body")

// Uploader spools an image part of a request
type Uploader interface {
	Spool(r io.Reader, filename, declaredType string) (*media.Upload, error)
	MaxBytes() int64
	MaxPixels() int64
}

// readForm collects the text fields of a JSON, urlencoded or multipart body.
// With a non-nil uploader the first non-empty "image" file part is spooled and
// returned; every other file part is drained and ignored. On error no upload is
// left behind.
func readForm(w http.ResponseWriter, r *http.Request, uploader Uploader, logger *zap.Logger) (map[string]string, *media.Upload, error) {
	limit := int64(formOverhead)
	if uploader != nil {
		limit += uploader.MaxBytes()
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return readMultipart(r, uploader, logger)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, nil, errMalformedForm
		}
		values := make(map[string]string, len(r.PostForm))
		for key := range r.PostForm {
			values[key] = r.PostForm.Get(key)
		}
		return values, nil, nil
	case "application/json", "":
		values, err := readJSON(r.Body)
		return values, nil, err
	default:
		return nil, nil, errMalformedForm
	}
}

func readMultipart(r *http.Request, uploader Uploader, logger *zap.Logger) (values map[string]string, upload *media.Upload, err error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, nil, errMalformedForm
	}

	defer func() {
		if err != nil && upload != nil {
			upload.Discard(logger)
			upload = nil
		}
	}()

	values = make(map[string]string)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return values, upload, nil
		}
		if err != nil {
			return nil, upload, formReadError(err)
		}

		name := part.FormName()
		if part.FileName() != "" || name == imageField {
			if uploader == nil || name != imageField || upload != nil || part.FileName() == "" {
				if _, err := io.Copy(io.Discard, part); err != nil {
					return nil, upload, formReadError(err)
				}
				continue
			}
			upload, err = uploader.Spool(part, part.FileName(), part.Header.Get("Content-Type"))
			if err != nil {
				return nil, nil, formReadError(err)
			}
			continue
		}

		value, err := readField(part)
		if err != nil {
			return nil, upload, err
		}
		if _, seen := values[name]; !seen {
			values[name] = value
		}
	}
}

func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", formReadError(err)
	}
	if len(data) > maxFieldBytes {
		return "", errMalformedForm
	}
	return string(data), nil
}

func readJSON(body io.Reader) (map[string]string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, formReadError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]string{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var raw map[string]interface{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, errMalformedForm
	}

	values := make(map[string]string, len(raw))
	for key, v := range raw {
		switch v := v.(type) {
		case string:
			values[key] = v
		case json.Number:
			values[key] = v.String()
		case bool:
			values[key] = strconv.FormatBool(v)
		case nil:
		default:
			return nil, errMalformedForm
		}
	}
	return values, nil
}

// formReadError keeps size and type rejections and hides parser detail
func formReadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return media.ErrFileTooLarge
	case errors.Is(err, media.ErrFileTooLarge), errors.Is(err, media.ErrUnsupportedType),
		errors.Is(err, media.ErrImageTooLarge):
		return err
	default:
		return fmt.Errorf("%w: %v", errMalformedForm, err)
	}
}

func trimmed(values map[string]string, key string) string {
	return strings.TrimSpace(values[key])
}
