package webrouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// BodyDecoder turns a request body into field values and upload descriptors. The
// router calls it only for methods that carry a body.
type BodyDecoder interface {
	Decode(r *http.Request) (fields map[string]string, files map[string]*UploadedFile, err error)
}

// FormDecoder decodes multipart/form-data, application/x-www-form-urlencoded and
// application/json bodies. Other content types leave fields and files empty.
//
// MaxFieldsSize bounds the summed size of all non-file values; MaxFileSize bounds
// each uploaded file. Uploaded files are streamed into UploadDir under a random
// name, keeping the original extension when KeepExtensions is set. When a field
// name repeats, the last occurrence wins.
type FormDecoder struct {
	UploadDir      string
	MaxFieldsSize  int64
	MaxFileSize    int64
	KeepExtensions bool
}

var (
	ErrFieldsTooLarge = errors.New("maxFieldsSize exceeded")
	ErrFileTooLarge   = errors.New("maxFileSize exceeded")
)

func (d *FormDecoder) Decode(r *http.Request) (map[string]string, map[string]*UploadedFile, error) {
	fields := map[string]string{}
	files := map[string]*UploadedFile{}
	if r.Body == nil || r.Body == http.NoBody {
		return fields, files, nil
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return fields, files, nil
	}

	switch mediaType {
	case "multipart/form-data":
		err = d.decodeMultipart(r, fields, files)
	case "application/x-www-form-urlencoded":
		err = d.decodeURLEncoded(r.Body, fields)
	case "application/json":
		err = d.decodeJSON(r.Body, fields)
	}
	if err != nil {
		return nil, nil, err
	}
	return fields, files, nil
}

// readLimited reads all of body, failing once more than limit bytes are available.
func readLimited(body io.Reader, limit int64, tooLarge error) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, tooLarge
	}
	return data, nil
}

func (d *FormDecoder) decodeURLEncoded(body io.Reader, fields map[string]string) error {
	data, err := readLimited(body, d.MaxFieldsSize, ErrFieldsTooLarge)
	if err != nil {
		return err
	}
	values, err := url.ParseQuery(string(data))
	if err != nil {
		return fmt.Errorf("parse urlencoded body: %w", err)
	}
	for k, v := range values {
		fields[k] = v[len(v)-1]
	}
	return nil
}

// decodeJSON accepts a top-level object. String members are kept as-is; any other
// member is stored as its JSON text, except null which becomes "".
func (d *FormDecoder) decodeJSON(body io.Reader, fields map[string]string) error {
	data, err := readLimited(body, d.MaxFieldsSize, ErrFieldsTooLarge)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("parse json body: %w", err)
	}
	for k, raw := range members {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			fields[k] = s
			continue
		}
		fields[k] = string(raw)
	}
	return nil
}

func (d *FormDecoder) decodeMultipart(r *http.Request, fields map[string]string, files map[string]*UploadedFile) error {
	reader, err := r.MultipartReader()
	if err != nil {
		return fmt.Errorf("parse multipart body: %w", err)
	}
	remaining := d.MaxFieldsSize
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse multipart body: %w", err)
		}

		name := part.FormName()
		if name == "" {
			part.Close()
			continue
		}
		if part.FileName() == "" {
			value, err := readLimited(part, remaining, ErrFieldsTooLarge)
			part.Close()
			if err != nil {
				return err
			}
			remaining -= int64(len(value))
			fields[name] = string(value)
			continue
		}

		upload, err := d.storeUpload(part, part.FileName(), part.Header.Get("Content-Type"))
		part.Close()
		if err != nil {
			return err
		}
		files[name] = upload
	}
}

func (d *FormDecoder) storeUpload(src io.Reader, fileName string, contentType string) (*UploadedFile, error) {
	tempName := uuid.NewString()
	if d.KeepExtensions {
		tempName += filepath.Ext(fileName)
	}
	tempPath := filepath.Join(d.UploadDir, tempName)

	out, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	size, copyErr := io.Copy(out, io.LimitReader(src, d.MaxFileSize+1))
	closeErr := out.Close()
	if copyErr == nil && size > d.MaxFileSize {
		copyErr = ErrFileTooLarge
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("store upload %q: %w", fileName, copyErr)
	}
	return &UploadedFile{
		Path: tempPath,
		Name: filepath.Base(fileName),
		Type: contentType,
		Size: size,
	}, nil
}
