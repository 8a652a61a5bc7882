// Package upload turns inbound upload requests into a normalized payload,
// stores it, and relays the stored object's metadata.
package upload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// Shape records which transport branch produced a payload.
type Shape string

const (
	ShapeJSON             Shape = "json"
	ShapeMultipart        Shape = "multipart"
	ShapeMultipartJSON    Shape = "multipart-json"
	ShapeMultipartJSONRaw Shape = "multipart-json-raw"
)

// Payload is a normalized upload ready for storage.
type Payload struct {
	Data        []byte
	Filename    string
	ContentType string
	Shape       Shape
}

// Room for base64 expansion plus the JSON or multipart envelope.
const envelopeOverhead = 64 << 10

// Normalizer extracts a Payload from a request regardless of its transport shape.
type Normalizer struct {
	maxBytes int64
	now      func() time.Time
	log      *slog.Logger
}

// NewNormalizer creates a Normalizer that rejects payloads above maxBytes.
func NewNormalizer(maxBytes int64, log *slog.Logger) *Normalizer {
	return &Normalizer{maxBytes: maxBytes, now: time.Now, log: log}
}

// BodyLimit is the largest request body accepted before decoding.
func (n *Normalizer) BodyLimit() int64 {
	return n.maxBytes/3*4 + 4 + envelopeOverhead
}

// Normalize dispatches on the request's declared content type.
func (n *Normalizer) Normalize(r *http.Request) (*Payload, error) {
	declared := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return nil, newError(KindUnsupportedMediaType, fmt.Sprintf("unsupported content type %q", declared))
	}
	r.Body = http.MaxBytesReader(nil, r.Body, n.BodyLimit())

	switch mediaType {
	case "application/json":
		return n.fromJSONBody(r.Body)
	case "multipart/form-data":
		return n.fromMultipart(r)
	default:
		return nil, newError(KindUnsupportedMediaType, fmt.Sprintf("unsupported content type %q", mediaType))
	}
}

func (n *Normalizer) fromJSONBody(body io.Reader) (*Payload, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, n.readError(err)
	}
	var v any
	if err := decodeJSON(raw, &v); err != nil {
		return nil, wrapError(err, KindInvalidJSON, "request body is not valid JSON")
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, newError(KindMissingPayload, "JSON body must be an object")
	}

	found := extract(doc, bodyFields)
	if !found.Found {
		return nil, newError(KindMissingPayload,
			fmt.Sprintf("no base64 image in any of the fields %s", strings.Join(bodyFields, ", ")))
	}
	data, err := decodeBase64(found.Value)
	if err != nil {
		return nil, wrapError(err, KindDecodeError, fmt.Sprintf("field %q is not valid base64", found.Field))
	}
	if err := n.checkSize(len(data)); err != nil {
		return nil, err
	}

	name, ok := explicitName(doc)
	if !ok {
		name = synthesizedName(n.now(), ".png")
	}
	return imagePayload(doc, data, ensureImageExtension(name), ShapeJSON), nil
}

func (n *Normalizer) fromMultipart(r *http.Request) (*Payload, error) {
	if err := r.ParseMultipartForm(n.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, n.tooLarge()
		}
		return nil, wrapError(err, KindMissingPayload, "malformed multipart body")
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := formFile(r, "file", "data")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, n.readError(err)
	}
	if len(data) == 0 {
		return nil, newError(KindMissingPayload, fmt.Sprintf("file %q is empty", header.Filename))
	}

	declared := header.Header.Get("Content-Type")
	essence, _, _ := mime.ParseMediaType(declared)
	if essence == "application/json" || strings.HasSuffix(strings.ToLower(header.Filename), ".json") {
		// The part carries base64 text; the ceiling applies to what it decodes to.
		if int64(len(data)) > n.BodyLimit() {
			return nil, n.tooLarge()
		}
		return n.fromJSONPart(data, header.Filename)
	}
	if err := n.checkSize(len(data)); err != nil {
		return nil, err
	}

	contentType := declared
	if essence == "" || essence == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	return &Payload{Data: data, Filename: header.Filename, ContentType: contentType, Shape: ShapeMultipart}, nil
}

// fromJSONPart probes a JSON file for an embedded base64 image. Anything that
// does not yield one is stored verbatim as JSON.
func (n *Normalizer) fromJSONPart(raw []byte, partName string) (*Payload, error) {
	var doc map[string]any
	if err := decodeJSON(raw, &doc); err != nil {
		n.log.Warn("json part is not an object, storing as-is", "filename", partName, "error", err)
		return n.rawJSON(raw, partName)
	}
	found := extract(doc, partFields)
	if !found.Found {
		n.log.Debug("json part has no embedded image, storing as-is", "filename", partName)
		return n.rawJSON(raw, partName)
	}
	data, err := decodeBase64(found.Value)
	if err != nil {
		n.log.Warn("json part field is not valid base64, storing as-is",
			"filename", partName, "field", found.Field, "error", err)
		return n.rawJSON(raw, partName)
	}
	if err := n.checkSize(len(data)); err != nil {
		return nil, err
	}

	name, ok := explicitName(doc)
	switch {
	case ok:
	case partName != "":
		name = replaceJSONSuffix(partName)
	default:
		name = synthesizedName(n.now(), ".png")
	}
	return imagePayload(doc, data, ensureImageExtension(name), ShapeMultipartJSON), nil
}

// rawJSON stores the part verbatim, so the ceiling applies to its own size.
func (n *Normalizer) rawJSON(raw []byte, partName string) (*Payload, error) {
	if err := n.checkSize(len(raw)); err != nil {
		return nil, err
	}
	if partName == "" {
		partName = synthesizedName(n.now(), ".json")
	}
	return &Payload{Data: raw, Filename: partName, ContentType: "application/json", Shape: ShapeMultipartJSONRaw}, nil
}

func (n *Normalizer) checkSize(size int) error {
	if int64(size) > n.maxBytes {
		return n.tooLarge()
	}
	return nil
}

func (n *Normalizer) tooLarge() *Error {
	return newError(KindPayloadTooLarge, fmt.Sprintf("payload exceeds the %s limit", humanize.IBytes(uint64(n.maxBytes))))
}

func (n *Normalizer) readError(err error) *Error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return n.tooLarge()
	}
	return wrapError(err, KindMissingPayload, "could not read request body")
}

func imagePayload(doc map[string]any, data []byte, name string, shape Shape) *Payload {
	contentType, ok := explicitType(doc)
	if !ok {
		contentType = contentTypeFor(name)
	}
	return &Payload{Data: data, Filename: name, ContentType: contentType, Shape: shape}
}

// formFile returns the first of the named file parts present in the form.
func formFile(r *http.Request, names ...string) (multipart.File, *multipart.FileHeader, error) {
	for _, name := range names {
		file, header, err := r.FormFile(name)
		if err == nil {
			return file, header, nil
		}
		if !errors.Is(err, http.ErrMissingFile) {
			return nil, nil, wrapError(err, KindMissingPayload, fmt.Sprintf("could not open part %q", name))
		}
	}
	return nil, nil, newError(KindMissingPayload, fmt.Sprintf("no file provided in %q field", names[0]))
}

// decodeJSON keeps numbers as json.Number so names like 1700000000123 survive intact.
func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
