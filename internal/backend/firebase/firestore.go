package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"time"

	firestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"todo/internal/service"
)

// DefaultFirestoreEndpoint is the Firestore REST root.
const DefaultFirestoreEndpoint = "https://firestore.googleapis.com/"

// Firestore implements service.Documents on Cloud Firestore.
//
// Writes go through the generated client. runQuery answers with a streamed array,
// so queries are posted directly and decoded into document below.
type Firestore struct {
	svc      *firestore.Service
	http     *http.Client
	endpoint string
	parent   string // projects/{p}/databases/{d}/documents
	timeout  time.Duration
}

func newFirestore(ctx context.Context, opts Options, client *http.Client) (*Firestore, error) {
	endpoint := opts.FirestoreEndpoint
	if endpoint == "" {
		endpoint = DefaultFirestoreEndpoint
	}
	svc, err := firestore.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore service: %w", err)
	}
	database := opts.Database
	if database == "" {
		database = "(default)"
	}
	return &Firestore{
		svc:      svc,
		http:     client,
		endpoint: endpoint,
		parent:   fmt.Sprintf("projects/%s/databases/%s/documents", opts.ProjectID, database),
		timeout:  opts.Timeout,
	}, nil
}

// document and value decode query results. Pointers tell a false or empty value
// apart from an absent one.
type document struct {
	Name   string           `json:"name,omitempty"`
	Fields map[string]value `json:"fields"`
}

type value struct {
	NullValue      *string  `json:"nullValue,omitempty"`
	BooleanValue   *bool    `json:"booleanValue,omitempty"`
	IntegerValue   *string  `json:"integerValue,omitempty"`
	DoubleValue    *float64 `json:"doubleValue,omitempty"`
	TimestampValue *string  `json:"timestampValue,omitempty"`
	StringValue    *string  `json:"stringValue,omitempty"`
}

// Query runs a single-field equality query over the collection.
func (f *Firestore) Query(ctx context.Context, collection string, filter service.Filter) ([]service.Record, error) {
	v, err := encodeValue(filter.Value)
	if err != nil {
		return nil, err
	}
	body := &firestore.RunQueryRequest{
		StructuredQuery: &firestore.StructuredQuery{
			From: []*firestore.CollectionSelector{{CollectionId: collection}},
			Where: &firestore.Filter{
				FieldFilter: &firestore.FieldFilter{
					Field: &firestore.FieldReference{FieldPath: filter.Field},
					Op:    "EQUAL",
					Value: v,
				},
			},
		},
	}

	var results []struct {
		Document *document `json:"document"`
	}
	if err := f.post(ctx, "v1/"+f.parent+":runQuery", body, &results); err != nil {
		return nil, err
	}

	recs := make([]service.Record, 0, len(results))
	for _, r := range results {
		if r.Document == nil {
			continue
		}
		rec, err := decodeDocument(r.Document)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Insert creates a document with a server-assigned ID.
func (f *Firestore) Insert(ctx context.Context, collection string, fields service.Fields) (string, error) {
	doc, err := encodeDocument(fields)
	if err != nil {
		return "", err
	}
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	created, err := f.svc.Projects.Databases.Documents.CreateDocument(f.parent, collection, doc).Context(ctx).Do()
	if err != nil {
		return "", wrapError(err)
	}
	if created.Name == "" {
		return "", fmt.Errorf("create response missing document name")
	}
	return path.Base(created.Name), nil
}

// UpdateFields patches only the given fields of an existing document.
func (f *Firestore) UpdateFields(ctx context.Context, collection, id string, fields service.Fields) error {
	doc, err := encodeDocument(fields)
	if err != nil {
		return err
	}
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	_, err = f.svc.Projects.Databases.Documents.Patch(f.docName(collection, id), doc).
		UpdateMaskFieldPaths(sortedKeys(fields)...).
		CurrentDocumentExists(true).
		Context(ctx).
		Do()
	return wrapError(err)
}

// Delete removes a document. Deleting a missing document succeeds.
func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()
	_, err := f.svc.Projects.Databases.Documents.Delete(f.docName(collection, id)).Context(ctx).Do()
	return wrapError(err)
}

func (f *Firestore) docName(collection, id string) string {
	return f.parent + "/" + url.PathEscape(collection) + "/" + url.PathEscape(id)
}

func (f *Firestore) post(ctx context.Context, rel string, in, out any) error {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	u := googleapi.ResolveRelative(f.endpoint, rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()
	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapError(err)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrapError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (f *Firestore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.timeout)
}

func encodeDocument(fields service.Fields) (*firestore.Document, error) {
	doc := &firestore.Document{Fields: make(map[string]firestore.Value, len(fields))}
	for k, v := range fields {
		fv, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		doc.Fields[k] = *fv
	}
	return doc, nil
}

// encodeValue forces zero values onto the wire so false, 0 and "" are stored as such.
func encodeValue(v any) (*firestore.Value, error) {
	switch v := v.(type) {
	case nil:
		return &firestore.Value{NullValue: "NULL_VALUE"}, nil
	case bool:
		return &firestore.Value{BooleanValue: v, ForceSendFields: []string{"BooleanValue"}}, nil
	case string:
		return &firestore.Value{StringValue: v, ForceSendFields: []string{"StringValue"}}, nil
	case int:
		return &firestore.Value{IntegerValue: int64(v), ForceSendFields: []string{"IntegerValue"}}, nil
	case int64:
		return &firestore.Value{IntegerValue: v, ForceSendFields: []string{"IntegerValue"}}, nil
	case float64:
		return &firestore.Value{DoubleValue: v, ForceSendFields: []string{"DoubleValue"}}, nil
	case time.Time:
		return &firestore.Value{TimestampValue: v.UTC().Format(time.RFC3339Nano)}, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

func decodeDocument(doc *document) (service.Record, error) {
	id := path.Base(doc.Name)
	fields := make(service.Fields, len(doc.Fields))
	for k, v := range doc.Fields {
		fv, err := decodeValue(v)
		if err != nil {
			return service.Record{}, fmt.Errorf("document %s field %s: %w", id, k, err)
		}
		fields[k] = fv
	}
	return service.Record{ID: id, Fields: fields}, nil
}

func decodeValue(v value) (any, error) {
	switch {
	case v.NullValue != nil:
		return nil, nil
	case v.BooleanValue != nil:
		return *v.BooleanValue, nil
	case v.StringValue != nil:
		return *v.StringValue, nil
	case v.IntegerValue != nil:
		return strconv.ParseInt(*v.IntegerValue, 10, 64)
	case v.DoubleValue != nil:
		return *v.DoubleValue, nil
	case v.TimestampValue != nil:
		t, err := time.Parse(time.RFC3339Nano, *v.TimestampValue)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	}
	return nil, fmt.Errorf("unsupported value")
}

func sortedKeys(fields service.Fields) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
