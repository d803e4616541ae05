package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/occva/X-Bookmarks/internal/config"
	"github.com/occva/X-Bookmarks/internal/domain"
	"github.com/occva/X-Bookmarks/internal/fetch"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mapFetcher serves canned bodies keyed by URL.
type mapFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	delay  map[string]time.Duration
	calls  []string
}

func (f *mapFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	d := f.delay[rawURL]
	f.mu.Unlock()

	if d > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	body, ok := f.bodies[rawURL]
	if !ok {
		return nil, fmt.Errorf("%w: 404", domain.ErrFetchFailed)
	}
	return []byte(body), nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func ids(records []domain.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID.String()
	}
	return out
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantIDs     []string
		wantSkipped int
		wantErr     error
	}{
		{name: "array of objects", in: `[{"id":"1"},{"id":2}]`, wantIDs: []string{"1", "2"}},
		{name: "empty array", in: `[]`, wantIDs: []string{}},
		{name: "bom and whitespace", in: "\xEF\xBB\xBF \n[{\"id\":\"1\"}]\n", wantIDs: []string{"1"}},
		{name: "non-object elements skipped", in: `[{"id":"1"}, 5, "x", null, [], {"id":"2"}]`, wantIDs: []string{"1", "2"}, wantSkipped: 4},
		{name: "mistyped field kept", in: `[{"id":"1","full_text":42}]`, wantIDs: []string{"1"}},
		{name: "object id kept with empty id", in: `[{"full_text":"hi","id":{"x":1},"screen_name":"bob"}]`, wantIDs: []string{""}},
		{name: "object top level", in: `{"id":"1"}`, wantErr: domain.ErrNotArray},
		{name: "string top level", in: `"hello"`, wantErr: domain.ErrNotArray},
		{name: "null top level", in: `null`, wantErr: domain.ErrNotArray},
		{name: "truncated", in: `[{"id":"1"`, wantErr: domain.ErrJSONParse},
		{name: "html", in: `<html></html>`, wantErr: domain.ErrJSONParse},
		{name: "empty body", in: ``, wantErr: domain.ErrJSONParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, skipped, err := Decode([]byte(tt.in))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if !domain.IsJSONFormatError(err) {
					t.Errorf("%v should be a JSON format error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantIDs, ids(records)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if skipped != tt.wantSkipped {
				t.Errorf("skipped = %d, want %d", skipped, tt.wantSkipped)
			}
		})
	}
}

func TestDecode_FieldsAfterBadIDSurvive(t *testing.T) {
	records, skipped, err := Decode([]byte(`[{"full_text":"hi","id":{"x":1},"screen_name":"bob","name":"Bob"}]`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if skipped != 0 || len(records) != 1 {
		t.Fatalf("records = %d, skipped = %d; want 1, 0", len(records), skipped)
	}
	if records[0].ScreenName != "bob" || records[0].Name != "Bob" {
		t.Errorf("screen_name = %q, name = %q; want bob, Bob", records[0].ScreenName, records[0].Name)
	}
}

func TestDecode_OutOfRangeCountersStayNonNegative(t *testing.T) {
	records, _, err := Decode([]byte(`[{"id":"1","favorite_count":"Infinity","retweet_count":1e300,"reply_count":"NaN"}]`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	r := records[0]
	if r.FavoriteCount < 0 || r.RetweetCount < 0 || r.ReplyCount != 0 {
		t.Errorf("likes=%d retweets=%d replies=%d", r.FavoriteCount, r.RetweetCount, r.ReplyCount)
	}
}

func TestParseURLList(t *testing.T) {
	in := "  https://a.example/1.json \r\n\n\t\nhttps://b.example/2.json\n   "
	want := []string{"https://a.example/1.json", "https://b.example/2.json"}

	if diff := cmp.Diff(want, ParseURLList(in)); diff != "" {
		t.Errorf("ParseURLList() mismatch (-want +got):\n%s", diff)
	}
	if got := ParseURLList(" \n \n"); len(got) != 0 {
		t.Errorf("ParseURLList(blank) = %v, want empty", got)
	}
}

func TestLoader_LoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `[{"id":"1"},{"id":"2"}]`)
	b := writeFile(t, dir, "b.JSON", `[{"id":"3"}]`)

	l := NewLoader(nil, config.IngestConfig{}, testLogger())
	res := l.LoadFromFiles(context.Background(), []string{a, b})

	if err := res.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, ids(res.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if res.Warning() != "" {
		t.Errorf("Warning() = %q, want empty", res.Warning())
	}
	if res.LoadID == "" {
		t.Error("LoadID should be set")
	}
}

func TestLoader_FileErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", `[{"id":"1"}]`)
	notArray := writeFile(t, dir, "obj.json", `{"id":"1"}`)
	broken := writeFile(t, dir, "broken.json", `[{`)
	text := writeFile(t, dir, "notes.txt", `[]`)
	missing := filepath.Join(dir, "missing.json")

	l := NewLoader(nil, config.IngestConfig{}, testLogger())
	res := l.LoadFromFiles(context.Background(), []string{good, notArray, broken, text, missing})

	if err := res.Err(); err != nil {
		t.Fatalf("partial failure should not fail the batch: %v", err)
	}
	if res.Loaded != 1 || len(res.Errors) != 4 {
		t.Fatalf("Loaded = %d, errors = %d, want 1 and 4", res.Loaded, len(res.Errors))
	}

	wantKinds := []domain.ErrorKind{domain.ErrorKindShape, domain.ErrorKindParse, domain.ErrorKindRead, domain.ErrorKindRead}
	wantIndex := []int{1, 2, 3, 4}
	for i, e := range res.Errors {
		if e.Kind != wantKinds[i] {
			t.Errorf("error %d kind = %q, want %q", i, e.Kind, wantKinds[i])
		}
		if e.Index != wantIndex[i] {
			t.Errorf("error %d index = %d, want %d", i, e.Index, wantIndex[i])
		}
	}
	if !errors.Is(res.Errors[2], domain.ErrUnsupportedFile) {
		t.Errorf("txt file error = %v, want ErrUnsupportedFile", res.Errors[2])
	}
	if !strings.HasPrefix(res.Errors[0].Error(), "File 2 (obj.json): ") {
		t.Errorf("message = %q", res.Errors[0].Error())
	}
	if !res.HasJSONFormatError() {
		t.Error("HasJSONFormatError() should be true")
	}
	if w := res.Warning(); !strings.HasPrefix(w, "loaded 1 of 5 sources; 4 failed: ") {
		t.Errorf("Warning() = %q", w)
	}
}

func TestLoader_AllSourcesFail(t *testing.T) {
	f := &mapFetcher{errs: map[string]error{
		"https://a.example/x.json": fmt.Errorf("%w after 5s", domain.ErrFetchTimeout),
	}}
	l := NewLoader(f, config.IngestConfig{}, testLogger())

	res := l.LoadFromURLs(context.Background(), []string{"https://a.example/x.json", "https://b.example/y.json"})

	err := res.Err()
	if !errors.Is(err, domain.ErrNoUsableSource) {
		t.Fatalf("Err() = %v, want ErrNoUsableSource", err)
	}
	if !errors.Is(err, domain.ErrFetchTimeout) {
		t.Errorf("Err() should carry the timeout cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "URL 1 (https://a.example/x.json)") || !strings.Contains(err.Error(), "URL 2 (https://b.example/y.json)") {
		t.Errorf("Err() should list each source, got %v", err)
	}
	if res.Warning() != "" {
		t.Errorf("Warning() = %q, want empty on total failure", res.Warning())
	}
	if res.HasJSONFormatError() {
		t.Error("read failures are not JSON format errors")
	}
}

func TestLoader_EmptyBatch(t *testing.T) {
	l := NewLoader(nil, config.IngestConfig{}, testLogger())

	if err := l.LoadFromURLs(context.Background(), nil).Err(); !errors.Is(err, domain.ErrNoSources) {
		t.Errorf("Err() = %v, want ErrNoSources", err)
	}
}

func TestLoader_EmptyArrayIsSuccess(t *testing.T) {
	f := &mapFetcher{bodies: map[string]string{"https://a.example/x.json": `[]`}}
	l := NewLoader(f, config.IngestConfig{}, testLogger())

	res := l.LoadFromURLs(context.Background(), []string{"https://a.example/x.json"})
	if err := res.Err(); err != nil {
		t.Errorf("Err() = %v, want nil for an empty export", err)
	}
	if len(res.Records) != 0 {
		t.Errorf("records = %d, want 0", len(res.Records))
	}
}

func TestLoader_ConcurrentPreservesOrder(t *testing.T) {
	urls := []string{
		"https://s.example/0.json",
		"https://s.example/1.json",
		"https://s.example/2.json",
		"https://s.example/3.json",
	}
	f := &mapFetcher{
		bodies: map[string]string{
			urls[0]: `[{"id":"a"}]`,
			urls[1]: `{"not":"array"}`,
			urls[2]: `[{"id":"c1"},{"id":"c2"}]`,
			urls[3]: `[{"id":"d"}]`,
		},
		// Earlier sources finish last.
		delay: map[string]time.Duration{
			urls[0]: 60 * time.Millisecond,
			urls[1]: 40 * time.Millisecond,
			urls[2]: 20 * time.Millisecond,
		},
	}

	sequential := NewLoader(f, config.IngestConfig{Concurrency: 1}, testLogger()).
		LoadFromURLs(context.Background(), urls)
	parallel := NewLoader(f, config.IngestConfig{Concurrency: 4}, testLogger()).
		LoadFromURLs(context.Background(), urls)

	want := []string{"a", "c1", "c2", "d"}
	for name, res := range map[string]*Result{"sequential": sequential, "parallel": parallel} {
		if diff := cmp.Diff(want, ids(res.Records)); diff != "" {
			t.Errorf("%s records mismatch (-want +got):\n%s", name, diff)
		}
		if len(res.Errors) != 1 || res.Errors[0].Index != 1 || res.Errors[0].Kind != domain.ErrorKindShape {
			t.Errorf("%s errors = %v, want one shape error for URL 2", name, res.Errors)
		}
	}
}

func TestLoader_MixedSources(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.json", `[{"id":"f"}]`)
	f := &mapFetcher{bodies: map[string]string{"https://u.example/b.json": `[{"id":"u"}]`}}

	l := NewLoader(f, config.IngestConfig{}, testLogger())
	res := l.Load(context.Background(), []domain.Source{
		{Kind: domain.SourceURL, Location: "https://u.example/b.json"},
		{Kind: domain.SourceFile, Location: file},
	})

	if diff := cmp.Diff([]string{"u", "f"}, ids(res.Records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_URLWithoutFetcher(t *testing.T) {
	l := NewLoader(nil, config.IngestConfig{}, testLogger())
	res := l.LoadFromURLs(context.Background(), []string{"https://a.example/x.json"})

	if len(res.Errors) != 1 || !errors.Is(res.Errors[0], domain.ErrSourceRead) {
		t.Errorf("errors = %v, want one read error", res.Errors)
	}
}

// Two URLs where one body is a JSON object: one record set loads and the
// other source is reported as a JSON format error naming URL 2.
func TestLoader_TwoURLsOneNotArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good.json":
			w.Write([]byte(`[{"id":"1","full_text":"hello"},{"id":"2"}]`))
		case "/object.json":
			w.Write([]byte(`{"data":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := fetch.NewClient(config.FetchConfig{
		Timeout:        2 * time.Second,
		RequestTimeout: time.Second,
		Retries:        1,
		RetryDelay:     time.Millisecond,
		MaxBodyBytes:   1 << 20,
	}, testLogger())
	defer client.Close()

	l := NewLoader(client, config.IngestConfig{}, testLogger())
	res := l.LoadFromURLs(context.Background(), []string{server.URL + "/good.json", server.URL + "/object.json"})

	if err := res.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if len(res.Records) != 2 {
		t.Errorf("records = %d, want 2", len(res.Records))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(res.Errors))
	}
	e := res.Errors[0]
	if !strings.HasPrefix(e.Error(), "URL 2 (") {
		t.Errorf("error message = %q, want URL 2 prefix", e.Error())
	}
	if !domain.IsJSONFormatError(e) || !res.HasJSONFormatError() {
		t.Error("non-array body should be reported as a JSON format error")
	}
}
