package internal

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

//go:embed inspect.html
var templatesFS embed.FS

// InspectRow is one rendered store entry in the debug page.
type InspectRow struct {
	Key       string
	Type      string
	Timestamp string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type pageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer exposes a read-only HTML view over the Badger store
// for operators: prefix scans rendered as a table, plus live stats.
// Never expose this listener beyond localhost.
func StartDebugServer(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := pageData{Prefix: prefix, Stats: make(map[string]any)}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("127.0.0.1:%d", port), mux)
	}()
}

// DefaultMapper renders message and user records without decoding
// domain specifics: key namespace, embedded timestamp if present, and
// the decoded CBOR map as the detail column.
func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.Split(key, ":")
	row := InspectRow{
		Key:       key,
		Type:      "RAW",
		Timestamp: "--:--:--",
	}
	if len(parts) > 0 {
		row.Type = strings.ToUpper(parts[0])
	}
	// Message keys embed a 19-digit unix-nano timestamp.
	if len(parts) >= 4 && parts[0] == "msg" {
		var nanos int64
		if _, err := fmt.Sscanf(parts[len(parts)-2], "%d", &nanos); err == nil {
			row.Timestamp = time.Unix(0, nanos).UTC().Format(time.RFC3339)
		}
	}

	var decoded map[any]any
	if err := cbor.Unmarshal(val, &decoded); err == nil {
		row.Detail = fmt.Sprintf("%v", decoded)
	} else {
		row.Detail = fmt.Sprintf("%d bytes", len(val))
	}
	return row
}
