package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/basalt-ai/basalt/schema"
)

// CSVLoader reads a CSV file, producing one Document per data row (the
// first row is always treated as the header).
type CSVLoader struct {
	contentColumns []string
}

// CSVOption configures a CSVLoader.
type CSVOption func(*CSVLoader)

// WithContentColumns restricts a row's Document.Content to the named
// columns, rendered as "column: value" lines in the given order. cols is
// a comma-separated list. Unset, Content includes every column.
func WithContentColumns(cols string) CSVOption {
	return func(l *CSVLoader) {
		for _, c := range strings.Split(cols, ",") {
			l.contentColumns = append(l.contentColumns, strings.TrimSpace(c))
		}
	}
}

// NewCSVLoader returns a CSVLoader configured by opts.
func NewCSVLoader(opts ...CSVOption) *CSVLoader {
	l := &CSVLoader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *CSVLoader) Load(_ context.Context, path string) ([]schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	columns := l.contentColumns
	if len(columns) == 0 {
		columns = header
	}

	docs := make([]schema.Document, 0, len(rows)-1)
	for i, row := range rows[1:] {
		metadata := map[string]any{"row": i}
		values := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				metadata[h] = row[j]
				values[h] = row[j]
			}
		}

		var lines []string
		for _, c := range columns {
			if v, ok := values[c]; ok {
				lines = append(lines, fmt.Sprintf("%s: %s", c, v))
			}
		}

		docs = append(docs, schema.Document{
			ID:       fmt.Sprintf("%s#%d", path, i),
			Content:  strings.Join(lines, "\n"),
			Metadata: metadata,
		})
	}
	return docs, nil
}

var _ Loader = (*CSVLoader)(nil)
