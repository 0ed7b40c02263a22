package dialog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Columns is the header order written by WriteCSV.
var Columns = []string{"ID", "Speaker", "TextPool", "PlayerChoices", "Effects", "Emotion", "Audio"}

var requiredColumns = []string{"ID", "Speaker", "TextPool", "PlayerChoices"}

// Row is one raw record of the data source. Line is the 1-based source line
// when the row came from a file.
type Row struct {
	Line          int
	ID            string
	Speaker       string
	TextPool      string
	PlayerChoices string
	Effects       string
	Emotion       string
	Audio         string
}

func (r Row) fields() []string {
	return []string{r.ID, r.Speaker, r.TextPool, r.PlayerChoices, r.Effects, r.Emotion, r.Audio}
}

// ReadCSV decodes rows keyed by a case-sensitive header. A leading byte
// order mark is ignored. Effects, Emotion and Audio columns are optional.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Code: ErrUnreadable, Message: "empty source"}
		}
		return nil, &LoadError{Code: ErrUnreadable, Message: err.Error()}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, &LoadError{Code: ErrUnreadable, Message: fmt.Sprintf("missing column %s", name)}
		}
	}

	get := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Code: ErrUnreadable, Message: err.Error()}
		}
		if blank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, Row{
			Line:          line,
			ID:            get(record, "ID"),
			Speaker:       get(record, "Speaker"),
			TextPool:      get(record, "TextPool"),
			PlayerChoices: get(record, "PlayerChoices"),
			Effects:       get(record, "Effects"),
			Emotion:       get(record, "Emotion"),
			Audio:         get(record, "Audio"),
		})
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// WriteCSV encodes the graph's nodes in ascending id order.
func WriteCSV(w io.Writer, g *Graph) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, id := range g.IDs() {
		node, _ := g.Node(id)
		if err := writer.Write(node.Row().fields()); err != nil {
			return fmt.Errorf("write node %d: %w", id, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
