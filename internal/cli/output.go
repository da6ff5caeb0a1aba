package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// printer выводит результат в выбранном формате.
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(opts *RootOptions, w io.Writer) printer {
	return printer{format: opts.Format, w: w}
}

// print: json — структура целиком, text — строки "ключ: значение" в заданном порядке.
func (p printer) print(v any, lines ...[2]string) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	for _, l := range lines {
		if _, err := fmt.Fprintf(p.w, "%s: %s\n", l[0], l[1]); err != nil {
			return err
		}
	}

	return nil
}

func line(k, v string) [2]string { return [2]string{k, v} }
