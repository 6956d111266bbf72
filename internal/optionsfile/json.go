package optionsfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// parseJSON reads a JSON document into a value tree, keeping object key
// order. Whitespace-only input yields null.
func parseJSON(data []byte) (value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return value{kind: kindNull}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := readJSONValue(dec)
	if err != nil {
		return value{}, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return value{}, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

func readJSONValue(dec *json.Decoder) (value, error) {
	tok, err := dec.Token()
	if err != nil {
		return value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return value{kind: kindNull}, nil
	case bool:
		return value{kind: kindBool, text: fmt.Sprint(t), truth: t}, nil
	case json.Number:
		return value{kind: kindNumber, text: t.String()}, nil
	case string:
		return value{kind: kindString, text: t}, nil
	case json.Delim:
		switch t {
		case '[':
			var items []value
			for dec.More() {
				item, err := readJSONValue(dec)
				if err != nil {
					return value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return value{}, err
			}
			return value{kind: kindSequence, items: items}, nil
		case '{':
			var fields []field
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return value{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := readJSONValue(dec)
				if err != nil {
					return value{}, err
				}
				fields = append(fields, field{key: key, value: val})
			}
			if _, err := dec.Token(); err != nil {
				return value{}, err
			}
			return value{kind: kindMapping, fields: fields}, nil
		}
	}

	return value{}, fmt.Errorf("unexpected token %v", tok)
}
