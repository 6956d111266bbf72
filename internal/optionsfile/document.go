package optionsfile

// kind is the shape of a value in a decoded options document.
type kind int

const (
	kindNull kind = iota
	kindString
	kindNumber
	kindBool
	kindSequence
	kindMapping
)

func (k kind) String() string {
	switch k {
	case kindNull:
		return "null"
	case kindString:
		return "string"
	case kindNumber:
		return "number"
	case kindBool:
		return "bool"
	case kindSequence:
		return "sequence"
	case kindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// value is a format-independent view of an options document. Mappings keep
// their source order.
type value struct {
	kind   kind
	text   string
	truth  bool
	items  []value
	fields []field
}

type field struct {
	key   string
	value value
}

func (v value) isScalar() bool {
	return v.kind == kindString || v.kind == kindNumber || v.kind == kindBool
}

// lookup returns the value for key. Later duplicates win, as they would in a
// decoded object.
func (v value) lookup(key string) (value, bool) {
	var (
		found value
		ok    bool
	)
	for _, f := range v.fields {
		if f.key == key {
			found, ok = f.value, true
		}
	}
	return found, ok
}

// orderedFields returns the fields with duplicate keys collapsed to their
// last value, keeping the position of the first occurrence.
func (v value) orderedFields() []field {
	index := make(map[string]int, len(v.fields))
	out := make([]field, 0, len(v.fields))
	for _, f := range v.fields {
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}
