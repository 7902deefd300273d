package memory

// Mapping is the durable memory document: topic -> field -> {value, ...}
// records, e.g. identity.name.value, relationships.wife.name.value.
// Only explicit classifier memory-update payloads mutate it.
type Mapping = map[string]any

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// leafValue unwraps a {value: ...} record, tolerating one extra level of
// nesting that older memory files carry.
func leafValue(v any) any {
	record, ok := asMap(v)
	if !ok {
		return nil
	}

	inner, ok := record["value"]
	if !ok {
		return nil
	}

	if nested, ok := asMap(inner); ok {
		if deep, ok := nested["value"]; ok {
			return deep
		}
	}

	return inner
}
