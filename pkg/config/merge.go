package config

// Merge deep-merges fragment into base and returns the result. Values already
// present in base always win: a fragment only fills gaps. Nested mappings are
// merged field by field; a null value in base counts as a gap. Neither input is
// modified.
func Merge(base, fragment Node) Node {
	if base.IsNull() {
		return fragment
	}
	if base.kind != KindMapping || fragment.kind != KindMapping {
		return base
	}

	fields := make(map[string]Node, len(base.fields)+len(fragment.fields))
	for k, v := range base.fields {
		fields[k] = v
	}
	for k, fv := range fragment.fields {
		if bv, ok := base.fields[k]; ok {
			fields[k] = Merge(bv, fv)
			continue
		}
		fields[k] = fv
	}
	return Node{kind: KindMapping, fields: fields}
}

// MergeAll folds fragments into base in order, so earlier fragments take
// precedence over later ones.
func MergeAll(base Node, fragments ...Node) Node {
	out := base
	for _, fragment := range fragments {
		out = Merge(out, fragment)
	}
	return out
}
