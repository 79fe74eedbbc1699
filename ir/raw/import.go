package raw

// Import deep-copies obj from src into d and returns the copy. Every
// Reference inside the copied subgraph is rewritten to point at the imported
// copy of its target, allocated in d. The remap table records source ref →
// destination ref for the whole call sequence: passing the same table across
// several Import calls keeps shared sub-objects (a Resources dictionary used
// by many pages) copied exactly once, and registering the destination ref
// before recursing terminates reference cycles.
func (d *Document) Import(src *Document, obj Object, remap map[ObjectRef]ObjectRef) (Object, error) {
	switch v := obj.(type) {
	case RefObj:
		if dst, ok := remap[v.R]; ok {
			return RefObj{R: dst}, nil
		}
		target, err := src.Dereference(v.R)
		if err != nil {
			return nil, err
		}
		dst := d.allocRef()
		remap[v.R] = dst
		copied, err := d.Import(src, target, remap)
		if err != nil {
			return nil, err
		}
		d.Objects[dst] = copied
		return RefObj{R: dst}, nil
	case *ArrayObj:
		out := &ArrayObj{Items: make([]Object, 0, len(v.Items))}
		for _, item := range v.Items {
			copied, err := d.Import(src, item, remap)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, copied)
		}
		return out, nil
	case *DictObj:
		out := Dict()
		for k, item := range v.KV {
			copied, err := d.Import(src, item, remap)
			if err != nil {
				return nil, err
			}
			out.KV[k] = copied
		}
		return out, nil
	case *StreamObj:
		dictCopy, err := d.Import(src, v.Dict, remap)
		if err != nil {
			return nil, err
		}
		data := append([]byte(nil), v.Data...)
		return NewStream(dictCopy.(*DictObj), data), nil
	default:
		// Scalars are immutable values; share them.
		return obj, nil
	}
}
