package pagetree

import (
	"fmt"
	"math"

	"github.com/teracodedev/pdfengine/ir/raw"
)

// Default page size when no MediaBox is defined anywhere on the inheritance
// chain: US Letter in default user space units.
const (
	DefaultWidth  = 612.0
	DefaultHeight = 792.0
)

// Attributes is a leaf's effective view after inheritance resolution.
type Attributes struct {
	MediaBox [4]float64 // llx, lly, urx, ury
	Width    float64
	Height   float64
	Rotate   int // normalized to 0, 90, 180 or 270
	// Resources is the nearest Resources definition on the chain, returned
	// as stored (usually a reference) so sharing survives later copies.
	// Nil when no node on the chain defines one.
	Resources raw.Object
	// MediaBoxInherited and RotateInherited report whether the value came
	// from an ancestor (or the default) rather than the leaf itself.
	MediaBoxInherited bool
	RotateInherited   bool
}

// MalformedAttributeError reports an attribute that is present but invalid.
// Invalid presence is a hard error; only absence is defaulted.
type MalformedAttributeError struct {
	Attr   string
	Reason string
}

func (e *MalformedAttributeError) Error() string {
	return fmt.Sprintf("malformed %s: %s", e.Attr, e.Reason)
}

// ResolveAttributes computes the effective attributes for a leaf: the leaf's
// own value wins, else the nearest ancestor's, else the fixed default.
func ResolveAttributes(doc *raw.Document, node PageNode) (Attributes, error) {
	attrs := Attributes{}

	mbObj, fromLeaf := lookup(node, "MediaBox")
	if mbObj != nil {
		box, err := parseRectangle(doc, mbObj)
		if err != nil {
			return Attributes{}, err
		}
		attrs.MediaBox = box
		attrs.MediaBoxInherited = !fromLeaf
	} else {
		attrs.MediaBox = [4]float64{0, 0, DefaultWidth, DefaultHeight}
		attrs.MediaBoxInherited = true
	}
	attrs.Width = attrs.MediaBox[2] - attrs.MediaBox[0]
	attrs.Height = attrs.MediaBox[3] - attrs.MediaBox[1]
	if attrs.Width < 0 || attrs.Height < 0 {
		return Attributes{}, &MalformedAttributeError{
			Attr:   "MediaBox",
			Reason: fmt.Sprintf("negative extent %gx%g", attrs.Width, attrs.Height),
		}
	}

	rotObj, fromLeaf := lookup(node, "Rotate")
	if rotObj != nil {
		rot, err := rotationValue(doc, rotObj)
		if err != nil {
			return Attributes{}, err
		}
		attrs.Rotate = rot
		attrs.RotateInherited = !fromLeaf
	} else {
		attrs.RotateInherited = true
	}

	if resObj, _ := lookup(node, "Resources"); resObj != nil {
		attrs.Resources = resObj
	}

	return attrs, nil
}

// NormalizeRotation wraps degrees into {0, 90, 180, 270}. Values that are
// not a multiple of 90 are rejected.
func NormalizeRotation(degrees int) (int, error) {
	if degrees%90 != 0 {
		return 0, &MalformedAttributeError{
			Attr:   "Rotate",
			Reason: fmt.Sprintf("%d is not a multiple of 90", degrees),
		}
	}
	norm := degrees % 360
	if norm < 0 {
		norm += 360
	}
	return norm, nil
}

// lookup finds the nearest definition of key: leaf first, then ancestors
// from direct parent to root. The second result reports a leaf-own value.
func lookup(node PageNode, key string) (raw.Object, bool) {
	if v, ok := node.Dict.Get(raw.NameLiteral(key)); ok {
		return v, true
	}
	for i := len(node.Chain) - 1; i >= 0; i-- {
		if v, ok := node.Chain[i].Get(raw.NameLiteral(key)); ok {
			return v, false
		}
	}
	return nil, false
}

func parseRectangle(doc *raw.Document, obj raw.Object) ([4]float64, error) {
	resolved, err := doc.Resolve(obj)
	if err != nil {
		return [4]float64{}, err
	}
	arr, ok := resolved.(*raw.ArrayObj)
	if !ok {
		return [4]float64{}, &MalformedAttributeError{Attr: "MediaBox", Reason: "not an array"}
	}
	if arr.Len() != 4 {
		return [4]float64{}, &MalformedAttributeError{
			Attr:   "MediaBox",
			Reason: fmt.Sprintf("expected 4 components, got %d", arr.Len()),
		}
	}
	var box [4]float64
	for i, item := range arr.Items {
		itemResolved, err := doc.Resolve(item)
		if err != nil {
			return [4]float64{}, err
		}
		num, ok := itemResolved.(raw.NumberObj)
		if !ok {
			return [4]float64{}, &MalformedAttributeError{
				Attr:   "MediaBox",
				Reason: fmt.Sprintf("component %d is a %s, not a number", i, itemResolved.Type()),
			}
		}
		v := num.Float()
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return [4]float64{}, &MalformedAttributeError{
				Attr:   "MediaBox",
				Reason: fmt.Sprintf("component %d is not finite", i),
			}
		}
		box[i] = v
	}
	return box, nil
}

func rotationValue(doc *raw.Document, obj raw.Object) (int, error) {
	resolved, err := doc.Resolve(obj)
	if err != nil {
		return 0, err
	}
	num, ok := resolved.(raw.NumberObj)
	if !ok {
		return 0, &MalformedAttributeError{
			Attr:   "Rotate",
			Reason: fmt.Sprintf("value is a %s, not an integer", resolved.Type()),
		}
	}
	if !num.IsInteger() {
		if num.Float() != math.Trunc(num.Float()) {
			return 0, &MalformedAttributeError{Attr: "Rotate", Reason: "value is not an integer"}
		}
	}
	return NormalizeRotation(int(num.Int()))
}
