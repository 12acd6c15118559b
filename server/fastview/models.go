// fastview implements simple server-side views: a data model is converted to a
// view-model, multiplexed to one or more views, and each view emits element updates
// which a page applies to its DOM by element id.
package fastview

import (
	"html/template"
)

// Op keys the page script treats specially; any other key is set as an attribute.
const (
	TextContentKey = "textContent"
	ValueKey       = "value"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	EleId string
	Ops   []Op
}

// Op is a key and value: an attribute and its new value, or one of the reserved keys.
type Op struct {
	Key   string
	Value string
}

// SetText replaces the element's text.
func SetText(eleId, text string) EleUpdate {
	return EleUpdate{EleId: eleId, Ops: []Op{{Key: TextContentKey, Value: text}}}
}

// SetValue sets the value of a form element such as a select.
func SetValue(eleId, value string) EleUpdate {
	return EleUpdate{EleId: eleId, Ops: []Op{{Key: ValueKey, Value: value}}}
}

// SetAttr sets one attribute of the element.
func SetAttr(eleId, key, value string) EleUpdate {
	return EleUpdate{EleId: eleId, Ops: []Op{{Key: key, Value: value}}}
}

// ViewComponent is a server side view: Parse adds its template to a parent page, and
// Updates notifies the ele-updates that bring a rendered page up to date.
//
// Updates are batched and delivered latest-wins: for any ele-id only the most recent
// update is kept, and intermediate batches may never reach the page. A view must
// therefore emit the full state of each element it touches, never a delta.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse adds the view's template to the passed parent, inheriting its func-map,
	// and returns the name of the defined template.
	Parse(*template.Template) (string, error)
}
