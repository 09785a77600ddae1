package qgsdoc

import (
	"strings"

	"github.com/beevik/etree"
)

// formTags are the maplayer children that make up a layer's edit-form configuration.
var formTags = []string{"editform", "editforminit", "editforminitcodesource", "editforminitfilepath", "editforminitcode", "editorlayout", "attributeEditorForm", "widgets"}

// ChildText returns the text of the first child element named tag, or "".
func ChildText(el *etree.Element, tag string) string {
	if el == nil {
		return ""
	}
	c := el.SelectElement(tag)
	if c == nil {
		return ""
	}
	return c.Text()
}

// SetChildText replaces the text of the first child named tag, creating it
// when missing.
func SetChildText(el *etree.Element, tag, text string) {
	c := el.SelectElement(tag)
	if c == nil {
		c = el.CreateElement(tag)
	}
	c.SetText(text)
}

// Descend follows a chain of first-child lookups; nil when any step is missing.
func Descend(el *etree.Element, tags ...string) *etree.Element {
	for _, tag := range tags {
		if el == nil {
			return nil
		}
		el = el.SelectElement(tag)
	}
	return el
}

// LayerID returns the id of a maplayer element: its <id> child, or the id
// attribute used by embedded layer stubs.
func LayerID(ml *etree.Element) string {
	if id := strings.TrimSpace(ChildText(ml, "id")); id != "" {
		return id
	}
	return ml.SelectAttrValue("id", "")
}

// CustomProperty reads a layer-tree custom property from the node's own
// customproperties child. Both the legacy <property key=".." value=".."/>
// and the <Option name=".." value=".."/> map forms are recognised.
func CustomProperty(node *etree.Element, key string) (string, bool) {
	props := node.SelectElement("customproperties")
	if props == nil {
		return "", false
	}
	for _, p := range props.FindElements(".//property") {
		if p.SelectAttrValue("key", "") == key {
			return p.SelectAttrValue("value", ""), true
		}
	}
	for _, o := range props.FindElements(".//Option") {
		if o.SelectAttrValue("name", "") == key {
			return o.SelectAttrValue("value", ""), true
		}
	}
	return "", false
}

// Fields returns the attribute names declared on a vector maplayer.
func Fields(ml *etree.Element) []string {
	var fields []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	if fc := ml.SelectElement("fieldConfiguration"); fc != nil {
		for _, f := range fc.SelectElements("field") {
			add(f.SelectAttrValue("name", ""))
		}
	}
	if aliases := ml.SelectElement("aliases"); aliases != nil {
		for _, a := range aliases.SelectElements("alias") {
			add(a.SelectAttrValue("field", ""))
		}
	}
	return fields
}

// JoinLayerIDs returns the joinLayerId of every vector join of a maplayer, in order.
func JoinLayerIDs(ml *etree.Element) []string {
	joins := ml.SelectElement("vectorjoins")
	if joins == nil {
		return nil
	}
	var ids []string
	for _, j := range joins.SelectElements("join") {
		ids = append(ids, j.SelectAttrValue("joinLayerId", ""))
	}
	return ids
}

// EditFormConfig copies the edit-form related children of a maplayer into a
// standalone <editFormConfig> element. The result never aliases ml.
func EditFormConfig(ml *etree.Element) *etree.Element {
	cfg := etree.NewElement("editFormConfig")
	for _, tag := range formTags {
		if c := ml.SelectElement(tag); c != nil {
			cfg.AddChild(c.Copy())
		}
	}
	return cfg
}
