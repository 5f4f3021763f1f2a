package editor

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gorm.io/datatypes"
)

// NodeKind decides which widget edits a field: a single-line input, a
// textarea, or a list editor over record groups.
type NodeKind string

const (
	KindString   NodeKind = "string"
	KindLongText NodeKind = "long_text"
	KindList     NodeKind = "list"
)

// Text fields longer than this many runes get a textarea even when their
// key does not suggest prose.
const longTextThreshold = 100

// Node is one editable field of a page document. List nodes carry their
// items as groups of sub-fields, classified with the same rules.
type Node struct {
	Key   string   `json:"key"`
	Kind  NodeKind `json:"kind"`
	Text  string   `json:"text,omitempty"`
	Items []Group  `json:"items,omitempty"`
}

// Group is the fields of one list item, in stable key order. A scalar list
// item becomes a single field with an empty key.
type Group struct {
	Fields []Node `json:"fields"`
}

// Document is a page's content flattened into editor fields, in stable key
// order.
type Document struct {
	Nodes []Node `json:"nodes"`
}

// ParseDocument flattens a JSON content map into editor nodes. Keys are
// sorted so the editor layout is stable across loads.
func ParseDocument(content map[string]interface{}) Document {
	return Document{Nodes: classifyMap(content)}
}

func classifyMap(content map[string]interface{}) []Node {
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	nodes := make([]Node, 0, len(keys))
	for _, key := range keys {
		nodes = append(nodes, classify(key, content[key]))
	}
	return nodes
}

func classify(key string, value interface{}) Node {
	switch v := value.(type) {
	case string:
		return Node{Key: key, Kind: classifyText(key, v), Text: v}
	case []interface{}:
		items := make([]Group, 0, len(v))
		for _, item := range v {
			items = append(items, classifyItem(item))
		}
		return Node{Key: key, Kind: KindList, Items: items}
	default:
		return Node{Key: key, Kind: KindString, Text: stringify(value)}
	}
}

func classifyItem(item interface{}) Group {
	if record, ok := item.(map[string]interface{}); ok {
		return Group{Fields: classifyMap(record)}
	}
	return Group{Fields: []Node{classify("", item)}}
}

// classifyText picks between a single-line input and a textarea. Keys that
// mention "content" always get a textarea, as does any long value.
func classifyText(key, value string) NodeKind {
	if strings.Contains(strings.ToLower(key), "content") {
		return KindLongText
	}
	if len([]rune(value)) > longTextThreshold {
		return KindLongText
	}
	return KindString
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(data)
	}
}

// Map converts a document back into the JSON shape stored in the database.
func (d Document) Map() map[string]interface{} {
	return nodesToMap(d.Nodes)
}

func nodesToMap(nodes []Node) map[string]interface{} {
	out := make(map[string]interface{}, len(nodes))
	for _, node := range nodes {
		out[node.Key] = nodeValue(node)
	}
	return out
}

func nodeValue(node Node) interface{} {
	if node.Kind != KindList {
		return node.Text
	}

	items := make([]interface{}, 0, len(node.Items))
	for _, group := range node.Items {
		if len(group.Fields) == 1 && group.Fields[0].Key == "" {
			items = append(items, group.Fields[0].Text)
			continue
		}
		items = append(items, nodesToMap(group.Fields))
	}
	return items
}

// NewPageContent is the seed document for a freshly created page.
func NewPageContent(pageName string) datatypes.JSONMap {
	return datatypes.JSONMap{
		"title":       pageName,
		"description": "Descrição da página",
		"sections": []interface{}{
			map[string]interface{}{
				"heading": "Título da Seção",
				"content": "Conteúdo da seção",
			},
		},
	}
}
