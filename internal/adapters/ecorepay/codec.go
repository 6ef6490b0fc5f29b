package ecorepay

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/pkg/security"
)

const xmlHeader = `<?xml version="1.0"?>`

// DefaultRepeatTag names elements whose key is a numeric index
const DefaultRepeatTag = "Item"

// Field is one request entry. A non-nil Children makes it a nested element.
type Field struct {
	Key      string
	Value    string
	Children Fields
}

// Fields is an ordered request mapping
type Fields []Field

// Scalar builds a leaf field
func Scalar(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Nested builds an element holding children
func Nested(key string, children ...Field) Field {
	if children == nil {
		children = Fields{}
	}
	return Field{Key: key, Children: children}
}

// IsNested reports whether the field holds children
func (f Field) IsNested() bool {
	return f.Children != nil
}

// Get returns the first top-level scalar value for key
func (fs Fields) Get(key string) (string, bool) {
	for _, f := range fs {
		if f.Key == key && !f.IsNested() {
			return f.Value, true
		}
	}
	return "", false
}

// Redacted returns a copy safe for logs and alerts
func (fs Fields) Redacted() Fields {
	out := make(Fields, len(fs))
	for i, f := range fs {
		if f.IsNested() {
			out[i] = Nested(f.Key, f.Children.Redacted()...)
			continue
		}
		out[i] = Scalar(f.Key, security.RedactValue(f.Key, f.Value))
	}
	return out
}

func isIndexKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Encode renders fields as <rootTag type="opType">...</rootTag> in the given order.
// Keys made only of digits are emitted under repeatTag.
func Encode(rootTag string, opType domain.TransactionOperation, fields Fields, repeatTag string) ([]byte, error) {
	if rootTag == "" {
		return nil, errors.New("root tag is required")
	}
	if repeatTag == "" {
		repeatTag = DefaultRepeatTag
	}

	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteByte('\n')

	enc := xml.NewEncoder(&buf)
	root := xml.StartElement{Name: xml.Name{Local: rootTag}}
	if opType != "" {
		root.Attr = []xml.Attr{{Name: xml.Name{Local: "type"}, Value: string(opType)}}
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, fmt.Errorf("encode %s: %w", rootTag, err)
	}
	if err := encodeFields(enc, fields, repeatTag); err != nil {
		return nil, err
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, fmt.Errorf("encode %s: %w", rootTag, err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("flush xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeFields(enc *xml.Encoder, fields Fields, repeatTag string) error {
	for _, f := range fields {
		name := f.Key
		if isIndexKey(name) {
			name = repeatTag
		}
		if name == "" {
			return errors.New("field key is required")
		}

		start := xml.StartElement{Name: xml.Name{Local: name}}
		if err := enc.EncodeToken(start); err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if f.IsNested() {
			if err := encodeFields(enc, f.Children, repeatTag); err != nil {
				return err
			}
		} else if f.Value != "" {
			if err := enc.EncodeToken(xml.CharData(f.Value)); err != nil {
				return fmt.Errorf("encode %s: %w", name, err)
			}
		}
		if err := enc.EncodeToken(start.End()); err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
	}
	return nil
}

// Node is an element of a decoded document
type Node struct {
	Attrs    map[string]string
	Name     string
	Text     string
	Children []*Node
}

// Child returns the first child named name
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Document is a decoded gateway reply with its elements in document order
type Document struct {
	Root *Node
}

// Text returns the trimmed text at path below the root, or "" when absent
func (d *Document) Text(path ...string) string {
	if d == nil || d.Root == nil {
		return ""
	}
	n := d.Root
	for _, p := range path {
		n = n.Child(p)
		if n == nil {
			return ""
		}
	}
	return strings.TrimSpace(n.Text)
}

// attr returns a root attribute, or "" when absent
func (d *Document) attr(name string) string {
	if d == nil || d.Root == nil {
		return ""
	}
	return d.Root.Attrs[name]
}

// Fields converts the document below the root back into ordered fields
func (d *Document) Fields() Fields {
	if d == nil || d.Root == nil {
		return Fields{}
	}
	return nodeFields(d.Root)
}

func nodeFields(n *Node) Fields {
	out := make(Fields, 0, len(n.Children))
	for _, c := range n.Children {
		if len(c.Children) > 0 {
			out = append(out, Nested(c.Name, nodeFields(c)...))
			continue
		}
		out = append(out, Scalar(c.Name, c.Text))
	}
	return out
}

// Decode parses an XML document. Only malformed XML fails.
func Decode(data []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		root  *Node
		stack []*Node
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeGatewayMalformed, "decode gateway response", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				n.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					n.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, domain.WrapError(domain.ErrorCodeGatewayMalformed, "decode gateway response: multiple root elements", nil)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, domain.WrapError(domain.ErrorCodeGatewayMalformed, "decode gateway response: no root element", nil)
	}
	if len(stack) != 0 {
		return nil, domain.WrapError(domain.ErrorCodeGatewayMalformed, "decode gateway response: unexpected end of document", nil)
	}
	return &Document{Root: root}, nil
}
