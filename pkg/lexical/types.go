package lexical

// LexicalRoot represents the top-level structure
type LexicalRoot struct {
	Root Node `json:"root"`
}

// Node is any node in the Lexical editor tree. Only the fields that carry
// readable text or structure are decoded.
type Node struct {
	Type     string `json:"type"`
	Children []Node `json:"children,omitempty"`

	Text string `json:"text,omitempty"`
	Tag  string `json:"tag,omitempty"` // h1..h6 for headings, ul/ol for lists

	URL string `json:"url,omitempty"`

	ListType string `json:"listType,omitempty"` // check, bullet, number
	Start    int    `json:"start,omitempty"`
	Checked  bool   `json:"checked,omitempty"`
}
