package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	base := NewError(KindNoResults, "search", "golang", ErrEmptyResult)
	wrapped := fmt.Errorf("service: %w", base)

	assert.Equal(t, KindNoResults, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNoResults))
	assert.False(t, IsKind(nil, KindNoResults))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.ErrorIs(t, wrapped, ErrEmptyResult)
	assert.False(t, base.Retryable())
	assert.True(t, NewError(KindTransient, "fetch", "", nil).Retryable())
}

func TestErrorMessage(t *testing.T) {
	e := &Error{Kind: KindHTTPStatus, Op: "fetch", Target: "https://x/wiki/Go", StatusCode: 404}
	assert.Equal(t, "http_status error in fetch for https://x/wiki/Go (status 404)", e.Error())

	api := &Error{Kind: KindAPI, Op: "query", Code: "badvalue", Info: "bad list"}
	assert.Equal(t, "api error in query [badvalue] bad list", api.Error())

	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestRequestFullURL(t *testing.T) {
	req := NewRequest("https://es.wikipedia.org/w/api.php?format=xml", url.Values{
		"format": {"json"},
		"list":   {"search"},
	})
	full, err := req.FullURL()
	require.NoError(t, err)
	assert.Equal(t, "https://es.wikipedia.org/w/api.php?format=json&list=search", full)

	_, err = (&Request{URL: "://bad"}).FullURL()
	assert.Error(t, err)
}

func TestRequestIdempotent(t *testing.T) {
	assert.True(t, (&Request{}).Idempotent())
	assert.True(t, (&Request{Method: http.MethodHead}).Idempotent())
	assert.False(t, (&Request{Method: http.MethodPost}).Idempotent())
}

func TestResponseIsHTML(t *testing.T) {
	assert.True(t, (&Response{ContentType: "text/html; charset=UTF-8"}).IsHTML())
	assert.False(t, (&Response{ContentType: "application/json"}).IsHTML())
	assert.True(t, (&Response{StatusCode: 204}).IsSuccess())
	assert.False(t, (&Response{StatusCode: 301}).IsSuccess())
}

func TestCountRedirects(t *testing.T) {
	first := &http.Request{}
	second := &http.Request{Response: &http.Response{Request: first}}
	third := &http.Request{Response: &http.Response{Request: second}}
	assert.Equal(t, 0, countRedirects(first))
	assert.Equal(t, 2, countRedirects(third))
}

func buildTree() *LinkNode {
	root := NewLinkNode("A")
	root.Expanded = true
	b := NewLinkNode("B")
	b.Expanded = true
	b.AddChild(NewLinkNode("C"))
	b.AddChild(NewLinkNode("A"))
	root.AddChild(b)
	root.AddChild(NewLinkNode("C"))
	return root
}

func TestLinkNodeChildren(t *testing.T) {
	root := buildTree()
	assert.False(t, root.AddChild(NewLinkNode("B")), "duplicate title is ignored")
	assert.Len(t, root.Children, 2)

	b, ok := root.Child("B")
	require.True(t, ok)
	assert.Equal(t, "B", b.Title)
	_, ok = root.Child("Z")
	assert.False(t, ok)

	assert.Equal(t, 5, root.Count())
	c, _ := root.Child("C")
	assert.True(t, c.IsLeaf())
}

func TestLinkNodeChildLookupAfterLiteral(t *testing.T) {
	n := &LinkNode{Title: "A", Children: []*LinkNode{{Title: "B"}}}
	child, ok := n.Child("B")
	require.True(t, ok)
	assert.Equal(t, "B", child.Title)
	assert.False(t, n.AddChild(&LinkNode{Title: "B"}))
}

func TestLinkNodeEqualAndRender(t *testing.T) {
	assert.True(t, buildTree().Equal(buildTree()))

	other := buildTree()
	other.Children[0], other.Children[1] = other.Children[1], other.Children[0]
	assert.False(t, buildTree().Equal(other), "order matters")

	var nilNode *LinkNode
	assert.True(t, nilNode.Equal(nil))
	assert.False(t, buildTree().Equal(nil))

	assert.Equal(t, "A\n  - B\n    - C\n    - A\n  - C\n", buildTree().Render())
}

func TestLinkNodeWalkSkip(t *testing.T) {
	var seen []string
	buildTree().Walk(func(n *LinkNode, depth int) bool {
		seen = append(seen, n.Title)
		return n.Title != "B"
	})
	assert.Equal(t, []string{"A", "B", "C"}, seen)
}

func TestGraphFromTree(t *testing.T) {
	g := NewGraphFromTree(buildTree())

	assert.Equal(t, "A", g.RootTitle)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 4)
	assert.Equal(t, []string{"B", "C"}, g.Outgoing("A"))
	assert.Equal(t, []string{"A", "B"}, g.Incoming("C"))
	assert.Equal(t, []string{"B"}, g.Incoming("A"))
	assert.Equal(t, 2, g.MaxDepthExplored)
	for _, e := range g.Edges {
		assert.Equal(t, RelLinksTo, e.RelType)
	}
}

func TestGraphAddLinkDeduplicates(t *testing.T) {
	g := NewGraph("A")
	g.AddLink("A", "B")
	g.AddLink("A", "B")
	g.AddLink("B", "A")
	assert.Len(t, g.Edges, 2)
	assert.Len(t, g.Nodes, 2)
	assert.Nil(t, g.Outgoing("Z"))
}

func TestGraphZeroValueAddLink(t *testing.T) {
	var g Graph
	g.AddLink("A", "B")
	g.AddLink("A", "B")
	assert.Len(t, g.Nodes, 2)
	assert.Equal(t, []string{"B"}, g.Outgoing("A"))
}

func TestGraphAddLinkAfterDecode(t *testing.T) {
	data, err := json.Marshal(NewGraphFromTree(buildTree()))
	require.NoError(t, err)

	var g Graph
	require.NoError(t, json.Unmarshal(data, &g))
	require.Len(t, g.Edges, 4)

	g.AddLink("A", "B")
	assert.Len(t, g.Edges, 4, "existing edge is not duplicated")
	g.AddLink("C", "D")
	assert.Len(t, g.Edges, 5)
	assert.Len(t, g.Nodes, 4)
}
