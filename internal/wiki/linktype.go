package wiki

import (
	"fmt"
	"strings"

	"github.com/IshaanNene/wikiscraper/internal/types"
)

// LinkType selects which kind of links Links retrieves.
type LinkType int

const (
	// LinkInternal is links from the page to other wiki pages.
	LinkInternal LinkType = iota
	// LinkExternal is links from the page to external URLs.
	LinkExternal
	// LinkLinksHere is pages that link to the page.
	LinkLinksHere
	// LinkInterwiki is links to other wikis, as "prefix:title".
	LinkInterwiki
)

// linkSpec is the API shape of one link type.
type linkSpec struct {
	name       string
	module     string // value of the prop parameter
	prefix     string // parameter prefix, e.g. "pl" for pllimit
	resultKey  string // key of the item list under each page
	namespaced bool   // whether <prefix>namespace is accepted
}

var linkSpecs = map[LinkType]linkSpec{
	LinkInternal:  {name: "internal", module: "links", prefix: "pl", resultKey: "links", namespaced: true},
	LinkExternal:  {name: "external", module: "extlinks", prefix: "el", resultKey: "extlinks"},
	LinkLinksHere: {name: "linkshere", module: "linkshere", prefix: "lh", resultKey: "linkshere", namespaced: true},
	LinkInterwiki: {name: "interwiki", module: "iwlinks", prefix: "iw", resultKey: "iwlinks"},
}

// LinkTypeNames lists the accepted names in declaration order.
var LinkTypeNames = []string{"internal", "external", "linkshere", "interwiki"}

// ParseLinkType resolves a link type by name.
func ParseLinkType(name string) (LinkType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for lt, spec := range linkSpecs {
		if spec.name == n {
			return lt, nil
		}
	}
	return 0, types.NewError(types.KindValidation, "parse_link_type", name,
		fmt.Errorf("invalid link type, must be one of: %s", strings.Join(LinkTypeNames, ", ")))
}

func (t LinkType) String() string {
	if spec, ok := linkSpecs[t]; ok {
		return spec.name
	}
	return fmt.Sprintf("LinkType(%d)", int(t))
}

func (t LinkType) spec() (linkSpec, error) {
	spec, ok := linkSpecs[t]
	if !ok {
		return linkSpec{}, types.NewError(types.KindValidation, "links", t.String(),
			fmt.Errorf("invalid link type, must be one of: %s", strings.Join(LinkTypeNames, ", ")))
	}
	return spec, nil
}
