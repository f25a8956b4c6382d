package scenario

import (
	"github.com/paulmach/orb"
)

// NodeIndex maps node ids to nodes.
func (n *Network) NodeIndex() map[string]*Node {
	index := make(map[string]*Node, len(n.Nodes))
	for _, node := range n.Nodes {
		index[node.ID] = node
	}
	return index
}

// Link returns the link with the given id.
func (n *Network) Link(id string) (*Link, bool) {
	for _, l := range n.Links {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// Midpoint returns the point halfway between the link's nodes. It reports
// false when a node is missing from index.
func (l *Link) Midpoint(index map[string]*Node) (orb.Point, bool) {
	from, ok := index[l.From]
	if !ok {
		return orb.Point{}, false
	}
	to, ok := index[l.To]
	if !ok {
		return orb.Point{}, false
	}
	return orb.Point{
		(from.Coord.X() + to.Coord.X()) / 2,
		(from.Coord.Y() + to.Coord.Y()) / 2,
	}, true
}

// LinksInside returns the links whose midpoint lies inside area, in
// network order.
func (n *Network) LinksInside(area *Area) []*Link {
	if area == nil {
		return nil
	}
	index := n.NodeIndex()

	var inside []*Link
	for _, l := range n.Links {
		mid, ok := l.Midpoint(index)
		if ok && area.Contains(mid) {
			inside = append(inside, l)
		}
	}
	return inside
}
