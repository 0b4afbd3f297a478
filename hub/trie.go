package hub

import (
	"strings"

	"github.com/lvalerom/samphub/sampvalue"
)

// subscriptionIndex is the MType wildcard subscription index (spec §4.4):
// a trie over MType dot-segments, adapted from the teacher's topic trie in
// arke/interchange/trie.go. The teacher's trie supports arbitrary dynamic
// topic creation and must therefore split/merge nodes as subscriptions
// come and go; MType patterns here are a small closed set of static
// strings a client declares in one shot, so this keeps the "node per
// segment" idea but indexes children by map rather than a sorted,
// splittable slice.
type subscriptionIndex struct {
	root *trieNode
}

type trieNode struct {
	children map[string]*trieNode
	// subs maps clientID to the config mapping it declared for the pattern
	// that terminates at this node.
	subs map[string]*sampvalue.Mapping
}

func newTrieNode() *trieNode {
	return &trieNode{
		children: make(map[string]*trieNode),
		subs:     make(map[string]*sampvalue.Mapping),
	}
}

func newSubscriptionIndex() *subscriptionIndex {
	return &subscriptionIndex{root: newTrieNode()}
}

func splitPattern(pattern string) []string {
	return strings.Split(pattern, ".")
}

// subscribe records that clientID subscribes to pattern with the given
// config mapping, replacing any prior config for the same (clientID,
// pattern) pair.
func (idx *subscriptionIndex) subscribe(clientID, pattern string, config *sampvalue.Mapping) {
	node := idx.root
	for _, seg := range splitPattern(pattern) {
		child, ok := node.children[seg]
		if !ok {
			child = newTrieNode()
			node.children[seg] = child
		}
		node = child
	}
	node.subs[clientID] = config
}

// unsubscribeAll removes clientID's entry from every pattern in patterns;
// used to clear out a client's previous declareSubscriptions call before
// installing its replacement, and on unregister.
func (idx *subscriptionIndex) unsubscribeAll(clientID string, patterns []string) {
	for _, pattern := range patterns {
		node := idx.root
		found := true
		for _, seg := range splitPattern(pattern) {
			child, ok := node.children[seg]
			if !ok {
				found = false
				break
			}
			node = child
		}
		if found {
			delete(node.subs, clientID)
		}
	}
}

// match returns, for the given mtype, the set of subscribed clients mapped
// to the most specific config each is subscribed under. Candidates are
// walked from most to least specific (the full dotted name, then each
// successively shorter wildcard generalization, down to the bare "*"),
// with the first (most specific) config seen per client winning, per spec
// §4.4's "more specific pattern shadows a less specific one."
func (idx *subscriptionIndex) match(mtype string) map[string]*sampvalue.Mapping {
	segs := splitPattern(mtype)
	result := make(map[string]*sampvalue.Mapping)

	for depth := len(segs); depth >= 0; depth-- {
		var path []string
		if depth == len(segs) {
			path = segs
		} else {
			path = make([]string, 0, depth+1)
			path = append(path, segs[:depth]...)
			path = append(path, "*")
		}

		node := idx.root
		found := true
		for _, seg := range path {
			child, ok := node.children[seg]
			if !ok {
				found = false
				break
			}
			node = child
		}
		if !found {
			continue
		}
		for clientID, config := range node.subs {
			if _, already := result[clientID]; !already {
				result[clientID] = config
			}
		}
	}
	return result
}

// isSubscribed reports whether clientID's subscription set matches mtype at
// all, without needing the full specificity ranking.
func (idx *subscriptionIndex) isSubscribed(clientID, mtype string) bool {
	_, ok := idx.match(mtype)[clientID]
	return ok
}
